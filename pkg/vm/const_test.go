package vm

import (
	"testing"

	"github.com/kristofer/zen/pkg/bytecode"
	"github.com/kristofer/zen/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The grammar never exposes a `const` keyword to zen source (every
// literal Value the VM produces is marked const internally, see
// OpLoadInteger's handler in dispatch.go, but nothing in the surface
// syntax lets a program declare a const variable slot). This test
// drives assignOp directly against a manually const-marked slot to
// confirm the runtime-halt path spec.md §8's fifth example describes
// still exists at the Value/VM boundary.
func TestAssignOp_ConstTargetFails(t *testing.T) {
	m := New(nil)
	m.module = newModule()
	m.blockLevel = -1
	m.readLevel = -1

	target := value.Int(1)
	target.IsConst = true
	f := m.currentFrame()
	f.push(target)
	f.push(value.Int(2))

	err := m.assignOp(bytecode.OpAssign)
	require.Error(t, err)

	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, rerr.Unwind(), value.ErrConstValueChanged)
}
