package vm_test

import (
	"bytes"
	"testing"

	"github.com/kristofer/zen/pkg/bytecode"
	"github.com/kristofer/zen/pkg/lowering"
	"github.com/kristofer/zen/pkg/parser"
	"github.com/kristofer/zen/pkg/stdlib"
	"github.com/kristofer/zen/pkg/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) (string, error) {
	t.Helper()
	p := parser.New("test.zen", src)
	mod := p.Parse()
	require.False(t, p.Diagnostics().HasErrors(), "parse errors: %v", p.Diagnostics().All())

	lw := lowering.New(bytecode.ModeInline, ".")
	prog := lw.Lower(mod)
	require.False(t, lw.Diagnostics().HasErrors(), "lowering errors: %v", lw.Diagnostics().All())

	var out bytes.Buffer
	m := vm.New(&out)
	stdlib.Register(m, &out)
	err := m.Run(prog)
	return out.String(), err
}

func TestVM_ArithmeticAndPrint(t *testing.T) {
	out, err := run(t, `module main;
var x = 2 + 3 * 4;
print(x);
`)
	require.NoError(t, err)
	assert.Equal(t, "14", out)
}

func TestVM_IfElseTrueBranch(t *testing.T) {
	out, err := run(t, `module main;
var x = 10;
if (x > 5) { print("big"); } else { print("small"); }
`)
	require.NoError(t, err)
	assert.Equal(t, "big", out)
}

func TestVM_IfElseFalseBranch(t *testing.T) {
	out, err := run(t, `module main;
var x = 1;
if (x > 5) { print("big"); } else { print("small"); }
`)
	require.NoError(t, err)
	assert.Equal(t, "small", out)
}

func TestVM_FunctionCallWithReturn(t *testing.T) {
	out, err := run(t, `module main;
fn square(n) { return n * n; }
print(square(7));
`)
	require.NoError(t, err)
	assert.Equal(t, "49", out)
}

func TestVM_ForLoopSum(t *testing.T) {
	out, err := run(t, `module main;
var s = 0;
for (var i = 0; i < 4; i += 1) { s += i; }
print(s);
`)
	require.NoError(t, err)
	assert.Equal(t, "6", out)
}

func TestVM_ReturnInsideIfUnwindsOnlyTheTakenBranch(t *testing.T) {
	out, err := run(t, `module main;
fn first_even(n) {
  if (n % 2 == 0) {
    return n;
  }
  return -1;
}
print(first_even(4));
print(first_even(3));
`)
	require.NoError(t, err)
	assert.Equal(t, "4-1", out)
}

func TestVM_LoopBreakStopsIteration(t *testing.T) {
	out, err := run(t, `module main;
var s = 0;
for (var i = 0; i < 10; i += 1) {
  if (i == 3) { break; }
  s += i;
}
print(s);
`)
	require.NoError(t, err)
	assert.Equal(t, "3", out)
}

func TestVM_LoopContinueSkipsBody(t *testing.T) {
	out, err := run(t, `module main;
var s = 0;
for (var i = 0; i < 5; i += 1) {
  if (i == 2) { continue; }
  s += i;
}
print(s);
`)
	require.NoError(t, err)
	assert.Equal(t, "8", out)
}

func TestVM_ClassNewAndMethodCall(t *testing.T) {
	out, err := run(t, `module main;
class Counter {
  var n = 0;
  fn bump() { self.n = self.n + 1; return self.n; }
}
var c = new Counter();
print(c.bump());
print(c.bump());
`)
	require.NoError(t, err)
	assert.Equal(t, "12", out)
}

func TestVM_MultiArgFunctionCallBindsArgsInReverse(t *testing.T) {
	out, err := run(t, `module main;
fn f(x, y) { print(x); print(y); }
f(10, 20);
`)
	require.NoError(t, err)
	assert.Equal(t, "2010", out)
}

func TestVM_MultiArgMethodCallBindsArgsInReverse(t *testing.T) {
	out, err := run(t, `module main;
class Box {
  var last_x = 0;
  var last_y = 0;
  fn set(x, y) { self.last_x = x; self.last_y = y; }
}
var b = new Box();
b.set(10, 20);
print(b.last_x);
print(b.last_y);
`)
	require.NoError(t, err)
	assert.Equal(t, "2010", out)
}

func TestVM_MultiArgConstructorBindsArgsInReverse(t *testing.T) {
	out, err := run(t, `module main;
class Point {
  var x = 0;
  var y = 0;
  fn Point(x, y) { self.x = x; self.y = y; }
}
var p = new Point(10, 20);
print(p.x);
print(p.y);
`)
	require.NoError(t, err)
	assert.Equal(t, "2010", out)
}

func TestVM_UnaryMutatingOps(t *testing.T) {
	out, err := run(t, `module main;
var x = 5;
print(x++);
print(x);
print(++x);
`)
	require.NoError(t, err)
	assert.Equal(t, "567", out)
}

func TestVM_UndefinedNativeCallFails(t *testing.T) {
	_, err := run(t, `module main;
whatever_this_is(1);
`)
	require.Error(t, err)
}
