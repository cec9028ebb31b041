package lowering

import (
	"testing"

	"github.com/kristofer/zen/pkg/bytecode"
	"github.com/kristofer/zen/pkg/diag"
	"github.com/kristofer/zen/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lowerSource(t *testing.T, src string) (*bytecode.Program, *diag.Bag) {
	t.Helper()
	p := parser.New("test.zen", src)
	mod := p.Parse()
	require.False(t, p.Diagnostics().HasErrors(), "parse errors: %v", p.Diagnostics().All())

	lw := New(bytecode.ModeInline, ".")
	prog := lw.Lower(mod)
	return prog, lw.Diagnostics()
}

func ops(prog *bytecode.Program) []bytecode.Op {
	out := make([]bytecode.Op, len(prog.Instructions))
	for i, in := range prog.Instructions {
		out[i] = in.Op
	}
	return out
}

func TestLower_ArithmeticAndPrint(t *testing.T) {
	prog, bag := lowerSource(t, `module main;
var x = 2 + 3 * 4;
print(x);
`)
	require.False(t, bag.HasErrors())
	got := ops(prog)
	assert.Subset(t, got, []bytecode.Op{
		bytecode.OpLoadInteger, bytecode.OpMul, bytecode.OpAdd, bytecode.OpAssign,
		bytecode.OpClear, bytecode.OpLoadVariable, bytecode.OpPush, bytecode.OpCallNativeFunction,
	})

	var sawAssign, sawMulBeforeAdd bool
	for i, op := range got {
		if op == bytecode.OpAssign {
			sawAssign = true
		}
		if op == bytecode.OpMul {
			for _, later := range got[i:] {
				if later == bytecode.OpAdd {
					sawMulBeforeAdd = true
					break
				}
			}
		}
	}
	assert.True(t, sawAssign)
	assert.True(t, sawMulBeforeAdd)

	// The expression statement's trailing OpClear follows the call.
	call := prog.Instructions[len(prog.Instructions)-2]
	assert.Equal(t, bytecode.OpCallNativeFunction, call.Op)
	assert.Equal(t, "print", call.Name)
	assert.Equal(t, int32(1), call.Arity)
}

func TestLower_IfElse(t *testing.T) {
	prog, bag := lowerSource(t, `module main;
var x = 10;
if (x > 5) { print("big"); } else { print("small"); }
`)
	require.False(t, bag.HasErrors())
	got := ops(prog)
	assert.Contains(t, got, bytecode.OpGt)
	assert.Contains(t, got, bytecode.OpIfStatement)
	assert.Contains(t, got, bytecode.OpElseStatement)
	assert.Contains(t, got, bytecode.OpCreateBlock)
}

func TestLower_FunctionCallWithReturn(t *testing.T) {
	prog, bag := lowerSource(t, `module main;
fn square(n) { return n * n; }
print(square(7));
`)
	require.False(t, bag.HasErrors())
	got := ops(prog)
	assert.Contains(t, got, bytecode.OpCreateFunction)
	assert.Contains(t, got, bytecode.OpCallFunction)
	assert.Contains(t, got, bytecode.OpLeaveFunction)

	var sawCall bool
	for _, in := range prog.Instructions {
		if in.Op == bytecode.OpCallFunction {
			assert.Contains(t, in.Name, "square")
			sawCall = true
		}
	}
	assert.True(t, sawCall)
}

func TestLower_ForLoopSum(t *testing.T) {
	prog, bag := lowerSource(t, `module main;
var s = 0;
for (var i = 0; i < 4; i += 1) { s += i; }
print(s);
`)
	require.False(t, bag.HasErrors())
	got := ops(prog)
	assert.Contains(t, got, bytecode.OpGoToIfTrue)
	assert.Contains(t, got, bytecode.OpAddAssign)
}

func TestLower_UndeclaredIdentifier(t *testing.T) {
	_, bag := lowerSource(t, `module main;
print(y);
`)
	require.True(t, bag.HasErrors())
	found := false
	for _, d := range bag.All() {
		if d.Kind == diag.UndeclaredIdentifier {
			require.Equal(t, []string{"y"}, d.Params)
			found = true
		}
	}
	assert.True(t, found)
}

func TestLower_RedeclaredIdentifier(t *testing.T) {
	_, bag := lowerSource(t, `module main;
var x = 1;
var x = 2;
`)
	require.True(t, bag.HasErrors())
	var kinds []diag.Kind
	for _, d := range bag.All() {
		kinds = append(kinds, d.Kind)
	}
	assert.Contains(t, kinds, diag.RedeclaredIdentifier)
}

func TestLower_ClassNewAndMethodCall(t *testing.T) {
	prog, bag := lowerSource(t, `module main;
class Counter {
  var n = 0;
  fn bump() { self.n = self.n + 1; return self.n; }
}
var c = new Counter();
print(c.bump());
`)
	require.False(t, bag.HasErrors())
	got := ops(prog)
	assert.Contains(t, got, bytecode.OpCreateObject)
	assert.Contains(t, got, bytecode.OpAddMember)
	assert.Contains(t, got, bytecode.OpInvokeMethod)
	assert.Contains(t, got, bytecode.OpLoadMember)
}

func TestLower_UnknownClassType(t *testing.T) {
	_, bag := lowerSource(t, `module main;
var c = new Ghost();
`)
	require.True(t, bag.HasErrors())
	var kinds []diag.Kind
	for _, d := range bag.All() {
		kinds = append(kinds, d.Kind)
	}
	assert.Contains(t, kinds, diag.UnknownClassType)
}
