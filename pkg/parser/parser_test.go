package parser

import (
	"testing"

	"github.com/kristofer/zen/pkg/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOK(t *testing.T, src string) *ast.Module {
	t.Helper()
	p := New("t.zen", src)
	mod := p.Parse()
	require.False(t, p.Diagnostics().HasErrors(), "unexpected diagnostics: %v", p.Diagnostics().All())
	return mod
}

func TestParse_ModuleAndVarDecl(t *testing.T) {
	mod := parseOK(t, `module main; var x = 1;`)
	assert.Equal(t, "main", mod.Name)
	require.Len(t, mod.Children, 1)
	decl, ok := mod.Children[0].(*ast.VarDecl)
	require.True(t, ok)
	assert.Equal(t, "x", decl.Name)
	lit, ok := decl.Assign.(*ast.IntegerLit)
	require.True(t, ok)
	assert.EqualValues(t, 1, lit.Value)
}

func TestParse_MissingModuleDeclaration(t *testing.T) {
	p := New("t.zen", `var x = 1;`)
	p.Parse()
	assert.True(t, p.Diagnostics().HasErrors())
}

func TestParse_Imports(t *testing.T) {
	mod := parseOK(t, `module main;
import std;
import "util.zen";
var x = 0;`)
	require.Len(t, mod.Children, 2)
	imps, ok := mod.Children[0].(*ast.Imports)
	require.True(t, ok)
	require.Len(t, imps.List, 2)
	assert.Equal(t, ast.ImportModule, imps.List[0].Kind)
	assert.Equal(t, "std", imps.List[0].Value)
	assert.Equal(t, ast.ImportFile, imps.List[1].Kind)
	assert.Equal(t, "util.zen", imps.List[1].Value)
}

func TestParse_FunctionDefSynthesizesReturn(t *testing.T) {
	mod := parseOK(t, `module main;
fn add(a, b) {
	var c = a + b;
}`)
	fn, ok := mod.Children[0].(*ast.FunctionDef)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, []string{"a", "b"}, fn.Args)
	require.Len(t, fn.Body.Children, 2)
	ret, ok := fn.Body.Children[1].(*ast.Return)
	require.True(t, ok)
	assert.Nil(t, ret.Value)
}

func TestParse_FunctionDefKeepsExplicitReturn(t *testing.T) {
	mod := parseOK(t, `module main;
fn add(a, b) {
	return a + b;
}`)
	fn := mod.Children[0].(*ast.FunctionDef)
	require.Len(t, fn.Body.Children, 1)
	ret := fn.Body.Children[0].(*ast.Return)
	require.NotNil(t, ret.Value)
}

func TestParse_ClassDef(t *testing.T) {
	mod := parseOK(t, `module main;
class Point {
	var x = 0;
	var y = 0;
	fn length() {
		return x;
	}
}`)
	cd, ok := mod.Children[0].(*ast.ClassDef)
	require.True(t, ok)
	assert.Equal(t, "Point", cd.Name)
	require.Len(t, cd.Vars, 2)
	require.Len(t, cd.Methods, 1)
	assert.Equal(t, "length", cd.Methods[0].Name)
}

func TestParse_IfElseIfChain(t *testing.T) {
	mod := parseOK(t, `module main;
if (x < 1) {
	var a = 1;
} else if (x < 2) {
	var a = 2;
} else {
	var a = 3;
}`)
	ifstmt, ok := mod.Children[0].(*ast.If)
	require.True(t, ok)
	require.NotNil(t, ifstmt.Else)
	require.Len(t, ifstmt.Else.Children, 1)
	_, ok = ifstmt.Else.Children[0].(*ast.If)
	assert.True(t, ok)
}

func TestParse_ForLoop(t *testing.T) {
	mod := parseOK(t, `module main;
for (var i = 0; i < 10; i++) {
	print(i);
}`)
	forstmt, ok := mod.Children[0].(*ast.For)
	require.True(t, ok)
	require.NotNil(t, forstmt.Init)
	require.NotNil(t, forstmt.Cond)
	require.NotNil(t, forstmt.Inc)
	require.Len(t, forstmt.Body.Children, 1)
}

func TestParse_BreakContinue(t *testing.T) {
	mod := parseOK(t, `module main;
for (var i = 0; i < 10; i++) {
	if (i == 5) { break; }
	if (i == 2) { continue; }
}`)
	forstmt := mod.Children[0].(*ast.For)
	ifs := forstmt.Body.Children[0].(*ast.If)
	_, ok := ifs.Then.Children[0].(*ast.LoopControl)
	assert.True(t, ok)
}

func TestParse_OperatorPrecedence(t *testing.T) {
	mod := parseOK(t, `module main; var x = 1 + 2 * 3;`)
	decl := mod.Children[0].(*ast.VarDecl)
	add, ok := decl.Assign.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BOpAdd, add.Op)
	_, ok = add.Left.(*ast.IntegerLit)
	assert.True(t, ok)
	mul, ok := add.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BOpMul, mul.Op)
}

func TestParse_AssignmentIsRightAssociative(t *testing.T) {
	mod := parseOK(t, `module main;
fn f() {
	var a = 0;
	var b = 0;
	a = b = 1;
}`)
	fn := mod.Children[0].(*ast.FunctionDef)
	stmt := fn.Body.Children[2].(*ast.ExprStmt)
	outer, ok := stmt.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BOpAssign, outer.Op)
	_, ok = outer.Left.(*ast.Variable)
	require.True(t, ok)
	inner, ok := outer.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BOpAssign, inner.Op)
}

func TestParse_PowerIsRightAssociative(t *testing.T) {
	mod := parseOK(t, `module main; var x = 2 ** 3 ** 2;`)
	decl := mod.Children[0].(*ast.VarDecl)
	outer := decl.Assign.(*ast.BinaryExpr)
	assert.Equal(t, ast.BOpPow, outer.Op)
	_, ok := outer.Left.(*ast.IntegerLit)
	require.True(t, ok)
	inner, ok := outer.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BOpPow, inner.Op)
}

func TestParse_MemberAccessChain(t *testing.T) {
	mod := parseOK(t, `module main; var x = a.b.c();`)
	decl := mod.Children[0].(*ast.VarDecl)
	outer, ok := decl.Assign.(*ast.MemberAccess)
	require.True(t, ok)
	_, ok = outer.Right.(*ast.FunctionCall)
	assert.True(t, ok)
	inner, ok := outer.Left.(*ast.MemberAccess)
	require.True(t, ok)
	_, ok = inner.Left.(*ast.Variable)
	assert.True(t, ok)
}

func TestParse_UnaryAndPostfix(t *testing.T) {
	mod := parseOK(t, `module main;
fn f() {
	var a = 0;
	var b = -a;
	a++;
	--a;
}`)
	fn := mod.Children[0].(*ast.FunctionDef)
	bdecl := fn.Body.Children[1].(*ast.VarDecl)
	neg, ok := bdecl.Assign.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.UOpNeg, neg.Op)

	post := fn.Body.Children[2].(*ast.ExprStmt).Value.(*ast.UnaryExpr)
	assert.Equal(t, ast.UOpPostInc, post.Op)

	pre := fn.Body.Children[3].(*ast.ExprStmt).Value.(*ast.UnaryExpr)
	assert.Equal(t, ast.UOpPreDec, pre.Op)
}

func TestParse_New(t *testing.T) {
	mod := parseOK(t, `module main; var p = new Point(1, 2);`)
	decl := mod.Children[0].(*ast.VarDecl)
	n, ok := decl.Assign.(*ast.New)
	require.True(t, ok)
	assert.Equal(t, "Point", n.Constructor.Name)
	assert.Len(t, n.Constructor.Args, 2)
}

func TestParse_IllegalExpressionRecorded(t *testing.T) {
	p := New("t.zen", `module main; var x = ;`)
	p.Parse()
	assert.True(t, p.Diagnostics().HasErrors())
}
