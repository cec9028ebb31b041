package lowering

import (
	"github.com/kristofer/zen/pkg/ast"
	"github.com/kristofer/zen/pkg/bytecode"
	"github.com/kristofer/zen/pkg/diag"
)

// lowerExpr lowers one expression, leaving exactly one Value on the
// current frame's evaluator (spec.md §3's lowering contract).
func (lw *Lowering) lowerExpr(expr ast.Expr) {
	switch n := expr.(type) {
	case *ast.IntegerLit:
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadInteger, Int: n.Value})
	case *ast.FloatLit:
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadFloat, Float: n.Value})
	case *ast.StringLit:
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadString, Name: n.Value})
	case *ast.BoolLit:
		v := int64(0)
		if n.Value {
			v = 1
		}
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadInteger, Int: v})
	case *ast.NullLit:
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadNull})
	case *ast.Variable:
		lw.lowerVariable(n)
	case *ast.Self:
		lw.lowerSelf(n)
	case *ast.UnaryExpr:
		lw.lowerUnary(n)
	case *ast.BinaryExpr:
		lw.lowerBinary(n)
	case *ast.MemberAccess:
		lw.lowerMemberAccessRead(n)
	case *ast.FunctionCall:
		lw.lowerFunctionCall(n)
	case *ast.New:
		lw.lowerNew(n)
	default:
		lw.bag.Add(diag.InternalError, expr.Pos(), "unhandled expression node")
	}
}

func (lw *Lowering) lowerVariable(n *ast.Variable) {
	slot, ok := lw.lookupVar(n.Name)
	if !ok {
		lw.bag.Add(diag.UndeclaredIdentifier, n.Pos(), n.Name)
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadNull})
		return
	}
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadVariable, Name: slot.mangled})
}

func (lw *Lowering) lowerSelf(n *ast.Self) {
	if lw.self.class == nil {
		lw.bag.Add(diag.SelfNotDefined, n.Pos())
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadNull})
		return
	}
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadVariable, Name: lw.self.mangled})
}

var unaryOps = map[ast.UnaryOp]bytecode.Op{
	ast.UOpNot: bytecode.OpUnaryNot,
	ast.UOpNeg: bytecode.OpUnaryNeg,
}

var unaryMutatingOps = map[ast.UnaryOp]bytecode.Op{
	ast.UOpPreInc:  bytecode.OpUnaryPreInc,
	ast.UOpPreDec:  bytecode.OpUnaryPreDec,
	ast.UOpPostInc: bytecode.OpUnaryPostInc,
	ast.UOpPostDec: bytecode.OpUnaryPostDec,
}

func (lw *Lowering) lowerUnary(n *ast.UnaryExpr) {
	if op, ok := unaryMutatingOps[n.Op]; ok {
		if !lw.lowerAssignTarget(n.Operand) {
			lw.bag.Add(diag.IllegalExpression, n.Pos())
			lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadNull})
			return
		}
		lw.emitter.Emit(bytecode.Instruction{Op: op})
		return
	}
	op, ok := unaryOps[n.Op]
	if !ok {
		lw.bag.Add(diag.IllegalOperator, n.Pos())
		op = bytecode.OpUnaryNot
	}
	lw.lowerExpr(n.Operand)
	lw.emitter.Emit(bytecode.Instruction{Op: op})
}

var binaryOps = map[ast.BinaryOp]bytecode.Op{
	ast.BOpAdd:        bytecode.OpAdd,
	ast.BOpSub:        bytecode.OpSub,
	ast.BOpMul:        bytecode.OpMul,
	ast.BOpDiv:        bytecode.OpDiv,
	ast.BOpMod:        bytecode.OpMod,
	ast.BOpPow:        bytecode.OpPow,
	ast.BOpBitXor:     bytecode.OpBitXor,
	ast.BOpBitAnd:     bytecode.OpBitAnd,
	ast.BOpBitOr:      bytecode.OpBitOr,
	ast.BOpLogAnd:     bytecode.OpLogAnd,
	ast.BOpLogOr:      bytecode.OpLogOr,
	ast.BOpEql:        bytecode.OpEql,
	ast.BOpNotEql:     bytecode.OpNeql,
	ast.BOpLess:       bytecode.OpLt,
	ast.BOpGreater:    bytecode.OpGt,
	ast.BOpLessEql:    bytecode.OpLte,
	ast.BOpGreaterEql: bytecode.OpGte,
}

var assignOps = map[ast.BinaryOp]bytecode.Op{
	ast.BOpAssign:    bytecode.OpAssign,
	ast.BOpAddAssign: bytecode.OpAddAssign,
	ast.BOpSubAssign: bytecode.OpSubAssign,
	ast.BOpMulAssign: bytecode.OpMulAssign,
	ast.BOpDivAssign: bytecode.OpDivAssign,
	ast.BOpModAssign: bytecode.OpModAssign,
}

func (lw *Lowering) lowerBinary(n *ast.BinaryExpr) {
	if n.Op.IsAssign() {
		if !lw.lowerAssignTarget(n.Left) {
			lw.bag.Add(diag.IllegalExpression, n.Pos())
			lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadNull})
			return
		}
		lw.lowerExpr(n.Right)
		lw.emitter.Emit(bytecode.Instruction{Op: assignOps[n.Op]})
		return
	}
	lw.lowerExpr(n.Left)
	lw.lowerExpr(n.Right)
	op, ok := binaryOps[n.Op]
	if !ok {
		lw.bag.Add(diag.IllegalOperator, n.Pos())
		op = bytecode.OpAdd
	}
	lw.emitter.Emit(bytecode.Instruction{Op: op})
}

// lowerAssignTarget pushes the lvalue reference an assignment or
// mutating unary op writes through: a variable slot (LoadVariable) or
// an object member slot (MemberAccess resolved down to LoadMember).
// Reports ILLEGAL_EXPRESSION and returns false for anything else.
func (lw *Lowering) lowerAssignTarget(expr ast.Expr) bool {
	switch n := expr.(type) {
	case *ast.Variable:
		lw.lowerVariable(n)
		return true
	case *ast.MemberAccess:
		return lw.lowerMemberAccessTarget(n)
	default:
		return false
	}
}
