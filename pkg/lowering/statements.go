package lowering

import (
	"github.com/kristofer/zen/pkg/ast"
	"github.com/kristofer/zen/pkg/bytecode"
	"github.com/kristofer/zen/pkg/diag"
)

func (lw *Lowering) lowerStmt(stmt ast.Stmt) {
	switch n := stmt.(type) {
	case *ast.Imports:
		for _, imp := range n.List {
			lw.lowerImport(imp)
		}
	case *ast.Import:
		lw.lowerImport(n)
	case *ast.Block:
		for _, c := range n.Children {
			lw.lowerStmt(c)
		}
	case *ast.ExprStmt:
		lw.lowerExpr(n.Value)
		if n.Clear {
			lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpClear})
		}
	case *ast.VarDecl:
		lw.lowerVarDecl(n)
	case *ast.FunctionDef:
		lw.lowerFunctionDef(n, nil)
	case *ast.ClassDef:
		lw.lowerClassDef(n)
	case *ast.Return:
		lw.lowerReturn(n)
	case *ast.If:
		lw.lowerIf(n)
	case *ast.For:
		lw.lowerFor(n)
	case *ast.LoopControl:
		op := bytecode.OpLoopBreak
		if n.Continue {
			op = bytecode.OpLoopContinue
		}
		levels := n.Levels
		if levels <= 0 {
			levels = 1
		}
		if !n.Continue {
			// LoopBreak counts block levels: the distance up to the
			// levels-th enclosing loop frame (lowerFor's BlockUndefined level).
			loops := levels
			levels = 0
			for i := len(lw.levels) - 1; i > 0 && !lw.levels[i].isFunctionBoundary; i-- {
				if lw.levels[i].blockType == bytecode.BlockUndefined {
					if loops--; loops == 0 {
						break
					}
				}
				levels++
			}
		}
		lw.emitter.Emit(bytecode.Instruction{Op: op, Levels: int32(levels)})
	default:
		lw.bag.Add(diag.InternalError, stmt.Pos(), "unhandled statement node")
	}
}

func (lw *Lowering) lowerVarDecl(n *ast.VarDecl) {
	// `var c = new Class(...)` binds the instance directly to c rather
	// than going through a separate synthesized instance name and a
	// reference-copy assignment (spec.md §4.5's New row derives its
	// fresh mangled name "from var_ident" exactly for this case).
	if newExpr, ok := n.Assign.(*ast.New); ok && newExpr.VarIdent == "" {
		newExpr.VarIdent = n.Name
		lw.lowerExpr(newExpr)
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpClear})
		return
	}

	if lw.isIdentifierCollision(n.Name, true) {
		lw.bag.Add(diag.RedeclaredIdentifier, n.Pos(), n.Name)
	}
	mangled := lw.mangleVar(n.Name)
	lw.declareVar(n.Name, mangled)
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpCreateVar, VarType: bytecode.VarTypeAny, Name: mangled})
	if n.Assign != nil {
		lw.lowerExpr(&ast.BinaryExpr{Op: ast.BOpAssign, Left: &ast.Variable{Name: n.Name}, Right: n.Assign})
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpClear})
	}
}

func (lw *Lowering) lowerReturn(n *ast.Return) {
	if n.Value != nil {
		lw.lowerExpr(n.Value)
	} else {
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadNull})
	}
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpPush, StackID: bytecode.StackFunctionCallback})
	for i := 0; i < lw.enclosingNonFunctionBlocks(); i++ {
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLeaveBlock})
	}
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLeaveFunction})
}

func (lw *Lowering) enclosingNonFunctionBlocks() int {
	n := 0
	for i := len(lw.levels) - 1; i >= 0; i-- {
		if lw.levels[i].isFunctionBoundary {
			break
		}
		n++
	}
	return n
}

func (lw *Lowering) lowerIf(n *ast.If) {
	lw.lowerExpr(n.Cond)
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpIfStatement})

	id := lw.allocBlockID()
	lw.emitter.EmitCreateBlock(id, bytecode.BlockIfStatement, lw.currentBlockID())
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpIncBlockLevel})
	lw.pushBlockID(id)
	lw.pushLevel(bytecode.BlockIfStatement, false)
	lw.lowerStmt(n.Then)
	lw.popLevel()
	lw.popBlockID()
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpDecBlockLevel})

	if n.Else != nil {
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpElseStatement})
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpIncBlockLevel})
		lw.pushLevel(bytecode.BlockElseStatement, false)
		lw.lowerStmt(n.Else)
		lw.popLevel()
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpDecBlockLevel})
	}
}

// lowerFor implements spec.md §4.5's For row. The loop-head label is
// recorded by CreateBlock so GoToIfTrue can seek back to the condition
// check on each iteration; the wrapping IncreaseReadLevel/DecreaseBlockLevel
// pair is what lets a for-loop embedded in a currently-skipped if-branch
// stay skipped (see DESIGN.md's block/read level note).
func (lw *Lowering) lowerFor(n *ast.For) {
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpIncReadLevel})
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpIncBlockLevel})
	outerID := lw.currentBlockID()
	lw.pushLevel(bytecode.BlockUndefined, false)

	if n.Init != nil {
		lw.lowerStmt(n.Init)
	}

	labelID := lw.allocBlockID()
	lw.emitter.EmitCreateBlock(labelID, bytecode.BlockLabel, outerID)

	if n.Cond != nil {
		lw.lowerExpr(n.Cond)
	} else {
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadInteger, Int: 1})
	}
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpIfStatement})

	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpIncBlockLevel})
	lw.pushBlockID(labelID)
	lw.pushLevel(bytecode.BlockIfStatement, false)
	lw.lowerStmt(n.Body)
	if n.Inc != nil {
		lw.lowerStmt(n.Inc)
	}
	lw.popLevel()
	lw.popBlockID()
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpDecBlockLevel})

	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpGoToIfTrue, ID: labelID})

	lw.popLevel()
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpDecBlockLevel})
}
