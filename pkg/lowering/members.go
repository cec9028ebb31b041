package lowering

import (
	"fmt"

	"github.com/kristofer/zen/pkg/ast"
	"github.com/kristofer/zen/pkg/bytecode"
	"github.com/kristofer/zen/pkg/diag"
)

// lowerClassDef records the class type and lowers its methods; a class
// declaration itself emits no code (spec.md §4.5's Class row) —
// instances only come into being through New.
func (lw *Lowering) lowerClassDef(n *ast.ClassDef) {
	if lw.isIdentifierCollision(n.Name, false) {
		lw.bag.Add(diag.RedeclaredIdentifier, n.Pos(), n.Name)
	}
	lw.classTypes[n.Name] = n
	for _, m := range n.Methods {
		lw.lowerFunctionDef(m, n)
	}
}

// flattenMemberAccess turns the Left-nested chain into ordered segments,
// head first (spec.md §4.6).
func flattenMemberAccess(n *ast.MemberAccess) []ast.Expr {
	var segs []ast.Expr
	var walk func(e ast.Expr)
	walk = func(e ast.Expr) {
		if ma, ok := e.(*ast.MemberAccess); ok {
			walk(ma.Left)
			segs = append(segs, ma.Right)
			return
		}
		segs = append(segs, e)
	}
	walk(n)
	return segs
}

// lowerMemberAccessRead lowers a `.`-chain used as a value. A tail
// FunctionCall is a method invocation; any other tail is a field read.
func (lw *Lowering) lowerMemberAccessRead(n *ast.MemberAccess) {
	segs := flattenMemberAccess(n)
	tail := segs[len(segs)-1]
	if call, ok := tail.(*ast.FunctionCall); ok {
		lw.lowerMethodCall(segs[:len(segs)-1], call)
		return
	}
	lw.lowerMemberChain(segs)
}

// lowerMemberAccessTarget lowers a `.`-chain used as an assignment or
// mutating-unary lvalue; only a field tail is legal there.
func (lw *Lowering) lowerMemberAccessTarget(n *ast.MemberAccess) bool {
	segs := flattenMemberAccess(n)
	if _, ok := segs[len(segs)-1].(*ast.Variable); !ok {
		return false
	}
	lw.lowerMemberChain(segs)
	return true
}

// lowerMemberChain lowers the head expression, then drills through each
// remaining Variable segment with LoadMember, leaving exactly one Value
// on the evaluator (spec.md §4.9's LoadMember doubles as lvalue and
// rvalue the same way LoadVariable does).
func (lw *Lowering) lowerMemberChain(segs []ast.Expr) {
	lw.lowerExpr(segs[0])
	for _, seg := range segs[1:] {
		v, ok := seg.(*ast.Variable)
		if !ok {
			lw.bag.Add(diag.IllegalExpression, seg.Pos())
			continue
		}
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadMember, Name: v.Name})
	}
}

// lowerMethodCall handles a MemberAccess tail that is a FunctionCall.
// Method targets are resolved statically from the receiver's known
// class (set by New at the point the receiver variable was created, or
// the enclosing method's self), matching the flat global function table
// every other call resolves against — there is no dynamic vtable.
func (lw *Lowering) lowerMethodCall(prefix []ast.Expr, call *ast.FunctionCall) {
	if len(prefix) != 1 {
		lw.bag.Add(diag.IllegalExpression, call.Pos())
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadNull})
		return
	}
	recv := prefix[0]
	class := lw.resolveReceiverClass(recv)

	lw.lowerCallArgs(call.Args)
	lw.lowerExpr(recv)
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpPush, StackID: bytecode.StackFunctionParam})

	if class == nil {
		lw.bag.Add(diag.UnknownClassType, call.Pos(), call.Name)
		return
	}
	mangled := mangle(lw.moduleName, class.Name, call.Name, len(call.Args), true)
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpInvokeMethod, Name: mangled})
}

func (lw *Lowering) resolveReceiverClass(recv ast.Expr) *ast.ClassDef {
	switch r := recv.(type) {
	case *ast.Variable:
		slot, ok := lw.lookupVar(r.Name)
		if !ok {
			lw.bag.Add(diag.UndeclaredIdentifier, r.Pos(), r.Name)
			return nil
		}
		return slot.class
	case *ast.Self:
		if lw.self.class == nil {
			lw.bag.Add(diag.SelfNotDefined, r.Pos())
		}
		return lw.self.class
	default:
		return nil
	}
}

// lowerNew lowers `new ClassName(args)` / `var ident = new ClassName(args)`
// (spec.md §4.5's New row). It builds the instance (CreateObject bound
// into a fresh variable), attaches each declared var-member via
// AddMember, optionally runs a same-named constructor method, and
// leaves the bound instance as the expression's result.
func (lw *Lowering) lowerNew(n *ast.New) {
	if n.Constructor == nil {
		lw.bag.Add(diag.InvalidConstructor, n.Pos())
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadNull})
		return
	}
	class, ok := lw.classTypes[n.Constructor.Name]
	if !ok {
		lw.bag.Add(diag.UnknownClassType, n.Pos(), n.Constructor.Name)
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadNull})
		return
	}

	instanceName := n.VarIdent
	if instanceName == "" {
		instanceName = fmt.Sprintf("%s%d", class.Name, lw.newCounter)
		lw.newCounter++
	} else if lw.isIdentifierCollision(instanceName, true) {
		lw.bag.Add(diag.RedeclaredIdentifier, n.Pos(), instanceName)
	}

	mangledInstance := lw.mangleVar(instanceName)
	slot := lw.declareVar(instanceName, mangledInstance)
	slot.isClass = true
	slot.class = class

	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpCreateVar, VarType: bytecode.VarTypeAny, Name: mangledInstance})
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadVariable, Name: mangledInstance})
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpCreateObject, Name: class.Name})
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpAssign})

	savedSelf := lw.self
	lw.self = selfCtx{mangled: mangledInstance, class: class}
	for _, m := range class.Vars {
		if m.Assign != nil {
			lw.lowerExpr(m.Assign)
		} else {
			lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadNull})
		}
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpAddMember, Name: m.Name})
	}
	lw.self = savedSelf
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpClear})

	if ctor := lw.findConstructorMethod(class, len(n.Constructor.Args)); ctor != nil {
		lw.lowerCallArgs(n.Constructor.Args)
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadVariable, Name: mangledInstance})
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpPush, StackID: bytecode.StackFunctionParam})
		mangledCtor := mangle(lw.moduleName, class.Name, ctor.Name, len(ctor.Args), true)
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpInvokeMethod, Name: mangledCtor})
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpClear})
	}

	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpLoadVariable, Name: mangledInstance})
}

func (lw *Lowering) findConstructorMethod(class *ast.ClassDef, arity int) *ast.FunctionDef {
	for _, m := range class.Methods {
		if m.Name == class.Name && len(m.Args) == arity {
			return m
		}
	}
	return nil
}
