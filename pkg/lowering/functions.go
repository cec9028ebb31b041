package lowering

import (
	"github.com/kristofer/zen/pkg/ast"
	"github.com/kristofer/zen/pkg/bytecode"
	"github.com/kristofer/zen/pkg/diag"
)

// lowerFunctionDef lowers a top-level `fn` or a class method (when
// owner is non-nil). See selfMemberName for why methods get an
// implicit extra parameter instead of being handled as a special case
// of the Self row alone.
func (lw *Lowering) lowerFunctionDef(def *ast.FunctionDef, owner *ast.ClassDef) {
	savedSelf := lw.self
	if owner != nil {
		lw.self = selfCtx{mangled: lw.mangleVar(selfMemberName), class: owner}
	}

	isConstructor := owner != nil && def.Name == owner.Name
	if !isConstructor && lw.isIdentifierCollision(def.Name, true) {
		lw.bag.Add(diag.RedeclaredIdentifier, def.Pos(), def.Name)
	}
	mangled := lw.mangleFunc(def.Name, len(def.Args))
	lw.declareFunc(def.Name, mangled, len(def.Args), def)

	if def.IsNative {
		lw.self = savedSelf
		return // forward declaration only; no body to lower (see lookupFunc)
	}

	lw.emitter.EmitCreateFunction(mangled)
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpIncBlockLevel})
	lw.pushLevel(bytecode.BlockUndefined, true)

	if owner != nil {
		lw.declareVar(selfMemberName, lw.self.mangled)
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpCreateVar, VarType: bytecode.VarTypeAny, Name: lw.self.mangled})
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpStackPopObject, StackID: bytecode.StackFunctionParam, Name: lw.self.mangled})
	}

	for i := len(def.Args) - 1; i >= 0; i-- {
		argName := def.Args[i]
		argMangled := lw.mangleVar(argName)
		lw.declareVar(argName, argMangled)
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpCreateVar, VarType: bytecode.VarTypeAny, Name: argMangled})
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpStackPopObject, StackID: bytecode.StackFunctionParam, Name: argMangled})
	}

	lw.lowerStmt(def.Body)

	lw.popLevel()
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpDecBlockLevel})
	lw.self = savedSelf
}

// lowerFunctionCall lowers a bare call, `name(args)` — never a
// MemberAccess tail (see members.go for method calls).
func (lw *Lowering) lowerFunctionCall(n *ast.FunctionCall) {
	target, isNative := lw.resolveCallTarget(n)
	lw.lowerCallArgs(n.Args)
	if isNative {
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpCallNativeFunction, Name: target, Arity: int32(len(n.Args))})
		return
	}
	lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpCallFunction, Name: target})
}

// resolveCallTarget implements the FunctionCall row's "if script, else
// CallNativeFunction" split (spec.md §4.5): a name declared as a
// script fn in the current scope chain calls through CallFunction;
// anything else is assumed to be a host binding resolved at dispatch
// time (spec.md §6's print()/etc scenario 1, which never appears in a
// `fn` declaration yet still compiles).
func (lw *Lowering) resolveCallTarget(n *ast.FunctionCall) (target string, isNative bool) {
	mangled, status, native := lw.lookupFunc(n.Name, len(n.Args))
	switch status {
	case fnFound:
		return mangled, native
	case fnTooFewArgs:
		lw.bag.Add(diag.TooFewArgs, n.Pos(), n.Name)
		return n.Name, true
	case fnTooManyArgs:
		lw.bag.Add(diag.TooManyArgs, n.Pos(), n.Name)
		return n.Name, true
	default: // fnNotFound: treat as a native call resolved by the host at runtime
		return n.Name, true
	}
}

// lowerCallArgs implements the shared argument-push prologue used by
// both plain calls and method calls (spec.md §4.5's IncreaseReadLevel;
// IncreaseBlockLevel; lower(arg); Push; DecreaseBlockLevel wrapper,
// applied once per argument, "for each arg in reverse" per spec.md
// §4.5 and original_source/compiler/emit/default_handler.cpp). Call
// arguments are pushed in reverse (last argument first), so the first
// argument ends up on top of FUNCTION_PARAM; lowerFunctionDef's
// prologue also pops declared params in reverse (last-declared first),
// so the last-declared param binds to the first call argument and the
// first-declared param binds to the last — e.g. `fn f(x, y) {...};
// f(10, 20)` binds x=20, y=10. A trailing self push (see
// lowerMemberAccessRead) lands on top of all of this, to be popped
// first by the callee.
func (lw *Lowering) lowerCallArgs(args []ast.Expr) {
	for i := len(args) - 1; i >= 0; i-- {
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpIncReadLevel})
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpIncBlockLevel})
		lw.pushLevel(bytecode.BlockUndefined, false)
		lw.lowerExpr(args[i])
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpPush, StackID: bytecode.StackFunctionParam})
		lw.popLevel()
		lw.emitter.Emit(bytecode.Instruction{Op: bytecode.OpDecBlockLevel})
	}
}
