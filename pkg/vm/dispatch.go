package vm

import (
	"github.com/kristofer/zen/pkg/bytecode"
	"github.com/kristofer/zen/pkg/value"
	"github.com/pkg/errors"
)

// dispatch executes one decoded instruction. Per spec.md §4.8/§4.9,
// every opcode's wire operands were already consumed unconditionally by
// DecodeInstruction; what dispatch gates on live() is whether the
// instruction's effect actually happens. CreateBlock, CreateFunction,
// IncreaseBlockLevel, and DecreaseBlockLevel are the exceptions — their
// bookkeeping must happen even while the VM is skipping a branch, or
// the level pair could never resynchronize.
func (vm *VM) dispatch(in bytecode.Instruction) error {
	switch in.Op {

	case bytecode.OpIncBlockLevel:
		vm.blockLevel++
		vm.module.frame(vm.blockLevel)
		return nil

	case bytecode.OpDecBlockLevel:
		return vm.decBlockLevel()

	case bytecode.OpIncReadLevel:
		if vm.live() {
			vm.readLevel++
		}
		return nil

	case bytecode.OpDecReadLevel:
		if vm.live() {
			vm.readLevel--
		}
		return nil

	case bytecode.OpCreateBlock:
		vm.module.labels[in.ID] = int(in.BodyPos)
		return nil

	case bytecode.OpCreateFunction:
		vm.module.functions[in.Name] = funcEntry{pos: int(in.BodyPos)}
		return nil

	case bytecode.OpGoToBlock:
		if vm.live() {
			vm.reader.Seek(vm.module.labels[in.ID])
		}
		return nil

	case bytecode.OpGoToIfTrue:
		if vm.live() && vm.currentFrame().lastIfResult {
			vm.reader.Seek(vm.module.labels[in.ID])
		}
		return nil

	case bytecode.OpGoToIfFalse:
		if vm.live() && !vm.currentFrame().lastIfResult {
			vm.reader.Seek(vm.module.labels[in.ID])
		}
		return nil

	case bytecode.OpIfStatement:
		if !vm.live() {
			return nil
		}
		f := vm.currentFrame()
		cond := f.pop()
		f.lastIfResult = cond.IsTruthy()
		if f.lastIfResult {
			vm.readLevel++
		}
		return nil

	case bytecode.OpElseStatement:
		if !vm.live() {
			return nil
		}
		f := vm.currentFrame()
		if !f.lastIfResult {
			vm.readLevel++
		}
		return nil

	case bytecode.OpCallFunction, bytecode.OpInvokeMethod:
		if !vm.live() {
			return nil
		}
		return vm.callScript(in.Name)

	case bytecode.OpCallNativeFunction:
		if !vm.live() {
			return nil
		}
		return vm.callNative(in.Name, int(in.Arity))

	case bytecode.OpLeaveFunction:
		if !vm.live() {
			return nil
		}
		return vm.leaveFunction()

	case bytecode.OpLeaveBlock:
		if !vm.live() {
			return nil
		}
		vm.dropCurrentFrame()
		vm.blockLevel--
		vm.readLevel--
		return nil

	case bytecode.OpLoopBreak:
		return vm.loopControl(in.Levels, false)

	case bytecode.OpLoopContinue:
		return vm.loopControl(in.Levels, true)

	case bytecode.OpCreateVar:
		if vm.live() {
			vm.currentFrame().vars[in.Name] = value.Null()
		}
		return nil

	case bytecode.OpClearVar:
		if vm.live() {
			vm.currentFrame().vars[in.Name] = value.Null()
		}
		return nil

	case bytecode.OpDeleteVar:
		if vm.live() {
			delete(vm.currentFrame().vars, in.Name)
		}
		return nil

	case bytecode.OpStackPopObject:
		if !vm.live() {
			return nil
		}
		v, ok := vm.popStack(in.StackID)
		if !ok {
			return vm.fail("stack %d underflow binding %q", in.StackID, in.Name)
		}
		vm.currentFrame().vars[in.Name] = v
		return nil

	case bytecode.OpLoadInteger:
		if vm.live() {
			v := value.Int(in.Int)
			v.IsConst = true
			vm.currentFrame().push(v)
		}
		return nil

	case bytecode.OpLoadFloat:
		if vm.live() {
			v := value.Flt(in.Float)
			v.IsConst = true
			vm.currentFrame().push(v)
		}
		return nil

	case bytecode.OpLoadString:
		if vm.live() {
			v := value.Str(in.Name)
			v.IsConst = true
			vm.currentFrame().push(v)
		}
		return nil

	case bytecode.OpLoadNull:
		if vm.live() {
			v := value.Null()
			v.IsConst = true
			vm.currentFrame().push(v)
		}
		return nil

	case bytecode.OpLoadVariable:
		if !vm.live() {
			return nil
		}
		v, ok := vm.lookupVar(in.Name)
		if !ok {
			return vm.fail("undefined variable %q", in.Name)
		}
		vm.currentFrame().push(v)
		return nil

	case bytecode.OpPush:
		if vm.live() {
			vm.pushStack(in.StackID, vm.currentFrame().pop())
		}
		return nil

	case bytecode.OpClear:
		if vm.live() {
			vm.currentFrame().pop()
		}
		return nil

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow,
		bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor, bytecode.OpLogAnd, bytecode.OpLogOr,
		bytecode.OpEql, bytecode.OpNeql, bytecode.OpLt, bytecode.OpGt, bytecode.OpLte, bytecode.OpGte:
		if !vm.live() {
			return nil
		}
		return vm.binaryOp(in.Op)

	case bytecode.OpAssign, bytecode.OpAddAssign, bytecode.OpSubAssign,
		bytecode.OpMulAssign, bytecode.OpDivAssign, bytecode.OpModAssign:
		if !vm.live() {
			return nil
		}
		return vm.assignOp(in.Op)

	case bytecode.OpUnaryNeg, bytecode.OpUnaryNot:
		if !vm.live() {
			return nil
		}
		return vm.unaryOp(in.Op)

	case bytecode.OpUnaryPreInc, bytecode.OpUnaryPreDec, bytecode.OpUnaryPostInc, bytecode.OpUnaryPostDec:
		if !vm.live() {
			return nil
		}
		return vm.unaryMutate(in.Op)

	case bytecode.OpCreateObject:
		if vm.live() {
			vm.currentFrame().push(value.Obj(value.NewObject(in.Name)))
		}
		return nil

	case bytecode.OpAddMember:
		if !vm.live() {
			return nil
		}
		return vm.addMember(in.Name)

	case bytecode.OpLoadMember:
		if !vm.live() {
			return nil
		}
		return vm.loadMember(in.Name)

	case bytecode.OpCreateNativeClassInstance:
		if !vm.live() {
			return nil
		}
		if _, ok := vm.nativeClasses[in.Name]; !ok {
			return vm.fail("unbound native class %q", in.Name)
		}
		vm.currentFrame().push(value.NativeHandle(&nativeInstance{tag: in.Name}))
		return nil

	default:
		return vm.fail("unhandled opcode %s", in.Op)
	}
}

// decBlockLevel implements spec.md §4.9's asymmetric gating: the block
// frame at the current level is always torn down, but the read_level
// only follows it back down when this level was actually live —
// unwinding a skipped branch must leave read_level exactly where it
// was so the offset between the two levels is preserved until they
// naturally realign.
func (vm *VM) decBlockLevel() error {
	wasLive := vm.live()
	vm.dropCurrentFrame()
	vm.blockLevel--
	if wasLive {
		vm.readLevel--
	}
	return nil
}

// dropCurrentFrame removes and returns the frame at the level about to
// be exited, so a later visit to that same numeric level (a later
// sibling block, or a later call reusing the same recursion depth)
// never observes stale bindings.
func (vm *VM) dropCurrentFrame() *Frame {
	f := vm.module.frames[vm.blockLevel]
	delete(vm.module.frames, vm.blockLevel)
	return f
}

// loopControl implements spec.md §4.9's LoopBreak/LoopContinue: force
// the frame n levels up to believe its guarding if-condition came out
// false (break) or true (continue), then desynchronize read_level by n
// so the rest of the current iteration's remaining instructions read as
// skipped until the stream naturally unwinds back to that level.
func (vm *VM) loopControl(levels int32, isContinue bool) error {
	if !vm.live() {
		return nil
	}
	target := vm.blockLevel - levels
	if f, ok := vm.module.frames[target]; ok {
		f.lastIfResult = isContinue
	}
	vm.readLevel -= levels
	return nil
}

func (vm *VM) binaryOp(op bytecode.Op) error {
	f := vm.currentFrame()
	b := f.pop()
	a := f.pop()
	fn, ok := binaryFuncs[op]
	if !ok {
		return vm.fail("unhandled binary opcode %s", op)
	}
	result, err := fn(a, b)
	if err != nil {
		return vm.wrapFail(err)
	}
	f.push(result)
	return nil
}

var binaryFuncs = map[bytecode.Op]func(a, b *value.Value) (*value.Value, error){
	bytecode.OpAdd:    value.Add,
	bytecode.OpSub:    value.Sub,
	bytecode.OpMul:    value.Mul,
	bytecode.OpDiv:    value.Div,
	bytecode.OpMod:    value.Mod,
	bytecode.OpPow:    value.Pow,
	bytecode.OpBitAnd: value.BitAnd,
	bytecode.OpBitOr:  value.BitOr,
	bytecode.OpBitXor: value.BitXor,
	bytecode.OpLogAnd: value.LogAnd,
	bytecode.OpLogOr:  value.LogOr,
	bytecode.OpEql:    value.Eq,
	bytecode.OpNeql:   value.NotEq,
	bytecode.OpLt:     value.Less,
	bytecode.OpGt:     value.Greater,
	bytecode.OpLte:    value.LessEq,
	bytecode.OpGte:    value.GreaterEq,
}

var compoundFuncs = map[bytecode.Op]func(a, b *value.Value) (*value.Value, error){
	bytecode.OpAddAssign: value.Add,
	bytecode.OpSubAssign: value.Sub,
	bytecode.OpMulAssign: value.Mul,
	bytecode.OpDivAssign: value.Div,
	bytecode.OpModAssign: value.Mod,
}

// assignOp implements spec.md §4.9's Assign row: the evaluator holds
// [target, rhs] with rhs on top (lowerBinary pushes the lvalue
// reference first, then the right-hand value); a compound assign folds
// target OP rhs before the in-place Assign, a plain assign uses rhs
// directly. Either way the mutated target is pushed back so the
// assignment can itself be used as an expression value.
func (vm *VM) assignOp(op bytecode.Op) error {
	f := vm.currentFrame()
	rhs := f.pop()
	target := f.pop()
	src := rhs
	if fn, ok := compoundFuncs[op]; ok {
		combined, err := fn(target, rhs)
		if err != nil {
			return vm.wrapFail(err)
		}
		src = combined
	}
	if err := value.Assign(target, src); err != nil {
		return vm.wrapFail(err)
	}
	f.push(target)
	return nil
}

func (vm *VM) unaryOp(op bytecode.Op) error {
	f := vm.currentFrame()
	a := f.pop()
	var result *value.Value
	var err error
	switch op {
	case bytecode.OpUnaryNeg:
		result, err = value.Neg(a)
	case bytecode.OpUnaryNot:
		result, err = value.Not(a)
	default:
		return vm.fail("unhandled unary opcode %s", op)
	}
	if err != nil {
		return vm.wrapFail(err)
	}
	f.push(result)
	return nil
}

// unaryMutate implements the four mutating unary opcodes. lowerUnary
// pushes an lvalue reference (the live *Value backing a variable or
// member slot, via lowerAssignTarget) rather than a plain value, so
// these handlers mutate that slot in place: the pre-variants push the
// post-mutation value, the post-variants snapshot the pre-mutation
// value first and push that instead.
func (vm *VM) unaryMutate(op bytecode.Op) error {
	f := vm.currentFrame()
	target := f.pop()
	delta := int64(1)
	isPost := op == bytecode.OpUnaryPostInc || op == bytecode.OpUnaryPostDec
	if op == bytecode.OpUnaryPreDec || op == bytecode.OpUnaryPostDec {
		delta = -1
	}
	var before *value.Value
	if isPost {
		before = value.Clone(target)
	}
	next, err := value.Add(target, value.Int(delta))
	if err != nil {
		return vm.wrapFail(err)
	}
	if err := value.Assign(target, next); err != nil {
		return vm.wrapFail(err)
	}
	if isPost {
		f.push(before)
	} else {
		f.push(target)
	}
	return nil
}

func (vm *VM) addMember(name string) error {
	f := vm.currentFrame()
	val := f.pop()
	obj := f.pop()
	if obj.Kind != value.KindObject {
		return vm.fail("ADD_MEMBER %q on non-object value of type %s", name, obj.TypeStr())
	}
	slot := value.Null()
	if err := value.Assign(slot, val); err != nil {
		return vm.wrapFail(err)
	}
	obj.Obj.Set(name, slot)
	f.push(obj)
	return nil
}

func (vm *VM) loadMember(name string) error {
	f := vm.currentFrame()
	recv := f.pop()
	switch recv.Kind {
	case value.KindObject:
		member, ok := recv.Obj.Get(name)
		if !ok {
			return vm.fail("undefined member %q on %s instance", name, recv.Obj.ClassName)
		}
		f.push(member)
		return nil
	case value.KindNative:
		inst, ok := recv.Native.(*nativeInstance)
		if !ok {
			return vm.fail("LOAD_MEMBER %q on unrecognized native handle", name)
		}
		nc, ok := vm.nativeClasses[inst.tag]
		if !ok {
			return vm.fail("unbound native class %q", inst.tag)
		}
		prop, ok := nc.properties[name]
		if !ok || prop.Get == nil {
			return vm.fail("undefined native property %q on %s", name, inst.tag)
		}
		v, err := prop.Get(recv)
		if err != nil {
			return vm.wrapFail(err)
		}
		f.push(v)
		return nil
	default:
		return vm.fail("LOAD_MEMBER %q on non-object value of type %s", name, recv.TypeStr())
	}
}

// callScript implements spec.md §4.8's CallFunction/InvokeMethod: push
// the return position, advance read_level, and seek into the target's
// body. The single dispatch loop in Run resumes reading from there; no
// nested loop is needed because LeaveFunction performs the symmetric
// seek back.
func (vm *VM) callScript(name string) error {
	entry, ok := vm.module.functions[name]
	if !ok {
		return vm.fail("call to undefined function %q", name)
	}
	vm.module.callChain = append(vm.module.callChain, vm.reader.Position())
	vm.callStack = append(vm.callStack, StackFrame{Name: name, Position: vm.reader.Position()})
	vm.readLevel++
	vm.reader.Seek(entry.pos)
	return nil
}

func (vm *VM) leaveFunction() error {
	n := len(vm.module.callChain)
	if n == 0 {
		return vm.fail("LEAVE_FUNCTION with an empty call chain")
	}
	returnPos := vm.module.callChain[n-1]
	vm.module.callChain = vm.module.callChain[:n-1]
	vm.callStack = vm.callStack[:len(vm.callStack)-1]

	vm.dropCurrentFrame()
	vm.blockLevel--
	vm.readLevel--
	vm.reader.Seek(returnPos)

	result, ok := vm.popStack(bytecode.StackFunctionCallback)
	if !ok {
		result = value.Null()
	}
	vm.currentFrame().push(result)
	return nil
}

func (vm *VM) callNative(name string, arity int) error {
	fn, ok := vm.nativeFuncs[name]
	if !ok {
		return vm.fail("call to unbound native function %q", name)
	}
	args := make([]*value.Value, arity)
	for i := arity - 1; i >= 0; i-- {
		v, ok := vm.popStack(bytecode.StackFunctionParam)
		if !ok {
			return vm.fail("native call %q: argument stack underflow", name)
		}
		args[i] = v
	}
	result, err := fn.Native(args)
	if err != nil {
		return vm.wrapFail(errors.Wrapf(err, "native call %q", name))
	}
	if result == nil {
		result = value.Null()
	}
	vm.currentFrame().push(result)
	return nil
}
