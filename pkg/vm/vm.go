// Package vm implements the bytecode virtual machine described by
// spec.md §3/§4.8/§4.9: a single-threaded interpreter that decodes one
// instruction at a time from a seekable byte stream and dispatches on
// it, tracking a block-level/read-level pair that implements branching
// and function calls without ever backing out of the linear decode
// loop — a conditional body, a skipped function declaration fallen
// into during linear scan, and a real function call are all just
// different ways the stream pointer and the level pair can diverge and
// resynchronize.
//
// Execution model:
//
//	Source -> Lexer -> Parser -> AST -> Lowering -> Bytecode -> VM -> Value
//
// The VM owns a *Module (the per-run set of level-indexed frames, the
// block/function label table, and the call chain of saved stream
// positions) plus four auxiliary LIFO stacks used to pass arguments and
// return values across calls (spec.md §3's "auxiliary stack" concept).
// Binary/unary/assignment opcodes operate on the current frame's own
// Evaluator, a plain Value stack; FUNCTION_PARAM and FUNCTION_CALLBACK
// are how values cross from a caller's Evaluator into a callee's and
// back, since the interpreter otherwise only ever has one frame "in
// view" at a time.
package vm

import (
	"bytes"
	"io"

	"github.com/kristofer/zen/pkg/bytecode"
	"github.com/kristofer/zen/pkg/stream"
	"github.com/kristofer/zen/pkg/value"
	"github.com/pkg/errors"
)

// Frame is spec.md §3's StackFrame: a named-slot table of Values local
// to one block level, together with the Evaluator expression stack
// live at that level and the last IfStatement result consulted by a
// paired ElseStatement or a loop's GoToIfTrue.
type Frame struct {
	vars         map[string]*value.Value
	stack        []*value.Value
	lastIfResult bool
}

func newFrame() *Frame {
	return &Frame{vars: make(map[string]*value.Value)}
}

func (f *Frame) push(v *value.Value) { f.stack = append(f.stack, v) }

func (f *Frame) pop() *value.Value {
	n := len(f.stack) - 1
	v := f.stack[n]
	f.stack = f.stack[:n]
	return v
}

// funcEntry is one global_functions table row: a mangled name resolved
// to where its body begins in the instruction stream.
type funcEntry struct {
	pos int
}

// Module is spec.md §3's Module: the label table populated by
// CreateBlock/CreateFunction, the level-indexed frame set, and the call
// chain CallFunction/InvokeMethod push onto and LeaveFunction pops.
type Module struct {
	frames    map[int32]*Frame
	labels    map[int32]int
	functions map[string]funcEntry
	callChain []int
}

func newModule() *Module {
	m := &Module{
		frames:    make(map[int32]*Frame),
		labels:    make(map[int32]int),
		functions: make(map[string]funcEntry),
	}
	m.frames[-1] = newFrame()
	return m
}

func (m *Module) frame(level int32) *Frame {
	f, ok := m.frames[level]
	if !ok {
		f = newFrame()
		m.frames[level] = f
	}
	return f
}

// PropertyDescriptor is one bind_class property: a getter and an
// optional setter thunk operating on a native handle's receiver Value
// (spec.md §6's native binding surface).
type PropertyDescriptor struct {
	Get func(recv *value.Value) (*value.Value, error)
	Set func(recv, v *value.Value) error
}

type nativeClass struct {
	properties map[string]PropertyDescriptor
}

// nativeInstance is the payload of a Value created by
// CreateNativeClassInstance: a class tag plus whatever opaque state the
// binding that created it chose to stash there.
type nativeInstance struct {
	tag   string
	state interface{}
}

// VM is spec.md §3's VM: the current Module, the stream cursor, the
// block/read level pair, and the native/global function tables.
type VM struct {
	module *Module
	reader *stream.ByteReader

	blockLevel int32
	readLevel  int32

	stacks [4][]*value.Value

	nativeFuncs   map[string]*value.Function
	nativeClasses map[string]nativeClass

	callStack []StackFrame

	Stdout io.Writer

	// Debugger is nil unless the embedder opts into interactive
	// stepping by setting it (see NewDebugger; the zen CLI does not);
	// Run consults it before every dispatch when set.
	Debugger *Debugger
}

// New creates a VM with no bindings registered; callers wire stdlib
// functions/classes through BindFunction/BindClass before Run.
func New(stdout io.Writer) *VM {
	return &VM{
		nativeFuncs:   make(map[string]*value.Function),
		nativeClasses: make(map[string]nativeClass),
		Stdout:        stdout,
	}
}

// BindFunction registers a native function under name, invoked by
// CallNativeFunction (spec.md §6's bind_function).
func (vm *VM) BindFunction(name string, arity int, fn value.NativeFunc) {
	vm.nativeFuncs[name] = &value.Function{Name: name, Arity: arity, IsNative: true, Native: fn}
}

// BindClass registers a native class's property descriptors under tag,
// consulted by CreateNativeClassInstance and member access on the
// resulting native handle (spec.md §6's bind_class).
func (vm *VM) BindClass(tag string, properties map[string]PropertyDescriptor) {
	vm.nativeClasses[tag] = nativeClass{properties: properties}
}

func (vm *VM) currentFrame() *Frame { return vm.module.frame(vm.blockLevel) }

// live reports whether the VM is at a read_level == block_level
// position — spec.md §4.8's gating condition that decides whether the
// instruction about to be dispatched actually takes effect.
func (vm *VM) live() bool { return vm.readLevel == vm.blockLevel }

func (vm *VM) pushStack(id int32, v *value.Value) {
	vm.stacks[id] = append(vm.stacks[id], v)
}

func (vm *VM) popStack(id int32) (*value.Value, bool) {
	s := vm.stacks[id]
	if len(s) == 0 {
		return nil, false
	}
	v := s[len(s)-1]
	vm.stacks[id] = s[:len(s)-1]
	return v, true
}

func (vm *VM) lookupVar(name string) (*value.Value, bool) {
	for lvl := vm.blockLevel; lvl >= -1; lvl-- {
		f, ok := vm.module.frames[lvl]
		if !ok {
			continue
		}
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Run executes a fully lowered program to completion (or to the first
// RuntimeError). The caller must have already confirmed the lowering
// pass produced no diagnostics (spec.md §7).
func (vm *VM) Run(prog *bytecode.Program) error {
	var buf bytes.Buffer
	if err := bytecode.Encode(prog, &buf); err != nil {
		return errors.Wrap(err, "vm: re-encoding program for execution")
	}
	// Encode's first 8 bytes are the magic/version header; BodyPos
	// fields recorded during lowering are relative to the instruction
	// stream that follows it (see pkg/bytecode/emitter.go), so the
	// reader must address the same body-relative offsets.
	body := buf.Bytes()[8:]

	vm.reader = stream.New(body)
	vm.module = newModule()
	vm.blockLevel = -1
	vm.readLevel = -1

	for !vm.reader.EOF() {
		pos := vm.reader.Position()
		in, err := bytecode.DecodeInstruction(vm.reader)
		if err != nil {
			return errors.Wrap(err, "vm: decoding instruction")
		}
		if vm.Debugger != nil {
			if err := vm.Debugger.before(pos, in); err != nil {
				return err
			}
		}
		if err := vm.dispatch(in); err != nil {
			return err
		}
	}
	return nil
}
