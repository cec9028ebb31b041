package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kristofer/zen/pkg/bytecode"
)

// Debugger provides interactive, breakpoint-driven stepping through a
// running VM. Unlike a fixed-array bytecode interpreter, this VM's unit
// of position is a byte offset into the instruction stream (the
// ByteReader's Position), not an instruction index — breakpoints and
// the step prompt are keyed on that offset.
type Debugger struct {
	vm          *VM
	breakpoints map[int]bool
	stepMode    bool
	enabled     bool

	in  *bufio.Reader
	out io.Writer
}

// ErrQuit is returned by Run when the debugger's "q" command is used to
// abort execution early; callers should treat it as a clean stop, not a
// RuntimeError.
var ErrQuit = fmt.Errorf("vm: execution aborted from debugger")

// NewDebugger attaches a debugger to vm, reading commands from stdin
// and writing prompts to stdout.
func NewDebugger(vm *VM) *Debugger {
	return &Debugger{
		vm:          vm,
		breakpoints: make(map[int]bool),
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}
}

func (d *Debugger) Enable()                  { d.enabled = true }
func (d *Debugger) Disable()                 { d.enabled = false }
func (d *Debugger) SetStepMode(step bool)    { d.stepMode = step }
func (d *Debugger) AddBreakpoint(pos int)    { d.breakpoints[pos] = true }
func (d *Debugger) RemoveBreakpoint(pos int) { delete(d.breakpoints, pos) }
func (d *Debugger) ClearBreakpoints()        { d.breakpoints = make(map[int]bool) }

func (d *Debugger) shouldPause(pos int) bool {
	if !d.enabled {
		return false
	}
	return d.stepMode || d.breakpoints[pos]
}

// before is called by Run just after decoding, before dispatch, for
// every instruction when a debugger is attached. It blocks on operator
// input whenever shouldPause reports true.
func (d *Debugger) before(pos int, in bytecode.Instruction) error {
	if !d.shouldPause(pos) {
		return nil
	}
	fmt.Fprintf(d.out, "%6d  %-28s block=%d read=%d %s\n", pos, in.Op, d.vm.blockLevel, d.vm.readLevel, operandSummary(in))
	for {
		fmt.Fprint(d.out, "(zen-dbg) ")
		line, err := d.in.ReadString('\n')
		if err != nil {
			return ErrQuit
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil // bare Enter repeats the default: single step
		}
		switch fields[0] {
		case "c", "continue":
			d.stepMode = false
			return nil
		case "s", "step":
			d.stepMode = true
			return nil
		case "b", "break":
			if len(fields) != 2 {
				fmt.Fprintln(d.out, "usage: break <stream offset>")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Fprintln(d.out, "not a number:", fields[1])
				continue
			}
			d.AddBreakpoint(n)
			return nil
		case "q", "quit":
			return ErrQuit
		default:
			fmt.Fprintln(d.out, "commands: c(ontinue) s(tep) b(reak) <offset> q(uit)")
		}
	}
}

func operandSummary(in bytecode.Instruction) string {
	switch in.Op {
	case bytecode.OpCallFunction, bytecode.OpInvokeMethod, bytecode.OpCallNativeFunction,
		bytecode.OpCreateFunction, bytecode.OpLoadString, bytecode.OpLoadVariable,
		bytecode.OpClearVar, bytecode.OpDeleteVar, bytecode.OpAddMember, bytecode.OpLoadMember,
		bytecode.OpCreateVar, bytecode.OpStackPopObject, bytecode.OpCreateObject,
		bytecode.OpCreateNativeClassInstance:
		return in.Name
	case bytecode.OpLoadInteger:
		return strconv.FormatInt(in.Int, 10)
	case bytecode.OpLoadFloat:
		return strconv.FormatFloat(in.Float, 'g', -1, 64)
	case bytecode.OpCreateBlock, bytecode.OpGoToBlock, bytecode.OpGoToIfTrue, bytecode.OpGoToIfFalse:
		return fmt.Sprintf("id=%d", in.ID)
	case bytecode.OpLoopBreak, bytecode.OpLoopContinue:
		return fmt.Sprintf("levels=%d", in.Levels)
	default:
		return ""
	}
}
