// Package vm - error handling with call-chain traces.
package vm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// StackFrame is one entry of a RuntimeError's call-chain trace: which
// mangled function or method was executing and the stream position its
// call returns to.
type StackFrame struct {
	Name     string // mangled function/method name
	Position int    // stream position the call returns to
}

// RuntimeError is a fatal VM halt (spec.md §7): a failure distinct from
// a compile-time diagnostic, reported together with the call chain that
// was active at the point of failure.
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
	cause      error
}

// Error implements the error interface, formatting the message with the
// call chain active at the point of failure, innermost call first.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.StackTrace) > 0 {
		b.WriteString("\n\ncall chain:")
		for i := len(e.StackTrace) - 1; i >= 0; i-- {
			f := e.StackTrace[i]
			b.WriteString(fmt.Sprintf("\n  at %s [returns to %d]", f.Name, f.Position))
		}
	}
	return b.String()
}

// Unwind exposes the wrapped cause so a caller can errors.Is/errors.Cause
// against the originating pkg/value sentinel (ErrConstValueChanged, etc).
func (e *RuntimeError) Unwind() error { return e.cause }

func newRuntimeError(cause error, trace []StackFrame) *RuntimeError {
	return &RuntimeError{Message: cause.Error(), StackTrace: trace, cause: cause}
}

func (vm *VM) fail(format string, args ...interface{}) error {
	return newRuntimeError(errors.Errorf(format, args...), vm.trace())
}

func (vm *VM) wrapFail(cause error) error {
	return newRuntimeError(cause, vm.trace())
}

func (vm *VM) trace() []StackFrame {
	out := make([]StackFrame, len(vm.callStack))
	copy(out, vm.callStack)
	return out
}
