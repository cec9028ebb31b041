package vm

import (
	"fmt"
	"io"

	"github.com/kristofer/zen/pkg/bytecode"
)

// Disassemble writes one line per instruction in prog, in stream order,
// as a human-readable listing for the `zen disassemble` subcommand
// (SPEC_FULL.md's supplemented tooling surface). It does not execute
// anything, so CreateBlock/CreateFunction body offsets are printed but
// never followed.
func Disassemble(prog *bytecode.Program, w io.Writer) error {
	offset := 0
	for i, in := range prog.Instructions {
		if _, err := fmt.Fprintf(w, "%6d  %04d  %-28s %s\n", offset, i, in.Op, operandSummary(in)); err != nil {
			return err
		}
		offset += instructionSize(in)
	}
	return nil
}

// instructionSize mirrors Instruction.Encode's per-opcode operand
// layout so the listing's offsets line up with the offsets a running
// VM would report (e.g. for setting a breakpoint).
func instructionSize(in bytecode.Instruction) int {
	const header = 4
	switch in.Op {
	case bytecode.OpIncBlockLevel, bytecode.OpDecBlockLevel, bytecode.OpIncReadLevel, bytecode.OpDecReadLevel,
		bytecode.OpLoadNull, bytecode.OpClear,
		bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow,
		bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor, bytecode.OpLogAnd, bytecode.OpLogOr,
		bytecode.OpEql, bytecode.OpNeql, bytecode.OpLt, bytecode.OpGt, bytecode.OpLte, bytecode.OpGte,
		bytecode.OpAssign, bytecode.OpAddAssign, bytecode.OpSubAssign, bytecode.OpMulAssign, bytecode.OpDivAssign, bytecode.OpModAssign,
		bytecode.OpUnaryNeg, bytecode.OpUnaryNot, bytecode.OpUnaryPreInc, bytecode.OpUnaryPreDec, bytecode.OpUnaryPostInc, bytecode.OpUnaryPostDec,
		bytecode.OpIfStatement, bytecode.OpElseStatement, bytecode.OpLeaveFunction, bytecode.OpLeaveBlock:
		return header
	case bytecode.OpCreateBlock:
		return header + 4 + 4 + 4 + 8
	case bytecode.OpCreateFunction:
		return header + stringSize(in.Name) + 8
	case bytecode.OpGoToBlock, bytecode.OpGoToIfTrue, bytecode.OpGoToIfFalse:
		return header + 4
	case bytecode.OpCallFunction, bytecode.OpInvokeMethod:
		return header + stringSize(in.Name)
	case bytecode.OpCallNativeFunction:
		return header + 4 + 4 + stringSize(in.Name)
	case bytecode.OpCreateVar:
		return header + 4 + stringSize(in.Name)
	case bytecode.OpStackPopObject:
		return header + 4 + stringSize(in.Name)
	case bytecode.OpLoadInteger:
		return header + 8
	case bytecode.OpLoadFloat:
		return header + 8
	case bytecode.OpLoadString, bytecode.OpLoadVariable, bytecode.OpClearVar, bytecode.OpDeleteVar,
		bytecode.OpAddMember, bytecode.OpLoadMember, bytecode.OpCreateNativeClassInstance, bytecode.OpCreateObject:
		return header + stringSize(in.Name)
	case bytecode.OpPush:
		return header + 4
	case bytecode.OpLoopBreak, bytecode.OpLoopContinue:
		return header + 4
	default:
		return header
	}
}

// stringSize mirrors ByteWriter.WriteString's layout: a 4-byte length
// prefix counting the trailing NUL, followed by the bytes and the NUL.
func stringSize(s string) int {
	return 4 + len(s) + 1
}
