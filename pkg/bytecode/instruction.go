package bytecode

import (
	"fmt"

	"github.com/kristofer/zen/pkg/stream"
	"github.com/pkg/errors"
)

// Instruction is one decoded record. Not every field is meaningful for
// every Op; see Encode/Decode for which fields a given Op reads.
type Instruction struct {
	Op Op

	ID       int32
	BlockTyp int32
	ParentID int32
	BodyPos  uint64

	StackID int32
	Arity   int32
	Levels  int32
	VarType int32

	Int   int64
	Float float64
	Name  string
}

// Encode appends the wire representation of one instruction to w,
// starting with the 32-bit opcode header. CreateBlock/CreateFunction
// return the byte offset of their BodyPos field so a caller can
// back-patch it once the body has actually been written.
func (in Instruction) Encode(w *stream.ByteWriter) (bodyPosOffset int) {
	w.WriteU32(uint32(in.Op))
	bodyPosOffset = -1

	switch in.Op {
	case OpIncBlockLevel, OpDecBlockLevel, OpIncReadLevel, OpDecReadLevel,
		OpLoadNull, OpClear,
		OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow,
		OpBitAnd, OpBitOr, OpBitXor, OpLogAnd, OpLogOr,
		OpEql, OpNeql, OpLt, OpGt, OpLte, OpGte,
		OpAssign, OpAddAssign, OpSubAssign, OpMulAssign, OpDivAssign, OpModAssign,
		OpUnaryNeg, OpUnaryNot, OpUnaryPreInc, OpUnaryPreDec, OpUnaryPostInc, OpUnaryPostDec,
		OpIfStatement, OpElseStatement, OpLeaveFunction, OpLeaveBlock:
		// no operands

	case OpCreateBlock:
		w.WriteI32(in.ID)
		w.WriteI32(in.BlockTyp)
		w.WriteI32(in.ParentID)
		bodyPosOffset = w.Len()
		w.WriteI64(int64(in.BodyPos))

	case OpCreateFunction:
		w.WriteString(in.Name)
		bodyPosOffset = w.Len()
		w.WriteI64(int64(in.BodyPos))

	case OpGoToBlock, OpGoToIfTrue, OpGoToIfFalse:
		w.WriteI32(in.ID)

	case OpCallFunction, OpInvokeMethod:
		w.WriteString(in.Name)

	case OpCallNativeFunction:
		w.WriteI32(in.ID) // block_id
		w.WriteI32(in.Arity)
		w.WriteString(in.Name)

	case OpCreateVar:
		w.WriteI32(in.VarType)
		w.WriteString(in.Name)

	case OpStackPopObject:
		w.WriteI32(in.StackID)
		w.WriteString(in.Name)

	case OpLoadInteger:
		w.WriteI64(in.Int)

	case OpLoadFloat:
		w.WriteF64(in.Float)

	case OpLoadString, OpLoadVariable, OpClearVar, OpDeleteVar,
		OpAddMember, OpLoadMember, OpCreateNativeClassInstance, OpCreateObject:
		w.WriteString(in.Name)

	case OpPush:
		w.WriteI32(in.StackID)

	case OpLoopBreak, OpLoopContinue:
		w.WriteI32(in.Levels)

	default:
		panic(fmt.Sprintf("bytecode: Encode: unhandled op %s", in.Op))
	}
	return bodyPosOffset
}

// DecodeInstruction reads one instruction from r, including its opcode
// header.
func DecodeInstruction(r *stream.ByteReader) (Instruction, error) {
	raw, err := r.ReadU32()
	if err != nil {
		return Instruction{}, err
	}
	op := Op(raw)
	in := Instruction{Op: op}

	var derr error
	switch op {
	case OpIncBlockLevel, OpDecBlockLevel, OpIncReadLevel, OpDecReadLevel,
		OpLoadNull, OpClear,
		OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow,
		OpBitAnd, OpBitOr, OpBitXor, OpLogAnd, OpLogOr,
		OpEql, OpNeql, OpLt, OpGt, OpLte, OpGte,
		OpAssign, OpAddAssign, OpSubAssign, OpMulAssign, OpDivAssign, OpModAssign,
		OpUnaryNeg, OpUnaryNot, OpUnaryPreInc, OpUnaryPreDec, OpUnaryPostInc, OpUnaryPostDec,
		OpIfStatement, OpElseStatement, OpLeaveFunction, OpLeaveBlock:
		// no operands

	case OpCreateBlock:
		in.ID, derr = r.ReadI32()
		if derr == nil {
			in.BlockTyp, derr = r.ReadI32()
		}
		if derr == nil {
			in.ParentID, derr = r.ReadI32()
		}
		if derr == nil {
			var pos int64
			pos, derr = r.ReadI64()
			in.BodyPos = uint64(pos)
		}

	case OpCreateFunction:
		in.Name, derr = r.ReadString()
		if derr == nil {
			var pos int64
			pos, derr = r.ReadI64()
			in.BodyPos = uint64(pos)
		}

	case OpGoToBlock, OpGoToIfTrue, OpGoToIfFalse:
		in.ID, derr = r.ReadI32()

	case OpCallFunction, OpInvokeMethod:
		in.Name, derr = r.ReadString()

	case OpCallNativeFunction:
		in.ID, derr = r.ReadI32()
		if derr == nil {
			in.Arity, derr = r.ReadI32()
		}
		if derr == nil {
			in.Name, derr = r.ReadString()
		}

	case OpCreateVar:
		in.VarType, derr = r.ReadI32()
		if derr == nil {
			in.Name, derr = r.ReadString()
		}

	case OpStackPopObject:
		in.StackID, derr = r.ReadI32()
		if derr == nil {
			in.Name, derr = r.ReadString()
		}

	case OpLoadInteger:
		in.Int, derr = r.ReadI64()

	case OpLoadFloat:
		in.Float, derr = r.ReadF64()

	case OpLoadString, OpLoadVariable, OpClearVar, OpDeleteVar,
		OpAddMember, OpLoadMember, OpCreateNativeClassInstance, OpCreateObject:
		in.Name, derr = r.ReadString()

	case OpPush:
		in.StackID, derr = r.ReadI32()

	case OpLoopBreak, OpLoopContinue:
		in.Levels, derr = r.ReadI32()

	default:
		return Instruction{}, errors.Errorf("bytecode: unknown opcode 0x%08X at offset %d", raw, r.Position()-4)
	}
	if derr != nil {
		return Instruction{}, errors.Wrapf(derr, "bytecode: decoding operands of %s", op)
	}
	return in, nil
}
