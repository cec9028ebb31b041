package bytecode

import (
	"bytes"
	"testing"

	"github.com/kristofer/zen/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionRoundTrip_AllOperandShapes(t *testing.T) {
	cases := []Instruction{
		{Op: OpIncBlockLevel},
		{Op: OpDecBlockLevel},
		{Op: OpLoadInteger, Int: -42},
		{Op: OpLoadFloat, Float: 3.25},
		{Op: OpLoadString, Name: "hi"},
		{Op: OpLoadVariable, Name: "$_Mmain_Ix_A0"},
		{Op: OpGoToIfTrue, ID: 7},
		{Op: OpCallFunction, Name: "$_Mmain_Iadd_A2"},
		{Op: OpCallNativeFunction, ID: 3, Arity: 1, Name: "print"},
		{Op: OpCreateVar, VarType: VarTypeAny, Name: "x"},
		{Op: OpStackPopObject, StackID: StackFunctionParam, Name: "x"},
		{Op: OpPush, StackID: StackFunctionCallback},
		{Op: OpLoopBreak, Levels: 2},
		{Op: OpAddMember, Name: "x"},
		{Op: OpLoadMember, Name: "x"},
		{Op: OpCreateNativeClassInstance, Name: "File"},
		{Op: OpCreateObject, Name: "Animal"},
	}

	for _, want := range cases {
		w := stream.NewWriter()
		want.Encode(w)
		r := stream.New(w.Bytes())
		got, err := DecodeInstruction(r)
		require.NoError(t, err, want.Op)
		assert.Equal(t, want, got, want.Op)
		assert.True(t, r.EOF(), "operand bytes must be fully consumed for %s", want.Op)
	}
}

func TestCreateBlock_BodyPosIsImmediatelyAfterRecord(t *testing.T) {
	e := NewEmitter(ModeInline)
	e.EmitCreateBlock(1, BlockIfStatement, -1)
	bodyStart := e.Pos()
	e.Emit(Instruction{Op: OpLoadInteger, Int: 1})

	r := stream.New(e.Finish())
	in, err := DecodeInstruction(r)
	require.NoError(t, err)
	assert.Equal(t, int(in.BodyPos), bodyStart)
}

func TestCreateFunction_BodyPosIsImmediatelyAfterRecord(t *testing.T) {
	e := NewEmitter(ModeInline)
	e.EmitCreateFunction("$_Mmain_Isquare_A1")
	bodyStart := e.Pos()
	e.Emit(Instruction{Op: OpIncBlockLevel})

	r := stream.New(e.Finish())
	in, err := DecodeInstruction(r)
	require.NoError(t, err)
	assert.Equal(t, int(in.BodyPos), bodyStart)
}

// TestLabelsAtBeginning_ProducesEquivalentBodyPositions checks that the
// two emitter modes agree: whatever body offset ModeInline computes
// relative to its own record, ModeLabelsAtBeginning computes the same
// absolute offset once its prelude is accounted for.
func TestLabelsAtBeginning_ProducesEquivalentBodyPositions(t *testing.T) {
	build := func(mode Mode) (*Program, error) {
		e := NewEmitter(mode)
		e.EmitCreateFunction("$_Mmain_Isquare_A1")
		e.Emit(Instruction{Op: OpIncBlockLevel})
		e.Emit(Instruction{Op: OpLoadInteger, Int: 49})
		e.Emit(Instruction{Op: OpLeaveFunction})

		full := EncodeBytes(Magic, FormatVersion, e.Finish())
		return Decode(bytes.NewReader(full))
	}

	inline, err := build(ModeInline)
	require.NoError(t, err)
	atBeginning, err := build(ModeLabelsAtBeginning)
	require.NoError(t, err)

	var findCreateFn = func(p *Program) Instruction {
		for _, in := range p.Instructions {
			if in.Op == OpCreateFunction {
				return in
			}
		}
		t.Fatal("no CreateFunction instruction found")
		return Instruction{}
	}

	a := findCreateFn(inline)
	b := findCreateFn(atBeginning)

	// Both modes must record a body position pointing at an
	// OpIncBlockLevel instruction.
	assertOpAt := func(p *Program, pos uint64) {
		off := 0 // BodyPos counts from the first instruction after the header
		for _, in := range p.Instructions {
			w := stream.NewWriter()
			in.Encode(w)
			if off == int(pos) {
				assert.Equal(t, OpIncBlockLevel, in.Op)
				return
			}
			off += w.Len()
		}
		t.Fatalf("position %d not found in stream", pos)
	}
	assertOpAt(inline, a.BodyPos)
	assertOpAt(atBeginning, b.BodyPos)
}

func TestProgramRoundTrip(t *testing.T) {
	p := &Program{Instructions: []Instruction{
		{Op: OpLoadInteger, Int: 2},
		{Op: OpLoadInteger, Int: 3},
		{Op: OpAdd},
		{Op: OpClear},
	}}
	var buf bytes.Buffer
	require.NoError(t, Encode(p, &buf))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, p.Instructions, got.Instructions)
}

func TestDecode_RejectsBadMagic(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0, 0, 0, 0, 1, 0, 0, 0}))
	require.Error(t, err)
}
