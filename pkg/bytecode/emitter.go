package bytecode

import (
	"github.com/kristofer/zen/pkg/stream"
)

// Mode selects which of the two emitter strategies spec.md §4.7/§9
// treats as equally valid: writing each CreateBlock/CreateFunction
// record inline at its natural position in the lowering walk, or
// collecting all of them into a prelude written at the very start of
// the stream. Both produce a stream the VM runs identically, because
// CreateBlock/CreateFunction only ever record a position in a table;
// they never gate on block_level/read_level (spec.md §4.9).
type Mode int

const (
	ModeInline Mode = iota
	ModeLabelsAtBeginning
)

// labelRecord is one CreateBlock/CreateFunction the emitter is holding
// back for the ModeLabelsAtBeginning prelude.
type labelRecord struct {
	instr        Instruction
	offsetInMain int
}

// Emitter assembles a Program's raw instruction bytes during lowering,
// resolving the forward-declared body position of every block and
// function as soon as its record is placed.
type Emitter struct {
	mode    Mode
	main    *stream.ByteWriter
	prelude []labelRecord
}

// NewEmitter creates an Emitter in the given mode.
func NewEmitter(mode Mode) *Emitter {
	return &Emitter{mode: mode, main: stream.NewWriter()}
}

// Emit appends a plain instruction (anything other than CreateBlock or
// CreateFunction) to the main stream.
func (e *Emitter) Emit(in Instruction) {
	in.Encode(e.main)
}

// Pos returns the current offset in the main stream; CreateBlock and
// CreateFunction body positions are always "whatever comes next",
// which in ModeLabelsAtBeginning is this offset before a final prelude
// length is known.
func (e *Emitter) Pos() int { return e.main.Len() }

// EmitCreateBlock places a CreateBlock record. In ModeInline the record
// is written immediately and its body position back-patched once the
// record's own bytes are known (the body always starts right after
// it). In ModeLabelsAtBeginning the record is deferred to the prelude
// and nothing is written to the main stream at this point.
func (e *Emitter) EmitCreateBlock(id, blockType, parentID int32) {
	in := Instruction{Op: OpCreateBlock, ID: id, BlockTyp: blockType, ParentID: parentID}
	e.emitLabelRecord(in)
}

// EmitCreateFunction places a CreateFunction record for the mangled
// function name. See EmitCreateBlock for the two modes' behavior.
func (e *Emitter) EmitCreateFunction(mangledName string) {
	in := Instruction{Op: OpCreateFunction, Name: mangledName}
	e.emitLabelRecord(in)
}

func (e *Emitter) emitLabelRecord(in Instruction) {
	switch e.mode {
	case ModeInline:
		start := in.Encode(e.main) // writes a zero BodyPos placeholder, returns its offset
		bodyPos := uint64(e.main.Len())
		e.main.PatchU64(start, bodyPos)
	case ModeLabelsAtBeginning:
		e.prelude = append(e.prelude, labelRecord{instr: in, offsetInMain: e.main.Len()})
	}
}

// recordSize returns the fixed encoded size (opcode header included) of
// a CreateBlock or CreateFunction record, used to size the prelude
// without a dry-run encode.
func recordSize(in Instruction) int {
	switch in.Op {
	case OpCreateBlock:
		return 4 + 4 + 4 + 4 + 8
	case OpCreateFunction:
		return 4 + 4 + len(in.Name) + 1 + 8
	default:
		panic("bytecode: recordSize: not a label record")
	}
}

// Finish returns the final assembled instruction bytes (without the
// file-level magic/version header; see Encode/EncodeBytes for that).
func (e *Emitter) Finish() []byte {
	if e.mode == ModeInline || len(e.prelude) == 0 {
		return e.main.Bytes()
	}

	preludeLen := 0
	for _, rec := range e.prelude {
		preludeLen += recordSize(rec.instr)
	}

	pw := stream.NewWriter()
	for _, rec := range e.prelude {
		in := rec.instr
		in.BodyPos = uint64(preludeLen + rec.offsetInMain)
		in.Encode(pw)
	}

	out := make([]byte, 0, pw.Len()+e.main.Len())
	out = append(out, pw.Bytes()...)
	out = append(out, e.main.Bytes()...)
	return out
}
