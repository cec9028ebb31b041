package bytecode

import (
	"io"

	"github.com/kristofer/zen/pkg/stream"
	"github.com/pkg/errors"
)

// Magic identifies a compiled zen program file ("ZENB" read as a
// big-endian uint32; written little-endian, the file's first four bytes
// are "BNEZ"), the same role the original toolchain's ad hoc .zb
// extension played but made self-describing on disk.
const Magic uint32 = 0x5A454E42 // "ZENB"

// FormatVersion is the current wire format version. A reader that sees
// a version it does not understand must refuse to execute the file
// rather than guess at the layout.
const FormatVersion uint32 = 1

// Program is a fully lowered, linear instruction stream ready to be
// persisted or executed.
type Program struct {
	Instructions []Instruction
}

// Encode writes the header (magic, version) followed by every
// instruction's wire encoding to w.
func Encode(p *Program, w io.Writer) error {
	bw := stream.NewWriter()
	bw.WriteU32(Magic)
	bw.WriteU32(FormatVersion)
	for i := range p.Instructions {
		p.Instructions[i].Encode(bw)
	}
	_, err := w.Write(bw.Bytes())
	return err
}

// EncodeBytes is a convenience wrapper returning the encoded bytes
// directly, used by lowering.Lower to put the header in front of the
// already resolved byte buffer returned by Emitter.Finish rather than a
// typed instruction slice (see emitter.go).
func EncodeBytes(magic, version uint32, body []byte) []byte {
	bw := stream.NewWriter()
	bw.WriteU32(magic)
	bw.WriteU32(version)
	return append(bw.Bytes(), body...)
}

// Decode reads a header and the full instruction stream from r.
func Decode(r io.Reader) (*Program, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	br := stream.New(raw)
	magic, err := br.ReadU32()
	if err != nil {
		return nil, errors.Wrap(err, "bytecode: reading magic")
	}
	if magic != Magic {
		return nil, errors.Errorf("bytecode: bad magic 0x%08X (expected 0x%08X)", magic, Magic)
	}
	version, err := br.ReadU32()
	if err != nil {
		return nil, errors.Wrap(err, "bytecode: reading version")
	}
	if version != FormatVersion {
		return nil, errors.Errorf("bytecode: unsupported format version %d (expected %d)", version, FormatVersion)
	}

	var instrs []Instruction
	for !br.EOF() {
		in, err := DecodeInstruction(br)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, in)
	}
	return &Program{Instructions: instrs}, nil
}
