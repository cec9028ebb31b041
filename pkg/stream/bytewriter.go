package stream

import (
	"bytes"
	"encoding/binary"
	"math"
)

// ByteWriter accumulates a little-endian byte stream, the write-side
// counterpart of ByteReader. The bytecode package's Emitter uses it to
// build a program image before handing the finished bytes to Encode.
type ByteWriter struct {
	buf bytes.Buffer
}

// NewWriter returns an empty ByteWriter.
func NewWriter() *ByteWriter { return &ByteWriter{} }

// Len returns the number of bytes written so far, i.e. the offset the
// next write will land at.
func (w *ByteWriter) Len() int { return w.buf.Len() }

// Bytes returns the accumulated buffer.
func (w *ByteWriter) Bytes() []byte { return w.buf.Bytes() }

func (w *ByteWriter) WriteByte(b byte) { w.buf.WriteByte(b) }

func (w *ByteWriter) WriteI32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

func (w *ByteWriter) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *ByteWriter) WriteI64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.buf.Write(b[:])
}

func (w *ByteWriter) WriteF64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf.Write(b[:])
}

// WriteString writes a 4-byte little-endian length prefix (counting the
// trailing NUL), the UTF-8 bytes of s, and the trailing NUL itself,
// matching ReadString and the wire format's "length always includes
// NUL" rule (spec.md §6).
func (w *ByteWriter) WriteString(s string) {
	w.WriteU32(uint32(len(s) + 1))
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// PatchI32 overwrites the 4-byte little-endian value at offset, used by
// the emitter to back-patch a forward-declared block position once its
// body has been written.
func (w *ByteWriter) PatchI32(offset int, v int32) {
	b := w.buf.Bytes()
	binary.LittleEndian.PutUint32(b[offset:offset+4], uint32(v))
}

// PatchU64 overwrites the 8-byte little-endian value at offset, used to
// back-patch a CreateBlock/CreateFunction body position.
func (w *ByteWriter) PatchU64(offset int, v uint64) {
	b := w.buf.Bytes()
	binary.LittleEndian.PutUint64(b[offset:offset+8], v)
}
