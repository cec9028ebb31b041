// Package stream provides a seekable byte reader over an in-memory
// bytecode image, the Go counterpart of the original toolchain's
// ByteReader/FileByteReader pair (runtime/bytereader.h): position(),
// max(), skip(), seek(), and eof() all carry over, adapted from a
// virtual base class plus one file-backed subclass to a single
// concrete type over a []byte, since the whole compiled program is
// read into memory before the VM starts (spec.md §4.9).
package stream

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// ErrOutOfRange is returned by any read that would run past the end of
// the buffer.
var ErrOutOfRange = errors.New("stream: read past end of buffer")

// ByteReader reads fixed-width and length-prefixed values out of a
// byte slice, little-endian, tracking its own cursor.
type ByteReader struct {
	buf []byte
	pos int
}

// New wraps buf for sequential or random-access reads starting at 0.
func New(buf []byte) *ByteReader {
	return &ByteReader{buf: buf}
}

// Position returns the current read offset.
func (r *ByteReader) Position() int { return r.pos }

// Max returns the total length of the underlying buffer.
func (r *ByteReader) Max() int { return len(r.buf) }

// EOF reports whether the cursor has reached the end of the buffer.
func (r *ByteReader) EOF() bool { return r.pos >= len(r.buf) }

// Skip advances the cursor by amount bytes without reading them.
func (r *ByteReader) Skip(amount int) { r.pos += amount }

// Seek moves the cursor to an absolute offset.
func (r *ByteReader) Seek(whereTo int) { r.pos = whereTo }

func (r *ByteReader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, errors.Wrapf(ErrOutOfRange, "need %d bytes at offset %d, have %d", n, r.pos, len(r.buf))
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadByte reads a single byte.
func (r *ByteReader) ReadByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadI32 reads a little-endian signed 32-bit integer.
func (r *ByteReader) ReadI32() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// ReadU32 reads a little-endian unsigned 32-bit integer, used for the
// length prefixes and record counts in the wire format.
func (r *ByteReader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadI64 reads a little-endian signed 64-bit integer.
func (r *ByteReader) ReadI64() (int64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// ReadF64 reads a little-endian IEEE 754 double.
func (r *ByteReader) ReadF64() (float64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadString reads a 4-byte little-endian length prefix (which counts
// the trailing NUL) followed by that many bytes, and returns the string
// with the NUL stripped. This is the string encoding every opcode
// payload in the wire format uses (spec.md §6).
func (r *ByteReader) ReadString() (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", errors.New("stream: zero-length string record is missing its NUL terminator")
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b[:n-1]), nil
}
