package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip_AllTypes(t *testing.T) {
	w := NewWriter()
	w.WriteByte(0x7F)
	w.WriteI32(-12345)
	w.WriteU32(98765)
	w.WriteI64(-9_000_000_000)
	w.WriteF64(3.14159)
	w.WriteString("hello, zen")

	r := New(w.Bytes())
	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x7F), b)

	i32, err := r.ReadI32()
	require.NoError(t, err)
	assert.EqualValues(t, -12345, i32)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	assert.EqualValues(t, 98765, u32)

	i64, err := r.ReadI64()
	require.NoError(t, err)
	assert.EqualValues(t, -9_000_000_000, i64)

	f64, err := r.ReadF64()
	require.NoError(t, err)
	assert.InDelta(t, 3.14159, f64, 0.00001)

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hello, zen", s)

	assert.True(t, r.EOF())
}

func TestReadPastEnd(t *testing.T) {
	r := New([]byte{1, 2})
	_, err := r.ReadI64()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSeekAndSkip(t *testing.T) {
	w := NewWriter()
	w.WriteI32(1)
	w.WriteI32(2)
	w.WriteI32(3)
	r := New(w.Bytes())
	r.Skip(4)
	v, err := r.ReadI32()
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
	r.Seek(0)
	v, err = r.ReadI32()
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
}

func TestPatchI32(t *testing.T) {
	w := NewWriter()
	placeholder := w.Len()
	w.WriteI32(0)
	w.WriteI32(42)
	w.PatchI32(placeholder, 999)
	r := New(w.Bytes())
	v, err := r.ReadI32()
	require.NoError(t, err)
	assert.EqualValues(t, 999, v)
}
