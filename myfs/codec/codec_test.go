package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dargueta/myfs/codec"
)

func TestReadWriteRoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	codec.WriteU16(buf[0:], 0xBEEF)
	codec.WriteU32(buf[2:], 0xDEADBEEF)
	codec.WriteU64(buf[6:], 0x0123456789ABCDEF)

	assert.Equal(t, uint16(0xBEEF), codec.ReadU16(buf[0:]))
	assert.Equal(t, uint32(0xDEADBEEF), codec.ReadU32(buf[2:]))
	assert.Equal(t, uint64(0x0123456789ABCDEF), codec.ReadU64(buf[6:]))
}

func TestCursorAdvancesByFieldWidth(t *testing.T) {
	buf := make([]byte, 32)
	w := codec.NewCursor(buf)
	w.WriteU32(1)
	w.WriteU16(2)
	w.WriteU64(3)
	w.WriteBytes([]byte("hi"))
	assert.Equal(t, 4+2+8+2, w.Pos())

	r := codec.NewCursor(buf)
	assert.Equal(t, uint32(1), r.ReadU32())
	assert.Equal(t, uint16(2), r.ReadU16())
	assert.Equal(t, uint64(3), r.ReadU64())
	assert.Equal(t, []byte("hi"), r.ReadBytes(2))
}

func TestCursorSkip(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5, 6}
	c := codec.NewCursor(buf)
	c.Skip(2)
	assert.Equal(t, uint32(0x06050403), c.ReadU32())
}
