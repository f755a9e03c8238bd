// Package codec reads and writes fixed-width little-endian integers into
// byte buffers. All on-disk fields in this file system are little-endian so
// that an image is portable across hosts of either endianness. Decoding and
// the directory-entry encoding go through this package; the main block and
// inode records are encoded with encoding/binary directly.
package codec

import "encoding/binary"

// ReadU16 reads a little-endian uint16 at the start of buf.
func ReadU16(buf []byte) uint16 { return binary.LittleEndian.Uint16(buf) }

// ReadU32 reads a little-endian uint32 at the start of buf.
func ReadU32(buf []byte) uint32 { return binary.LittleEndian.Uint32(buf) }

// ReadU64 reads a little-endian uint64 at the start of buf.
func ReadU64(buf []byte) uint64 { return binary.LittleEndian.Uint64(buf) }

// WriteU16 writes v as a little-endian uint16 at the start of buf.
func WriteU16(buf []byte, v uint16) { binary.LittleEndian.PutUint16(buf, v) }

// WriteU32 writes v as a little-endian uint32 at the start of buf.
func WriteU32(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf, v) }

// WriteU64 writes v as a little-endian uint64 at the start of buf.
func WriteU64(buf []byte, v uint64) { binary.LittleEndian.PutUint64(buf, v) }

// Cursor is a read/write position over a byte buffer that advances by the
// width of each field as it's consumed. It generalizes the ad hoc
// `binary.Read`/`binary.Write` call sequences the teacher repo repeats for
// every on-disk struct (see file_systems/unixv1/format.go and inode.go) into
// one reusable type, since this file system's layouts (main block, inode,
// directory entry) are more varied than the teacher's single fixed struct.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor wraps buf for sequential reads and writes starting at offset 0.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the cursor's current byte offset into its buffer.
func (c *Cursor) Pos() int {
	return c.pos
}

// Remaining returns the number of bytes left between the cursor and the end
// of its buffer.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

// ReadU16 reads the next two bytes and advances the cursor.
func (c *Cursor) ReadU16() uint16 {
	v := ReadU16(c.buf[c.pos:])
	c.pos += 2
	return v
}

// ReadU32 reads the next four bytes and advances the cursor.
func (c *Cursor) ReadU32() uint32 {
	v := ReadU32(c.buf[c.pos:])
	c.pos += 4
	return v
}

// ReadU64 reads the next eight bytes and advances the cursor.
func (c *Cursor) ReadU64() uint64 {
	v := ReadU64(c.buf[c.pos:])
	c.pos += 8
	return v
}

// ReadBytes copies the next n bytes out and advances the cursor.
func (c *Cursor) ReadBytes(n int) []byte {
	out := make([]byte, n)
	copy(out, c.buf[c.pos:c.pos+n])
	c.pos += n
	return out
}

// Skip advances the cursor by n bytes without reading anything.
func (c *Cursor) Skip(n int) {
	c.pos += n
}

// WriteU16 writes v at the cursor and advances it by two bytes.
func (c *Cursor) WriteU16(v uint16) {
	WriteU16(c.buf[c.pos:], v)
	c.pos += 2
}

// WriteU32 writes v at the cursor and advances it by four bytes.
func (c *Cursor) WriteU32(v uint32) {
	WriteU32(c.buf[c.pos:], v)
	c.pos += 4
}

// WriteU64 writes v at the cursor and advances it by eight bytes.
func (c *Cursor) WriteU64(v uint64) {
	WriteU64(c.buf[c.pos:], v)
	c.pos += 8
}

// WriteBytes copies b into the cursor's buffer and advances past it.
func (c *Cursor) WriteBytes(b []byte) {
	copy(c.buf[c.pos:], b)
	c.pos += len(b)
}

// Bytes returns the full backing buffer.
func (c *Cursor) Bytes() []byte {
	return c.buf
}
