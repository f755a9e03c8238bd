// Package device implements positioned I/O primitives against the backing
// image: reading/writing a single 32-bit word at a slot within a block, and
// reading/writing an arbitrary byte range at an absolute offset. These are
// the only primitives every higher layer (allocator, inode block tree) needs;
// neither does any caching of its own, matching spec.md §4.2 — the mount
// driver may layer caching above if it wants to. The allocator reads and
// writes bitmap bytes through ReadRange/WriteRange in byte ranges rather than
// bit by bit, so no single-bit accessor lives here.
//
// Images are addressed through [io.ReadWriteSeeker] rather than
// [io.ReaderAt]/[io.WriterAt], the same choice the teacher repo
// (dargueta/disko) makes throughout drivers/common/blockstream.go and
// file_systems/common/blockcache/blockcache.go's seekToBlock: a regular
// *os.File satisfies it directly, and so does an in-memory image built with
// github.com/xaionaro-go/bytesextra, without requiring either to additionally
// implement ReaderAt/WriterAt.
package device

import (
	"io"

	"github.com/dargueta/myfs/codec"
)

// Image is the minimal interface the core filesystem needs from its backing
// store.
type Image = io.ReadWriteSeeker

func pread(img Image, offset int64, buf []byte) error {
	if _, err := img.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(img, buf)
	return err
}

func pwrite(img Image, offset int64, buf []byte) error {
	if _, err := img.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	_, err := img.Write(buf)
	return err
}

// ReadWord reads the 32-bit word at slot p of block b (block size bsize,
// blocks starting at byte offset blocksPos) and returns it.
func ReadWord(img Image, blocksPos int64, bsize uint16, b uint32, p uint32) (uint32, error) {
	var buf [4]byte
	offset := blocksPos + int64(b)*int64(bsize) + int64(p)*4
	if err := pread(img, offset, buf[:]); err != nil {
		return 0, err
	}
	return codec.ReadU32(buf[:]), nil
}

// WriteWord writes value to the 32-bit word at slot p of block b.
func WriteWord(img Image, blocksPos int64, bsize uint16, b uint32, p uint32, value uint32) error {
	var buf [4]byte
	codec.WriteU32(buf[:], value)
	offset := blocksPos + int64(b)*int64(bsize) + int64(p)*4
	return pwrite(img, offset, buf[:])
}

// ReadRange reads n bytes at an absolute offset.
func ReadRange(img Image, offset int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	err := pread(img, offset, buf)
	return buf, err
}

// WriteRange writes buf at an absolute offset.
func WriteRange(img Image, offset int64, buf []byte) error {
	return pwrite(img, offset, buf)
}
