// Package superblock reads and writes the main block (the image's
// superblock) and derives the on-disk layout of every other region from it:
// where the inode bitmap starts, where the data-block bitmap starts, where
// the inode table starts, and where the data-block region starts.
//
// Geometry derivation follows file_systems/unixv1/format.go's
// read_fsinfo/initialize_fsinfo split in the teacher repo (dargueta/disko):
// one function builds the derived fields from a freshly-decided main block,
// another rebuilds them after reading an existing one back from an image.
// The exact region sizes and ratios come from spec.md §3/§4.3, resolved
// against original_source/myfs.c (myfs_h.initialize_fsinfo) where the spec
// was silent on a detail.
package superblock

import (
	"encoding/binary"
	"time"

	bitmap "github.com/boljen/go-bitmap"
	"github.com/noxer/bytewriter"

	"github.com/dargueta/myfs"
	"github.com/dargueta/myfs/codec"
	"github.com/dargueta/myfs/device"
	"github.com/dargueta/myfs/errors"
)

// MainBlock is the fixed-size header at byte 0 of the image. Field order is
// significant for on-disk compatibility (spec.md §3).
type MainBlock struct {
	InodeCountLimit    uint32
	InodeCount         uint32
	BlockCount         uint32
	DataBlockCount     uint32
	FreeDataBlockCount uint32
	BlockSize          uint16
}

// FSInfo is a MainBlock plus the region offsets derived from it. Every core
// operation takes one of these alongside the image handle so it never has to
// recompute geometry.
type FSInfo struct {
	MainBlock

	InodeBitmapPos int64
	DataBitmapPos  int64
	InodesPos      int64
	BlocksPos      int64
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// InitGeometry derives the region offsets for a main block that has already
// been decided (either freshly chosen by FormatImage, or just read back from
// an image by ReadSuperblock).
func InitGeometry(mb MainBlock) FSInfo {
	bs := uint64(mb.BlockSize)

	inodeBitmapBlocks := ceilDiv(uint64(mb.InodeCountLimit), 8*bs)
	dataBitmapBlocks := ceilDiv(uint64(mb.DataBlockCount), 8*bs)

	inodeBitmapPos := int64(myfs.MainBlockSize)
	dataBitmapPos := inodeBitmapPos + int64(inodeBitmapBlocks*bs)
	inodesPos := dataBitmapPos + int64(dataBitmapBlocks*bs)
	blocksPos := inodesPos + int64(mb.InodeCountLimit)*int64(myfs.InodeSize)

	return FSInfo{
		MainBlock:      mb,
		InodeBitmapPos: inodeBitmapPos,
		DataBitmapPos:  dataBitmapPos,
		InodesPos:      inodesPos,
		BlocksPos:      blocksPos,
	}
}

// ReadSuperblock reads the main block from img and derives the rest of the
// geometry from it.
func ReadSuperblock(img device.Image) (FSInfo, error) {
	buf, err := device.ReadRange(img, 0, myfs.MainBlockSize)
	if err != nil {
		return FSInfo{}, err
	}

	c := codec.NewCursor(buf)
	mb := MainBlock{
		InodeCountLimit:    c.ReadU32(),
		InodeCount:         c.ReadU32(),
		BlockCount:         c.ReadU32(),
		DataBlockCount:     c.ReadU32(),
		FreeDataBlockCount: c.ReadU32(),
		BlockSize:          c.ReadU16(),
	}

	if mb.BlockSize == 0 {
		return FSInfo{}, errors.CorruptImage.WithMessage("main block has a zero block size")
	}

	return InitGeometry(mb), nil
}

// WriteSuperblock writes fs's main block fields back to byte 0 of img. The
// derived geometry fields are never written; they're always recomputed by
// InitGeometry/ReadSuperblock.
//
// The fields are assembled into an in-memory buffer with one
// github.com/noxer/bytewriter writer before a single positioned write,
// matching file_systems/unixv1/format.go's
// `bytewriter.New(outputSlice)` + sequential `binary.Write` calls in the
// teacher.
func WriteSuperblock(img device.Image, fs FSInfo) error {
	buf := make([]byte, myfs.MainBlockSize)
	writer := bytewriter.New(buf)
	binary.Write(writer, binary.LittleEndian, fs.InodeCountLimit)
	binary.Write(writer, binary.LittleEndian, fs.InodeCount)
	binary.Write(writer, binary.LittleEndian, fs.BlockCount)
	binary.Write(writer, binary.LittleEndian, fs.DataBlockCount)
	binary.Write(writer, binary.LittleEndian, fs.FreeDataBlockCount)
	binary.Write(writer, binary.LittleEndian, fs.BlockSize)

	return device.WriteRange(img, 0, buf)
}

// geometryForSize computes the main block fields FormatImage writes for an
// image of sizeBytes, per spec.md §4.3.
func geometryForSize(sizeBytes int64) MainBlock {
	const blockSize = myfs.FormatBlockSize

	blockCount := uint64(sizeBytes) / blockSize
	inodeCountLimit := blockCount

	inodeBitmapBlocks := ceilDiv(inodeCountLimit, 8*blockSize)
	inodeTableBlocks := ceilDiv(inodeCountLimit*uint64(myfs.InodeSize), blockSize)

	reserved := uint64(2) + inodeBitmapBlocks + inodeTableBlocks
	var dataBlockCount uint64
	if blockCount > reserved {
		dataBlockCount = (blockCount - reserved) * 32 / 33
	}

	return MainBlock{
		InodeCountLimit:    uint32(inodeCountLimit),
		InodeCount:         0,
		BlockCount:         uint32(blockCount),
		DataBlockCount:     uint32(dataBlockCount),
		FreeDataBlockCount: uint32(dataBlockCount),
		BlockSize:          blockSize,
	}
}

// RootDirectoryRecord holds the timestamp and mode fields of a root
// directory inode. FormatImage does not write inode 0, and nothing in this
// module reads or writes this type.
type RootDirectoryRecord struct {
	CTime, MTime uint64
	Mode         uint16
}

// FormatImage zeros both bitmaps, writes a fresh main block sized for an
// image of sizeBytes, and returns the resulting geometry. It does not create
// the root directory inode; callers compose this with myfs/inode and
// myfs/allocator to do that (see myfs/ops.Format), matching spec.md
// §4.3's "then create the root directory" hand-off to the higher layer that
// actually knows how to serialize an inode.
func FormatImage(img device.Image, sizeBytes int64) (FSInfo, error) {
	mb := geometryForSize(sizeBytes)
	fs := InitGeometry(mb)

	// Both bitmaps start entirely free. Built in memory with go-bitmap
	// (exactly as format.go's blockBitmap/inodeBitmap construction does)
	// rather than zeroed by hand, even though a fresh bitmap.New() and an
	// all-zero byte slice are byte-for-byte identical here: this keeps the
	// region's construction expressed through the same library the rest of
	// the on-disk format's scratch bitmaps use.
	bitmapBytes := int((fs.InodesPos - fs.InodeBitmapPos) / int64(mb.BlockSize) * int64(mb.BlockSize))
	scratch := bitmap.New(bitmapBytes * 8)
	if err := device.WriteRange(img, fs.InodeBitmapPos, scratch.Data(false)); err != nil {
		return FSInfo{}, err
	}

	if err := WriteSuperblock(img, fs); err != nil {
		return FSInfo{}, err
	}

	return fs, nil
}

// NowTimestamp is the timestamp source myfs/ops uses when it needs "now" for
// ctime/mtime (FormatImage itself writes no timestamps). It is a seam so tests can stub it; the core
// never reads the wall clock anywhere else, matching spec.md §2's delegation
// of timestamp sourcing to the driver except at creation time.
var NowTimestamp = func() uint64 {
	return uint64(time.Now().Unix())
}
