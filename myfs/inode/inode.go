// Package inode implements the fixed-width inode record (spec.md §3) and the
// block tree that maps (inode, file-offset) to a physical data-block id
// through 12 direct pointers plus singly/doubly/triply-indirect tiers
// (spec.md §4.5). It owns growing and shrinking the tree and streaming reads
// and writes across block boundaries.
//
// The block-boundary streaming loop (ReadAt/WriteAt below) follows the shape
// of file_systems/common/basicstream/basicstream.go's ReadAt/implWriteAt in
// the teacher repo (dargueta/disko): clamp the requested length to what's
// actually there, translate the current offset to a block plus an in-block
// offset, transfer the run that fits in the current block, advance. The
// indirection math (CalcIndirectBlockCount) is ported from
// original_source/helpers.c, which the spec's §4.5 formulas restate in
// prose; grow/shrink determine indirect-tier crossings from the file-block
// index's position within each tier rather than from block content, since a
// freshly allocated block (data or bookkeeping) is never zeroed (spec.md
// §4.5) and stale content can't be trusted as a "not yet allocated" sentinel.
package inode

import (
	"encoding/binary"

	"github.com/noxer/bytewriter"

	"github.com/dargueta/myfs"
	"github.com/dargueta/myfs/allocator"
	"github.com/dargueta/myfs/codec"
	"github.com/dargueta/myfs/device"
	"github.com/dargueta/myfs/errors"
	"github.com/dargueta/myfs/superblock"
)

// Inode is the decoded form of one fixed-width on-disk inode record.
type Inode struct {
	CTime    uint64
	MTime    uint64
	Size     uint64
	Blocks   uint32
	BlockPos [myfs.InodeBlockPointers]uint32
	UID      uint32
	GID      uint32
	Mode     uint16
	NLinks   uint16
}

// Decode parses a raw InodeSize-byte record into an Inode.
func Decode(buf []byte) Inode {
	c := codec.NewCursor(buf)
	var n Inode
	n.CTime = c.ReadU64()
	n.MTime = c.ReadU64()
	n.Size = c.ReadU64()
	n.Blocks = c.ReadU32()
	for i := range n.BlockPos {
		n.BlockPos[i] = c.ReadU32()
	}
	n.UID = c.ReadU32()
	n.GID = c.ReadU32()
	n.Mode = c.ReadU16()
	n.NLinks = c.ReadU16()
	return n
}

// Encode serializes n into a fresh myfs.InodeSize-byte record.
//
// Assembled into the buffer with one github.com/noxer/bytewriter writer
// before the caller's single positioned write, matching
// file_systems/unixv1/format.go's `bytewriter.New(outputSlice)` +
// sequential `binary.Write` calls for the ilist in the teacher.
func (n Inode) Encode() []byte {
	buf := make([]byte, myfs.InodeSize)
	writer := bytewriter.New(buf)
	binary.Write(writer, binary.LittleEndian, n.CTime)
	binary.Write(writer, binary.LittleEndian, n.MTime)
	binary.Write(writer, binary.LittleEndian, n.Size)
	binary.Write(writer, binary.LittleEndian, n.Blocks)
	binary.Write(writer, binary.LittleEndian, n.BlockPos)
	binary.Write(writer, binary.LittleEndian, n.UID)
	binary.Write(writer, binary.LittleEndian, n.GID)
	binary.Write(writer, binary.LittleEndian, n.Mode)
	binary.Write(writer, binary.LittleEndian, n.NLinks)
	return buf
}

// IsDir reports whether n is a directory.
func (n Inode) IsDir() bool { return myfs.IsDir(n.Mode) }

// ReadInode reads and decodes inode number idx from the inode table.
func ReadInode(img device.Image, fs *superblock.FSInfo, idx uint32) (Inode, error) {
	offset := fs.InodesPos + int64(idx)*int64(myfs.InodeSize)
	buf, err := device.ReadRange(img, offset, myfs.InodeSize)
	if err != nil {
		return Inode{}, err
	}
	return Decode(buf), nil
}

// WriteInode encodes and writes n to inode table slot idx.
func WriteInode(img device.Image, fs *superblock.FSInfo, idx uint32, n Inode) error {
	offset := fs.InodesPos + int64(idx)*int64(myfs.InodeSize)
	return device.WriteRange(img, offset, n.Encode())
}

// Geometry is the subset of superblock.FSInfo the block tree needs. It's
// expressed as its own small struct rather than depending on
// *superblock.FSInfo directly in the lowest-level helpers, so the pure
// address-translation math stays testable without constructing a full
// FSInfo.
type Geometry struct {
	BlockSize int64
	BlocksPos int64
}

func geometryOf(fs *superblock.FSInfo) Geometry {
	return Geometry{BlockSize: int64(fs.BlockSize), BlocksPos: fs.BlocksPos}
}

// blocksPerIndirect is c in spec.md §4.5: the number of uint32 child ids that
// fit in one indirect block.
func (g Geometry) blocksPerIndirect() uint32 {
	return uint32(g.BlockSize / 4)
}

func (g Geometry) bsize16() uint16 {
	return uint16(g.BlockSize)
}

// MaxBlocks is the largest block count a file on this geometry can hold
// before FileTooLarge (spec.md §7).
func (g Geometry) MaxBlocks() uint64 {
	c := uint64(g.blocksPerIndirect())
	return 12 + c + c*c + c*c*c
}

// lookupBlock translates file-block index i to a physical data-block id via
// n's block tree (spec.md §4.5's address-translation table).
func lookupBlock(img device.Image, g Geometry, n Inode, i uint32) (uint32, error) {
	c := g.blocksPerIndirect()
	bsize := g.bsize16()

	if i < myfs.DirectPointerCount {
		return n.BlockPos[i], nil
	}
	i -= myfs.DirectPointerCount

	if i < c {
		return device.ReadWord(img, g.BlocksPos, bsize, n.BlockPos[myfs.SinglyIndirectSlot], i)
	}
	i -= c

	if i < c*c {
		b2, err := device.ReadWord(img, g.BlocksPos, bsize, n.BlockPos[myfs.DoublyIndirectSlot], i/c)
		if err != nil {
			return 0, err
		}
		return device.ReadWord(img, g.BlocksPos, bsize, b2, i%c)
	}
	i -= c * c

	if i < c*c*c {
		b2, err := device.ReadWord(img, g.BlocksPos, bsize, n.BlockPos[myfs.TriplyIndirectSlot], i/(c*c))
		if err != nil {
			return 0, err
		}
		b3, err := device.ReadWord(img, g.BlocksPos, bsize, b2, (i%(c*c))/c)
		if err != nil {
			return 0, err
		}
		return device.ReadWord(img, g.BlocksPos, bsize, b3, i%c)
	}

	return 0, errors.FileTooLarge
}

// IndirectCounts gives the number of singly/doubly/triply-indirect
// bookkeeping blocks needed to address a file of n blocks, per spec.md
// §4.5's "indirect bookkeeping count".
type IndirectCounts struct {
	Singly, Doubly, Triply uint32
}

// Total returns the sum of all three tiers.
func (ic IndirectCounts) Total() uint32 {
	return ic.Singly + ic.Doubly + ic.Triply
}

func ceilDivU32(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func ceilDivU64(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// CalcIndirectBlockCount computes the indirect bookkeeping block counts for a
// file of blockCount data blocks, per spec.md §4.5 and
// original_source/helpers.c's calc_indirect_block_count.
func CalcIndirectBlockCount(g Geometry, blockCount uint32) IndirectCounts {
	c := g.blocksPerIndirect()

	var s, d, t uint32
	if blockCount > 12 {
		s = ceilDivU32(blockCount-12, c)
		if s > 1 {
			d = ceilDivU32(s-1, c)
			if d > 1 {
				t = ceilDivU32(d-1, c)
			}
		}
	}

	return IndirectCounts{Singly: s, Doubly: d, Triply: t}
}

// Resize grows or shrinks n's block tree to hold newSize bytes, updating
// n.Size and n.Blocks in place. Grow allocates the data and indirect blocks
// it needs in a single bulk call and rolls back entirely if the image can't
// satisfy it (spec.md §4.5 "all-or-nothing"); shrink releases in a single
// bulk call after collecting every block to free.
func Resize(img device.Image, fs *superblock.FSInfo, n *Inode, newSize uint64) error {
	g := geometryOf(fs)

	newBlocks64 := ceilDivU64(newSize, uint64(fs.BlockSize))
	if newBlocks64 > g.MaxBlocks() {
		return errors.FileTooLarge
	}
	newBlocks := uint32(newBlocks64)
	oldBlocks := n.Blocks

	switch {
	case newBlocks > oldBlocks:
		if err := grow(img, fs, n, oldBlocks, newBlocks); err != nil {
			return err
		}
	case newBlocks < oldBlocks:
		if err := shrink(img, fs, n, oldBlocks, newBlocks); err != nil {
			return err
		}
	}

	n.Size = newSize
	n.Blocks = newBlocks
	return nil
}

// grow extends n's block tree from oldBlocks to newBlocks data blocks,
// allocating every data and indirect block it will need in one bulk call
// before writing any of them.
func grow(img device.Image, fs *superblock.FSInfo, n *Inode, oldBlocks, newBlocks uint32) error {
	g := geometryOf(fs)

	oldIndirect := CalcIndirectBlockCount(g, oldBlocks).Total()
	newIndirect := CalcIndirectBlockCount(g, newBlocks).Total()
	deltaIndirect := newIndirect - oldIndirect
	deltaData := newBlocks - oldBlocks
	total := deltaIndirect + deltaData

	ids, err := allocator.AllocateDataBlocks(img, fs, total)
	if err != nil {
		return err
	}
	if uint32(len(ids)) < total {
		if relErr := allocator.ReleaseDataBlocks(img, fs, ids); relErr != nil {
			return relErr
		}
		return errors.OutOfSpace
	}

	pool := ids[:deltaIndirect]
	data := ids[deltaIndirect:]
	poolPos := 0
	nextIndirect := func() uint32 {
		v := pool[poolPos]
		poolPos++
		return v
	}

	for i := oldBlocks; i < newBlocks; i++ {
		leaf := data[i-oldBlocks]
		if err := placeBlock(img, g, n, i, leaf, nextIndirect); err != nil {
			return err
		}
	}

	return nil
}

// placeBlock installs leaf at file-block index i in n's block tree,
// allocating (via nextIndirect) and wiring up whatever indirect bookkeeping
// blocks i's position newly requires. An indirect block is only ever needed
// the first time its local slot 0 is written, since grow always proceeds in
// increasing file-block order.
func placeBlock(img device.Image, g Geometry, n *Inode, i uint32, leaf uint32, nextIndirect func() uint32) error {
	c := g.blocksPerIndirect()
	bsize := g.bsize16()

	if i < 12 {
		n.BlockPos[i] = leaf
		return nil
	}
	i -= 12

	if i < c {
		if i == 0 {
			n.BlockPos[12] = nextIndirect()
		}
		return device.WriteWord(img, g.BlocksPos, bsize, n.BlockPos[12], i, leaf)
	}
	i -= c

	if i < c*c {
		b2idx := i / c
		slot := i % c

		var b2 uint32
		if slot == 0 {
			if b2idx == 0 {
				n.BlockPos[13] = nextIndirect()
			}
			b2 = nextIndirect()
			if err := device.WriteWord(img, g.BlocksPos, bsize, n.BlockPos[13], b2idx, b2); err != nil {
				return err
			}
		} else {
			var err error
			b2, err = device.ReadWord(img, g.BlocksPos, bsize, n.BlockPos[13], b2idx)
			if err != nil {
				return err
			}
		}

		return device.WriteWord(img, g.BlocksPos, bsize, b2, slot, leaf)
	}
	i -= c * c

	if i < c*c*c {
		b2idx := i / (c * c)
		rem := i % (c * c)
		b3idx := rem / c
		slot := rem % c

		var b2 uint32
		if b3idx == 0 && slot == 0 {
			if b2idx == 0 {
				n.BlockPos[14] = nextIndirect()
			}
			b2 = nextIndirect()
			if err := device.WriteWord(img, g.BlocksPos, bsize, n.BlockPos[14], b2idx, b2); err != nil {
				return err
			}
		} else {
			var err error
			b2, err = device.ReadWord(img, g.BlocksPos, bsize, n.BlockPos[14], b2idx)
			if err != nil {
				return err
			}
		}

		var b3 uint32
		if slot == 0 {
			b3 = nextIndirect()
			if err := device.WriteWord(img, g.BlocksPos, bsize, b2, b3idx, b3); err != nil {
				return err
			}
		} else {
			var err error
			b3, err = device.ReadWord(img, g.BlocksPos, bsize, b2, b3idx)
			if err != nil {
				return err
			}
		}

		return device.WriteWord(img, g.BlocksPos, bsize, b3, slot, leaf)
	}

	return errors.FileTooLarge
}

// shrink walks file-block indices [newBlocks, oldBlocks) in reverse,
// collecting every data and indirect bookkeeping block that falls out of
// range, then releases them all in one bulk call.
func shrink(img device.Image, fs *superblock.FSInfo, n *Inode, oldBlocks, newBlocks uint32) error {
	g := geometryOf(fs)

	var freed []uint32
	for i := oldBlocks; i > newBlocks; i-- {
		leaf, extra, err := releaseBlock(img, g, n, i-1)
		if err != nil {
			return err
		}
		freed = append(freed, leaf)
		freed = append(freed, extra...)
	}

	if len(freed) == 0 {
		return nil
	}
	return allocator.ReleaseDataBlocks(img, fs, freed)
}

// releaseBlock removes file-block index i from n's block tree, returning its
// leaf data-block id plus any indirect bookkeeping blocks that became
// entirely unused as a result (the mirror image of placeBlock: a tier's
// indirect block is freed exactly when its local slot 0 is the one being
// removed, since shrink always proceeds in decreasing file-block order).
func releaseBlock(img device.Image, g Geometry, n *Inode, i uint32) (uint32, []uint32, error) {
	c := g.blocksPerIndirect()
	bsize := g.bsize16()

	if i < 12 {
		leaf := n.BlockPos[i]
		n.BlockPos[i] = 0
		return leaf, nil, nil
	}
	i -= 12

	if i < c {
		leaf, err := device.ReadWord(img, g.BlocksPos, bsize, n.BlockPos[12], i)
		if err != nil {
			return 0, nil, err
		}

		var extra []uint32
		if i == 0 {
			extra = append(extra, n.BlockPos[12])
			n.BlockPos[12] = 0
		}
		return leaf, extra, nil
	}
	i -= c

	if i < c*c {
		b2idx := i / c
		slot := i % c

		b2, err := device.ReadWord(img, g.BlocksPos, bsize, n.BlockPos[13], b2idx)
		if err != nil {
			return 0, nil, err
		}
		leaf, err := device.ReadWord(img, g.BlocksPos, bsize, b2, slot)
		if err != nil {
			return 0, nil, err
		}

		var extra []uint32
		if slot == 0 {
			extra = append(extra, b2)
			if b2idx == 0 {
				extra = append(extra, n.BlockPos[13])
				n.BlockPos[13] = 0
			} else if err := device.WriteWord(img, g.BlocksPos, bsize, n.BlockPos[13], b2idx, 0); err != nil {
				return 0, nil, err
			}
		}
		return leaf, extra, nil
	}
	i -= c * c

	if i < c*c*c {
		b2idx := i / (c * c)
		rem := i % (c * c)
		b3idx := rem / c
		slot := rem % c

		b2, err := device.ReadWord(img, g.BlocksPos, bsize, n.BlockPos[14], b2idx)
		if err != nil {
			return 0, nil, err
		}
		b3, err := device.ReadWord(img, g.BlocksPos, bsize, b2, b3idx)
		if err != nil {
			return 0, nil, err
		}
		leaf, err := device.ReadWord(img, g.BlocksPos, bsize, b3, slot)
		if err != nil {
			return 0, nil, err
		}

		var extra []uint32
		if slot == 0 {
			extra = append(extra, b3)
			if b3idx == 0 {
				extra = append(extra, b2)
				if b2idx == 0 {
					extra = append(extra, n.BlockPos[14])
					n.BlockPos[14] = 0
				} else if err := device.WriteWord(img, g.BlocksPos, bsize, n.BlockPos[14], b2idx, 0); err != nil {
					return 0, nil, err
				}
			} else if err := device.WriteWord(img, g.BlocksPos, bsize, b2, b3idx, 0); err != nil {
				return 0, nil, err
			}
		}
		return leaf, extra, nil
	}

	return 0, nil, errors.FileTooLarge
}

// ReadAt reads into buf starting at byte offset off of n's data stream,
// clamping to n.Size, and returns the number of bytes actually read
// (spec.md §4.5 "Read L bytes at offset P").
func ReadAt(img device.Image, fs *superblock.FSInfo, n Inode, buf []byte, off uint64) (int, error) {
	if off >= n.Size {
		return 0, nil
	}

	length := uint64(len(buf))
	if off+length > n.Size {
		length = n.Size - off
	}

	g := geometryOf(fs)
	bsize := uint64(fs.BlockSize)

	var total uint64
	for total < length {
		cur := off + total
		blockIdx := uint32(cur / bsize)
		inBlock := cur % bsize

		physID, err := lookupBlock(img, g, n, blockIdx)
		if err != nil {
			return int(total), err
		}

		chunk := bsize - inBlock
		if remaining := length - total; chunk > remaining {
			chunk = remaining
		}

		offset := fs.BlocksPos + int64(physID)*int64(fs.BlockSize) + int64(inBlock)
		got, err := device.ReadRange(img, offset, int(chunk))
		if err != nil {
			return int(total), err
		}
		copy(buf[total:total+chunk], got)

		total += chunk
	}

	return int(total), nil
}

// WriteAt writes buf at byte offset off of n's data stream, growing n first
// via Resize if the write extends past its current size (spec.md §4.5
// "Write L bytes at offset P").
func WriteAt(img device.Image, fs *superblock.FSInfo, n *Inode, buf []byte, off uint64) (int, error) {
	end := off + uint64(len(buf))
	if end > n.Size {
		if err := Resize(img, fs, n, end); err != nil {
			return 0, err
		}
	}

	g := geometryOf(fs)
	bsize := uint64(fs.BlockSize)

	length := uint64(len(buf))
	var total uint64
	for total < length {
		cur := off + total
		blockIdx := uint32(cur / bsize)
		inBlock := cur % bsize

		physID, err := lookupBlock(img, g, *n, blockIdx)
		if err != nil {
			return int(total), err
		}

		chunk := bsize - inBlock
		if remaining := length - total; chunk > remaining {
			chunk = remaining
		}

		offset := fs.BlocksPos + int64(physID)*int64(fs.BlockSize) + int64(inBlock)
		if err := device.WriteRange(img, offset, buf[total:total+chunk]); err != nil {
			return int(total), err
		}

		total += chunk
	}

	return int(total), nil
}
