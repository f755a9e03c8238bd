// Package allocator implements the two bitmap allocators described in
// spec.md §4.4: one over inodes, one over data blocks. Allocation streams
// the bitmap region a block at a time and release reads only the byte runs
// holding the ids being freed, so neither has to hold the whole bitmap in
// memory, matching the teacher repo's preference
// for streaming I/O over whole-image buffers (see
// file_systems/common/blockcache/blockcache.go's block-at-a-time fetch/flush
// callbacks) even though the teacher's own format-time bitmap construction
// uses github.com/boljen/go-bitmap in memory for convenience (see
// file_systems/unixv1/format.go) — we do the same for the format-time
// scratch bitmap in myfs/superblock, but the allocator below talks to the
// image directly since it must coexist with a live, already-populated
// bitmap.
package allocator

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/dargueta/myfs/device"
	"github.com/dargueta/myfs/errors"
	"github.com/dargueta/myfs/superblock"
)

// AllocateDataBlocks allocates up to count free data blocks, returning their
// 0-based indices in ascending order. If fewer than count are free, it
// returns as many as it found (which may be zero) and the caller is
// responsible for deciding whether that's an error and, if so, releasing
// what was returned (spec.md §4.4/§7: grow rolls back all-or-nothing).
func AllocateDataBlocks(img device.Image, fs *superblock.FSInfo, count uint32) ([]uint32, error) {
	ids, err := allocateBits(img, fs.DataBitmapPos, fs.DataBlockCount, fs.BlockSize, count)
	if err != nil {
		return nil, err
	}

	fs.FreeDataBlockCount -= uint32(len(ids))
	return ids, nil
}

// ReleaseDataBlocks clears the bitmap bits for the given block ids, coalescing
// writes by bitmap byte range. fs.FreeDataBlockCount is updated to match.
func ReleaseDataBlocks(img device.Image, fs *superblock.FSInfo, ids []uint32) error {
	if err := releaseBits(img, fs.DataBitmapPos, ids); err != nil {
		return err
	}
	fs.FreeDataBlockCount += uint32(len(ids))
	return nil
}

// AllocateInode performs a linear scan of the inode bitmap for the first free
// slot, marks it used, and returns its index. Returns [errors.OutOfInodes] if
// the bitmap is full.
func AllocateInode(img device.Image, fs *superblock.FSInfo) (uint32, error) {
	ids, err := allocateBits(img, fs.InodeBitmapPos, fs.InodeCountLimit, fs.BlockSize, 1)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, errors.OutOfInodes
	}

	fs.InodeCount++
	return ids[0], nil
}

// ReleaseInode clears inode n's bitmap bit.
func ReleaseInode(img device.Image, fs *superblock.FSInfo, n uint32) error {
	if err := releaseBits(img, fs.InodeBitmapPos, []uint32{n}); err != nil {
		return err
	}
	fs.InodeCount--
	return nil
}

// allocateBits streams a bitmap of totalBits bits starting at base, one
// bitmap-block of bsize bytes at a time. For every zero bit encountered it
// appends the bit's global index to the result and flips it locally; once a
// bitmap-block has been scanned, only the byte range that actually changed is
// written back, per spec.md §4.4's "minimize I/O" requirement. Stops once
// count slots have been filled or the bitmap is exhausted.
func allocateBits(img device.Image, base int64, totalBits uint32, bsize uint16, count uint32) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}

	result := make([]uint32, 0, count)
	totalBytes := (totalBits + 7) / 8

	for blockStart := uint32(0); blockStart < totalBytes && uint32(len(result)) < count; blockStart += uint32(bsize) {
		blockLen := uint32(bsize)
		if blockStart+blockLen > totalBytes {
			blockLen = totalBytes - blockStart
		}

		buf, err := device.ReadRange(img, base+int64(blockStart), int(blockLen))
		if err != nil {
			return result, err
		}

		firstChanged, lastChanged := -1, -1
		for i := uint32(0); i < blockLen && uint32(len(result)) < count; i++ {
			b := buf[i]
			if b == 0xFF {
				continue
			}

			for bit := 0; bit < 8 && uint32(len(result)) < count; bit++ {
				globalBit := (blockStart+i)*8 + uint32(bit)
				if globalBit >= totalBits {
					break
				}
				if (b>>bit)&1 != 0 {
					continue
				}

				b |= 1 << bit
				result = append(result, globalBit)
				if firstChanged == -1 {
					firstChanged = int(i)
				}
				lastChanged = int(i)
			}
			buf[i] = b
		}

		if firstChanged != -1 {
			writeOffset := base + int64(blockStart) + int64(firstChanged)
			if err := device.WriteRange(img, writeOffset, buf[firstChanged:lastChanged+1]); err != nil {
				return result, err
			}
		}
	}

	return result, nil
}

// releaseBits clears the bitmap bits for ids, grouping contiguous-byte
// releases into a single read-modify-write per coalesced run so that a
// release of many blocks from the same region of the bitmap costs a handful
// of I/O operations rather than one per id.
func releaseBits(img device.Image, base int64, ids []uint32) error {
	if len(ids) == 0 {
		return nil
	}

	byteToBits := make(map[uint32][]uint32)
	for _, id := range ids {
		byteIdx := id / 8
		byteToBits[byteIdx] = append(byteToBits[byteIdx], id%8)
	}

	bytes := make([]uint32, 0, len(byteToBits))
	for b := range byteToBits {
		bytes = append(bytes, b)
	}
	sort.Slice(bytes, func(i, j int) bool { return bytes[i] < bytes[j] })

	var multiErr *multierror.Error

	runStart := 0
	for runStart < len(bytes) {
		runEnd := runStart
		for runEnd+1 < len(bytes) && bytes[runEnd+1] == bytes[runEnd]+1 {
			runEnd++
		}

		firstByte := bytes[runStart]
		runLen := bytes[runEnd] - firstByte + 1

		buf, err := device.ReadRange(img, base+int64(firstByte), int(runLen))
		if err != nil {
			multiErr = multierror.Append(multiErr, fmt.Errorf("release: read bitmap range at byte %d: %w", firstByte, err))
			runStart = runEnd + 1
			continue
		}

		for i := runStart; i <= runEnd; i++ {
			byteIdx := bytes[i]
			for _, bit := range byteToBits[byteIdx] {
				buf[byteIdx-firstByte] &^= 1 << bit
			}
		}

		if err := device.WriteRange(img, base+int64(firstByte), buf); err != nil {
			multiErr = multierror.Append(multiErr, fmt.Errorf("release: write bitmap range at byte %d: %w", firstByte, err))
		}

		runStart = runEnd + 1
	}

	return multiErr.ErrorOrNil()
}
