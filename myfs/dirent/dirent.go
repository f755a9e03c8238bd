// Package dirent implements the variable-length directory entry format
// (spec.md §3, §4.6): a small header followed by a sequence of entries, each
// carrying its length at both its head and its tail so the entry preceding
// a removed one can be found and extended without rescanning the whole
// directory.
//
// The scan-and-splice shape below is grounded in how the teacher repo
// (dargueta/disko) walks fixed-size records in
// drivers/unixv1/dirents.go/readingdirectory.go, generalized here to
// variable-length records since this format's entries, unlike the teacher's
// 10-byte fixed records, carry their own length.
package dirent

import (
	"github.com/dargueta/myfs"
	"github.com/dargueta/myfs/allocator"
	"github.com/dargueta/myfs/codec"
	"github.com/dargueta/myfs/device"
	"github.com/dargueta/myfs/errors"
	"github.com/dargueta/myfs/inode"
	"github.com/dargueta/myfs/superblock"
)

// headerSize is the 6-byte (entries_count u32, starting_pos u16) prefix of
// every nonempty directory body (spec.md §3).
const headerSize = 6

// entryOverhead is the fixed part of an entry besides its name: inode_num
// (4) + leading entry_len (2) + name_len (2) + trailing entry_len (2).
const entryOverhead = 10

// minPadding is the slack space appended after a fresh entry's name so small
// in-place extensions (from later removals of a neighboring entry) don't
// immediately force a relocation (spec.md §4.6 step 2).
const minPadding = 32

// Header is the directory body's 6-byte prefix.
type Header struct {
	EntriesCount uint32
	StartingPos  uint16
}

// Entry is a decoded directory entry plus the byte offset of its start
// within the directory's data stream (not itself serialized).
type Entry struct {
	InodeNum uint32
	EntryLen uint16
	NameLen  uint16
	Name     string
	Pos      uint64
}

// ReadHeader reads a directory's header, or the zero header for an empty
// (zero-size) directory.
func ReadHeader(img device.Image, fs *superblock.FSInfo, dir inode.Inode) (Header, error) {
	if dir.Size == 0 {
		return Header{}, nil
	}

	buf := make([]byte, headerSize)
	if _, err := inode.ReadAt(img, fs, dir, buf, 0); err != nil {
		return Header{}, err
	}

	c := codec.NewCursor(buf)
	return Header{EntriesCount: c.ReadU32(), StartingPos: c.ReadU16()}, nil
}

func writeHeader(img device.Image, fs *superblock.FSInfo, dir *inode.Inode, h Header) error {
	buf := make([]byte, headerSize)
	c := codec.NewCursor(buf)
	c.WriteU32(h.EntriesCount)
	c.WriteU16(h.StartingPos)
	_, err := inode.WriteAt(img, fs, dir, buf, 0)
	return err
}

func readU16At(img device.Image, fs *superblock.FSInfo, dir inode.Inode, pos uint64) (uint16, error) {
	buf := make([]byte, 2)
	if _, err := inode.ReadAt(img, fs, dir, buf, pos); err != nil {
		return 0, err
	}
	return codec.ReadU16(buf), nil
}

func writeU16At(img device.Image, fs *superblock.FSInfo, dir *inode.Inode, pos uint64, v uint16) error {
	buf := make([]byte, 2)
	codec.WriteU16(buf, v)
	_, err := inode.WriteAt(img, fs, dir, buf, pos)
	return err
}

func decodeEntry(raw []byte, pos uint64) Entry {
	c := codec.NewCursor(raw)
	inodeNum := c.ReadU32()
	entryLen := c.ReadU16()
	nameLen := c.ReadU16()
	name := string(c.ReadBytes(int(nameLen)))
	return Entry{InodeNum: inodeNum, EntryLen: entryLen, NameLen: nameLen, Name: name, Pos: pos}
}

func readEntryAt(img device.Image, fs *superblock.FSInfo, dir inode.Inode, pos uint64) (Entry, error) {
	lenBuf := make([]byte, 2)
	if _, err := inode.ReadAt(img, fs, dir, lenBuf, pos+4); err != nil {
		return Entry{}, err
	}
	entryLen := codec.ReadU16(lenBuf)
	if entryLen < entryOverhead || pos+uint64(entryLen) > dir.Size {
		return Entry{}, errors.CorruptImage
	}

	raw := make([]byte, entryLen)
	if _, err := inode.ReadAt(img, fs, dir, raw, pos); err != nil {
		return Entry{}, err
	}
	return decodeEntry(raw, pos), nil
}

// encodeEntry serializes a fresh entry of the given total length, left-
// aligning name and zero-padding the rest, per spec.md §3's layout.
func encodeEntry(inodeNum uint32, entryLen uint16, name string) []byte {
	buf := make([]byte, entryLen)
	c := codec.NewCursor(buf)
	c.WriteU32(inodeNum)
	c.WriteU16(entryLen)
	c.WriteU16(uint16(len(name)))
	c.WriteBytes([]byte(name))
	c.Skip(int(entryLen) - entryOverhead - len(name))
	c.WriteU16(entryLen)
	return buf
}

// List returns every live entry in dir, in on-disk order, for directory
// listing and path resolution.
func List(img device.Image, fs *superblock.FSInfo, dir inode.Inode) ([]Entry, error) {
	h, err := ReadHeader(img, fs, dir)
	if err != nil {
		return nil, err
	}
	if dir.Size == 0 {
		return nil, nil
	}

	entries := make([]Entry, 0, h.EntriesCount)
	pos := uint64(h.StartingPos) + headerSize
	for pos < dir.Size {
		e, err := readEntryAt(img, fs, dir, pos)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		pos += uint64(e.EntryLen)
	}
	return entries, nil
}

// Find scans dir for an entry named name, returning it and true, or
// false if absent.
func Find(img device.Image, fs *superblock.FSInfo, dir inode.Inode, name string) (Entry, bool, error) {
	entries, err := List(img, fs, dir)
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// Insert appends a new entry (childNum, name) to dir, writes dir and child
// back, and increments child's link count (spec.md §4.6 "Insert").
func Insert(
	img device.Image,
	fs *superblock.FSInfo,
	dirNum uint32,
	dir *inode.Inode,
	childNum uint32,
	child *inode.Inode,
	name string,
) error {
	if len(name) > myfs.MaxFileNameLength {
		return errors.NameTooLong
	}

	h, err := ReadHeader(img, fs, *dir)
	if err != nil {
		return err
	}

	entryLen := uint16(len(name) + minPadding + entryOverhead)
	raw := encodeEntry(childNum, entryLen, name)

	appendPos := dir.Size
	if dir.Size == 0 {
		appendPos = headerSize
	}

	if _, err := inode.WriteAt(img, fs, dir, raw, appendPos); err != nil {
		return err
	}

	h.EntriesCount++
	if err := writeHeader(img, fs, dir, h); err != nil {
		return err
	}

	if err := inode.WriteInode(img, fs, dirNum, *dir); err != nil {
		return err
	}

	child.NLinks++
	return inode.WriteInode(img, fs, childNum, *child)
}

// Remove deletes the entry referencing childNum from dir, splicing the
// surrounding entries per spec.md §4.6 "Remove", then decrements child's
// link count and destroys it (releasing its blocks and inode) if that drops
// to zero. Returns [errors.NotFound] if no entry references childNum.
func Remove(
	img device.Image,
	fs *superblock.FSInfo,
	dirNum uint32,
	dir *inode.Inode,
	childNum uint32,
	child *inode.Inode,
) error {
	h, err := ReadHeader(img, fs, *dir)
	if err != nil {
		return err
	}

	entries, err := List(img, fs, *dir)
	if err != nil {
		return err
	}

	var target *Entry
	for i := range entries {
		if entries[i].InodeNum == childNum {
			target = &entries[i]
			break
		}
	}
	if target == nil {
		return errors.NotFound
	}

	switch {
	case h.EntriesCount == 1:
		if err := inode.Resize(img, fs, dir, 0); err != nil {
			return err
		}
		h = Header{}

	case target.Pos+uint64(target.EntryLen) == dir.Size:
		if err := inode.Resize(img, fs, dir, target.Pos); err != nil {
			return err
		}
		h.EntriesCount--

	case target.Pos == uint64(h.StartingPos)+headerSize:
		if err := removeFirstEntry(img, fs, dir, &h, *target); err != nil {
			return err
		}
		h.EntriesCount--

	default:
		if err := removeMiddleEntry(img, fs, dir, *target); err != nil {
			return err
		}
		h.EntriesCount--
	}

	if dir.Size > 0 {
		if err := writeHeader(img, fs, dir, h); err != nil {
			return err
		}
	}
	if err := inode.WriteInode(img, fs, dirNum, *dir); err != nil {
		return err
	}

	child.NLinks--
	if child.NLinks > 0 {
		return inode.WriteInode(img, fs, childNum, *child)
	}

	if err := inode.Resize(img, fs, child, 0); err != nil {
		return err
	}
	return allocator.ReleaseInode(img, fs, childNum)
}

// removeFirstEntry implements spec.md §4.6 step 5: the removed entry sits
// right after the dead-space prefix.
func removeFirstEntry(img device.Image, fs *superblock.FSInfo, dir *inode.Inode, h *Header, target Entry) error {
	lastEntryLen, err := readU16At(img, fs, *dir, dir.Size-2)
	if err != nil {
		return err
	}

	combined := h.StartingPos + target.EntryLen
	if combined >= lastEntryLen {
		lastStart := dir.Size - uint64(lastEntryLen)
		lastRaw := make([]byte, lastEntryLen)
		if _, err := inode.ReadAt(img, fs, *dir, lastRaw, lastStart); err != nil {
			return err
		}

		newBuf := make([]byte, combined)
		copy(newBuf, lastRaw)
		codec.WriteU16(newBuf[4:6], combined)
		codec.WriteU16(newBuf[combined-2:], combined)

		if _, err := inode.WriteAt(img, fs, dir, newBuf, headerSize); err != nil {
			return err
		}
		if err := inode.Resize(img, fs, dir, dir.Size-uint64(lastEntryLen)); err != nil {
			return err
		}
		h.StartingPos = 0
		return nil
	}

	h.StartingPos += target.EntryLen
	return nil
}

// removeMiddleEntry implements spec.md §4.6 step 6: splice the removed
// entry's space into the entry immediately preceding it, using the trailing
// back-pointer to locate it in O(1).
func removeMiddleEntry(img device.Image, fs *superblock.FSInfo, dir *inode.Inode, target Entry) error {
	prevEntryLen, err := readU16At(img, fs, *dir, target.Pos-2)
	if err != nil {
		return err
	}
	prevStart := target.Pos - uint64(prevEntryLen)
	prevNameLen, err := readU16At(img, fs, *dir, prevStart+6)
	if err != nil {
		return err
	}
	prevPadding := prevEntryLen - prevNameLen - 8

	lastEntryLen, err := readU16At(img, fs, *dir, dir.Size-2)
	if err != nil {
		return err
	}

	if uint32(prevPadding)+uint32(target.EntryLen) >= uint32(lastEntryLen)+32 {
		// The relocated entry is placed at the tail end of the combined
		// free span (prev's reclaimable padding plus the removed entry's
		// whole footprint), and prev's entry_len is extended to exactly
		// meet it, so scanning walks prev -> relocated entry with no gap.
		newPrevLen := prevEntryLen + target.EntryLen - lastEntryLen
		relocPos := prevStart + uint64(newPrevLen)

		lastStart := dir.Size - uint64(lastEntryLen)
		lastRaw := make([]byte, lastEntryLen)
		if _, err := inode.ReadAt(img, fs, *dir, lastRaw, lastStart); err != nil {
			return err
		}
		if _, err := inode.WriteAt(img, fs, dir, lastRaw, relocPos); err != nil {
			return err
		}

		if err := writeU16At(img, fs, dir, prevStart+4, newPrevLen); err != nil {
			return err
		}
		if err := writeU16At(img, fs, dir, prevStart+uint64(newPrevLen)-2, newPrevLen); err != nil {
			return err
		}
		return inode.Resize(img, fs, dir, dir.Size-uint64(lastEntryLen))
	}

	newPrevLen := prevEntryLen + target.EntryLen
	if err := writeU16At(img, fs, dir, prevStart+4, newPrevLen); err != nil {
		return err
	}
	return writeU16At(img, fs, dir, prevStart+uint64(newPrevLen)-2, newPrevLen)
}
