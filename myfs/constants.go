// Package myfs implements the on-disk layout of a Unix-style block-structured
// file system: the superblock/geometry, the inode-addressed block tree with
// multi-level indirection, the free-space bitmaps, and the directory entry
// record format. It exposes exactly the primitives a mount driver needs to
// create, look up, and remove files and directories, read and write file
// data, grow and shrink files, rename and exchange entries, and report
// per-file attributes.
//
// Caching of decoded inodes keyed by file handle, timestamp sourcing,
// user/group identity, and permission enforcement are the caller's
// responsibility; this package reads and writes the image on every call.
package myfs

// FormatBlockSize is the block size chosen by [FormatImage] at format time.
// Once an image exists, its block size is read from the main block; nothing
// in the core assumes it is always 4096.
const FormatBlockSize = 4096

// MaxFileNameLength is the longest name a directory entry may hold.
const MaxFileNameLength = 512

// InodeBlockPointers is the width of an inode's blockpos array: 12 direct
// pointers plus one each for the singly-, doubly- and triply-indirect tiers.
const InodeBlockPointers = 15

// DirectPointerCount is the number of direct block pointers at the front of
// an inode's blockpos array, before the indirect tiers begin.
const DirectPointerCount = 12

// SinglyIndirectSlot, DoublyIndirectSlot, and TriplyIndirectSlot are the
// blockpos indices of the singly-, doubly-, and triply-indirect bookkeeping
// blocks, per spec.md §4.5's address-translation table.
const (
	SinglyIndirectSlot = 12
	DoublyIndirectSlot = 13
	TriplyIndirectSlot = 14
)

// MainBlockSize is the fixed on-disk size, in bytes, of the main block
// (superblock) region. It must be at least large enough to hold the
// serialized main_block_t fields (4+4+4+4+4+2 = 22 bytes); rounded up to a
// clean value to leave room for future fields without relayout.
const MainBlockSize = 24

// InodeSize is the fixed on-disk size, in bytes, of one inode record:
// ctime(8) + mtime(8) + size(8) + blocks(4) + blockpos(15*4=60) + uid(4) +
// gid(4) + mode(2) + nlinks(2) = 100, rounded up.
const InodeSize = 104

// Mode bits. Only the file-type bit and the low 9 permission bits are
// meaningful on disk; everything else is reserved.
const (
	ModePermMask = 0o777
	// ModeTypeFile marks a regular file; its absence (bit 9 clear) marks a
	// directory, per spec.md §3.
	ModeTypeFile = 1 << 9
)

// IsDir reports whether mode's file-type bit marks a directory.
func IsDir(mode uint16) bool {
	return mode&ModeTypeFile == 0
}

// IsRegular reports whether mode's file-type bit marks a regular file.
func IsRegular(mode uint16) bool {
	return mode&ModeTypeFile != 0
}

// RootInodeNum is the inode number of the root directory. It is always live.
const RootInodeNum uint32 = 0

// RenameFlags mirror the Linux renameat2(2) flags the operations facade
// supports.
type RenameFlags uint32

const (
	RenameNoReplace RenameFlags = 1 << iota
	RenameExchange
)
