// Package ops is the operations facade: the single entry point a mount
// driver or CLI tool talks to, composing superblock/allocator/inode/
// dirent/pathwalk into the whole-operation semantics spec.md §4.8
// describes (getattr, chmod/chown, read/write, mknod/mkdir, truncate,
// unlink/rmdir, rename).
//
// FileSystem bundles the backing image with its geometry the way the
// teacher repo's (dargueta/disko) drivers/common/basedriver.CommonDriver
// bundles a driver's mounted state, except flattened to exactly the two
// fields this format's core needs (no polymorphic DriverImplementation:
// this spec has one on-disk format, not a family of them). Every method
// reads or writes the image directly; nothing here caches a decoded inode
// across calls (spec.md §2 delegates that to the driver — see
// myfs/internal/inodecache for the reference port of the original's
// inode-handle cache).
package ops

import (
	"github.com/dargueta/myfs"
	"github.com/dargueta/myfs/allocator"
	"github.com/dargueta/myfs/codec"
	"github.com/dargueta/myfs/device"
	"github.com/dargueta/myfs/dirent"
	"github.com/dargueta/myfs/errors"
	"github.com/dargueta/myfs/inode"
	"github.com/dargueta/myfs/pathwalk"
	"github.com/dargueta/myfs/superblock"
)

// FileSystem is a mounted image: the backing device plus its derived
// geometry. It holds no other state.
type FileSystem struct {
	Image device.Image
	FS    *superblock.FSInfo
}

// Format zeros both bitmaps, writes a fresh main block sized for an image
// of sizeBytes, and creates the root directory inode (spec.md §4.3/§6
// format_image). This composes superblock.FormatImage (which only handles
// the bitmaps and main block) with an explicit root-inode write, since
// that lower layer has no notion of inodes.
func Format(img device.Image, sizeBytes int64) (*FileSystem, error) {
	fs, err := superblock.FormatImage(img, sizeBytes)
	if err != nil {
		return nil, err
	}
	sys := &FileSystem{Image: img, FS: &fs}

	now := superblock.NowTimestamp()
	root := inode.Inode{
		CTime:  now,
		MTime:  now,
		Mode:   0755, // directory bit (bit 9) left clear: type=directory per spec.md §3
		NLinks: 1,
	}
	if err := inode.WriteInode(img, sys.FS, myfs.RootInodeNum, root); err != nil {
		return nil, err
	}

	// The root's bitmap bit must be marked used even though its inode
	// number (0) is also the allocator's natural first-free index, so a
	// later CreateInode call doesn't hand it out again.
	if _, err := allocator.AllocateInode(img, sys.FS); err != nil {
		return nil, err
	}

	return sys, sys.WriteSuperblock()
}

// Mount reads an existing image's main block and derives its geometry
// (spec.md §6 read_superblock), returning a FileSystem ready for use.
func Mount(img device.Image) (*FileSystem, error) {
	fs, err := superblock.ReadSuperblock(img)
	if err != nil {
		return nil, err
	}
	return &FileSystem{Image: img, FS: &fs}, nil
}

// WriteSuperblock persists the current main block fields back to the image
// (spec.md §6 write_superblock). Callers that mutate fs.FS directly — grow
// or shrink a file, allocate or release an inode — call this afterward,
// per spec.md §5's write-ordering rule (bitmaps, then blocks, then inode
// records, then main block, last).
func (s *FileSystem) WriteSuperblock() error {
	return superblock.WriteSuperblock(s.Image, *s.FS)
}

// ReadInode and WriteInode are the raw per-call inode record accessors
// (spec.md §6 read_inode/write_inode); nothing above this layer caches
// decoded inodes across calls.
func (s *FileSystem) ReadInode(idx uint32) (inode.Inode, error) {
	return inode.ReadInode(s.Image, s.FS, idx)
}

func (s *FileSystem) WriteInode(idx uint32, n inode.Inode) error {
	return inode.WriteInode(s.Image, s.FS, idx, n)
}

// CreateInode allocates a free inode slot and writes template to it,
// returning the new inode number (spec.md §6 create_inode).
func (s *FileSystem) CreateInode(template inode.Inode) (uint32, error) {
	n, err := allocator.AllocateInode(s.Image, s.FS)
	if err != nil {
		return 0, err
	}
	if err := inode.WriteInode(s.Image, s.FS, n, template); err != nil {
		return 0, err
	}
	return n, nil
}

// ResolvePath resolves path against the image (spec.md §4.7/§6
// resolve_path).
func (s *FileSystem) ResolvePath(path string) (pathwalk.Result, error) {
	return pathwalk.Resolve(s.Image, s.FS, path)
}

// ReadData reads into buf starting at offset off of n's data stream
// (spec.md §6 read_data).
func (s *FileSystem) ReadData(n inode.Inode, buf []byte, off uint64) (int, error) {
	return inode.ReadAt(s.Image, s.FS, n, buf, off)
}

// WriteData writes buf at offset off of n's data stream, persisting the
// mutated inode record (which may have grown) to inodeNum (spec.md §6
// write_data).
func (s *FileSystem) WriteData(inodeNum uint32, n *inode.Inode, buf []byte, off uint64) (int, error) {
	written, err := inode.WriteAt(s.Image, s.FS, n, buf, off)
	if err != nil {
		return written, err
	}
	return written, inode.WriteInode(s.Image, s.FS, inodeNum, *n)
}

// Resize grows or shrinks n's block tree to hold newSize bytes (spec.md §6
// resize); the caller is responsible for persisting n afterward.
func (s *FileSystem) Resize(n *inode.Inode, newSize uint64) error {
	return inode.Resize(s.Image, s.FS, n, newSize)
}

// DirInsert and DirRemove are the raw directory-splice primitives (spec.md
// §6 dir_insert/dir_remove).
func (s *FileSystem) DirInsert(dirNum uint32, dir *inode.Inode, childNum uint32, child *inode.Inode, name string) error {
	return dirent.Insert(s.Image, s.FS, dirNum, dir, childNum, child, name)
}

func (s *FileSystem) DirRemove(dirNum uint32, dir *inode.Inode, childNum uint32, child *inode.Inode) error {
	return dirent.Remove(s.Image, s.FS, dirNum, dir, childNum, child)
}

// DestroyFile releases n's data blocks and clears its inode bitmap bit.
// Only valid once n.NLinks has already reached 0 (spec.md §6
// destroy_file).
func (s *FileSystem) DestroyFile(inodeNum uint32, n *inode.Inode) error {
	if n.NLinks != 0 {
		return errors.InvalidArgument.WithMessage("destroy_file called on an inode still referenced")
	}
	if err := inode.Resize(s.Image, s.FS, n, 0); err != nil {
		return err
	}
	return allocator.ReleaseInode(s.Image, s.FS, inodeNum)
}

// Attr is the getattr result: inode fields plus the block count including
// indirect bookkeeping, in 512-byte sectors (spec.md §4.8 getattr).
type Attr struct {
	InodeNum uint32
	Inode    inode.Inode
	Sectors  uint64
}

// GetAttr resolves path and reports its inode fields plus derived sector
// count.
func (s *FileSystem) GetAttr(path string) (Attr, error) {
	res, err := s.ResolvePath(path)
	if err != nil {
		return Attr{}, err
	}

	g := inode.Geometry{BlockSize: int64(s.FS.BlockSize), BlocksPos: s.FS.BlocksPos}
	total := res.Inode.Blocks + inode.CalcIndirectBlockCount(g, res.Inode.Blocks).Total()
	sectors := uint64(total) * uint64(s.FS.BlockSize) / 512

	return Attr{InodeNum: res.InodeNum, Inode: res.Inode, Sectors: sectors}, nil
}

// Chmod resolves path and updates the low 9 bits of its mode.
func (s *FileSystem) Chmod(path string, perm uint16) error {
	res, err := s.ResolvePath(path)
	if err != nil {
		return err
	}
	res.Inode.Mode = (res.Inode.Mode &^ myfs.ModePermMask) | (perm & myfs.ModePermMask)
	return s.WriteInode(res.InodeNum, res.Inode)
}

// Chown resolves path and updates its uid/gid.
func (s *FileSystem) Chown(path string, uid, gid uint32) error {
	res, err := s.ResolvePath(path)
	if err != nil {
		return err
	}
	res.Inode.UID = uid
	res.Inode.GID = gid
	return s.WriteInode(res.InodeNum, res.Inode)
}

// Read resolves path and reads into buf at offset off.
func (s *FileSystem) Read(path string, buf []byte, off uint64) (int, error) {
	res, err := s.ResolvePath(path)
	if err != nil {
		return 0, err
	}
	if res.Inode.IsDir() {
		return 0, errors.IsDirectory
	}
	return s.ReadData(res.Inode, buf, off)
}

// Write resolves path, writes buf at offset off, and persists the mutated
// inode and then the main block (spec.md §4.8 read/write).
func (s *FileSystem) Write(path string, buf []byte, off uint64) (int, error) {
	res, err := s.ResolvePath(path)
	if err != nil {
		return 0, err
	}
	if res.Inode.IsDir() {
		return 0, errors.IsDirectory
	}
	written, err := s.WriteData(res.InodeNum, &res.Inode, buf, off)
	if err != nil {
		return written, err
	}
	return written, s.WriteSuperblock()
}

// MkNode splits path into parent + basename, allocates a fresh regular-file
// inode with the given uid/gid/mode, and inserts it into the parent
// (spec.md §4.8 mknod).
func (s *FileSystem) MkNode(path string, uid, gid uint32, perm uint16) (uint32, error) {
	return s.mkEntry(path, uid, gid, perm, myfs.ModeTypeFile)
}

// MkDir splits path into parent + basename, allocates a fresh directory
// inode, and inserts it into the parent (spec.md §4.8 mkdir).
func (s *FileSystem) MkDir(path string, uid, gid uint32, perm uint16) (uint32, error) {
	return s.mkEntry(path, uid, gid, perm, 0)
}

func (s *FileSystem) mkEntry(path string, uid, gid uint32, perm uint16, typeBit uint16) (uint32, error) {
	parentPath, name, err := pathwalk.SplitParent(path)
	if err != nil {
		return 0, err
	}

	parentRes, err := s.ResolvePath(parentPath)
	if err != nil {
		return 0, err
	}
	if !parentRes.Inode.IsDir() {
		return 0, errors.NotADirectory
	}

	now := superblock.NowTimestamp()
	child := inode.Inode{
		CTime: now,
		MTime: now,
		UID:   uid,
		GID:   gid,
		Mode:  (perm & myfs.ModePermMask) | typeBit,
	}

	childNum, err := s.CreateInode(child)
	if err != nil {
		return 0, err
	}

	if err := s.DirInsert(parentRes.InodeNum, &parentRes.Inode, childNum, &child, name); err != nil {
		return 0, err
	}

	return childNum, nil
}

// Truncate resolves path and resizes it, failing with [errors.IsDirectory]
// on a directory (spec.md §4.8 truncate).
func (s *FileSystem) Truncate(path string, newSize uint64) error {
	res, err := s.ResolvePath(path)
	if err != nil {
		return err
	}
	if res.Inode.IsDir() {
		return errors.IsDirectory
	}
	if err := s.Resize(&res.Inode, newSize); err != nil {
		return err
	}
	return s.WriteInode(res.InodeNum, res.Inode)
}

// Unlink resolves path with its parent and removes a non-directory entry
// (spec.md §4.8 unlink).
func (s *FileSystem) Unlink(path string) error {
	return s.removeEntry(path, false)
}

// RmDir resolves path with its parent and removes an empty directory entry
// (spec.md §4.8 rmdir).
func (s *FileSystem) RmDir(path string) error {
	return s.removeEntry(path, true)
}

func (s *FileSystem) removeEntry(path string, wantDir bool) error {
	res, err := s.ResolvePath(path)
	if err != nil {
		return err
	}
	if !res.HasParent {
		return errors.InvalidArgument.WithMessage("cannot remove the root directory")
	}

	if wantDir && !res.Inode.IsDir() {
		return errors.NotADirectory
	}
	if !wantDir && res.Inode.IsDir() {
		return errors.IsDirectory
	}
	if wantDir {
		entries, err := dirent.List(s.Image, s.FS, res.Inode)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			return errors.NotEmpty
		}
	}

	return s.DirRemove(res.ParentInodeNum, &res.ParentInode, res.InodeNum, &res.Inode)
}

// RenameFlags controls Rename's collision behavior; see myfs.RenameFlags.
type RenameFlags = myfs.RenameFlags

// Rename moves the entry at oldPath to newPath (spec.md §4.8 rename): with
// [myfs.RenameNoReplace], newPath must not already exist; with
// [myfs.RenameExchange], both must exist and their entries' inode numbers
// are swapped in place without unlinking either one; otherwise an existing
// destination is replaced.
func (s *FileSystem) Rename(oldPath, newPath string, flags RenameFlags) error {
	oldRes, err := s.ResolvePath(oldPath)
	if err != nil {
		return err
	}
	if !oldRes.HasParent {
		return errors.InvalidArgument.WithMessage("cannot rename the root directory")
	}

	newRes, newErr := s.ResolvePath(newPath)
	destExists := newErr == nil

	if flags&myfs.RenameExchange != 0 {
		if !destExists {
			return errors.NoEntry
		}
		return s.exchangeEntries(oldRes, newRes)
	}

	if destExists {
		if flags&myfs.RenameNoReplace != 0 {
			return errors.Exists
		}
		if err := s.removeEntry(newPath, newRes.Inode.IsDir()); err != nil {
			return err
		}
	} else if newErr != errors.NoEntry {
		return newErr
	}

	newParentPath, newName, err := pathwalk.SplitParent(newPath)
	if err != nil {
		return err
	}
	newParentRes, err := s.ResolvePath(newParentPath)
	if err != nil {
		return err
	}
	if !newParentRes.Inode.IsDir() {
		return errors.NotADirectory
	}

	if err := s.DirInsert(newParentRes.InodeNum, &newParentRes.Inode, oldRes.InodeNum, &oldRes.Inode, newName); err != nil {
		return err
	}
	// DirInsert just bumped nlinks for the new reference; DirRemove below
	// drops it again for the old one, netting to no change since this is a
	// move, not a new link — the two calls cancel out exactly as they
	// would for any other two-reference sequence. When both entries live in
	// the same directory, the removal works on the record DirInsert just
	// updated rather than the one resolved before the insert.
	oldParent := oldRes.ParentInode
	if newParentRes.InodeNum == oldRes.ParentInodeNum {
		oldParent = newParentRes.Inode
	}
	return s.DirRemove(oldRes.ParentInodeNum, &oldParent, oldRes.InodeNum, &oldRes.Inode)
}

// exchangeEntries swaps the inode numbers the two resolved entries point
// to, in place, without touching either inode's own content (spec.md §4.8
// rename EXCHANGE).
func (s *FileSystem) exchangeEntries(a, b pathwalk.Result) error {
	if err := s.writeEntryInodeNum(a.ParentInode, a.EntryOffset, b.InodeNum); err != nil {
		return err
	}
	return s.writeEntryInodeNum(b.ParentInode, b.EntryOffset, a.InodeNum)
}

func (s *FileSystem) writeEntryInodeNum(dir inode.Inode, offset uint64, newInodeNum uint32) error {
	buf := make([]byte, 4)
	codec.WriteU32(buf, newInodeNum)
	_, err := inode.WriteAt(s.Image, s.FS, &dir, buf, offset)
	return err
}
