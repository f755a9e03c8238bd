// Package pathwalk resolves absolute paths to inodes, component by
// component, per spec.md §4.7: starting at the root (inode 0), scanning
// each directory's entries for the next component's name, failing with
// [errors.NoEntry] on a missing component and [errors.NotADirectory] when
// an intermediate component isn't a directory.
//
// The component-split-and-scan shape is grounded in how the teacher repo
// (dargueta/disko) splits and normalizes paths in driver/driver.go's
// path-handling helpers, adapted here to walk this format's directories
// instead of delegating to the host's VFS.
package pathwalk

import (
	"strings"

	"github.com/dargueta/myfs"
	"github.com/dargueta/myfs/device"
	"github.com/dargueta/myfs/dirent"
	"github.com/dargueta/myfs/errors"
	"github.com/dargueta/myfs/inode"
	"github.com/dargueta/myfs/superblock"
)

// Result is everything a caller needs after resolving a path: the target
// inode, its parent directory, and the byte offset of the matched entry
// within the parent (used by rename's EXCHANGE mode to swap entries in
// place without a tree rewrite).
type Result struct {
	InodeNum       uint32
	Inode          inode.Inode
	ParentInodeNum uint32
	ParentInode    inode.Inode
	EntryOffset    uint64
	HasParent      bool
}

// splitPath breaks an absolute path into its nonempty components, e.g.
// "/a/b/c" -> ["a", "b", "c"] and "/" -> [].
func splitPath(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, errors.InvalidArgument.WithMessage("path must be absolute")
	}

	parts := strings.Split(path, "/")
	components := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			components = append(components, p)
		}
	}
	return components, nil
}

// Resolve walks path from the root, returning the target inode plus its
// parent directory context (spec.md §4.7).
func Resolve(img device.Image, fs *superblock.FSInfo, path string) (Result, error) {
	components, err := splitPath(path)
	if err != nil {
		return Result{}, err
	}

	root, err := inode.ReadInode(img, fs, myfs.RootInodeNum)
	if err != nil {
		return Result{}, err
	}

	if len(components) == 0 {
		return Result{InodeNum: myfs.RootInodeNum, Inode: root}, nil
	}

	curNum := myfs.RootInodeNum
	cur := root
	var parentNum uint32
	var parent inode.Inode
	var entryOffset uint64
	hasParent := false

	for i, name := range components {
		if !cur.IsDir() {
			return Result{}, errors.NotADirectory
		}

		entry, ok, err := dirent.Find(img, fs, cur, name)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, errors.NoEntry
		}

		child, err := inode.ReadInode(img, fs, entry.InodeNum)
		if err != nil {
			return Result{}, err
		}

		parentNum, parent, entryOffset, hasParent = curNum, cur, entry.Pos, true
		curNum, cur = entry.InodeNum, child

		if i < len(components)-1 && !cur.IsDir() {
			return Result{}, errors.NotADirectory
		}
	}

	return Result{
		InodeNum:       curNum,
		Inode:          cur,
		ParentInodeNum: parentNum,
		ParentInode:    parent,
		EntryOffset:    entryOffset,
		HasParent:      hasParent,
	}, nil
}

// SplitParent splits path into its parent directory path and final
// component name, for operations (mknod, mkdir, rename) that need
// to resolve the parent separately from creating or removing the leaf.
// Fails with [errors.InvalidArgument] for "/" itself, which has no parent.
func SplitParent(path string) (parentPath, name string, err error) {
	components, err := splitPath(path)
	if err != nil {
		return "", "", err
	}
	if len(components) == 0 {
		return "", "", errors.InvalidArgument.WithMessage("root has no parent")
	}

	name = components[len(components)-1]
	if len(components) == 1 {
		return "/", name, nil
	}
	return "/" + strings.Join(components[:len(components)-1], "/"), name, nil
}
