package pathwalk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/myfs"
	"github.com/dargueta/myfs/allocator"
	"github.com/dargueta/myfs/device"
	"github.com/dargueta/myfs/dirent"
	"github.com/dargueta/myfs/errors"
	"github.com/dargueta/myfs/inode"
	"github.com/dargueta/myfs/internal/testimage"
	"github.com/dargueta/myfs/pathwalk"
	"github.com/dargueta/myfs/superblock"
)

// buildTree sets up /a (dir) and /a/b.txt (file) on a blank image.
func buildTree(t *testing.T) (superblock.FSInfo, device.Image) {
	t.Helper()

	fs := superblock.InitGeometry(superblock.MainBlock{
		InodeCountLimit:    32,
		DataBlockCount:     200,
		FreeDataBlockCount: 200,
		BlockSize:          64,
	})
	img := testimage.NewBlank(int(fs.BlocksPos) + 200*int(fs.BlockSize))

	root := inode.Inode{Mode: 0755}
	require.NoError(t, inode.WriteInode(img, &fs, myfs.RootInodeNum, root))
	// Mark the root's bitmap bit used so inode 0 isn't handed out again below.
	_, err := allocator.AllocateInode(img, &fs)
	require.NoError(t, err)

	aNum, err := allocator.AllocateInode(img, &fs)
	require.NoError(t, err)
	a := inode.Inode{Mode: 0755}
	require.NoError(t, inode.WriteInode(img, &fs, aNum, a))
	require.NoError(t, dirent.Insert(img, &fs, myfs.RootInodeNum, &root, aNum, &a, "a"))

	bNum, err := allocator.AllocateInode(img, &fs)
	require.NoError(t, err)
	b := inode.Inode{Mode: myfs.ModeTypeFile | 0644}
	require.NoError(t, inode.WriteInode(img, &fs, bNum, b))
	require.NoError(t, dirent.Insert(img, &fs, aNum, &a, bNum, &b, "b.txt"))

	return fs, img
}

func TestResolveRoot(t *testing.T) {
	fs, img := buildTree(t)

	res, err := pathwalk.Resolve(img, &fs, "/")
	require.NoError(t, err)
	assert.EqualValues(t, myfs.RootInodeNum, res.InodeNum)
	assert.False(t, res.HasParent)
}

func TestResolveNestedFile(t *testing.T) {
	fs, img := buildTree(t)

	res, err := pathwalk.Resolve(img, &fs, "/a/b.txt")
	require.NoError(t, err)
	assert.True(t, res.HasParent)
	assert.NotEqualValues(t, myfs.RootInodeNum, res.InodeNum)
}

func TestResolveMissingComponent(t *testing.T) {
	fs, img := buildTree(t)

	_, err := pathwalk.Resolve(img, &fs, "/a/missing.txt")
	assert.Equal(t, errors.NoEntry, err)

	_, err = pathwalk.Resolve(img, &fs, "/missing/b.txt")
	assert.Equal(t, errors.NoEntry, err)
}

func TestResolveThroughNonDirectoryFails(t *testing.T) {
	fs, img := buildTree(t)

	_, err := pathwalk.Resolve(img, &fs, "/a/b.txt/c")
	assert.Equal(t, errors.NotADirectory, err)
}

func TestResolveRejectsRelativePath(t *testing.T) {
	fs, img := buildTree(t)

	_, err := pathwalk.Resolve(img, &fs, "a/b.txt")
	assert.Equal(t, errors.InvalidArgument, unwrapSentinel(err))
}

func TestSplitParent(t *testing.T) {
	parent, name, err := pathwalk.SplitParent("/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "/a", parent)
	assert.Equal(t, "b.txt", name)

	parent, name, err = pathwalk.SplitParent("/a")
	require.NoError(t, err)
	assert.Equal(t, "/", parent)
	assert.Equal(t, "a", name)

	_, _, err = pathwalk.SplitParent("/")
	assert.Equal(t, errors.InvalidArgument, unwrapSentinel(err))
}

func unwrapSentinel(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return err
}
