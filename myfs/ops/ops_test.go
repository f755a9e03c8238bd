package ops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/myfs"
	"github.com/dargueta/myfs/errors"
	"github.com/dargueta/myfs/internal/testimage"
	"github.com/dargueta/myfs/ops"
)

func formatted(t *testing.T, sizeBytes int) *ops.FileSystem {
	t.Helper()
	img := testimage.NewBlank(sizeBytes)
	sys, err := ops.Format(img, int64(sizeBytes))
	require.NoError(t, err)
	return sys
}

func TestFormatCreatesRootDirectory(t *testing.T) {
	sys := formatted(t, 512*1024)

	root, err := sys.ReadInode(myfs.RootInodeNum)
	require.NoError(t, err)
	assert.True(t, root.IsDir())

	attr, err := sys.GetAttr("/")
	require.NoError(t, err)
	assert.EqualValues(t, myfs.RootInodeNum, attr.InodeNum)
}

func TestMkNodeThenReadWrite(t *testing.T) {
	sys := formatted(t, 512*1024)

	_, err := sys.MkNode("/hello.txt", 1000, 1000, 0644)
	require.NoError(t, err)

	n, err := sys.Write("/hello.txt", []byte("hello world"), 0)
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	buf := make([]byte, 11)
	n, err = sys.Read("/hello.txt", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, "hello world", string(buf))
}

func TestMkDirThenNestedMkNode(t *testing.T) {
	sys := formatted(t, 512*1024)

	_, err := sys.MkDir("/sub", 0, 0, 0755)
	require.NoError(t, err)

	_, err = sys.MkNode("/sub/a.txt", 0, 0, 0644)
	require.NoError(t, err)

	res, err := sys.ResolvePath("/sub/a.txt")
	require.NoError(t, err)
	assert.False(t, res.Inode.IsDir())
}

func TestChmodChown(t *testing.T) {
	sys := formatted(t, 512*1024)

	_, err := sys.MkNode("/f", 0, 0, 0644)
	require.NoError(t, err)

	require.NoError(t, sys.Chmod("/f", 0600))
	require.NoError(t, sys.Chown("/f", 42, 43))

	attr, err := sys.GetAttr("/f")
	require.NoError(t, err)
	assert.EqualValues(t, 0600, attr.Inode.Mode&myfs.ModePermMask)
	assert.EqualValues(t, 42, attr.Inode.UID)
	assert.EqualValues(t, 43, attr.Inode.GID)
}

func TestTruncateShrinksFile(t *testing.T) {
	sys := formatted(t, 512*1024)

	_, err := sys.MkNode("/f", 0, 0, 0644)
	require.NoError(t, err)
	_, err = sys.Write("/f", []byte("0123456789"), 0)
	require.NoError(t, err)

	require.NoError(t, sys.Truncate("/f", 4))

	attr, err := sys.GetAttr("/f")
	require.NoError(t, err)
	assert.EqualValues(t, 4, attr.Inode.Size)
}

func TestUnlinkRemovesFile(t *testing.T) {
	sys := formatted(t, 512*1024)

	_, err := sys.MkNode("/f", 0, 0, 0644)
	require.NoError(t, err)

	require.NoError(t, sys.Unlink("/f"))

	_, err = sys.ResolvePath("/f")
	assert.Equal(t, errors.NoEntry, err)
}

func TestUnlinkRefusesDirectory(t *testing.T) {
	sys := formatted(t, 512*1024)

	_, err := sys.MkDir("/d", 0, 0, 0755)
	require.NoError(t, err)

	err = sys.Unlink("/d")
	assert.Equal(t, errors.IsDirectory, err)
}

func TestRmDirRefusesNonEmpty(t *testing.T) {
	sys := formatted(t, 512*1024)

	_, err := sys.MkDir("/d", 0, 0, 0755)
	require.NoError(t, err)
	_, err = sys.MkNode("/d/f", 0, 0, 0644)
	require.NoError(t, err)

	err = sys.RmDir("/d")
	assert.Equal(t, errors.NotEmpty, err)
}

func TestRmDirRemovesEmptyDirectory(t *testing.T) {
	sys := formatted(t, 512*1024)

	_, err := sys.MkDir("/d", 0, 0, 0755)
	require.NoError(t, err)

	require.NoError(t, sys.RmDir("/d"))

	_, err = sys.ResolvePath("/d")
	assert.Equal(t, errors.NoEntry, err)
}

func TestRenameMovesEntryAndPreservesData(t *testing.T) {
	sys := formatted(t, 512*1024)

	_, err := sys.MkNode("/a.txt", 0, 0, 0644)
	require.NoError(t, err)
	_, err = sys.Write("/a.txt", []byte("payload"), 0)
	require.NoError(t, err)

	require.NoError(t, sys.Rename("/a.txt", "/b.txt", 0))

	_, err = sys.ResolvePath("/a.txt")
	assert.Equal(t, errors.NoEntry, err)

	buf := make([]byte, 7)
	n, err := sys.Read("/b.txt", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "payload", string(buf))
}

func TestRenameNoReplaceFailsWhenDestinationExists(t *testing.T) {
	sys := formatted(t, 512*1024)

	_, err := sys.MkNode("/a.txt", 0, 0, 0644)
	require.NoError(t, err)
	_, err = sys.MkNode("/b.txt", 0, 0, 0644)
	require.NoError(t, err)

	err = sys.Rename("/a.txt", "/b.txt", myfs.RenameNoReplace)
	assert.Equal(t, errors.Exists, err)
}

func TestRenameReplacesExistingDestination(t *testing.T) {
	sys := formatted(t, 512*1024)

	_, err := sys.MkNode("/a.txt", 0, 0, 0644)
	require.NoError(t, err)
	_, err = sys.MkNode("/b.txt", 0, 0, 0644)
	require.NoError(t, err)

	require.NoError(t, sys.Rename("/a.txt", "/b.txt", 0))

	_, err = sys.ResolvePath("/a.txt")
	assert.Equal(t, errors.NoEntry, err)
	_, err = sys.ResolvePath("/b.txt")
	assert.NoError(t, err)
}

func TestRenameExchangeSwapsEntries(t *testing.T) {
	sys := formatted(t, 512*1024)

	_, err := sys.MkNode("/a.txt", 0, 0, 0644)
	require.NoError(t, err)
	_, err = sys.Write("/a.txt", []byte("AAA"), 0)
	require.NoError(t, err)

	_, err = sys.MkNode("/b.txt", 0, 0, 0644)
	require.NoError(t, err)
	_, err = sys.Write("/b.txt", []byte("BBB"), 0)
	require.NoError(t, err)

	require.NoError(t, sys.Rename("/a.txt", "/b.txt", myfs.RenameExchange))

	bufA := make([]byte, 3)
	_, err = sys.Read("/a.txt", bufA, 0)
	require.NoError(t, err)
	assert.Equal(t, "BBB", string(bufA))

	bufB := make([]byte, 3)
	_, err = sys.Read("/b.txt", bufB, 0)
	require.NoError(t, err)
	assert.Equal(t, "AAA", string(bufB))
}

func TestRenameExchangeFailsWhenDestinationMissing(t *testing.T) {
	sys := formatted(t, 512*1024)

	_, err := sys.MkNode("/a.txt", 0, 0, 0644)
	require.NoError(t, err)

	err = sys.Rename("/a.txt", "/missing.txt", myfs.RenameExchange)
	assert.Equal(t, errors.NoEntry, err)
}

func TestMountReadsBackFormattedGeometry(t *testing.T) {
	sys := formatted(t, 512*1024)
	reopened, err := ops.Mount(sys.Image)
	require.NoError(t, err)
	assert.Equal(t, sys.FS.BlockSize, reopened.FS.BlockSize)
	assert.Equal(t, sys.FS.DataBlockCount, reopened.FS.DataBlockCount)
}
