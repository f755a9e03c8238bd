package superblock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/myfs/internal/testimage"
	"github.com/dargueta/myfs/superblock"
)

func TestFormatImageThenReadSuperblockRoundTrips(t *testing.T) {
	img := testimage.NewBlank(1 << 20)

	formatted, err := superblock.FormatImage(img, 1<<20)
	require.NoError(t, err)

	read, err := superblock.ReadSuperblock(img)
	require.NoError(t, err)

	assert.Equal(t, formatted.MainBlock, read.MainBlock)
	assert.Equal(t, formatted.InodeBitmapPos, read.InodeBitmapPos)
	assert.Equal(t, formatted.DataBitmapPos, read.DataBitmapPos)
	assert.Equal(t, formatted.InodesPos, read.InodesPos)
	assert.Equal(t, formatted.BlocksPos, read.BlocksPos)
}

func TestFormatImageZerosBitmaps(t *testing.T) {
	img := testimage.NewRandom(t, 1<<20)

	fs, err := superblock.FormatImage(img, 1<<20)
	require.NoError(t, err)

	bitmapBytes := fs.InodesPos - fs.InodeBitmapPos
	buf := make([]byte, bitmapBytes)
	_, err = img.Seek(fs.InodeBitmapPos, 0)
	require.NoError(t, err)
	_, err = img.Read(buf)
	require.NoError(t, err)

	for i, b := range buf {
		require.EqualValuesf(t, 0, b, "byte %d of inode bitmap region is non-zero after format", i)
	}
}

func TestFormatImageGeometryScalesWithSize(t *testing.T) {
	small := testimage.NewBlank(1 << 16)
	large := testimage.NewBlank(1 << 20)

	smallFS, err := superblock.FormatImage(small, 1<<16)
	require.NoError(t, err)
	largeFS, err := superblock.FormatImage(large, 1<<20)
	require.NoError(t, err)

	assert.Less(t, smallFS.BlockCount, largeFS.BlockCount)
	assert.Less(t, smallFS.DataBlockCount, largeFS.DataBlockCount)
}

func TestReadSuperblockRejectsZeroBlockSize(t *testing.T) {
	img := testimage.NewBlank(1 << 16)
	_, err := superblock.ReadSuperblock(img)
	require.Error(t, err)
}

func TestWriteSuperblockThenReadBackPreservesFreeCount(t *testing.T) {
	img := testimage.NewBlank(1 << 20)
	fs, err := superblock.FormatImage(img, 1<<20)
	require.NoError(t, err)

	fs.FreeDataBlockCount -= 3
	require.NoError(t, superblock.WriteSuperblock(img, fs))

	read, err := superblock.ReadSuperblock(img)
	require.NoError(t, err)
	assert.Equal(t, fs.FreeDataBlockCount, read.FreeDataBlockCount)
}
