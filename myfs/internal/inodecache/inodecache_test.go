package inodecache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dargueta/myfs/inode"
	"github.com/dargueta/myfs/internal/inodecache"
)

func TestInsertThenGet(t *testing.T) {
	c := inodecache.New()
	c.Insert(7, 42, inode.Inode{Size: 100})

	inodeNum, n, ok := c.Get(7)
	assert.True(t, ok)
	assert.EqualValues(t, 42, inodeNum)
	assert.EqualValues(t, 100, n.Size)
}

func TestGetMissingKey(t *testing.T) {
	c := inodecache.New()
	_, _, ok := c.Get(99)
	assert.False(t, ok)
}

func TestUpdateOverwritesInodeNotNumber(t *testing.T) {
	c := inodecache.New()
	c.Insert(7, 42, inode.Inode{Size: 100})
	c.Update(7, inode.Inode{Size: 200})

	inodeNum, n, ok := c.Get(7)
	assert.True(t, ok)
	assert.EqualValues(t, 42, inodeNum)
	assert.EqualValues(t, 200, n.Size)
}

func TestUpdateMissingKeyIsNoop(t *testing.T) {
	c := inodecache.New()
	c.Update(7, inode.Inode{Size: 200})
	assert.Equal(t, 0, c.Len())
}

func TestRemove(t *testing.T) {
	c := inodecache.New()
	c.Insert(7, 42, inode.Inode{})
	c.Remove(7)

	_, _, ok := c.Get(7)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLenTracksDistinctKeys(t *testing.T) {
	c := inodecache.New()
	c.Insert(1, 1, inode.Inode{})
	c.Insert(2, 2, inode.Inode{})
	c.Insert(1, 1, inode.Inode{Size: 5})

	assert.Equal(t, 2, c.Len())
}
