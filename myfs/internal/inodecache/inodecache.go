// Package inodecache is a concurrency-safe cache mapping a caller-supplied
// key to a decoded inode, so a mount driver's open-file table doesn't have
// to re-read an inode record from the image on every operation against the
// same open file.
//
// Ported from original_source/inode_map.c's hash table (insert/remove/get
// keyed by an opaque uint32), collapsed into a single Go map guarded by a
// mutex: the reference implementation's bucket-array-of-linked-lists exists
// only because C has no generic hash map, not because the access pattern
// needs anything beyond what map[uint32]entry already gives for free. No
// library in the example pack offers a concurrent map beyond what
// sync.Mutex plus a plain map already covers, so this stays stdlib-only.
//
// This package is used only by cmd/mount's open-file table (spec.md §2
// explicitly keeps decoded-inode caching out of myfs/ops and leaves it to
// the driver).
package inodecache

import (
	"sync"

	"github.com/dargueta/myfs/inode"
)

// entry pairs a cached inode with the inode number it was read from, since
// callers look both up by the same key.
type entry struct {
	inodeNum uint32
	inode    inode.Inode
}

// Cache maps an opaque key (typically a file handle) to the inode it was
// opened against.
type Cache struct {
	mu      sync.RWMutex
	entries map[uint32]entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[uint32]entry)}
}

// Insert records that key maps to inodeNum/n, replacing any prior entry for
// key.
func (c *Cache) Insert(key uint32, inodeNum uint32, n inode.Inode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{inodeNum: inodeNum, inode: n}
}

// Get returns the inode number and decoded inode cached under key, and
// whether key was present.
func (c *Cache) Get(key uint32) (inodeNum uint32, n inode.Inode, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.inodeNum, e.inode, ok
}

// Update overwrites the cached inode for key in place, leaving its inode
// number unchanged. It is a no-op if key isn't present.
func (c *Cache) Update(key uint32, n inode.Inode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.inode = n
	c.entries[key] = e
}

// Remove evicts key from the cache, if present.
func (c *Cache) Remove(key uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
