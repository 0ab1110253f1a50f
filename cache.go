package foliagedb

import (
	"container/list"
)

// blobCache is an LRU cache of raw tile blobs, bounded by the total number of
// bytes held. It uses container/list for O(1) LRU operations. The cache is
// owned by a single DB and is not safe for concurrent use.
type blobCache struct {
	entries map[TileCoord]*list.Element
	lru     *list.List
	size    int64
	maxSize int64
}

// cacheEntry represents a cached blob.
type cacheEntry struct {
	coord TileCoord
	data  []byte
}

// newBlobCache creates a new blob cache with the given max size in bytes.
func newBlobCache(maxSize int64) *blobCache {
	return &blobCache{
		entries: make(map[TileCoord]*list.Element, 64),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// get retrieves a blob from the cache, returning nil if not found.
func (c *blobCache) get(coord TileCoord) []byte {
	elem, ok := c.entries[coord]
	if !ok {
		return nil
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).data
}

// put adds a blob to the cache, evicting the least recently used blobs until
// it fits. Blobs larger than the whole cache are not stored.
func (c *blobCache) put(coord TileCoord, data []byte) {
	size := int64(len(data))
	if size > c.maxSize {
		return
	}

	// Update existing entry
	if elem, ok := c.entries[coord]; ok {
		entry := elem.Value.(*cacheEntry)
		c.size += size - int64(len(entry.data))
		entry.data = data
		c.lru.MoveToFront(elem)
		c.evict()
		return
	}

	elem := c.lru.PushFront(&cacheEntry{coord: coord, data: data})
	c.entries[coord] = elem
	c.size += size
	c.evict()
}

// evict removes entries from the back until the cache fits its max size.
func (c *blobCache) evict() {
	for c.size > c.maxSize && c.lru.Len() > 0 {
		oldest := c.lru.Back()
		oldEntry := oldest.Value.(*cacheEntry)
		c.size -= int64(len(oldEntry.data))
		delete(c.entries, oldEntry.coord)
		c.lru.Remove(oldest)
	}
}

// clear empties the cache.
func (c *blobCache) clear() {
	c.entries = make(map[TileCoord]*list.Element, 64)
	c.lru.Init()
	c.size = 0
}

// len returns the number of entries in the cache.
func (c *blobCache) len() int {
	return len(c.entries)
}
