package foliagedb

import (
	"container/list"
)

// LoadMode selects how tiles get into memory.
type LoadMode int

const (
	// ModeStreaming loads tiles one per Tick as they become relevant.
	ModeStreaming LoadMode = iota
	// ModeEagerlyLoaded means every tile was loaded by LoadAllNow. Relevance
	// notifications and Tick do nothing in this mode.
	ModeEagerlyLoaded
)

// String implements fmt.Stringer.
func (m LoadMode) String() string {
	switch m {
	case ModeStreaming:
		return "streaming"
	case ModeEagerlyLoaded:
		return "eagerly-loaded"
	default:
		return "unknown"
	}
}

// loadQueue is a FIFO of tiles waiting to be loaded. Tiles are not
// deduplicated: a tile reported relevant twice is queued twice.
type loadQueue struct {
	pending *list.List
}

func newLoadQueue() *loadQueue {
	return &loadQueue{pending: list.New()}
}

// push appends a tile to the tail of the queue.
func (q *loadQueue) push(t Tile) {
	q.pending.PushBack(t)
}

// pop removes and returns the head of the queue, or nil if it is empty.
func (q *loadQueue) pop() Tile {
	front := q.pending.Front()
	if front == nil {
		return nil
	}
	q.pending.Remove(front)
	return front.Value.(Tile)
}

// remove drops the first occurrence of a tile, reporting whether it was
// queued. Tiles are matched by identity, see Tile.
func (q *loadQueue) remove(t Tile) bool {
	for e := q.pending.Front(); e != nil; e = e.Next() {
		if e.Value.(Tile) == t {
			q.pending.Remove(e)
			return true
		}
	}
	return false
}

func (q *loadQueue) len() int {
	return q.pending.Len()
}

func (q *loadQueue) clear() {
	q.pending.Init()
}

// Mode returns the current load mode.
func (db *DB) Mode() LoadMode {
	return db.mode
}

// QueueLen returns the number of tiles waiting to be loaded.
func (db *DB) QueueLen() int {
	return db.queue.len()
}

// TileBecameRelevant queues a tile that came into view for loading. The
// caller must not report a tile that is already queued.
func (db *DB) TileBecameRelevant(t Tile) {
	if db.mode == ModeEagerlyLoaded {
		return
	}
	db.queue.push(t)
	db.stats.queueLen.Store(int64(db.queue.len()))
}

// TileNoLongerRelevant removes a tile that went out of view from the queue,
// if it is still waiting, and releases its instances immediately.
func (db *DB) TileNoLongerRelevant(t Tile) {
	if db.mode == ModeEagerlyLoaded {
		return
	}
	db.queue.remove(t)
	db.stats.queueLen.Store(int64(db.queue.len()))
	t.ClearAndReleaseInstances()
}

// Tick loads the tile at the head of the queue, if any. At most one tile is
// read from disk per call, bounding the I/O cost of a frame.
func (db *DB) Tick() error {
	if db.mode == ModeEagerlyLoaded {
		return nil
	}
	t := db.queue.pop()
	if t == nil {
		return nil
	}
	db.stats.queueLen.Store(int64(db.queue.len()))
	return db.LoadTileNow(t)
}
