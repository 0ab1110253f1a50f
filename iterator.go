package foliagedb

// TileIterator iterates over the persisted tiles of a DB in Z-order, decoding
// each into a fresh MemTile.
//
// When an error is encountered, any call to Next will return false and will
// yield no tiles. The error can be queried by calling the Error method.
// Calling Release is still necessary.
type TileIterator struct {
	db      *DB
	err     error
	coords  []TileCoord
	current int
	tile    *MemTile
}

// NewTileIterator returns a TileIterator over all persisted tiles within r.
// A nil range includes every tile. The DB must be open and in streaming mode.
func (db *DB) NewTileIterator(r *IteratorRange) *TileIterator {
	if r == nil {
		r = &IteratorRange{}
	}
	iter := &TileIterator{db: db, current: -1}
	db.index.iterate(func(c TileCoord, _ indexEntry) bool {
		if r.within(c) {
			iter.coords = append(iter.coords, c)
		}
		return true
	})
	return iter
}

// Next moves the iterator to the next tile.
// It returns false if the iterator is exhausted.
func (iter *TileIterator) Next() bool {
	if iter.err != nil {
		return false
	}

	iter.current++
	if iter.current >= len(iter.coords) {
		iter.tile = nil
		return false
	}

	t := NewMemTile(iter.coords[iter.current])
	if err := iter.db.LoadTileNow(t); err != nil {
		iter.err = err
		iter.tile = nil
		return false
	}
	iter.tile = t
	return true
}

// Tile returns the current tile, or nil if none.
func (iter *TileIterator) Tile() *MemTile {
	return iter.tile
}

// Release releases resources associated with the iterator.
func (iter *TileIterator) Release() {
	iter.coords = nil
	iter.tile = nil
}

// Error returns any accumulated error.
func (iter *TileIterator) Error() error {
	return iter.err
}

// IteratorRange limits what tiles are returned by a TileIterator.
type IteratorRange struct {
	// Min and Max limit what tile coordinates are returned, Min inclusive
	// and Max exclusive. A zero value for both causes all coordinates to be
	// within range.
	Min, Max TileCoord
}

// within checks if a coordinate is within the IteratorRange.
func (r *IteratorRange) within(c TileCoord) bool {
	return ((r.Min == TileCoord{}) && (r.Max == TileCoord{})) ||
		c.X >= r.Min.X && c.X < r.Max.X && c.Y >= r.Min.Y && c.Y < r.Max.Y
}
