package foliagedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iteratorDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db := openTestDB(t, dir, nil)
	var tiles []Tile
	for i, c := range []TileCoord{{1, 1}, {0, 1}, {-1, -1}, {1, 0}, {0, 0}} {
		tiles = append(tiles, filledTile(c, i+1))
	}
	require.NoError(t, db.SaveAll(tiles))
	require.NoError(t, db.Close())
	return openTestDB(t, dir, nil)
}

func TestTileIteratorAll(t *testing.T) {
	db := iteratorDB(t)
	iter := db.NewTileIterator(nil)
	defer iter.Release()

	var coords []TileCoord
	var total int
	for iter.Next() {
		coords = append(coords, iter.Tile().Coord())
		total += iter.Tile().Len()
	}
	require.NoError(t, iter.Error())
	assert.Equal(t, []TileCoord{{-1, -1}, {0, 0}, {1, 0}, {0, 1}, {1, 1}}, coords)
	assert.Equal(t, 1+2+3+4+5, total)
	assert.Nil(t, iter.Tile())
	assert.False(t, iter.Next())
}

func TestTileIteratorRange(t *testing.T) {
	db := iteratorDB(t)
	iter := db.NewTileIterator(&IteratorRange{Min: TileCoord{0, 0}, Max: TileCoord{2, 1}})
	defer iter.Release()

	var coords []TileCoord
	for iter.Next() {
		coords = append(coords, iter.Tile().Coord())
	}
	require.NoError(t, iter.Error())
	assert.Equal(t, []TileCoord{{0, 0}, {1, 0}}, coords)
}

func TestTileIteratorClosedReader(t *testing.T) {
	db := iteratorDB(t)
	require.NoError(t, db.LoadAllNow(nil))

	iter := db.NewTileIterator(nil)
	defer iter.Release()
	assert.False(t, iter.Next())
	require.ErrorIs(t, iter.Error(), ErrClosed)
	assert.False(t, iter.Next(), "an iterator stays failed")
}
