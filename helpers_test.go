package foliagedb

import (
	"io"
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	grassID = uuid.MustParse("6f1c2a9e-0b47-4d2a-9f51-3c1e2b7a8d01")
	bushID  = uuid.MustParse("0d9e8c7b-6a5f-4e3d-8c2b-1a0f9e8d7c6b")
	treeID  = uuid.MustParse("a1b2c3d4-e5f6-4789-8abc-def012345678")
)

// testOptions returns default options that log nowhere.
func testOptions() *Options {
	opts := DefaultOptions()
	opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	return opts
}

// openTestDB opens a DB on dir with opts, closing it when the test ends.
func openTestDB(t *testing.T, dir string, opts *Options) *DB {
	t.Helper()
	if opts == nil {
		opts = testOptions()
	}
	db, err := Config{Options: opts}.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// place adds an instance at a position relative to the center of the tile.
func place(tile *MemTile, id AssetID, local, euler, scale mgl32.Vec3, cleared bool) {
	center := tileCenter(tile.Coord(), DefaultTileSize)
	tile.AddInstance(id, TRS(center.Add(local), euler, scale), cleared)
}

// filledTile returns a tile with n grass instances on a diagonal.
func filledTile(c TileCoord, n int) *MemTile {
	tile := NewMemTile(c)
	for i := 0; i < n; i++ {
		f := float32(i)
		place(tile, grassID, mgl32.Vec3{f - 8, f * 0.5, 8 - f}, mgl32.Vec3{0, f * 10, 0}, mgl32.Vec3{1, 1, 1}, i%2 == 0)
	}
	return tile
}

// instances flattens the instances of a tile in group, batch order.
func instances(tile Tile) (ids []AssetID, mats []mgl32.Mat4, flags []bool) {
	for _, g := range tile.Groups() {
		for i, batch := range g.Matrices {
			for j, m := range batch {
				ids = append(ids, g.Asset)
				mats = append(mats, m)
				flags = append(flags, g.Clear[i][j])
			}
		}
	}
	return ids, mats, flags
}

// requireMatClose asserts that two transforms match element-wise.
func requireMatClose(t *testing.T, want, got mgl32.Mat4, tol float32) {
	t.Helper()
	for i := range want {
		require.InDelta(t, want[i], got[i], float64(tol), "element %d of %v vs %v", i, want, got)
	}
}

func asTiles(tiles ...*MemTile) []Tile {
	out := make([]Tile, len(tiles))
	for i, t := range tiles {
		out[i] = t
	}
	return out
}
