package foliagedb

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTileLayout(t *testing.T) {
	coord := TileCoord{X: 1, Y: 1}
	center := tileCenter(coord, DefaultTileSize)
	tile := NewMemTile(coord)
	place(tile, grassID, mgl32.Vec3{1, 250.25, -2}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 2, 2}, true)

	b := encodeTile(tile, center)
	require.Len(t, b, 4+16+4+instanceSize)

	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[0:]), "group count")
	assert.Equal(t, grassID[:], b[4:20], "asset id")
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[20:]), "instance count")

	inst := b[24:]
	assert.Equal(t, EncodeHalf(1), binary.LittleEndian.Uint16(inst[0:]), "local x")
	assert.Equal(t, EncodeHalf(-2), binary.LittleEndian.Uint16(inst[2:]), "local z")
	assert.Equal(t, float32(250.25), math.Float32frombits(binary.LittleEndian.Uint32(inst[4:])), "local y")
	for i := 0; i < 3; i++ {
		assert.Equal(t, EncodeHalf(0), binary.LittleEndian.Uint16(inst[8+2*i:]), "rotation %d", i)
		assert.Equal(t, EncodeHalf(2), binary.LittleEndian.Uint16(inst[14+2*i:]), "scale %d", i)
	}
	assert.Equal(t, byte(1), inst[20], "clear flag")
}

func TestEncodeTileCountsAllBatches(t *testing.T) {
	tile := filledTile(TileCoord{}, maxBatchSize+5)
	require.Len(t, tile.Groups()[0].Matrices, 2)

	b := encodeTile(tile, tileCenter(tile.Coord(), DefaultTileSize))
	assert.Equal(t, uint32(maxBatchSize+5), binary.LittleEndian.Uint32(b[20:]))
	assert.Len(t, b, 4+16+4+(maxBatchSize+5)*instanceSize)
}

func TestBlobRoundTrip(t *testing.T) {
	coord := TileCoord{X: -7, Y: 12}
	center := tileCenter(coord, DefaultTileSize)
	src := NewMemTile(coord)
	place(src, grassID, mgl32.Vec3{3.3, 1e4 + 0.125, -12.7}, mgl32.Vec3{10, 45, 5}, mgl32.Vec3{1, 1.5, 1}, false)
	place(src, bushID, mgl32.Vec3{-15.9, -3.75, 15.9}, mgl32.Vec3{350, 180.5, 270}, mgl32.Vec3{0.8, 0.8, 0.8}, true)
	place(src, grassID, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}, true)
	place(src, treeID, mgl32.Vec3{7.5, 42, 2.25}, mgl32.Vec3{30, 200, 0}, mgl32.Vec3{3, 4, 3}, false)

	dst := NewMemTile(coord)
	require.NoError(t, decodeTile(bytes.NewReader(encodeTile(src, center)), dst, center))

	wantIDs, wantMats, wantFlags := instances(src)
	gotIDs, gotMats, gotFlags := instances(dst)
	require.Equal(t, wantIDs, gotIDs)
	require.Equal(t, wantFlags, gotFlags)
	for i := range wantMats {
		wantPos, gotPos := position(wantMats[i]), position(gotMats[i])
		assert.Equal(t, wantPos[1], gotPos[1], "y must be exact")
		assert.InDelta(t, wantPos[0], gotPos[0], 0.01)
		assert.InDelta(t, wantPos[2], gotPos[2], 0.01)
		requireMatClose(t, wantMats[i], gotMats[i], 0.02)
	}
	assert.False(t, dst.HasUnsavedChanges(), "decoding is not an edit")
}

func TestBlobGroupOrder(t *testing.T) {
	src := NewMemTile(TileCoord{})
	place(src, treeID, mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, false)
	place(src, grassID, mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, false)
	place(src, bushID, mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, false)

	center := tileCenter(src.Coord(), DefaultTileSize)
	dst := NewMemTile(src.Coord())
	require.NoError(t, decodeTile(bytes.NewReader(encodeTile(src, center)), dst, center))

	var order []AssetID
	for _, g := range dst.Groups() {
		order = append(order, g.Asset)
	}
	assert.Equal(t, []AssetID{treeID, grassID, bushID}, order)
}

func TestDecodeTileDropsCutInstances(t *testing.T) {
	coord := TileCoord{X: 2, Y: 2}
	center := tileCenter(coord, DefaultTileSize)
	src := NewMemTile(coord)
	for i := 0; i < 10; i++ {
		place(src, grassID, mgl32.Vec3{float32(i) - 5, 0, 0}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, false)
	}
	place(src, bushID, mgl32.Vec3{-3, 0, 0}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, false)

	dst := NewMemTile(coord)
	dst.Cut = func(pos mgl32.Vec3) bool { return pos[0] < center[0] }
	require.NoError(t, decodeTile(bytes.NewReader(encodeTile(src, center)), dst, center))

	_, mats, _ := instances(dst)
	require.Len(t, mats, 5)
	for _, m := range mats {
		assert.False(t, dst.IsInstanceCut(position(m)))
	}
	require.Len(t, dst.Groups(), 1, "a group whose instances are all cut is never created")
	assert.Equal(t, grassID, dst.Groups()[0].Asset)
}

func TestDecodeTileTruncated(t *testing.T) {
	src := filledTile(TileCoord{}, 3)
	center := tileCenter(src.Coord(), DefaultTileSize)
	b := encodeTile(src, center)

	for _, n := range []int{0, 2, 4, 10, 24, len(b) - 1} {
		err := decodeTile(bytes.NewReader(b[:n]), NewMemTile(src.Coord()), center)
		require.ErrorIsf(t, err, io.ErrUnexpectedEOF, "blob cut at %d bytes", n)
	}
}

func TestEncodeEmptyTile(t *testing.T) {
	b := encodeTile(NewMemTile(TileCoord{}), mgl32.Vec3{})
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
}

func TestTileCenter(t *testing.T) {
	assert.Equal(t, mgl32.Vec3{112, 0, -48}, tileCenter(TileCoord{X: 3, Y: -2}, 32))
	assert.Equal(t, mgl32.Vec3{8, 0, 8}, tileCenter(TileCoord{}, 16))
}
