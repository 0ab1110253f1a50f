package foliagedb

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// TileCoord is the integer grid address of a foliage tile.
type TileCoord struct {
	X, Y int32
}

// AssetID identifies the kind of object placed by an instance. Its 16 bytes
// are written to disk verbatim.
type AssetID = uuid.UUID

// AssetGroup is the set of instances of one asset held by a tile. Matrices
// and Clear are parallel: Clear[i][j] is the clear flag of Matrices[i][j].
// The sub-lists mirror the batches the renderer draws in one call.
type AssetGroup struct {
	Asset    AssetID
	Matrices [][]mgl32.Mat4
	Clear    [][]bool
}

// count returns the total number of instances over all sub-lists.
func (g AssetGroup) count() int {
	var n int
	for _, m := range g.Matrices {
		n += len(m)
	}
	return n
}

// InstanceAppender receives instances decoded for one asset.
type InstanceAppender interface {
	// AppendInstance adds an instance with the world-space transform m.
	AppendInstance(m mgl32.Mat4, clear bool)
}

// Tile is an in-memory foliage tile owned by the caller. The DB fills tiles on
// load and reads them on save, but never holds on to their instance data.
//
// Tiles passed to the load queue are matched with ==, so implementations
// must be comparable. Pointer types such as *MemTile always are.
type Tile interface {
	// Coord returns the grid address of the tile.
	Coord() TileCoord
	// IsEmpty reports whether the tile holds no instances at all.
	IsEmpty() bool
	// HasUnsavedChanges reports whether the tile was edited since it was
	// last saved.
	HasUnsavedChanges() bool
	// UpdateBounds recomputes the bounds of the tile after a load.
	UpdateBounds()
	// ClearAndReleaseInstances drops all instances and any resources
	// associated with them.
	ClearAndReleaseInstances()
	// IsInstanceCut reports whether an instance at the world position passed
	// is excluded, for example by a road or building cutting through foliage.
	IsInstanceCut(pos mgl32.Vec3) bool
	// GetOrAddGroup returns the destination for instances of an asset,
	// creating it if the tile has none yet.
	GetOrAddGroup(id AssetID) InstanceAppender
	// Groups returns the instances of the tile grouped by asset, in group
	// insertion order.
	Groups() []AssetGroup
}

// tileCenter returns the world-space center of a tile on the ground plane.
func tileCenter(c TileCoord, tileSize float32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(c.X)*tileSize + tileSize*0.5,
		0,
		float32(c.Y)*tileSize + tileSize*0.5,
	}
}
