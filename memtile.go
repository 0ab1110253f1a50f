package foliagedb

import (
	"github.com/go-gl/mathgl/mgl32"
)

// maxBatchSize is the number of instances per sub-list of a MemTile group,
// matching the instance limit of one instanced draw call.
const maxBatchSize = 1023

// MemTile is a plain in-memory Tile. It is used by tools that work on foliage
// files without a renderer, and is a reference for implementing Tile.
type MemTile struct {
	coord  TileCoord
	groups []*memGroup
	byID   map[AssetID]*memGroup
	dirty  bool

	// Cut reports whether an instance at a world position is excluded. A nil
	// Cut excludes nothing.
	Cut func(pos mgl32.Vec3) bool

	min, max mgl32.Vec3
	releases int
}

// memGroup holds the instances of one asset of a MemTile.
type memGroup struct {
	asset AssetID
	mats  [][]mgl32.Mat4
	clear [][]bool
}

// NewMemTile returns an empty tile at the coordinate passed.
func NewMemTile(c TileCoord) *MemTile {
	return &MemTile{coord: c, byID: make(map[AssetID]*memGroup)}
}

// Coord returns the grid address of the tile.
func (t *MemTile) Coord() TileCoord { return t.coord }

// IsEmpty reports whether the tile holds no instances.
func (t *MemTile) IsEmpty() bool { return t.Len() == 0 }

// HasUnsavedChanges reports whether AddInstance was called since the tile was
// created or last marked saved.
func (t *MemTile) HasUnsavedChanges() bool { return t.dirty }

// MarkSaved clears the unsaved changes flag.
func (t *MemTile) MarkSaved() { t.dirty = false }

// UpdateBounds recomputes the axis-aligned bounds of all instance positions.
func (t *MemTile) UpdateBounds() {
	first := true
	for _, g := range t.groups {
		for _, batch := range g.mats {
			for _, m := range batch {
				p := position(m)
				if first {
					t.min, t.max = p, p
					first = false
					continue
				}
				for i := 0; i < 3; i++ {
					if p[i] < t.min[i] {
						t.min[i] = p[i]
					}
					if p[i] > t.max[i] {
						t.max[i] = p[i]
					}
				}
			}
		}
	}
	if first {
		t.min, t.max = mgl32.Vec3{}, mgl32.Vec3{}
	}
}

// Bounds returns the bounds computed by the last UpdateBounds call.
func (t *MemTile) Bounds() (lo, hi mgl32.Vec3) { return t.min, t.max }

// ClearAndReleaseInstances drops all instances.
func (t *MemTile) ClearAndReleaseInstances() {
	t.groups = nil
	t.byID = make(map[AssetID]*memGroup)
	t.min, t.max = mgl32.Vec3{}, mgl32.Vec3{}
	t.releases++
}

// Releases returns how often ClearAndReleaseInstances was called.
func (t *MemTile) Releases() int { return t.releases }

// IsInstanceCut reports whether Cut excludes pos.
func (t *MemTile) IsInstanceCut(pos mgl32.Vec3) bool {
	return t.Cut != nil && t.Cut(pos)
}

// GetOrAddGroup returns the group of an asset, adding it if missing.
func (t *MemTile) GetOrAddGroup(id AssetID) InstanceAppender {
	return t.group(id)
}

func (t *MemTile) group(id AssetID) *memGroup {
	if g, ok := t.byID[id]; ok {
		return g
	}
	g := &memGroup{asset: id}
	t.groups = append(t.groups, g)
	t.byID[id] = g
	return g
}

// Groups returns the groups of the tile in insertion order. The returned
// slices alias the tile's storage.
func (t *MemTile) Groups() []AssetGroup {
	out := make([]AssetGroup, 0, len(t.groups))
	for _, g := range t.groups {
		out = append(out, AssetGroup{Asset: g.asset, Matrices: g.mats, Clear: g.clear})
	}
	return out
}

// AddInstance places an instance of an asset and marks the tile as changed.
func (t *MemTile) AddInstance(id AssetID, m mgl32.Mat4, cleared bool) {
	t.group(id).AppendInstance(m, cleared)
	t.dirty = true
}

// Len returns the total number of instances in the tile.
func (t *MemTile) Len() int {
	var n int
	for _, g := range t.groups {
		n += AssetGroup{Matrices: g.mats}.count()
	}
	return n
}

// AppendInstance adds an instance to the last batch of the group, starting a
// new batch when it is full.
func (g *memGroup) AppendInstance(m mgl32.Mat4, cleared bool) {
	last := len(g.mats) - 1
	if last < 0 || len(g.mats[last]) >= maxBatchSize {
		g.mats = append(g.mats, make([]mgl32.Mat4, 0, 16))
		g.clear = append(g.clear, make([]bool, 0, 16))
		last++
	}
	g.mats[last] = append(g.mats[last], m)
	g.clear[last] = append(g.clear[last], cleared)
}
