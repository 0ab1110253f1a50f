// Package foliagedb implements tile-partitioned storage for foliage
// instances scattered over a terrain.
//
// All instances of a level live in a single flat file: a header holding an
// offset index of every non-empty tile, followed by one blob per tile. Blobs
// use half-precision floats for most fields and keep the vertical axis at
// full precision, so a level stays small without losing placement height.
//
// The DB offers two ways to get tiles into memory:
//   - streaming: the relevance system reports tiles entering and leaving view,
//     and every Tick loads at most one queued tile from disk
//   - eager: LoadAllNow decodes every tile at once, for editing sessions
//
// Saving rewrites the whole file from the in-memory tiles, and is skipped
// when nothing has changed since the last save.
package foliagedb
