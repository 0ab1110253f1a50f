package foliagedb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

// formatVersion is the only foliage file version understood.
const formatVersion = 1

// headerEntrySize is the on-disk size of one index triple: x, y, offset.
const headerEntrySize = 4 + 4 + 8

// ErrUnsupportedVersion is returned when a foliage file carries a header
// version other than the one this package writes.
var ErrUnsupportedVersion = errors.New("foliagedb: unsupported file version")

// tileIndex maps tile coordinates to the location of their blob in the blob
// region of the file. Offsets are relative to the end of the header.
type tileIndex struct {
	entries map[TileCoord]indexEntry
	// order holds coordinates in the order their blobs appear in the file.
	order []TileCoord
}

// indexEntry holds the relative offset and size of a tile blob. The size is
// not stored on disk but derived from the neighbouring offset.
type indexEntry struct {
	offset int64
	size   int64
}

// newTileIndex creates a new, empty tile index.
func newTileIndex() *tileIndex {
	return &tileIndex{
		entries: make(map[TileCoord]indexEntry),
	}
}

// get retrieves the entry of a tile, returning false if not found.
func (idx *tileIndex) get(c TileCoord) (indexEntry, bool) {
	e, ok := idx.entries[c]
	return e, ok
}

// put adds an entry to the index. Putting a coordinate that is already
// present replaces its entry without changing the order.
func (idx *tileIndex) put(c TileCoord, offset, size int64) {
	if _, ok := idx.entries[c]; !ok {
		idx.order = append(idx.order, c)
	}
	idx.entries[c] = indexEntry{offset: offset, size: size}
}

// count returns the number of entries in the index.
func (idx *tileIndex) count() int {
	return len(idx.entries)
}

// headerSize returns the number of bytes the header of this index occupies,
// which is also the blob base offset.
func (idx *tileIndex) headerSize() int64 {
	return 8 + int64(idx.count())*headerEntrySize
}

// writeHeader writes the version, the entry count and one triple per entry in
// blob order.
func (idx *tileIndex) writeHeader(w io.Writer) error {
	buf := make([]byte, 0, idx.headerSize())
	buf = binary.LittleEndian.AppendUint32(buf, formatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(idx.count()))
	for _, c := range idx.order {
		e := idx.entries[c]
		buf = binary.LittleEndian.AppendUint32(buf, uint32(c.X))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(c.Y))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(e.offset))
	}
	_, err := w.Write(buf)
	return err
}

// readIndex parses a header from r. fileSize is the total size of the file
// and is used to derive the size of every blob. The returned blob base is the
// stream position right after the last triple.
func readIndex(r io.Reader, fileSize int64) (*tileIndex, int64, error) {
	br := bufio.NewReader(r)
	var head [8]byte
	if _, err := io.ReadFull(br, head[:]); err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	if v := int32(binary.LittleEndian.Uint32(head[0:])); v != formatVersion {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	n := int32(binary.LittleEndian.Uint32(head[4:]))
	if n < 0 {
		return nil, 0, fmt.Errorf("read header: negative entry count %d", n)
	}

	idx := newTileIndex()
	var entry [headerEntrySize]byte
	for i := int32(0); i < n; i++ {
		if _, err := io.ReadFull(br, entry[:]); err != nil {
			return nil, 0, fmt.Errorf("read header entry %d: %w", i, err)
		}
		c := TileCoord{
			X: int32(binary.LittleEndian.Uint32(entry[0:])),
			Y: int32(binary.LittleEndian.Uint32(entry[4:])),
		}
		idx.put(c, int64(binary.LittleEndian.Uint64(entry[8:])), 0)
	}
	base := 8 + int64(n)*headerEntrySize
	idx.deriveSizes(fileSize - base)
	return idx, base, nil
}

// deriveSizes computes the size of every blob from the distance to the next
// offset in file order. regionSize is the size of the whole blob region.
func (idx *tileIndex) deriveSizes(regionSize int64) {
	byOffset := make([]TileCoord, len(idx.order))
	copy(byOffset, idx.order)
	sort.SliceStable(byOffset, func(i, j int) bool {
		return idx.entries[byOffset[i]].offset < idx.entries[byOffset[j]].offset
	})
	for i, c := range byOffset {
		e := idx.entries[c]
		end := regionSize
		if i+1 < len(byOffset) {
			end = idx.entries[byOffset[i+1]].offset
		}
		e.size = end - e.offset
		if e.size < 0 {
			e.size = 0
		}
		idx.entries[c] = e
	}
}

// mortonEncode encodes 2D tile coordinates into a Z-order (Morton) code.
// Sorting by it keeps tiles that are close in the world close in iteration.
//
// The Morton code interleaves the bits of X and Y coordinates:
//
//	X: 0b1010 -> bits at positions 0, 2, 4, 6
//	Y: 0b1100 -> bits at positions 1, 3, 5, 7
func mortonEncode(x, y int32) uint64 {
	// Flip the sign bit so negative coordinates sort below positive ones.
	ux := uint64(uint32(x) ^ 0x80000000)
	uy := uint64(uint32(y) ^ 0x80000000)

	// Spread bits using magic numbers
	ux = (ux | (ux << 16)) & 0x0000FFFF0000FFFF
	ux = (ux | (ux << 8)) & 0x00FF00FF00FF00FF
	ux = (ux | (ux << 4)) & 0x0F0F0F0F0F0F0F0F
	ux = (ux | (ux << 2)) & 0x3333333333333333
	ux = (ux | (ux << 1)) & 0x5555555555555555

	uy = (uy | (uy << 16)) & 0x0000FFFF0000FFFF
	uy = (uy | (uy << 8)) & 0x00FF00FF00FF00FF
	uy = (uy | (uy << 4)) & 0x0F0F0F0F0F0F0F0F
	uy = (uy | (uy << 2)) & 0x3333333333333333
	uy = (uy | (uy << 1)) & 0x5555555555555555

	return ux | (uy << 1)
}

// iterate calls fn for each entry in Morton order until fn returns false.
func (idx *tileIndex) iterate(fn func(c TileCoord, e indexEntry) bool) {
	coords := make([]TileCoord, len(idx.order))
	copy(coords, idx.order)
	sort.Slice(coords, func(i, j int) bool {
		return mortonEncode(coords[i].X, coords[i].Y) < mortonEncode(coords[j].X, coords[j].Y)
	})
	for _, c := range coords {
		if !fn(c, idx.entries[c]) {
			return
		}
	}
}
