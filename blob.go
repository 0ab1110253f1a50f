package foliagedb

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// instanceSize is the encoded size of one instance: half x, half z, float y,
// three half Euler angles, three half scale components and the clear flag.
const instanceSize = 2 + 2 + 4 + 3*2 + 3*2 + 1

// encodeTile encodes all instance groups of a tile. Positions are written
// relative to center to keep the half-precision fields small; y is kept at
// full precision because heights can be far from the tile's ground plane.
func encodeTile(t Tile, center mgl32.Vec3) []byte {
	groups := t.Groups()

	size := 4
	for _, g := range groups {
		size += 16 + 4 + g.count()*instanceSize
	}
	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(groups)))

	for _, g := range groups {
		buf = append(buf, g.Asset[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(g.count()))
		for i, matrices := range g.Matrices {
			var flags []bool
			if i < len(g.Clear) {
				flags = g.Clear[i]
			}
			for j, m := range matrices {
				local := position(m).Sub(center)
				buf = appendHalf(buf, local[0])
				buf = appendHalf(buf, local[2])
				buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(local[1]))
				buf = appendHalfVec3(buf, eulerAngles(m))
				buf = appendHalfVec3(buf, lossyScale(m))
				buf = append(buf, boolByte(j < len(flags) && flags[j]))
			}
		}
	}
	return buf
}

// decodeTile decodes one tile blob from r into t. Instances whose world
// position the tile reports as cut are dropped, and a group is only added to
// the tile once it receives its first instance.
//
// The blob is trusted to come from encodeTile: truncated input surfaces as
// io.ErrUnexpectedEOF and nothing else is validated.
func decodeTile(r io.Reader, t Tile, center mgl32.Vec3) error {
	scratch := make([]byte, 16)

	groupCount, err := readInt32(r, scratch)
	if err != nil {
		return fmt.Errorf("read group count: %w", err)
	}
	for g := int32(0); g < groupCount; g++ {
		var id AssetID
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return fmt.Errorf("read asset id of group %d: %w", g, eof(err))
		}
		n, err := readInt32(r, scratch)
		if err != nil {
			return fmt.Errorf("read instance count of group %d: %w", g, err)
		}

		var dst InstanceAppender
		for i := int32(0); i < n; i++ {
			m, cleared, err := readInstance(r, scratch, center)
			if err != nil {
				return fmt.Errorf("read instance %d of group %d: %w", i, g, eof(err))
			}
			if t.IsInstanceCut(position(m)) {
				continue
			}
			if dst == nil {
				dst = t.GetOrAddGroup(id)
			}
			dst.AppendInstance(m, cleared)
		}
	}
	return nil
}

// readInstance reads a single instance and rebuilds its world transform.
func readInstance(r io.Reader, scratch []byte, center mgl32.Vec3) (mgl32.Mat4, bool, error) {
	if _, err := io.ReadFull(r, scratch[:8]); err != nil {
		return mgl32.Mat4{}, false, err
	}
	x := DecodeHalf(binary.LittleEndian.Uint16(scratch[0:]))
	z := DecodeHalf(binary.LittleEndian.Uint16(scratch[2:]))
	y := math.Float32frombits(binary.LittleEndian.Uint32(scratch[4:]))
	pos := mgl32.Vec3{center[0] + x, y, center[2] + z}

	euler, err := readHalfVec3(r, scratch)
	if err != nil {
		return mgl32.Mat4{}, false, err
	}
	scale, err := readHalfVec3(r, scratch)
	if err != nil {
		return mgl32.Mat4{}, false, err
	}
	if _, err := io.ReadFull(r, scratch[:1]); err != nil {
		return mgl32.Mat4{}, false, err
	}
	return TRS(pos, euler, scale), scratch[0] != 0, nil
}

// readInt32 reads a little-endian int32.
func readInt32(r io.Reader, scratch []byte) (int32, error) {
	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return 0, eof(err)
	}
	return int32(binary.LittleEndian.Uint32(scratch)), nil
}

// eof turns a clean io.EOF into io.ErrUnexpectedEOF: inside a blob, running
// out of data is always a truncation.
func eof(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
