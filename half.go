package foliagedb

import (
	"encoding/binary"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/x448/float16"
)

// EncodeHalf converts a float32 to IEEE 754 binary16 bits. Values outside the
// half range saturate to infinity.
func EncodeHalf(v float32) uint16 {
	return float16.Fromfloat32(v).Bits()
}

// DecodeHalf converts IEEE 754 binary16 bits to a float32.
func DecodeHalf(bits uint16) float32 {
	return float16.Frombits(bits).Float32()
}

// appendHalf appends v as a little-endian half float.
func appendHalf(b []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint16(b, EncodeHalf(v))
}

// appendHalfVec3 appends the x, y and z components of v as half floats.
func appendHalfVec3(b []byte, v mgl32.Vec3) []byte {
	b = appendHalf(b, v[0])
	b = appendHalf(b, v[1])
	return appendHalf(b, v[2])
}

// readHalf reads one little-endian half float.
func readHalf(r io.Reader, scratch []byte) (float32, error) {
	if _, err := io.ReadFull(r, scratch[:2]); err != nil {
		return 0, err
	}
	return DecodeHalf(binary.LittleEndian.Uint16(scratch)), nil
}

// readHalfVec3 reads three half floats in x, y, z order.
func readHalfVec3(r io.Reader, scratch []byte) (mgl32.Vec3, error) {
	if _, err := io.ReadFull(r, scratch[:6]); err != nil {
		return mgl32.Vec3{}, err
	}
	return mgl32.Vec3{
		DecodeHalf(binary.LittleEndian.Uint16(scratch[0:])),
		DecodeHalf(binary.LittleEndian.Uint16(scratch[2:])),
		DecodeHalf(binary.LittleEndian.Uint16(scratch[4:])),
	}, nil
}
