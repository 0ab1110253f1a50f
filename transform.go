package foliagedb

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Euler angles are in degrees and follow the Z, X, Y rotation order used by
// terrain editors: R = Ry * Rx * Rz.

// eulerToQuat builds the rotation for Euler angles in degrees.
func eulerToQuat(e mgl32.Vec3) mgl32.Quat {
	qx := mgl32.QuatRotate(mgl32.DegToRad(e[0]), mgl32.Vec3{1, 0, 0})
	qy := mgl32.QuatRotate(mgl32.DegToRad(e[1]), mgl32.Vec3{0, 1, 0})
	qz := mgl32.QuatRotate(mgl32.DegToRad(e[2]), mgl32.Vec3{0, 0, 1})
	return qy.Mul(qx).Mul(qz).Normalize()
}

// TRS composes a transform from a translation, Euler angles in degrees and a
// scale.
func TRS(pos, euler, scale mgl32.Vec3) mgl32.Mat4 {
	rot := eulerToQuat(euler).Mat4()
	return mgl32.Translate3D(pos[0], pos[1], pos[2]).
		Mul4(rot).
		Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2]))
}

// position returns the translation of m.
func position(m mgl32.Mat4) mgl32.Vec3 {
	return m.Col(3).Vec3()
}

// lossyScale returns the length of each basis vector of m. Skew and negative
// scale are not recovered.
func lossyScale(m mgl32.Mat4) mgl32.Vec3 {
	return mgl32.Vec3{
		m.Col(0).Vec3().Len(),
		m.Col(1).Vec3().Len(),
		m.Col(2).Vec3().Len(),
	}
}

// eulerAngles extracts the rotation of m as Euler angles in degrees, each
// normalised to [0, 360).
func eulerAngles(m mgl32.Mat4) mgl32.Vec3 {
	s := lossyScale(m)
	var r [3]mgl32.Vec3
	for i := 0; i < 3; i++ {
		c := m.Col(i).Vec3()
		if s[i] > 0 {
			c = c.Mul(1 / s[i])
		}
		r[i] = c
	}
	// at(row, col) of the pure rotation.
	at := func(row, col int) float64 { return float64(r[col][row]) }

	sx := -at(1, 2)
	cx := math.Hypot(at(0, 2), at(2, 2))
	x := math.Atan2(sx, cx)
	var y, z float64
	// Below this the pitch is within half-float precision of +-90 degrees.
	if cx > 3e-4 {
		y = math.Atan2(at(0, 2), at(2, 2))
		z = math.Atan2(at(1, 0), at(1, 1))
	} else {
		// Gimbal lock: fold the roll into the yaw.
		y = math.Atan2(-at(2, 0), at(0, 0))
		z = 0
	}
	return mgl32.Vec3{normDegrees(x), normDegrees(y), normDegrees(z)}
}

// normDegrees converts radians to degrees in [0, 360).
func normDegrees(rad float64) float32 {
	d := math.Mod(rad*180/math.Pi, 360)
	if d < 0 {
		d += 360
	}
	// Snaps values that round to 360 and folds -0 into 0.
	if f := float32(d); f >= 360 || f == 0 {
		return 0
	}
	return float32(d)
}

// Decompose splits a transform built by TRS into its translation, Euler
// angles in degrees and lossy scale.
func Decompose(m mgl32.Mat4) (pos, euler, scale mgl32.Vec3) {
	return position(m), eulerAngles(m), lossyScale(m)
}
