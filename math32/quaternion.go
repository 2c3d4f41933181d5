package math32

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Quaternion is a unit rotation. It wraps mgl32.Quat so the rest of the
// module can stay on Vector3.
type Quaternion struct {
	W float32 `json:"w"`
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// QuaternionIdentity is the no-rotation quaternion.
func QuaternionIdentity() Quaternion {
	return Quaternion{W: 1}
}

// QuaternionAxisAngle builds a rotation of angle radians around axis.
func QuaternionAxisAngle(angle float32, axis Vector3) Quaternion {
	return fromMgl(mgl32.QuatRotate(angle, toMgl(axis.Normalize())))
}

// QuaternionFromEuler builds a rotation from Euler angles in degrees, applied
// in Z, X, Y order (the usual game-engine convention).
func QuaternionFromEuler(x, y, z float32) Quaternion {
	q := mgl32.AnglesToQuat(
		mgl32.DegToRad(y), mgl32.DegToRad(x), mgl32.DegToRad(z),
		mgl32.YXZ,
	)
	return fromMgl(q)
}

// IsZero reports whether q is the zero value, which callers treat as identity.
func (q Quaternion) IsZero() bool {
	return q.W == 0 && q.X == 0 && q.Y == 0 && q.Z == 0
}

// Normalize returns the unit quaternion; the zero quaternion becomes identity.
func (q Quaternion) Normalize() Quaternion {
	if q.IsZero() {
		return QuaternionIdentity()
	}
	return fromMgl(q.mgl().Normalize())
}

// Mul composes two rotations (q applied after other).
func (q Quaternion) Mul(other Quaternion) Quaternion {
	return fromMgl(q.mgl().Mul(other.mgl()))
}

// Rotate rotates v by q.
func (q Quaternion) Rotate(v Vector3) Vector3 {
	return fromMglVec(q.mgl().Rotate(toMgl(v)))
}

func (q Quaternion) mgl() mgl32.Quat {
	return mgl32.Quat{W: q.W, V: mgl32.Vec3{q.X, q.Y, q.Z}}
}

func fromMgl(q mgl32.Quat) Quaternion {
	return Quaternion{W: q.W, X: q.V[0], Y: q.V[1], Z: q.V[2]}
}

func toMgl(v Vector3) mgl32.Vec3 {
	return mgl32.Vec3{v.X, v.Y, v.Z}
}

func fromMglVec(v mgl32.Vec3) Vector3 {
	return Vector3{v[0], v[1], v[2]}
}

// QuaternionLookRotation returns the shortest rotation taking +Z onto
// forward. A zero forward yields identity.
func QuaternionLookRotation(forward Vector3) Quaternion {
	if forward.LengthSquared() == 0 {
		return QuaternionIdentity()
	}
	return fromMgl(mgl32.QuatBetweenVectors(mgl32.Vec3{0, 0, 1}, toMgl(forward.Normalize())))
}

// Slerp interpolates from q towards other, t in [0, 1].
func (q Quaternion) Slerp(other Quaternion, t float32) Quaternion {
	return fromMgl(mgl32.QuatSlerp(q.Normalize().mgl(), other.Normalize().mgl(), t))
}
