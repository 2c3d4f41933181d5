package math32

import (
	"fmt"
	"math"
)

// Vector3 represents a 3D vector.
type Vector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Vec3 is shorthand for Vector3{x, y, z}.
func Vec3(x, y, z float32) Vector3 {
	return Vector3{x, y, z}
}

// Splat returns a vector with all three components set to s.
func Splat(s float32) Vector3 {
	return Vector3{s, s, s}
}

// Add adds two vectors.
func (v Vector3) Add(other Vector3) Vector3 {
	return Vector3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub subtracts two vectors.
func (v Vector3) Sub(other Vector3) Vector3 {
	return Vector3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Mul multiplies a vector by a scalar.
func (v Vector3) Mul(s float32) Vector3 {
	return Vector3{v.X * s, v.Y * s, v.Z * s}
}

// MulVec multiplies two vectors componentwise.
func (v Vector3) MulVec(other Vector3) Vector3 {
	return Vector3{v.X * other.X, v.Y * other.Y, v.Z * other.Z}
}

// Abs returns the componentwise absolute value.
func (v Vector3) Abs() Vector3 {
	return Vector3{Abs(v.X), Abs(v.Y), Abs(v.Z)}
}

// Distance calculates the distance between two vectors.
func (v Vector3) Distance(other Vector3) float32 {
	return v.Sub(other).Length()
}

// DistanceSquared calculates the squared distance between two vectors.
func (v Vector3) DistanceSquared(other Vector3) float32 {
	return v.Sub(other).LengthSquared()
}

// LengthSquared calculates the squared length of a vector.
func (v Vector3) LengthSquared() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Length calculates the length of a vector.
func (v Vector3) Length() float32 {
	return float32(math.Sqrt(float64(v.LengthSquared())))
}

// Dot calculates the dot product of two vectors.
func (v Vector3) Dot(other Vector3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross calculates the cross product of two vectors.
func (v Vector3) Cross(other Vector3) Vector3 {
	return Vector3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Normalize normalizes a vector. The zero vector stays zero.
func (v Vector3) Normalize() Vector3 {
	l := v.Length()
	if l == 0 {
		return Vector3{}
	}
	return v.Mul(1.0 / l)
}

// MinComponent returns the smallest of the three components.
func (v Vector3) MinComponent() float32 {
	return Min(v.X, Min(v.Y, v.Z))
}

// MaxComponent returns the largest of the three components.
func (v Vector3) MaxComponent() float32 {
	return Max(v.X, Max(v.Y, v.Z))
}

// Min returns the componentwise minimum.
func (v Vector3) Min(other Vector3) Vector3 {
	return Vector3{Min(v.X, other.X), Min(v.Y, other.Y), Min(v.Z, other.Z)}
}

// Max returns the componentwise maximum.
func (v Vector3) Max(other Vector3) Vector3 {
	return Vector3{Max(v.X, other.X), Max(v.Y, other.Y), Max(v.Z, other.Z)}
}

// ApproxEqual reports whether every component differs by at most eps.
func (v Vector3) ApproxEqual(other Vector3, eps float32) bool {
	return Abs(v.X-other.X) <= eps && Abs(v.Y-other.Y) <= eps && Abs(v.Z-other.Z) <= eps
}

// String returns a string representation of the vector.
func (v Vector3) String() string {
	return fmt.Sprintf("[%.2f,%.2f,%.2f]", v.X, v.Y, v.Z)
}

// Get returns the value of the vector at the given index.
func (v Vector3) Get(i int) float32 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	return 0
}

// Quantize snaps the vector to a grid of the given cell size, used as a
// cache key for positional lookups.
func (v Vector3) Quantize(cell float32) Vector3i {
	if cell <= 0 {
		cell = 1
	}
	return Vector3i{
		X: int32(math.Floor(float64(v.X / cell))),
		Y: int32(math.Floor(float64(v.Y / cell))),
		Z: int32(math.Floor(float64(v.Z / cell))),
	}
}
