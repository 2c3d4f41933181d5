package math32

import "math"

// MaxFloat32 is the largest finite float32.
const MaxFloat32 = math.MaxFloat32

// Epsilon is the tolerance used for float comparisons of path costs.
const Epsilon = 1e-6

// Min returns the minimum of two values.
func Min[T float32 | int32 | int](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum of two values.
func Max[T float32 | int32 | int](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Abs returns the absolute value of a float32.
func Abs(a float32) float32 {
	if a < 0 {
		return -a
	}
	return a
}

// Approximately reports whether a and b are equal within a relative tolerance.
func Approximately(a, b float32) bool {
	scale := Max(Abs(a), Abs(b))
	return Abs(a-b) <= Max(Epsilon*scale, Epsilon)
}

// Sqrt returns the square root of a float32.
func Sqrt(a float32) float32 {
	return float32(math.Sqrt(float64(a)))
}

// Radians converts degrees to radians.
func Radians(deg float32) float32 {
	return deg * math.Pi / 180
}
