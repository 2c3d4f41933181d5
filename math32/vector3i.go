package math32

// Vector3i is an integer vector, used for grid keys and unit directions.
type Vector3i struct {
	X int32
	Y int32
	Z int32
}

// FaceDirections are the six axis-aligned unit directions in probe order:
// +X, -X, +Y, -Y, +Z, -Z.
var FaceDirections = [6]Vector3i{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// OctantDirection returns the sign vector of octant i (0..7). Bit 0 selects
// x, bit 1 selects y, bit 2 selects z; a clear bit is -1, a set bit +1.
func OctantDirection(i int) Vector3i {
	d := Vector3i{-1, -1, -1}
	if i&1 != 0 {
		d.X = 1
	}
	if i&2 != 0 {
		d.Y = 1
	}
	if i&4 != 0 {
		d.Z = 1
	}
	return d
}

func (v Vector3i) Add(other Vector3i) Vector3i {
	return Vector3i{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

func (v Vector3i) Sub(other Vector3i) Vector3i {
	return Vector3i{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// ToVector3 converts to a float vector.
func (v Vector3i) ToVector3() Vector3 {
	return Vector3{float32(v.X), float32(v.Y), float32(v.Z)}
}
