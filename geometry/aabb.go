package geometry

import "github.com/o0olele/octree-nav/math32"

// AABB is an axis-aligned bounding box stored as center and half-size, the
// same representation octree nodes use.
type AABB struct {
	Center  math32.Vector3 `json:"center"`
	Extents math32.Vector3 `json:"extents"`
}

// NewAABBMinMax builds a box from its corners.
func NewAABBMinMax(min, max math32.Vector3) AABB {
	return AABB{
		Center:  min.Add(max).Mul(0.5),
		Extents: max.Sub(min).Mul(0.5),
	}
}

// Min returns the minimum corner.
func (aabb AABB) Min() math32.Vector3 {
	return aabb.Center.Sub(aabb.Extents)
}

// Max returns the maximum corner.
func (aabb AABB) Max() math32.Vector3 {
	return aabb.Center.Add(aabb.Extents)
}

// Size returns the full size of the box.
func (aabb AABB) Size() math32.Vector3 {
	return aabb.Extents.Mul(2)
}

// Contains checks if the point is inside the box. Both faces are inclusive.
func (aabb AABB) Contains(point math32.Vector3) bool {
	min, max := aabb.Min(), aabb.Max()
	return point.X >= min.X && point.X <= max.X &&
		point.Y >= min.Y && point.Y <= max.Y &&
		point.Z >= min.Z && point.Z <= max.Z
}

// Intersects checks if two boxes overlap or touch.
func (aabb AABB) Intersects(other AABB) bool {
	d := aabb.Center.Sub(other.Center).Abs()
	e := aabb.Extents.Add(other.Extents)
	return d.X <= e.X && d.Y <= e.Y && d.Z <= e.Z
}

// IsValid reports whether every extent is non-negative.
func (aabb AABB) IsValid() bool {
	return aabb.Extents.X >= 0 && aabb.Extents.Y >= 0 && aabb.Extents.Z >= 0
}

// Octant returns the bounds of child octant i (0..7): half the extents,
// shifted from the center along the octant's sign vector.
func (aabb AABB) Octant(i int) AABB {
	ext := aabb.Extents.Mul(0.5)
	dir := math32.OctantDirection(i).ToVector3()
	return AABB{
		Center:  aabb.Center.Add(dir.MulVec(ext)),
		Extents: ext,
	}
}

// Encapsulate grows the box to include p.
func (aabb AABB) Encapsulate(p math32.Vector3) AABB {
	return NewAABBMinMax(aabb.Min().Min(p), aabb.Max().Max(p))
}
