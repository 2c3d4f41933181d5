package geometry

import "github.com/o0olele/octree-nav/math32"

// ColliderShape is the tuple a collider producer reports: a local bounds,
// orientation, scale and world center.
type ColliderShape struct {
	Bounds   AABB              `json:"bounds"`
	Rotation math32.Quaternion `json:"rotation"`
	Scale    math32.Vector3    `json:"scale"`
	Center   math32.Vector3    `json:"center"`
}

// NewBoxShape is a convenience for an unrotated, unit-scale box of the given
// half-size centered at center.
func NewBoxShape(center, extents math32.Vector3) ColliderShape {
	return ColliderShape{
		Bounds:   AABB{Extents: extents},
		Rotation: math32.QuaternionIdentity(),
		Scale:    math32.Splat(1),
		Center:   center,
	}
}

// ToOBB converts the shape to a world OBB. A zero scale is treated as unit
// scale, so JSON payloads may omit it.
func (s ColliderShape) ToOBB() OBB {
	scale := s.Scale
	if scale == (math32.Vector3{}) {
		scale = math32.Splat(1)
	}
	return NewOBB(s.Bounds, s.Rotation, scale, s.Center)
}
