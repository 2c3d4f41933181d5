package geometry

import "github.com/o0olele/octree-nav/math32"

// crossAxisEpsilon is the squared length under which a cross-product axis is
// treated as degenerate (parallel edges) and skipped.
const crossAxisEpsilon = 1e-5

// OBB is an oriented bounding box. The local axes are derived from Rotation
// and cached on first use.
type OBB struct {
	Center   math32.Vector3    `json:"center"`
	Extents  math32.Vector3    `json:"extents"`
	Rotation math32.Quaternion `json:"rotation"`

	axes      [3]math32.Vector3
	axesValid bool
}

// NewOBB builds a world-space box from a local bounds, a rotation, a
// non-uniform scale and a world center. Extents are |local extents * scale|.
func NewOBB(local AABB, rotation math32.Quaternion, scale, center math32.Vector3) OBB {
	return OBB{
		Center:   center,
		Extents:  local.Extents.MulVec(scale).Abs(),
		Rotation: rotation.Normalize(),
	}
}

// NewAxisAlignedOBB wraps an AABB with identity rotation and unit scale.
func NewAxisAlignedOBB(bounds AABB) OBB {
	return OBB{
		Center:   bounds.Center,
		Extents:  bounds.Extents.Abs(),
		Rotation: math32.QuaternionIdentity(),
		axes: [3]math32.Vector3{
			{X: 1}, {Y: 1}, {Z: 1},
		},
		axesValid: true,
	}
}

// Axes returns the box's local X, Y and Z axes in world space, computing and
// caching them the first time. Call it once before sharing the box between
// goroutines.
func (o *OBB) Axes() [3]math32.Vector3 {
	if !o.axesValid {
		rot := o.Rotation
		if rot.IsZero() {
			rot = math32.QuaternionIdentity()
		}
		o.axes[0] = rot.Rotate(math32.Vector3{X: 1})
		o.axes[1] = rot.Rotate(math32.Vector3{Y: 1})
		o.axes[2] = rot.Rotate(math32.Vector3{Z: 1})
		o.axesValid = true
	}
	return o.axes
}

// AxisX returns the cached local X axis.
func (o *OBB) AxisX() math32.Vector3 { return o.Axes()[0] }

// AxisY returns the cached local Y axis.
func (o *OBB) AxisY() math32.Vector3 { return o.Axes()[1] }

// AxisZ returns the cached local Z axis.
func (o *OBB) AxisZ() math32.Vector3 { return o.Axes()[2] }

// Corners returns the eight world-space corners.
func (o *OBB) Corners() [8]math32.Vector3 {
	axes := o.Axes()
	var out [8]math32.Vector3
	for i := 0; i < 8; i++ {
		d := math32.OctantDirection(i).ToVector3()
		out[i] = o.Center.
			Add(axes[0].Mul(d.X * o.Extents.X)).
			Add(axes[1].Mul(d.Y * o.Extents.Y)).
			Add(axes[2].Mul(d.Z * o.Extents.Z))
	}
	return out
}

// Bounds returns the world-space AABB enclosing the box.
func (o *OBB) Bounds() AABB {
	axes := o.Axes()
	ext := math32.Vector3{}
	for i := 0; i < 3; i++ {
		ext = ext.Add(axes[i].Abs().Mul(o.Extents.Get(i)))
	}
	return AABB{Center: o.Center, Extents: ext}
}

// projectedRadius is the half-length of the box's projection onto axis.
func (o *OBB) projectedRadius(axes *[3]math32.Vector3, axis math32.Vector3) float32 {
	return math32.Abs(o.Extents.X*axes[0].Dot(axis)) +
		math32.Abs(o.Extents.Y*axes[1].Dot(axis)) +
		math32.Abs(o.Extents.Z*axes[2].Dot(axis))
}

// Intersects runs the separating axis test over the 15 candidate axes of
// two boxes: three face axes of each and the nine pairwise edge crosses.
// Touching boxes intersect. The result is symmetric.
func Intersects(a, b *OBB) bool {
	axesA := a.Axes()
	axesB := b.Axes()
	t := b.Center.Sub(a.Center)

	separated := func(axis math32.Vector3) bool {
		ra := a.projectedRadius(&axesA, axis)
		rb := b.projectedRadius(&axesB, axis)
		return math32.Abs(t.Dot(axis)) > ra+rb
	}

	for i := 0; i < 3; i++ {
		if separated(axesA[i]) {
			return false
		}
	}
	for i := 0; i < 3; i++ {
		if separated(axesB[i]) {
			return false
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			axis := axesA[i].Cross(axesB[j])
			if axis.LengthSquared() <= crossAxisEpsilon {
				continue
			}
			if separated(axis) {
				return false
			}
		}
	}
	return true
}

// IntersectsAny reports whether box overlaps any member of set. An empty set
// never intersects.
func IntersectsAny(box *OBB, set []OBB) bool {
	for i := range set {
		if Intersects(box, &set[i]) {
			return true
		}
	}
	return false
}
