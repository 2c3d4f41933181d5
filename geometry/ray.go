package geometry

import "github.com/o0olele/octree-nav/math32"

const rayEpsilon = 1e-6

// RayAABB intersects the ray origin + t*dir, t >= 0, with the box using the
// slab method. It returns the entry and exit parameters; touching counts as
// a hit.
func RayAABB(origin, dir math32.Vector3, box AABB) (tmin, tmax float32, ok bool) {
	tmin, tmax, ok = clipSlabs(origin, dir, box, 0, math32.MaxFloat32)
	return
}

// SegmentAABB reports whether the segment from..to touches the box.
func SegmentAABB(from, to math32.Vector3, box AABB) bool {
	_, _, ok := clipSlabs(from, to.Sub(from), box, 0, 1)
	return ok
}

func clipSlabs(origin, dir math32.Vector3, box AABB, tmin, tmax float32) (float32, float32, bool) {
	min, max := box.Min(), box.Max()
	for axis := 0; axis < 3; axis++ {
		o, d := origin.Get(axis), dir.Get(axis)
		lo, hi := min.Get(axis), max.Get(axis)

		if math32.Abs(d) < rayEpsilon {
			if o < lo || o > hi {
				return 0, 0, false
			}
			continue
		}

		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, 0, false
		}
	}
	return tmin, tmax, true
}
