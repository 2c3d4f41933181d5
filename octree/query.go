package octree

import (
	"github.com/o0olele/octree-nav/geometry"
	"github.com/o0olele/octree-nav/math32"
)

// neighborProbeScale pushes face probes slightly past the node's face so
// they land inside the adjacent cell.
const neighborProbeScale = 1.01

// FindLeafNodeAt returns the index of the leaf containing position, or
// NoIndex when the point is outside the root bounds or the tree is
// inconsistent. At each branch the children are tested in octant order and
// the first one containing the point wins, so points on shared faces resolve
// deterministically. A point inside a branch but inside none of its children
// (possible only through float error) yields NoIndex.
func (o *Octree) FindLeafNodeAt(position math32.Vector3) int32 {
	if !o.IsCreated() || !o.RootBounds.Contains(position) {
		return NoIndex
	}

	n := int32(len(o.Nodes))
	current := int32(0)
	for {
		node := &o.Nodes[current]
		if node.Type.IsLeaf() {
			return current
		}
		if node.Type != Branch {
			return NoIndex
		}

		next := NoIndex
		for k := int32(0); k < 8; k++ {
			child := node.ChildrenStart + k
			if child < 0 || child >= n {
				return NoIndex
			}
			if o.Nodes[child].Bounds.Contains(position) {
				next = child
				break
			}
		}
		if next == NoIndex {
			return NoIndex
		}
		current = next
	}
}

// FindLeafNodeAtSkipBlocked behaves like FindLeafNodeAt but, when the point
// lands in a blocked leaf, scans forward through the following sibling slots
// for a free leaf and returns the first one found. This is an approximation:
// the result is not the nearest free leaf, and NoIndex is returned when no
// later sibling is free.
func (o *Octree) FindLeafNodeAtSkipBlocked(position math32.Vector3) int32 {
	idx := o.FindLeafNodeAt(position)
	if idx == NoIndex || o.Nodes[idx].Type != LeafBlocked {
		return idx
	}

	parent := o.Nodes[idx].Parent
	if parent == NoIndex {
		return NoIndex
	}
	end := o.Nodes[parent].ChildrenStart + 8
	for j := idx + 1; j < end && int(j) < len(o.Nodes); j++ {
		if o.Nodes[j].Type == LeafFree {
			return j
		}
	}
	return NoIndex
}

// FindWalkableLeafNeighbors appends to dst the free leaves adjacent to leaf
// index across its six faces and returns the extended slice. For each face
// a probe point just beyond the face center is located; probes outside the
// root are skipped, and results are free, distinct and never index itself.
// Branches and invalid indices yield no neighbors. Only same-or-larger
// neighbors are found reliably: a face shared with several smaller leaves
// reports just the one under the probe.
func (o *Octree) FindWalkableLeafNeighbors(index int32, dst []int32) []int32 {
	node := o.Node(index)
	if node == nil || !node.Type.IsLeaf() {
		return dst
	}

	base := len(dst)
	reach := node.Bounds.Extents.Mul(neighborProbeScale)
	for _, face := range math32.FaceDirections {
		probe := node.Bounds.Center.Add(face.ToVector3().MulVec(reach))
		if !o.RootBounds.Contains(probe) {
			continue
		}

		neighbor := o.FindLeafNodeAt(probe)
		if neighbor == NoIndex || neighbor == index || o.Nodes[neighbor].Type != LeafFree {
			continue
		}
		if containsIndex(dst[base:], neighbor) {
			continue
		}
		dst = append(dst, neighbor)
	}
	return dst
}

func containsIndex(s []int32, v int32) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// SegmentClear reports whether the segment from..to stays inside the root
// bounds and touches no blocked leaf. Touching a blocked leaf's face or edge
// counts as blocked.
func (o *Octree) SegmentClear(from, to math32.Vector3) bool {
	if !o.IsCreated() || !o.RootBounds.Contains(from) || !o.RootBounds.Contains(to) {
		return false
	}

	stack := make([]int32, 1, 32)
	n := int32(len(o.Nodes))
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &o.Nodes[current]
		if !geometry.SegmentAABB(from, to, node.Bounds) {
			continue
		}
		switch node.Type {
		case LeafBlocked:
			return false
		case Branch:
			for k := int32(0); k < 8; k++ {
				if child := node.ChildrenStart + k; child > 0 && child < n {
					stack = append(stack, child)
				}
			}
		}
	}
	return true
}
