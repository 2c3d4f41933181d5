package octree

import (
	"errors"
	"fmt"

	"github.com/o0olele/octree-nav/geometry"
	"github.com/o0olele/octree-nav/math32"
)

var (
	// ErrEmptyOctree is returned when a build or load yields no nodes.
	ErrEmptyOctree = errors.New("octree: no nodes")
	// ErrInvalidStructure is wrapped by Validate failures.
	ErrInvalidStructure = errors.New("octree: invalid structure")
)

// Octree is an immutable, flattened spatial partition. Nodes are stored in
// allocation order with the root at index 0; a published tree is never
// mutated, so any number of goroutines may query it.
type Octree struct {
	RootBounds  geometry.AABB `json:"root_bounds"`
	MinNodeSize float32       `json:"min_node_size"`
	MaxDepth    int32         `json:"max_depth"`
	Nodes       []Node        `json:"nodes"`
}

// IsCreated reports whether the tree exists and has a root. It is safe to
// call on a nil tree.
func (o *Octree) IsCreated() bool {
	return o != nil && len(o.Nodes) > 0
}

// Len returns the number of nodes.
func (o *Octree) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Nodes)
}

// Node returns a pointer to node i, or nil when i is out of range.
func (o *Octree) Node(i int32) *Node {
	if o == nil || i < 0 || int(i) >= len(o.Nodes) {
		return nil
	}
	return &o.Nodes[i]
}

// Root returns the root node, or nil for an empty tree.
func (o *Octree) Root() *Node {
	return o.Node(0)
}

// TryGetChild returns the index of child octant of parent.
func (o *Octree) TryGetChild(parent int32, octant int) (int32, bool) {
	n := o.Node(parent)
	if n == nil || n.Type != Branch || octant < 0 || octant > 7 {
		return NoIndex, false
	}
	child := n.ChildrenStart + int32(octant)
	if o.Node(child) == nil {
		return NoIndex, false
	}
	return child, true
}

// TryGetParent returns the parent index of child.
func (o *Octree) TryGetParent(child int32) (int32, bool) {
	n := o.Node(child)
	if n == nil || n.Parent == NoIndex {
		return NoIndex, false
	}
	return n.Parent, true
}

// LeafCenter returns the center of node i.
func (o *Octree) LeafCenter(i int32) (c math32.Vector3, ok bool) {
	n := o.Node(i)
	if n == nil {
		return c, false
	}
	return n.Bounds.Center, true
}

// Stats summarises a tree.
type Stats struct {
	Nodes        int     `json:"nodes"`
	Branches     int     `json:"branches"`
	FreeLeaves   int     `json:"free_leaves"`
	Blocked      int     `json:"blocked_leaves"`
	DepthReached int32   `json:"depth_reached"`
	MinNodeSize  float32 `json:"min_node_size"`
	MaxDepth     int32   `json:"max_depth"`
}

// Stats counts nodes per type.
func (o *Octree) Stats() Stats {
	s := Stats{}
	if o == nil {
		return s
	}
	s.Nodes = len(o.Nodes)
	s.MinNodeSize = o.MinNodeSize
	s.MaxDepth = o.MaxDepth
	for i := range o.Nodes {
		n := &o.Nodes[i]
		switch n.Type {
		case Branch:
			s.Branches++
		case LeafFree:
			s.FreeLeaves++
		case LeafBlocked:
			s.Blocked++
		}
		if n.Depth > s.DepthReached {
			s.DepthReached = n.Depth
		}
	}
	return s
}

// Validate checks the structural invariants of the flattened layout: root at
// index 0 without parent, every branch owning eight in-range children that
// point back to it one level deeper and tile its bounds, leaves without
// children.
func (o *Octree) Validate() error {
	if !o.IsCreated() {
		return ErrEmptyOctree
	}
	root := &o.Nodes[0]
	if root.Parent != NoIndex || root.Depth != 0 {
		return fmt.Errorf("%w: root must have no parent and depth 0", ErrInvalidStructure)
	}
	n := int32(len(o.Nodes))
	for i := int32(0); i < n; i++ {
		node := &o.Nodes[i]
		if node.Type.IsLeaf() {
			if node.ChildrenStart != NoIndex {
				return fmt.Errorf("%w: leaf %d has children", ErrInvalidStructure, i)
			}
			continue
		}
		if node.Type != Branch {
			return fmt.Errorf("%w: node %d has unknown type %d", ErrInvalidStructure, i, node.Type)
		}
		start := node.ChildrenStart
		if start <= i || start+8 > n {
			return fmt.Errorf("%w: branch %d children block %d out of range", ErrInvalidStructure, i, start)
		}
		for k := int32(0); k < 8; k++ {
			child := &o.Nodes[start+k]
			if child.Parent != i {
				return fmt.Errorf("%w: child %d of %d points to parent %d", ErrInvalidStructure, start+k, i, child.Parent)
			}
			if child.Depth != node.Depth+1 {
				return fmt.Errorf("%w: child %d depth %d under depth %d", ErrInvalidStructure, start+k, child.Depth, node.Depth)
			}
			want := node.Bounds.Octant(int(k))
			if !child.Bounds.Center.ApproxEqual(want.Center, 1e-3) || !child.Bounds.Extents.ApproxEqual(want.Extents, 1e-3) {
				return fmt.Errorf("%w: child %d bounds do not tile parent %d", ErrInvalidStructure, start+k, i)
			}
		}
	}
	return nil
}
