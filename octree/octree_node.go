package octree

import (
	"encoding/json"
	"fmt"

	"github.com/o0olele/octree-nav/geometry"
)

// NoIndex marks an absent parent, child block or lookup result.
const NoIndex int32 = -1

// NodeType classifies a node of the flattened tree.
type NodeType uint8

const (
	// Branch has exactly eight children.
	Branch NodeType = iota
	// LeafFree has no obstacle overlap and is walkable.
	LeafFree
	// LeafBlocked overlaps an obstacle and could not subdivide further.
	LeafBlocked
)

// IsLeaf reports whether the type is one of the leaf types.
func (t NodeType) IsLeaf() bool {
	return t == LeafFree || t == LeafBlocked
}

func (t NodeType) String() string {
	switch t {
	case Branch:
		return "branch"
	case LeafFree:
		return "free"
	case LeafBlocked:
		return "blocked"
	}
	return fmt.Sprintf("NodeType(%d)", uint8(t))
}

// MarshalJSON writes the type name.
func (t NodeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the names written by MarshalJSON.
func (t *NodeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "branch":
		*t = Branch
	case "free":
		*t = LeafFree
	case "blocked":
		*t = LeafBlocked
	default:
		return fmt.Errorf("unknown node type %q", s)
	}
	return nil
}

// Node is one cell of the flattened octree. Children of a branch occupy the
// eight consecutive slots starting at ChildrenStart, in octant order.
type Node struct {
	Bounds        geometry.AABB `json:"bounds"`
	Type          NodeType      `json:"type"`
	Depth         int32         `json:"depth"`
	ChildrenStart int32         `json:"children_start"`
	Parent        int32         `json:"parent"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Type.IsLeaf()
}

// IsWalkable reports whether the node is a free leaf.
func (n *Node) IsWalkable() bool {
	return n.Type == LeafFree
}
