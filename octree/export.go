package octree

import (
	"encoding/json"

	"github.com/o0olele/octree-nav/geometry"
)

// OctreeExport is the nested JSON form used by the web viewer.
type OctreeExport struct {
	Root        *OctreeNodeExport `json:"root"`
	MaxDepth    int32             `json:"max_depth"`
	MinNodeSize float32           `json:"min_node_size"`
}

// OctreeNodeExport is one node of OctreeExport.
type OctreeNodeExport struct {
	Index    int32               `json:"index"`
	Bounds   geometry.AABB       `json:"bounds"`
	Type     NodeType            `json:"type"`
	Depth    int32               `json:"depth"`
	Children []*OctreeNodeExport `json:"children,omitempty"`
}

// ToJSON exports the tree as nested JSON.
func (o *Octree) ToJSON() ([]byte, error) {
	if !o.IsCreated() {
		return nil, ErrEmptyOctree
	}
	return json.Marshal(&OctreeExport{
		Root:        o.nodeToExport(0),
		MaxDepth:    o.MaxDepth,
		MinNodeSize: o.MinNodeSize,
	})
}

func (o *Octree) nodeToExport(i int32) *OctreeNodeExport {
	node := o.Node(i)
	if node == nil {
		return nil
	}

	export := &OctreeNodeExport{
		Index:  i,
		Bounds: node.Bounds,
		Type:   node.Type,
		Depth:  node.Depth,
	}
	if node.Type == Branch {
		export.Children = make([]*OctreeNodeExport, 0, 8)
		for k := int32(0); k < 8; k++ {
			if child := o.nodeToExport(node.ChildrenStart + k); child != nil {
				export.Children = append(export.Children, child)
			}
		}
	}
	return export
}

// ExportFilter selects which nodes a flat export lists, mirroring the
// toggles of an in-editor gizmo view.
type ExportFilter struct {
	Branches      bool `json:"branches"`
	FreeLeaves    bool `json:"free_leaves"`
	BlockedLeaves bool `json:"blocked_leaves"`
	// LeavesOnly drops branches regardless of Branches.
	LeavesOnly bool `json:"leaves_only"`
	// MaxDepth limits the depth listed; negative means no limit.
	MaxDepth int32 `json:"max_depth"`
}

// DefaultExportFilter lists every leaf at any depth.
func DefaultExportFilter() ExportFilter {
	return ExportFilter{
		FreeLeaves:    true,
		BlockedLeaves: true,
		LeavesOnly:    true,
		MaxDepth:      -1,
	}
}

// ExportedNode is one entry of a flat export.
type ExportedNode struct {
	Index  int32         `json:"index"`
	Bounds geometry.AABB `json:"bounds"`
	Type   NodeType      `json:"type"`
	Depth  int32         `json:"depth"`
}

// Export lists the nodes accepted by filter in index order.
func (o *Octree) Export(filter ExportFilter) []ExportedNode {
	if !o.IsCreated() {
		return nil
	}
	out := make([]ExportedNode, 0, len(o.Nodes))
	for i := range o.Nodes {
		n := &o.Nodes[i]
		if filter.MaxDepth >= 0 && n.Depth > filter.MaxDepth {
			continue
		}
		switch n.Type {
		case Branch:
			if filter.LeavesOnly || !filter.Branches {
				continue
			}
		case LeafFree:
			if !filter.FreeLeaves {
				continue
			}
		case LeafBlocked:
			if !filter.BlockedLeaves {
				continue
			}
		}
		out = append(out, ExportedNode{Index: int32(i), Bounds: n.Bounds, Type: n.Type, Depth: n.Depth})
	}
	return out
}
