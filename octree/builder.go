package octree

import (
	"context"
	"errors"
	"fmt"

	"github.com/o0olele/octree-nav/geometry"
)

var (
	// ErrInvalidParams wraps parameter validation failures.
	ErrInvalidParams = errors.New("octree: invalid build parameters")
	// ErrNodeBudgetExceeded is returned when a build would allocate more
	// nodes than BuildParams.MaxNodes.
	ErrNodeBudgetExceeded = errors.New("octree: node budget exceeded")
)

// ctxCheckInterval is how many dequeued nodes pass between context checks.
const ctxCheckInterval = 256

//go:generate mockgen -destination=mocks/obstacle_source.go -package=mocks github.com/o0olele/octree-nav/octree ObstacleSource

// ObstacleSource answers whether any obstacle on the masked layers overlaps
// a region. Implementations must be safe for concurrent reads.
type ObstacleSource interface {
	Overlaps(bounds geometry.AABB, mask uint32) bool
}

// ObstacleFunc adapts a function to ObstacleSource.
type ObstacleFunc func(bounds geometry.AABB, mask uint32) bool

// Overlaps calls f.
func (f ObstacleFunc) Overlaps(bounds geometry.AABB, mask uint32) bool {
	return f(bounds, mask)
}

// BuildParams configures one octree build.
type BuildParams struct {
	WorldBounds geometry.AABB `json:"world_bounds"`
	// MinNodeSize stops subdivision once the smallest full side of a node is
	// no longer greater than it.
	MinNodeSize float32 `json:"min_node_size"`
	MaxDepth    int32   `json:"max_depth"`
	// ObstacleMask selects collider layers; zero matches every layer.
	ObstacleMask uint32 `json:"obstacle_mask"`
	// MaxNodes caps the node count; zero means unlimited.
	MaxNodes int `json:"max_nodes,omitempty"`
}

// Validate rejects parameters that cannot produce a tree.
func (p BuildParams) Validate() error {
	if !p.WorldBounds.IsValid() {
		return fmt.Errorf("%w: negative world extents %v", ErrInvalidParams, p.WorldBounds.Extents)
	}
	if p.WorldBounds.Extents.MinComponent() <= 0 {
		return fmt.Errorf("%w: world extents must be positive on every axis, got %v", ErrInvalidParams, p.WorldBounds.Extents)
	}
	if p.MinNodeSize <= 0 {
		return fmt.Errorf("%w: min node size must be positive, got %v", ErrInvalidParams, p.MinNodeSize)
	}
	if p.MaxDepth < 0 {
		return fmt.Errorf("%w: max depth must not be negative, got %d", ErrInvalidParams, p.MaxDepth)
	}
	if p.MaxNodes < 0 {
		return fmt.Errorf("%w: max nodes must not be negative, got %d", ErrInvalidParams, p.MaxNodes)
	}
	return nil
}

// shouldSubdivide reports whether a node of the given bounds and depth may
// still be split.
func (p BuildParams) shouldSubdivide(bounds geometry.AABB, depth int32) bool {
	return depth < p.MaxDepth && bounds.Size().MinComponent() > p.MinNodeSize
}

// Build constructs a tree over source. See BuildContext.
func Build(params BuildParams, source ObstacleSource) (*Octree, error) {
	return BuildContext(context.Background(), params, source)
}

// BuildContext constructs a tree breadth-first. A node that overlaps no
// obstacle becomes a free leaf; one that overlaps but may not subdivide
// becomes a blocked leaf; otherwise it becomes a branch and its eight
// children are appended contiguously in octant order. The resulting node
// order is the allocation order, so equal inputs give equal trees.
//
// The build checks ctx periodically and returns ctx.Err() when it is
// canceled; nothing partial is ever returned. A nil source is an empty world.
func BuildContext(ctx context.Context, params BuildParams, source ObstacleSource) (*Octree, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		source = ObstacleFunc(func(geometry.AABB, uint32) bool { return false })
	}

	nodes := make([]Node, 0, 64)
	nodes = append(nodes, Node{
		Bounds:        params.WorldBounds,
		Type:          LeafFree,
		Depth:         0,
		ChildrenStart: NoIndex,
		Parent:        NoIndex,
	})

	queue := make([]int32, 0, 64)
	queue = append(queue, 0)

	for head := 0; head < len(queue); head++ {
		if head%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		idx := queue[head]
		bounds := nodes[idx].Bounds
		depth := nodes[idx].Depth

		if !source.Overlaps(bounds, params.ObstacleMask) {
			nodes[idx].Type = LeafFree
			continue
		}
		if !params.shouldSubdivide(bounds, depth) {
			nodes[idx].Type = LeafBlocked
			continue
		}

		if params.MaxNodes > 0 && len(nodes)+8 > params.MaxNodes {
			return nil, fmt.Errorf("%w: %d nodes allocated, limit %d", ErrNodeBudgetExceeded, len(nodes), params.MaxNodes)
		}

		start := int32(len(nodes))
		nodes[idx].Type = Branch
		nodes[idx].ChildrenStart = start
		for k := 0; k < 8; k++ {
			nodes = append(nodes, Node{
				Bounds:        bounds.Octant(k),
				Type:          LeafFree,
				Depth:         depth + 1,
				ChildrenStart: NoIndex,
				Parent:        idx,
			})
			queue = append(queue, start+int32(k))
		}
	}

	return &Octree{
		RootBounds:  params.WorldBounds,
		MinNodeSize: params.MinNodeSize,
		MaxDepth:    params.MaxDepth,
		Nodes:       nodes,
	}, nil
}
