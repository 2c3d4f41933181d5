package query

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/o0olele/octree-nav/math32"
	"github.com/o0olele/octree-nav/octree"
)

var (
	// ErrOctreeNotCreated is returned when querying a missing or empty tree.
	ErrOctreeNotCreated = errors.New("query: octree not created")
	// ErrInvalidStart means the start is outside the tree or not in a free leaf.
	ErrInvalidStart = errors.New("query: start node is invalid or blocked")
	// ErrInvalidEnd means the end is outside the tree or not in a free leaf.
	ErrInvalidEnd = errors.New("query: end node is invalid or blocked")
	// ErrNoPath means the open set ran dry before reaching the end.
	ErrNoPath = errors.New("query: no path")
	// ErrIterationBudget means the search gave up after its iteration budget.
	ErrIterationBudget = errors.New("query: iteration budget exhausted")
)

// Result is a resolved path. On failure Waypoints is empty; a partial path
// is never returned.
type Result struct {
	Waypoints  []math32.Vector3 `json:"waypoints"`
	StartNode  int32            `json:"start_node"`
	EndNode    int32            `json:"end_node"`
	Iterations int              `json:"iterations"`
	Cost       float32          `json:"cost"`
}

// NavigationQuery runs A* over the free leaves of one immutable octree. It
// holds no per-query state, so one instance may serve concurrent queries.
type NavigationQuery struct {
	tree *octree.Octree
	opts Options
}

// NewNavigationQuery creates a query over tree.
func NewNavigationQuery(tree *octree.Octree, opts Options) (*NavigationQuery, error) {
	if !tree.IsCreated() {
		return nil, ErrOctreeNotCreated
	}
	return &NavigationQuery{tree: tree, opts: opts.normalized()}, nil
}

// GetOctree returns the tree being queried.
func (nq *NavigationQuery) GetOctree() *octree.Octree {
	return nq.tree
}

// Options returns the effective options.
func (nq *NavigationQuery) Options() Options {
	return nq.opts
}

// FindPath finds a path of leaf centers from the free leaf containing start
// to the free leaf containing end. Moving between adjacent leaves costs the
// distance between their centers and the heuristic is the straight-line
// distance to the end leaf. When both points share a leaf the path is that
// leaf's center twice.
func (nq *NavigationQuery) FindPath(start, end math32.Vector3) (Result, error) {
	tree := nq.tree
	res := Result{StartNode: octree.NoIndex, EndNode: octree.NoIndex}

	startNode := tree.FindLeafNodeAt(start)
	if startNode == octree.NoIndex || tree.Nodes[startNode].Type != octree.LeafFree {
		return res, fmt.Errorf("%w: %v", ErrInvalidStart, start)
	}
	endNode := tree.FindLeafNodeAt(end)
	if endNode == octree.NoIndex || tree.Nodes[endNode].Type != octree.LeafFree {
		return res, fmt.Errorf("%w: %v", ErrInvalidEnd, end)
	}
	res.StartNode, res.EndNode = startNode, endNode

	if startNode == endNode {
		center := tree.Nodes[startNode].Bounds.Center
		res.Waypoints = nq.snap([]math32.Vector3{center, center}, start, end)
		return res, nil
	}

	nodePath, cost, iterations, err := nq.astar(startNode, endNode)
	res.Iterations = iterations
	if err != nil {
		return res, err
	}
	res.Cost = cost
	path := nq.convertToWorldPath(nodePath)
	if nq.opts.Smooth {
		path = nq.smooth(path)
	}
	res.Waypoints = nq.snap(path, start, end)
	return res, nil
}

// astar returns the node indices from start to end inclusive.
func (nq *NavigationQuery) astar(startNode, endNode int32) ([]int32, float32, int, error) {
	tree := nq.tree
	endCenter := tree.Nodes[endNode].Bounds.Center

	s := acquireSearch(tree.Len())
	defer s.release()

	first := newHeapNode(startNode, tree.Nodes[startNode].Bounds.Center.Distance(endCenter))
	s.nodes[startNode] = first
	heap.Push(&s.open, first)
	s.inOpen.Set(startNode)

	maxIterations := nq.opts.IterationFactor * tree.Len()
	iterations := 0

	for s.open.Len() > 0 {
		if iterations >= maxIterations {
			return nil, 0, iterations, fmt.Errorf("%w after %d iterations", ErrIterationBudget, iterations)
		}
		iterations++

		current := heap.Pop(&s.open).(*heapNode)
		s.inOpen.Remove(current.NodeIndex)

		if current.NodeIndex == endNode {
			return s.reconstruct(endNode), current.G, iterations, nil
		}

		currentCenter := tree.Nodes[current.NodeIndex].Bounds.Center
		s.neighbors = tree.FindWalkableLeafNeighbors(current.NodeIndex, s.neighbors[:0])
		for _, neighbor := range s.neighbors {
			known, seen := s.nodes[neighbor]
			inOpen := seen && s.inOpen.Contains(neighbor)
			if seen && !inOpen && !nq.opts.ReopenClosed {
				continue
			}

			neighborCenter := tree.Nodes[neighbor].Bounds.Center
			tentativeG := current.G + currentCenter.Distance(neighborCenter)
			if seen && tentativeG >= known.G {
				continue
			}

			if !seen {
				known = newHeapNode(neighbor, neighborCenter.Distance(endCenter))
				s.nodes[neighbor] = known
			}
			known.Parent = current.NodeIndex
			known.G = tentativeG

			if inOpen {
				heap.Fix(&s.open, known.index)
			} else {
				heap.Push(&s.open, known)
				s.inOpen.Set(neighbor)
			}
		}
	}

	return nil, 0, iterations, ErrNoPath
}

func (s *search) reconstruct(endNode int32) []int32 {
	path := make([]int32, 0, 16)
	for idx := endNode; idx != -1; idx = s.nodes[idx].Parent {
		path = append(path, idx)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// convertToWorldPath maps node indices to leaf centers.
func (nq *NavigationQuery) convertToWorldPath(nodePath []int32) []math32.Vector3 {
	path := make([]math32.Vector3, len(nodePath), len(nodePath)+2)
	for i, idx := range nodePath {
		path[i] = nq.tree.Nodes[idx].Bounds.Center
	}
	return path
}

// snap adds the exact endpoints when enabled and not already close enough.
func (nq *NavigationQuery) snap(path []math32.Vector3, start, end math32.Vector3) []math32.Vector3 {
	if !nq.opts.SnapEndpoints || len(path) == 0 {
		return path
	}
	if start.DistanceSquared(path[0]) > nq.opts.SnapThresholdSq {
		path = append([]math32.Vector3{start}, path...)
	}
	if end.DistanceSquared(path[len(path)-1]) > nq.opts.SnapThresholdSq {
		path = append(path, end)
	}
	return path
}

// NavigationStats summarises the queried tree.
type NavigationStats struct {
	octree.Stats
	IterationBudget int `json:"iteration_budget"`
}

// GetStats returns the tree stats and the per-query iteration budget.
func (nq *NavigationQuery) GetStats() NavigationStats {
	return NavigationStats{
		Stats:           nq.tree.Stats(),
		IterationBudget: nq.opts.IterationFactor * nq.tree.Len(),
	}
}
