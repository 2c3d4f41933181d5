package navigation

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/o0olele/octree-nav/math32"
	"github.com/o0olele/octree-nav/octree"
	"github.com/o0olele/octree-nav/query"
)

// Generation is one published octree with the query bound to it. It is
// immutable once published; callers keep a pointer for as long as they need
// a consistent view.
type Generation struct {
	ID        uuid.UUID          `json:"id"`
	Seq       uint64             `json:"seq"`
	Params    octree.BuildParams `json:"params"`
	BuiltAt   time.Time          `json:"built_at"`
	Colliders int                `json:"colliders"`

	Tree  *octree.Octree         `json:"-"`
	Query *query.NavigationQuery `json:"-"`

	// leaf lookups keyed by the finest cell the tree was split into
	leaves  *math32.Cache[math32.Vector3i, int32]
	origin  math32.Vector3
	invCell math32.Vector3
}

func newGeneration(seq uint64, tree *octree.Octree, params octree.BuildParams, colliders int, opts query.Options, cacheSize int) (*Generation, error) {
	nq, err := query.NewNavigationQuery(tree, opts)
	if err != nil {
		return nil, err
	}
	g := &Generation{
		ID:        uuid.New(),
		Seq:       seq,
		Params:    params,
		BuiltAt:   time.Now(),
		Colliders: colliders,
		Tree:      tree,
		Query:     nq,
	}
	if cacheSize > 0 {
		depth := tree.Stats().DepthReached
		cell := tree.RootBounds.Size().Mul(float32(math.Ldexp(1, -int(depth))))
		g.leaves = math32.NewCache[math32.Vector3i, int32](cacheSize)
		g.origin = tree.RootBounds.Min()
		g.invCell = math32.Vec3(1/cell.X, 1/cell.Y, 1/cell.Z)
	}
	return g, nil
}

// FindLeaf is octree.FindLeafNodeAt with a per-generation cache. Cached
// answers are only used when the point lies strictly inside the cached
// leaf, so results never differ from an uncached lookup.
func (g *Generation) FindLeaf(position math32.Vector3) int32 {
	if g.leaves == nil || !g.Tree.RootBounds.Contains(position) {
		return g.Tree.FindLeafNodeAt(position)
	}

	key := position.Sub(g.origin).MulVec(g.invCell).Quantize(1)
	if idx, ok := g.leaves.Get(key); ok && strictlyInside(g.Tree.Nodes[idx].Bounds.Min(), g.Tree.Nodes[idx].Bounds.Max(), position) {
		return idx
	}

	idx := g.Tree.FindLeafNodeAt(position)
	if idx != octree.NoIndex {
		g.leaves.Put(key, idx)
	}
	return idx
}

// LeafCacheStats reports the leaf cache counters.
func (g *Generation) LeafCacheStats() math32.CacheStats {
	if g.leaves == nil {
		return math32.CacheStats{}
	}
	return g.leaves.Stats()
}

func strictlyInside(min, max, p math32.Vector3) bool {
	return p.X > min.X && p.X < max.X &&
		p.Y > min.Y && p.Y < max.Y &&
		p.Z > min.Z && p.Z < max.Z
}
