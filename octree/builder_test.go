package octree

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/o0olele/octree-nav/geometry"
	"github.com/o0olele/octree-nav/math32"
	"github.com/o0olele/octree-nav/octree/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// boxesSource treats every box as an obstacle on all layers.
func boxesSource(boxes ...geometry.OBB) ObstacleFunc {
	for i := range boxes {
		boxes[i].Axes()
	}
	return func(b geometry.AABB, _ uint32) bool {
		probe := geometry.NewAxisAlignedOBB(b)
		return geometry.IntersectsAny(&probe, boxes)
	}
}

func cube(center math32.Vector3, extent float32) geometry.OBB {
	return geometry.NewBoxShape(center, math32.Splat(extent)).ToOBB()
}

func worldParams(extent, minSize float32, depth int32) BuildParams {
	return BuildParams{
		WorldBounds:  geometry.AABB{Extents: math32.Splat(extent)},
		MinNodeSize:  minSize,
		MaxDepth:     depth,
		ObstacleMask: 1,
	}
}

// scenarioTree is the 60 unit world with a single 5 unit cube at the origin.
func scenarioTree(t testing.TB) *Octree {
	tree, err := Build(worldParams(60, 1, 8), boxesSource(cube(math32.Vector3{}, 5)))
	require.NoError(t, err)
	return tree
}

func TestBuildEmptyWorldIsSingleFreeLeaf(t *testing.T) {
	tree, err := Build(worldParams(60, 1, 8), boxesSource())
	require.NoError(t, err)
	require.Equal(t, 1, tree.Len())
	root := tree.Root()
	assert.Equal(t, LeafFree, root.Type)
	assert.Equal(t, NoIndex, root.Parent)
	assert.Equal(t, NoIndex, root.ChildrenStart)
	assert.NoError(t, tree.Validate())
}

func TestBuildNilSourceIsEmptyWorld(t *testing.T) {
	tree, err := Build(worldParams(10, 1, 3), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Len())
}

func TestBuildDepthZeroBlocked(t *testing.T) {
	tree, err := Build(worldParams(10, 1, 0), boxesSource(cube(math32.Vector3{}, 1)))
	require.NoError(t, err)
	require.Equal(t, 1, tree.Len())
	assert.Equal(t, LeafBlocked, tree.Root().Type)
}

func TestBuildOrderWithMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	params := worldParams(8, 1, 4)
	source := mocks.NewMockObstacleSource(ctrl)
	source.EXPECT().Overlaps(params.WorldBounds, uint32(1)).Return(true)
	source.EXPECT().Overlaps(gomock.Any(), uint32(1)).Return(false).Times(8)

	tree, err := Build(params, source)
	require.NoError(t, err)
	require.Equal(t, 9, tree.Len())

	root := tree.Root()
	assert.Equal(t, Branch, root.Type)
	assert.Equal(t, int32(1), root.ChildrenStart)
	for k := 0; k < 8; k++ {
		child := tree.Nodes[1+k]
		assert.Equal(t, LeafFree, child.Type)
		assert.Equal(t, int32(0), child.Parent)
		assert.Equal(t, int32(1), child.Depth)
		assert.Equal(t, params.WorldBounds.Octant(k), child.Bounds)

		idx, ok := tree.TryGetChild(0, k)
		assert.True(t, ok)
		assert.Equal(t, int32(1+k), idx)
		parent, ok := tree.TryGetParent(idx)
		assert.True(t, ok)
		assert.Equal(t, int32(0), parent)
	}
	_, ok := tree.TryGetParent(0)
	assert.False(t, ok)
	_, ok = tree.TryGetChild(1, 0)
	assert.False(t, ok, "leaves have no children")
}

func TestBuildScenarioStructure(t *testing.T) {
	tree := scenarioTree(t)
	require.NoError(t, tree.Validate())

	stats := tree.Stats()
	assert.Equal(t, stats.Nodes, stats.Branches+stats.FreeLeaves+stats.Blocked)
	assert.Equal(t, stats.Nodes, 1+8*stats.Branches)
	assert.Greater(t, stats.Blocked, 0)
	assert.LessOrEqual(t, stats.DepthReached, int32(8))

	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		if n.Type == LeafBlocked {
			assert.LessOrEqual(t, n.Bounds.Size().MinComponent(), float32(1)+1e-4, "blocked leaves only at minimum size")
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	a := scenarioTree(t)
	b := scenarioTree(t)
	assert.Equal(t, a.Nodes, b.Nodes)
}

func TestBuildMinSizeStopsSubdivision(t *testing.T) {
	// 16 -> 8 -> 4 -> 2; nodes of size 2 are not split when min size is 2.
	tree, err := Build(worldParams(8, 2, 10), boxesSource(cube(math32.Vec3(0.5, 0.5, 0.5), 0.1)))
	require.NoError(t, err)
	assert.Equal(t, int32(3), tree.Stats().DepthReached)
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tree, err := BuildContext(ctx, worldParams(60, 1, 8), boxesSource(cube(math32.Vector3{}, 5)))
	assert.Nil(t, tree)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuildNodeBudget(t *testing.T) {
	params := worldParams(60, 1, 8)
	params.MaxNodes = 50
	tree, err := Build(params, boxesSource(cube(math32.Vector3{}, 5)))
	assert.Nil(t, tree)
	assert.ErrorIs(t, err, ErrNodeBudgetExceeded)
}

func TestBuildParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		params BuildParams
	}{
		{"zero min size", worldParams(10, 0, 3)},
		{"negative depth", worldParams(10, 1, -1)},
		{"negative extents", worldParams(-10, 1, 3)},
		{"zero extents", worldParams(0, 1, 3)},
		{"flat world", BuildParams{
			WorldBounds: geometry.AABB{Extents: math32.Vec3(60, 0, 60)},
			MinNodeSize: 1,
			MaxDepth:    3,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.params, nil)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestValidateRejectsBrokenLayout(t *testing.T) {
	tree := scenarioTree(t)
	broken := &Octree{RootBounds: tree.RootBounds, Nodes: append([]Node(nil), tree.Nodes...)}
	broken.Nodes[0].ChildrenStart = int32(len(broken.Nodes) - 2)
	assert.ErrorIs(t, broken.Validate(), ErrInvalidStructure)

	var empty *Octree
	assert.ErrorIs(t, empty.Validate(), ErrEmptyOctree)
	assert.False(t, empty.IsCreated())
}

func BenchmarkBuildScenario(b *testing.B) {
	source := boxesSource(cube(math32.Vector3{}, 5), cube(math32.Vec3(20, 0, 20), 3))
	params := worldParams(60, 1, 8)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Build(params, source); err != nil {
			b.Fatal(err)
		}
	}
}
