package collider

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/o0olele/octree-nav/geometry"
	"github.com/o0olele/octree-nav/math32"
	"github.com/o0olele/octree-nav/octree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ octree.ObstacleSource = (*Registry)(nil)
	_ octree.ObstacleSource = Snapshot(nil)
)

func unitBox(center math32.Vector3) geometry.ColliderShape {
	return geometry.NewBoxShape(center, math32.Splat(1))
}

func TestRegistryUpsertReplaces(t *testing.T) {
	r := NewRegistry()
	r.Upsert("a", unitBox(math32.Vec3(0, 0, 0)))
	r.Upsert("a", unitBox(math32.Vec3(10, 0, 0)))
	assert.Equal(t, 1, r.Len())

	c, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, math32.Vec3(10, 0, 0), c.Box.Center)
	assert.Equal(t, DefaultLayers, c.Layers)

	assert.True(t, r.Remove("a"))
	assert.False(t, r.Remove("a"))
	_, ok = r.Get("a")
	assert.False(t, ok)
}

func TestRegistryIntersects(t *testing.T) {
	r := NewRegistry()
	region := geometry.AABB{Extents: math32.Splat(1)}
	assert.False(t, r.Overlaps(region, 1), "empty registry never intersects")

	r.Upsert("far", unitBox(math32.Vec3(10, 0, 0)))
	assert.False(t, r.Overlaps(region, 1))

	rotated := geometry.ColliderShape{
		Bounds:   geometry.AABB{Extents: math32.Splat(1)},
		Rotation: math32.QuaternionAxisAngle(math.Pi/4, math32.Vec3(0, 1, 0)),
		Scale:    math32.Splat(1),
		Center:   math32.Vec3(2.3, 0, 0),
	}
	r.Upsert("rotated", rotated)
	assert.True(t, r.Overlaps(region, 1))

	probe := geometry.NewAxisAlignedOBB(region)
	assert.True(t, r.Intersects(&probe, 1))
}

func TestRegistryLayers(t *testing.T) {
	r := NewRegistry()
	r.UpsertLayers("trigger", unitBox(math32.Vector3{}), 1<<3)
	region := geometry.AABB{Extents: math32.Splat(1)}

	assert.False(t, r.Overlaps(region, 1))
	assert.True(t, r.Overlaps(region, 1<<3))
	assert.True(t, r.Overlaps(region, 0), "zero mask matches every layer")
}

func TestSnapshotIsFrozenAndOrdered(t *testing.T) {
	r := NewRegistry()
	r.Upsert("b", unitBox(math32.Vec3(5, 0, 0)))
	r.Upsert("a", unitBox(math32.Vec3(0, 0, 0)))

	snap := r.Snapshot()
	r.Clear()

	require.Len(t, snap, 2)
	assert.Equal(t, ID("a"), snap[0].ID)
	assert.Equal(t, ID("b"), snap[1].ID)
	assert.True(t, snap.Overlaps(geometry.AABB{Extents: math32.Splat(0.5)}, 1))
	assert.Len(t, snap.Boxes(), 2)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryClose(t *testing.T) {
	r := NewRegistry()
	r.Upsert("a", unitBox(math32.Vector3{}))
	r.Close()
	r.Upsert("b", unitBox(math32.Vector3{}))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	region := geometry.AABB{Extents: math32.Splat(3)}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := ID(fmt.Sprintf("%d-%d", w, i%10))
				r.Upsert(id, unitBox(math32.Vec3(float32(i%7), 0, 0)))
				r.Overlaps(region, 1)
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 40, r.Len())
}

func TestSyncerTriggersOnceAfterWarmup(t *testing.T) {
	r := NewRegistry()
	var fired int32
	s := NewSyncer(r, SyncerOptions{WarmupTicks: 3}, func() { atomic.AddInt32(&fired, 1) })

	s.Tick()
	s.Tick()
	s.Tick()
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired), "no trigger while the registry is empty")

	require.NoError(t, s.Enqueue(UpdateRequest{ID: "a", Shape: unitBox(math32.Vector3{})}))
	assert.Equal(t, 1, s.Tick())
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
	assert.Equal(t, 1, r.Len())

	require.NoError(t, s.Enqueue(UpdateRequest{ID: "b", Shape: unitBox(math32.Vec3(4, 0, 0))}))
	s.Tick()
	s.Tick()
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired), "single trigger without RebuildTicks")
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 6, s.Ticks())
}

func TestSyncerWaitsForWarmup(t *testing.T) {
	r := NewRegistry()
	var fired int32
	s := NewSyncer(r, SyncerOptions{WarmupTicks: 5}, func() { atomic.AddInt32(&fired, 1) })

	require.NoError(t, s.Enqueue(UpdateRequest{ID: "a", Shape: unitBox(math32.Vector3{})}))
	for i := 0; i < 4; i++ {
		s.Tick()
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
	s.Tick()
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestSyncerRebuildsWhenDirty(t *testing.T) {
	r := NewRegistry()
	s := NewSyncer(r, SyncerOptions{WarmupTicks: 1, RebuildTicks: 2}, nil)

	require.NoError(t, s.Enqueue(UpdateRequest{ID: "a", Shape: unitBox(math32.Vector3{})}))
	s.Tick()
	assert.Equal(t, 1, s.Triggered())

	s.Tick()
	s.Tick()
	assert.Equal(t, 1, s.Triggered(), "nothing changed, no rebuild")

	require.NoError(t, s.Enqueue(UpdateRequest{ID: "a", Remove: true}))
	require.NoError(t, s.Enqueue(UpdateRequest{ID: "b", Shape: unitBox(math32.Vector3{})}))
	s.Tick()
	assert.Equal(t, 2, s.Triggered())
	_, ok := r.Get("a")
	assert.False(t, ok)
}

func TestSyncerQueueFull(t *testing.T) {
	s := NewSyncer(NewRegistry(), SyncerOptions{QueueSize: 1}, nil)
	require.NoError(t, s.Enqueue(UpdateRequest{ID: "a"}))
	assert.ErrorIs(t, s.Enqueue(UpdateRequest{ID: "b"}), ErrQueueFull)
}

func TestSyncerRunStopsOnCancel(t *testing.T) {
	r := NewRegistry()
	done := make(chan struct{})
	s := NewSyncer(r, SyncerOptions{Interval: time.Millisecond, WarmupTicks: 2}, func() { close(done) })
	require.NoError(t, s.Enqueue(UpdateRequest{ID: "a", Shape: unitBox(math32.Vector3{})}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("build was never triggered")
	}
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}
