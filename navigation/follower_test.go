package navigation

import (
	"context"
	"testing"
	"time"

	"github.com/o0olele/octree-nav/geometry"
	"github.com/o0olele/octree-nav/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceEmptyPathIsDone(t *testing.T) {
	f := DefaultPathFollow()
	_, done := f.Advance(math32.Vector3{}, nil)
	assert.True(t, done)

	agent := &Agent{}
	assert.True(t, f.Step(agent, nil, 0.1))
	assert.Equal(t, math32.Vector3{}, agent.Position)
}

func TestAdvanceSkipsReachedWaypoints(t *testing.T) {
	f := DefaultPathFollow()
	center := math32.Vec3(1, 0, 0)
	path := []math32.Vector3{center, center, math32.Vec3(5, 0, 0)}

	target, done := f.Advance(math32.Vec3(1.1, 0, 0), path)
	assert.False(t, done)
	assert.Equal(t, path[2], target)
	assert.Equal(t, 2, f.Index)

	_, done = f.Advance(math32.Vec3(5, 0, 0.2), path)
	assert.True(t, done)
	assert.Equal(t, 3, f.Index)
}

func TestStepFollowsPath(t *testing.T) {
	f := DefaultPathFollow()
	path := []math32.Vector3{
		math32.Vec3(0, 0, 0),
		math32.Vec3(4, 0, 0),
		math32.Vec3(4, 0, 4),
	}
	agent := &Agent{Rotation: math32.QuaternionIdentity()}

	steps := 0
	for !f.Step(agent, path, 0.05) {
		steps++
		require.Less(t, steps, 1000, "never arrived")
	}
	assert.True(t, agent.Position.ApproxEqual(path[2], 0.5), "ended at %v", agent.Position)
	// about 8 units at 0.25 per step, less the arrival radius
	assert.InDelta(t, 30, steps, 2)
}

func TestStepDoesNotOvershoot(t *testing.T) {
	f := PathFollow{Speed: 100, RotationSpeed: 1, ArrivalThresholdSq: 0.01}
	path := []math32.Vector3{math32.Vec3(0, 0, 2), math32.Vec3(0, 0, 3)}
	agent := &Agent{}

	assert.False(t, f.Step(agent, path, 1))
	assert.Equal(t, path[0], agent.Position)
	assert.Equal(t, 1, f.Index)

	assert.True(t, f.Step(agent, path, 1))
	assert.Equal(t, path[1], agent.Position)
}

func TestStepTurnsTowardsTarget(t *testing.T) {
	f := PathFollow{Speed: 1, RotationSpeed: 100, ArrivalThresholdSq: 0.01}
	path := []math32.Vector3{math32.Vec3(10, 0, 0)}
	agent := &Agent{Rotation: math32.QuaternionIdentity()}

	f.Step(agent, path, 0.1)
	forward := agent.Rotation.Rotate(math32.Vec3(0, 0, 1))
	assert.True(t, forward.ApproxEqual(math32.Vec3(1, 0, 0), 1e-4), "forward %v", forward)
	assert.True(t, agent.Position.ApproxEqual(math32.Vec3(0.1, 0, 0), 1e-5))
}

func TestStepAlongPathUsesConfiguredFollower(t *testing.T) {
	opts := testOptions()
	opts.Follow.Speed = 2
	m := NewManager(opts, nil)
	m.UpsertCollider("cube", geometry.NewBoxShape(math32.Vector3{}, math32.Splat(2)), 0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := m.RequestBuild(ctx, m.Options().Build).Wait(ctx)
	require.NoError(t, err)

	agent := &Agent{}
	_, _, ok := m.StepAlongPath("drone", agent, 0, 0.1)
	assert.False(t, ok, "no path yet")

	_, err = m.Submit(PathRequest{Entity: "drone", Start: math32.Vec3(-12, 0.5, 0.5), End: math32.Vec3(12, 0.5, 0.5)})
	require.NoError(t, err)
	_, err = m.ProcessRequests(ctx)
	require.NoError(t, err)
	path, ok := m.Path("drone")
	require.True(t, ok)

	agent.Position = path.Waypoints[0]
	index, done, ok := m.StepAlongPath("drone", agent, 0, 0.1)
	require.True(t, ok)
	assert.False(t, done)
	assert.Equal(t, 1, index)
	assert.InDelta(t, 0.2, agent.Position.Distance(path.Waypoints[0]), 1e-4)
	assert.NotEqual(t, math32.Quaternion{}, agent.Rotation)

	// Failed requests have nothing to follow.
	_, err = m.Submit(PathRequest{Entity: "stuck", Start: math32.Vector3{}, End: math32.Vec3(12, 0, 0)})
	require.NoError(t, err)
	_, err = m.ProcessRequests(ctx)
	require.NoError(t, err)
	_, _, ok = m.StepAlongPath("stuck", agent, 0, 0.1)
	assert.False(t, ok)
}
