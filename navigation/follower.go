package navigation

import (
	"github.com/o0olele/octree-nav/math32"
)

// PathFollow is the per-entity state of walking a waypoint list.
type PathFollow struct {
	Index int     `json:"index"`
	Speed float32 `json:"speed"`
	// RotationSpeed is in radians per second.
	RotationSpeed      float32 `json:"rotation_speed"`
	ArrivalThresholdSq float32 `json:"arrival_threshold_sq"`
}

// DefaultPathFollow returns 5 units/s, half a turn per second and a half
// unit arrival radius.
func DefaultPathFollow() PathFollow {
	return PathFollow{
		Speed:              5,
		RotationSpeed:      math32.Radians(180),
		ArrivalThresholdSq: 0.5 * 0.5,
	}
}

// Agent is the moving entity.
type Agent struct {
	Position math32.Vector3    `json:"position"`
	Rotation math32.Quaternion `json:"rotation"`
}

// Advance skips every waypoint position is already within the arrival
// radius of and returns the next target. done is true once the path is
// exhausted; an empty path is done immediately.
func (f *PathFollow) Advance(position math32.Vector3, path []math32.Vector3) (target math32.Vector3, done bool) {
	threshold := math32.Max(f.ArrivalThresholdSq, math32.Epsilon)
	for f.Index < len(path) && position.DistanceSquared(path[f.Index]) < threshold {
		f.Index++
	}
	if f.Index >= len(path) {
		return math32.Vector3{}, true
	}
	return path[f.Index], false
}

// Step turns the agent towards its target and moves it dt seconds along the
// path without overshooting the waypoint. It reports whether the path is
// complete.
func (f *PathFollow) Step(agent *Agent, path []math32.Vector3, dt float32) bool {
	target, done := f.Advance(agent.Position, path)
	if done {
		return true
	}

	dir := target.Sub(agent.Position)
	dist := dir.Length()
	if dir.LengthSquared() > 0.001 {
		look := math32.QuaternionLookRotation(dir)
		agent.Rotation = agent.Rotation.Slerp(look, math32.Min(f.RotationSpeed*dt, 1))
	}

	move := f.Speed * dt
	if move >= dist {
		agent.Position = target
	} else {
		agent.Position = agent.Position.Add(dir.Mul(move / dist))
	}

	_, done = f.Advance(agent.Position, path)
	return done
}

// StepAlongPath moves agent dt seconds along the stored path of entity with
// the configured follower settings, resuming at waypoint index. It returns
// the next waypoint index and whether the path is complete; ok is false when
// entity has no successful path.
func (m *Manager) StepAlongPath(entity string, agent *Agent, index int, dt float32) (next int, done, ok bool) {
	res, ok := m.Path(entity)
	if !ok || !res.Found() {
		return index, false, false
	}
	if agent.Rotation == (math32.Quaternion{}) {
		agent.Rotation = math32.QuaternionIdentity()
	}

	f := m.opts.Follow
	f.Index = index
	done = f.Step(agent, res.Waypoints, dt)
	return f.Index, done, true
}
