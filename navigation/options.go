package navigation

import (
	"github.com/o0olele/octree-nav/collider"
	"github.com/o0olele/octree-nav/config"
	"github.com/o0olele/octree-nav/geometry"
	"github.com/o0olele/octree-nav/math32"
	"github.com/o0olele/octree-nav/octree"
	"github.com/o0olele/octree-nav/query"
)

// Options configures a Manager.
type Options struct {
	// Build is used by explicit build requests without their own params.
	Build octree.BuildParams
	// SyncBuild is used by builds the collider syncer triggers.
	SyncBuild octree.BuildParams
	Sync      collider.SyncerOptions
	Query     query.Options
	Follow    PathFollow

	// Workers bounds the parallel searches of one processing cycle.
	Workers int
	// QueueSize bounds the pending path requests.
	QueueSize     int
	LeafCacheSize int
}

// DefaultOptions mirrors the scene defaults.
func DefaultOptions() Options {
	return Options{
		Build: octree.BuildParams{
			WorldBounds:  geometry.AABB{Extents: math32.Vec3(50, 10, 50)},
			MinNodeSize:  1,
			MaxDepth:     5,
			ObstacleMask: collider.DefaultLayers,
		},
		SyncBuild: octree.BuildParams{
			WorldBounds:  geometry.AABB{Extents: math32.Splat(60)},
			MinNodeSize:  0.5,
			MaxDepth:     15,
			ObstacleMask: collider.DefaultLayers,
		},
		Sync:          collider.DefaultSyncerOptions(),
		Query:         query.DefaultOptions(),
		Follow:        DefaultPathFollow(),
		Workers:       4,
		QueueSize:     1024,
		LeafCacheSize: 4096,
	}
}

// followFromConfig reads the follower settings. The rotation speed is in
// degrees per second and the arrival threshold is a distance.
func followFromConfig(c *config.Config) PathFollow {
	threshold := c.GetFloat32("follow.arrivalthreshold")
	return PathFollow{
		Speed:              c.GetFloat32("follow.speed"),
		RotationSpeed:      math32.Radians(c.GetFloat32("follow.rotationspeed")),
		ArrivalThresholdSq: threshold * threshold,
	}
}

// OptionsFromConfig reads the manager options from c.
func OptionsFromConfig(c *config.Config) Options {
	return Options{
		Build: octree.BuildParams{
			WorldBounds: geometry.AABB{
				Center:  c.GetVector3("octree.bounds.center"),
				Extents: c.GetVector3("octree.bounds.extents"),
			},
			MinNodeSize:  c.GetFloat32("octree.minnodesize"),
			MaxDepth:     int32(c.GetInt("octree.maxdepth")),
			ObstacleMask: uint32(c.GetInt("octree.mask")),
			MaxNodes:     c.GetInt("octree.maxnodes"),
		},
		SyncBuild: octree.BuildParams{
			WorldBounds: geometry.AABB{
				Center:  c.GetVector3("sync.bounds.center"),
				Extents: c.GetVector3("sync.bounds.extents"),
			},
			MinNodeSize:  c.GetFloat32("sync.minnodesize"),
			MaxDepth:     int32(c.GetInt("sync.maxdepth")),
			ObstacleMask: uint32(c.GetInt("octree.mask")),
			MaxNodes:     c.GetInt("octree.maxnodes"),
		},
		Sync: collider.SyncerOptions{
			Interval:     c.GetDuration("sync.interval"),
			WarmupTicks:  c.GetInt("sync.warmupticks"),
			RebuildTicks: c.GetInt("sync.rebuildticks"),
			QueueSize:    c.GetInt("sync.queuesize"),
		},
		Query: query.Options{
			IterationFactor: c.GetInt("pathfind.iterationfactor"),
			SnapEndpoints:   c.GetBool("pathfind.snapendpoints"),
			ReopenClosed:    c.GetBool("pathfind.reopenclosed"),
			Smooth:          c.GetBool("pathfind.smooth"),
		},
		Follow: followFromConfig(c),
		Workers:       c.GetInt("pathfind.workers"),
		QueueSize:     c.GetInt("pathfind.queuesize"),
		LeafCacheSize: c.GetInt("navigation.leafcachesize"),
	}
}
