package collider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/o0olele/octree-nav/geometry"
	"github.com/o0olele/octree-nav/logger"
	"go.uber.org/zap"
)

// ErrQueueFull is returned by Enqueue when the pending queue is at capacity.
var ErrQueueFull = errors.New("collider: update queue full")

// UpdateRequest is a producer's report for one collider.
type UpdateRequest struct {
	ID     ID                     `json:"id"`
	Shape  geometry.ColliderShape `json:"shape"`
	Layers uint32                 `json:"layers,omitempty"`
	Remove bool                   `json:"remove,omitempty"`
}

// SyncerOptions configures a Syncer.
type SyncerOptions struct {
	// Interval between ticks in Run.
	Interval time.Duration
	// WarmupTicks is how many ticks pass before the first build trigger.
	WarmupTicks int
	// RebuildTicks, when positive, re-triggers a build that many ticks after
	// the last trigger if colliders changed since. Zero triggers only once.
	RebuildTicks int
	QueueSize    int
}

// DefaultSyncerOptions returns the scene defaults: one build after 250
// ticks of 20ms.
func DefaultSyncerOptions() SyncerOptions {
	return SyncerOptions{
		Interval:    20 * time.Millisecond,
		WarmupTicks: 250,
		QueueSize:   4096,
	}
}

// Syncer applies queued collider updates to a registry once per tick and
// fires a build trigger once the registry has settled.
type Syncer struct {
	registry *Registry
	opts     SyncerOptions
	requests chan UpdateRequest
	trigger  func()

	mu        sync.Mutex
	ticks     int
	triggered int
	lastFire  int
	dirty     bool
}

// NewSyncer creates a syncer feeding registry. trigger is called from the
// ticking goroutine each time a build should start.
func NewSyncer(registry *Registry, opts SyncerOptions, trigger func()) *Syncer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultSyncerOptions().QueueSize
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultSyncerOptions().Interval
	}
	return &Syncer{
		registry: registry,
		opts:     opts,
		requests: make(chan UpdateRequest, opts.QueueSize),
		trigger:  trigger,
	}
}

// Enqueue queues an update for the next tick without blocking.
func (s *Syncer) Enqueue(req UpdateRequest) error {
	select {
	case s.requests <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Tick applies all pending updates and fires the trigger when due. It
// returns the number of updates applied.
func (s *Syncer) Tick() int {
	applied := s.drain()

	s.mu.Lock()
	s.ticks++
	if applied > 0 {
		s.dirty = true
	}
	fire := s.shouldFire()
	if fire {
		s.triggered++
		s.lastFire = s.ticks
		s.dirty = false
	}
	ticks := s.ticks
	s.mu.Unlock()

	if fire {
		logger.Info("collider sync requests octree build",
			zap.Int("tick", ticks),
			zap.Int("colliders", s.registry.Len()))
		if s.trigger != nil {
			s.trigger()
		}
	}
	return applied
}

func (s *Syncer) shouldFire() bool {
	if s.ticks < s.opts.WarmupTicks || s.registry.Len() == 0 {
		return false
	}
	if s.triggered == 0 {
		return true
	}
	return s.opts.RebuildTicks > 0 && s.dirty && s.ticks-s.lastFire >= s.opts.RebuildTicks
}

func (s *Syncer) drain() int {
	applied := 0
	for {
		select {
		case req := <-s.requests:
			s.apply(req)
			applied++
		default:
			return applied
		}
	}
}

func (s *Syncer) apply(req UpdateRequest) {
	if req.Remove {
		s.registry.Remove(req.ID)
		return
	}
	layers := req.Layers
	if layers == 0 {
		layers = DefaultLayers
	}
	s.registry.UpsertLayers(req.ID, req.Shape, layers)
}

// Ticks returns how many ticks have run.
func (s *Syncer) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Triggered returns how many builds have been triggered.
func (s *Syncer) Triggered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggered
}

// Interval returns the tick period used by Run.
func (s *Syncer) Interval() time.Duration {
	return s.opts.Interval
}

// Run ticks every Interval until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}
