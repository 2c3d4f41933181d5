package navigation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/o0olele/octree-nav/collider"
	"github.com/o0olele/octree-nav/geometry"
	"github.com/o0olele/octree-nav/logger"
	"github.com/o0olele/octree-nav/metrics"
	"github.com/o0olele/octree-nav/octree"
	"go.uber.org/zap"
)

// maxTrackedJobs bounds how many build jobs stay pollable by id.
const maxTrackedJobs = 64

// Manager owns the collider registry and the published octree generation,
// and resolves queued path requests against it.
type Manager struct {
	opts     Options
	registry *collider.Registry
	syncer   *collider.Syncer
	reporter *metrics.Reporter

	current atomic.Pointer[Generation]
	seq     atomic.Uint64

	jobsMu   sync.Mutex
	jobs     map[uuid.UUID]*BuildJob
	jobOrder []uuid.UUID

	reqMu   sync.Mutex
	pending []PathRequest
	results map[string]PathResult
}

// NewManager creates a manager. reporter may be nil.
func NewManager(opts Options, reporter *metrics.Reporter) *Manager {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultOptions().QueueSize
	}
	m := &Manager{
		opts:     opts,
		registry: collider.NewRegistry(),
		reporter: reporter,
		jobs:     make(map[uuid.UUID]*BuildJob),
		results:  make(map[string]PathResult),
	}
	m.syncer = collider.NewSyncer(m.registry, opts.Sync, m.onSyncTrigger)
	return m
}

// Options returns the manager options.
func (m *Manager) Options() Options {
	return m.opts
}

// Registry returns the collider registry.
func (m *Manager) Registry() *collider.Registry {
	return m.registry
}

// Syncer returns the tick-driven collider syncer.
func (m *Manager) Syncer() *collider.Syncer {
	return m.syncer
}

// UpsertCollider registers or replaces a collider immediately. Zero layers
// means the default layer.
func (m *Manager) UpsertCollider(id collider.ID, shape geometry.ColliderShape, layers uint32) {
	if layers == 0 {
		layers = collider.DefaultLayers
	}
	m.registry.UpsertLayers(id, shape, layers)
	m.reporter.ReportColliders(m.registry.Len())
}

// RemoveCollider removes a collider immediately.
func (m *Manager) RemoveCollider(id collider.ID) bool {
	ok := m.registry.Remove(id)
	m.reporter.ReportColliders(m.registry.Len())
	return ok
}

// EnqueueCollider queues an update for the next sync tick.
func (m *Manager) EnqueueCollider(req collider.UpdateRequest) error {
	return m.syncer.Enqueue(req)
}

// Current returns the published generation, or nil before the first build.
func (m *Manager) Current() *Generation {
	return m.current.Load()
}

// RequestBuild snapshots the registry and builds an octree from it in the
// background. The result is published only if no newer build has been
// published in the meantime.
func (m *Manager) RequestBuild(ctx context.Context, params octree.BuildParams) *BuildJob {
	job := newBuildJob(ctx, m.seq.Add(1), params)
	snapshot := m.registry.Snapshot()
	m.track(job)
	go m.runBuild(job, snapshot)
	return job
}

// BuildJob returns a tracked job by id.
func (m *Manager) BuildJob(id uuid.UUID) (*BuildJob, bool) {
	m.jobsMu.Lock()
	defer m.jobsMu.Unlock()
	job, ok := m.jobs[id]
	return job, ok
}

func (m *Manager) runBuild(job *BuildJob, snapshot collider.Snapshot) {
	job.setStatus(BuildRunning)
	start := time.Now()
	tree, err := octree.BuildContext(job.ctx, job.Params, snapshot)
	elapsed := time.Since(start)

	fields := []zap.Field{
		zap.String("job", job.ID.String()),
		zap.Uint64("seq", job.Seq),
		zap.Int("colliders", len(snapshot)),
		zap.Duration("elapsed", elapsed),
	}

	if err != nil {
		status := BuildFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = BuildCanceled
			err = fmt.Errorf("%w: %v", ErrBuildCanceled, err)
		}
		m.reporter.ReportBuild(elapsed, err, 0, 0, 0)
		logger.Warn("octree build failed", append(fields, zap.Error(err))...)
		job.finish(status, nil, err)
		return
	}

	gen, err := newGeneration(job.Seq, tree, job.Params, len(snapshot), m.opts.Query, m.opts.LeafCacheSize)
	if err != nil {
		m.reporter.ReportBuild(elapsed, err, 0, 0, 0)
		logger.Error("octree generation rejected", append(fields, zap.Error(err))...)
		job.finish(BuildFailed, nil, err)
		return
	}
	if job.ctx.Err() != nil {
		m.reporter.ReportBuild(elapsed, ErrBuildCanceled, 0, 0, 0)
		job.finish(BuildCanceled, nil, ErrBuildCanceled)
		return
	}
	if !m.publish(gen) {
		m.reporter.ReportBuild(elapsed, ErrBuildSuperseded, 0, 0, 0)
		logger.Info("octree build superseded", fields...)
		job.finish(BuildSuperseded, gen, ErrBuildSuperseded)
		return
	}

	stats := tree.Stats()
	m.reporter.ReportBuild(elapsed, nil, stats.Branches, stats.FreeLeaves, stats.Blocked)
	logger.Info("octree generation published", append(fields,
		zap.String("generation", gen.ID.String()),
		zap.Int("nodes", stats.Nodes),
		zap.Int("free", stats.FreeLeaves),
		zap.Int("blocked", stats.Blocked))...)
	job.finish(BuildSucceeded, gen, nil)
}

// publish installs gen unless a newer generation is already current.
func (m *Manager) publish(gen *Generation) bool {
	for {
		cur := m.current.Load()
		if cur != nil && cur.Seq > gen.Seq {
			return false
		}
		if m.current.CompareAndSwap(cur, gen) {
			return true
		}
	}
}

// PublishTree publishes an already built tree, such as one loaded from
// disk, as the newest generation.
func (m *Manager) PublishTree(tree *octree.Octree) (*Generation, error) {
	if err := tree.Validate(); err != nil {
		return nil, err
	}
	params := octree.BuildParams{
		WorldBounds:  tree.RootBounds,
		MinNodeSize:  tree.MinNodeSize,
		MaxDepth:     tree.MaxDepth,
		ObstacleMask: m.opts.Build.ObstacleMask,
	}
	gen, err := newGeneration(m.seq.Add(1), tree, params, 0, m.opts.Query, m.opts.LeafCacheSize)
	if err != nil {
		return nil, err
	}
	if !m.publish(gen) {
		return gen, ErrBuildSuperseded
	}
	logger.Info("octree generation published from file",
		zap.String("generation", gen.ID.String()),
		zap.Int("nodes", tree.Len()))
	return gen, nil
}

func (m *Manager) track(job *BuildJob) {
	m.jobsMu.Lock()
	defer m.jobsMu.Unlock()
	m.jobs[job.ID] = job
	m.jobOrder = append(m.jobOrder, job.ID)

	// forget the oldest finished jobs
	for i := 0; len(m.jobOrder) > maxTrackedJobs && i < len(m.jobOrder); {
		id := m.jobOrder[i]
		if m.jobs[id].Status().Finished() {
			delete(m.jobs, id)
			m.jobOrder = append(m.jobOrder[:i], m.jobOrder[i+1:]...)
			continue
		}
		i++
	}
}

func (m *Manager) onSyncTrigger() {
	job := m.RequestBuild(context.Background(), m.opts.SyncBuild)
	logger.Debug("collider sync started build", zap.String("job", job.ID.String()))
}

// Run ticks the collider syncer and processes pending path requests every
// sync interval until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.syncer.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if m.syncer.Tick() > 0 {
				m.reporter.ReportColliders(m.registry.Len())
			}
			if m.Pending() > 0 && m.Current() != nil {
				if _, err := m.ProcessRequests(ctx); err != nil && ctx.Err() == nil {
					logger.Warn("path request processing failed", zap.Error(err))
				}
			}
		}
	}
}

// Close stops accepting colliders and cancels builds still running.
func (m *Manager) Close() {
	m.registry.Close()
	m.jobsMu.Lock()
	defer m.jobsMu.Unlock()
	for _, job := range m.jobs {
		job.Cancel()
	}
}
