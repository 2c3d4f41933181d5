package navigation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/o0olele/octree-nav/logger"
	"github.com/o0olele/octree-nav/math32"
	"github.com/o0olele/octree-nav/metrics"
	"github.com/o0olele/octree-nav/query"
	"go.uber.org/zap"
)

// ErrQueueFull is returned by Submit when too many requests are pending.
var ErrQueueFull = errors.New("navigation: path request queue full")

// PathRequest asks for a path on behalf of an entity.
type PathRequest struct {
	ID     uuid.UUID      `json:"id"`
	Entity string         `json:"entity"`
	Start  math32.Vector3 `json:"start"`
	End    math32.Vector3 `json:"end"`
}

func (r PathRequest) key() string {
	if r.Entity != "" {
		return r.Entity
	}
	return r.ID.String()
}

// PathResult is attached to the requesting entity once its request was
// processed, whether or not a path was found.
type PathResult struct {
	RequestID  uuid.UUID        `json:"request_id"`
	Entity     string           `json:"entity"`
	Generation uuid.UUID        `json:"generation"`
	Waypoints  []math32.Vector3 `json:"waypoints"`
	Iterations int              `json:"iterations"`
	Cost       float32          `json:"cost"`
	Err        error            `json:"-"`
	Error      string           `json:"error,omitempty"`
}

func (r PathResult) key() string {
	if r.Entity != "" {
		return r.Entity
	}
	return r.RequestID.String()
}

// Found reports whether the result carries a path.
func (r PathResult) Found() bool {
	return r.Err == nil && len(r.Waypoints) > 0
}

// Submit queues a request for the next processing cycle and returns its id.
// Requests without an entity are keyed by their id.
func (m *Manager) Submit(req PathRequest) (uuid.UUID, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	m.reqMu.Lock()
	if len(m.pending) >= m.opts.QueueSize {
		m.reqMu.Unlock()
		return uuid.Nil, ErrQueueFull
	}
	m.pending = append(m.pending, req)
	n := len(m.pending)
	m.reqMu.Unlock()

	m.reporter.ReportPending(n)
	return req.ID, nil
}

// Pending returns the number of queued requests.
func (m *Manager) Pending() int {
	m.reqMu.Lock()
	defer m.reqMu.Unlock()
	return len(m.pending)
}

// ProcessRequests runs one processing cycle: every queued request is
// resolved against the current generation, in parallel up to Workers, and
// its result is attached to the entity. Without a published generation the
// requests stay queued and query.ErrOctreeNotCreated is returned. Requests
// not started when ctx is done are put back in the queue.
func (m *Manager) ProcessRequests(ctx context.Context) (int, error) {
	gen := m.Current()
	if gen == nil {
		return 0, query.ErrOctreeNotCreated
	}

	m.reqMu.Lock()
	batch := m.pending
	m.pending = nil
	m.reqMu.Unlock()
	if len(batch) == 0 {
		return 0, nil
	}

	requests := make([]query.Request, len(batch))
	for i, req := range batch {
		requests[i] = query.Request{Start: req.Start, End: req.End}
	}
	responses := gen.Query.FindPaths(ctx, requests, m.opts.Workers)

	var (
		requeue  []PathRequest
		finished []PathResult
	)
	for i, resp := range responses {
		if resp.Skipped() {
			requeue = append(requeue, batch[i])
			continue
		}
		finished = append(finished, m.attach(gen, batch[i], resp))
	}
	done := len(finished)

	m.reqMu.Lock()
	for _, res := range finished {
		m.results[res.key()] = res
	}
	m.pending = append(requeue, m.pending...)
	pending := len(m.pending)
	m.reqMu.Unlock()

	m.reporter.ReportPending(pending)
	logger.Debug("path requests processed",
		zap.String("generation", gen.ID.String()),
		zap.Int("processed", done),
		zap.Int("requeued", len(requeue)))
	return done, ctx.Err()
}

// FindPath resolves one request synchronously against the current
// generation.
func (m *Manager) FindPath(start, end math32.Vector3) (PathResult, error) {
	gen := m.Current()
	if gen == nil {
		m.reporter.ReportPath(0, 0, metrics.ResultNoOctree)
		return PathResult{}, query.ErrOctreeNotCreated
	}
	began := time.Now()
	res, err := gen.Query.FindPath(start, end)
	out := m.attach(gen, PathRequest{ID: uuid.New(), Start: start, End: end},
		query.Response{Result: res, Err: err, Elapsed: time.Since(began)})
	return out, out.Err
}

// attach reports the outcome of one search and turns it into the result
// stored for the requester.
func (m *Manager) attach(gen *Generation, req PathRequest, resp query.Response) PathResult {
	res, err := resp.Result, resp.Err
	m.reporter.ReportPath(resp.Elapsed, res.Iterations, resultLabel(err))

	out := PathResult{
		RequestID:  req.ID,
		Entity:     req.Entity,
		Generation: gen.ID,
		Waypoints:  res.Waypoints,
		Iterations: res.Iterations,
		Cost:       res.Cost,
	}
	if err != nil {
		out.Err = err
		out.Error = err.Error()
		logger.Debug("path not found",
			zap.String("request", req.ID.String()),
			zap.String("entity", req.Entity),
			zap.Stringer("start", req.Start),
			zap.Stringer("end", req.End),
			zap.Error(err))
	}
	return out
}

// Path returns the last result attached to entity.
func (m *Manager) Path(entity string) (PathResult, bool) {
	m.reqMu.Lock()
	defer m.reqMu.Unlock()
	res, ok := m.results[entity]
	return res, ok
}

// TakePath returns and detaches the result of entity.
func (m *Manager) TakePath(entity string) (PathResult, bool) {
	m.reqMu.Lock()
	defer m.reqMu.Unlock()
	res, ok := m.results[entity]
	if ok {
		delete(m.results, entity)
	}
	return res, ok
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultFound
	case errors.Is(err, query.ErrInvalidStart), errors.Is(err, query.ErrInvalidEnd):
		return metrics.ResultInvalidEnds
	case errors.Is(err, query.ErrNoPath):
		return metrics.ResultNoPath
	case errors.Is(err, query.ErrIterationBudget):
		return metrics.ResultBudget
	case errors.Is(err, query.ErrOctreeNotCreated):
		return metrics.ResultNoOctree
	case errors.Is(err, context.Canceled):
		return metrics.ResultCanceled
	}
	return metrics.ResultNoPath
}
