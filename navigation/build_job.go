package navigation

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/o0olele/octree-nav/octree"
)

var (
	// ErrBuildCanceled is the result of a job canceled before publishing.
	ErrBuildCanceled = errors.New("navigation: build canceled")
	// ErrBuildSuperseded is the result of a job that finished after a newer
	// generation was already published.
	ErrBuildSuperseded = errors.New("navigation: build superseded by a newer generation")
)

// BuildStatus is the lifecycle state of a BuildJob.
type BuildStatus int

const (
	BuildPending BuildStatus = iota
	BuildRunning
	BuildSucceeded
	BuildFailed
	BuildCanceled
	BuildSuperseded
)

var buildStatusNames = [...]string{"pending", "running", "succeeded", "failed", "canceled", "superseded"}

func (s BuildStatus) String() string {
	if s < 0 || int(s) >= len(buildStatusNames) {
		return "unknown"
	}
	return buildStatusNames[s]
}

// MarshalText encodes the status by name.
func (s BuildStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Finished reports whether the job reached a final state.
func (s BuildStatus) Finished() bool {
	return s >= BuildSucceeded
}

// BuildJob is a handle to an asynchronous octree build.
type BuildJob struct {
	ID     uuid.UUID
	Seq    uint64
	Params octree.BuildParams

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status BuildStatus
	gen    *Generation
	err    error
}

func newBuildJob(ctx context.Context, seq uint64, params octree.BuildParams) *BuildJob {
	ctx, cancel := context.WithCancel(ctx)
	return &BuildJob{
		ID:     uuid.New(),
		Seq:    seq,
		Params: params,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Done is closed once the job is finished.
func (j *BuildJob) Done() <-chan struct{} {
	return j.done
}

// Status returns the current state.
func (j *BuildJob) Status() BuildStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Result returns the generation and error of a finished job. A superseded
// job returns its unpublished generation along with ErrBuildSuperseded.
func (j *BuildJob) Result() (*Generation, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.Finished() {
		return nil, nil
	}
	return j.gen, j.err
}

// Wait blocks until the job finishes or ctx is done.
func (j *BuildJob) Wait(ctx context.Context) (*Generation, error) {
	select {
	case <-j.done:
		return j.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel abandons the job. It has no effect once the generation is
// published.
func (j *BuildJob) Cancel() {
	j.cancel()
}

func (j *BuildJob) setStatus(s BuildStatus) {
	j.mu.Lock()
	j.status = s
	j.mu.Unlock()
}

func (j *BuildJob) finish(status BuildStatus, gen *Generation, err error) {
	j.mu.Lock()
	j.status = status
	j.gen = gen
	j.err = err
	j.mu.Unlock()
	j.cancel()
	close(j.done)
}

// BuildJobInfo is the pollable view of a job.
type BuildJobInfo struct {
	ID         uuid.UUID   `json:"id"`
	Status     BuildStatus `json:"status"`
	Generation *uuid.UUID  `json:"generation,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Info returns a snapshot of the job for reporting.
func (j *BuildJob) Info() BuildJobInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	info := BuildJobInfo{ID: j.ID, Status: j.status}
	if j.gen != nil && j.status == BuildSucceeded {
		id := j.gen.ID
		info.Generation = &id
	}
	if j.err != nil {
		info.Error = j.err.Error()
	}
	return info
}
