package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/o0olele/octree-nav/math32"
)

// Request is one entry of a batch.
type Request struct {
	Start math32.Vector3 `json:"start"`
	End   math32.Vector3 `json:"end"`
}

// Response pairs a batch entry with its outcome.
type Response struct {
	Result  Result
	Err     error
	Elapsed time.Duration
}

// Skipped reports whether the entry was never searched because the batch
// context ended first.
func (r Response) Skipped() bool {
	return errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded)
}

// FindPaths resolves requests on up to workers goroutines. Responses are in
// request order. Entries not started before ctx is done carry ctx.Err().
func (nq *NavigationQuery) FindPaths(ctx context.Context, requests []Request, workers int) []Response {
	responses := make([]Response, len(requests))
	if len(requests) == 0 {
		return responses
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(requests) {
		workers = len(requests)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					responses[i].Err = err
					continue
				}
				start := time.Now()
				res, err := nq.FindPath(requests[i].Start, requests[i].End)
				responses[i] = Response{Result: res, Err: err, Elapsed: time.Since(start)}
			}
		}()
	}

	for i := range requests {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return responses
}
