package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"video-dashboard/internal/jobs"
)

type step struct {
	job jobs.Job
	err error
}

// scriptedFetcher replays steps in order and repeats the last one once exhausted.
type scriptedFetcher struct {
	mu       sync.Mutex
	steps    []step
	calls    int
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *scriptedFetcher) JobStatus(ctx context.Context, jobID string) (jobs.Job, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if n <= prev || f.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	if idx >= len(f.steps) {
		idx = len(f.steps) - 1
	}
	f.calls++
	s := f.steps[idx]
	if s.job.ID == "" {
		s.job.ID = jobID
	}
	return s.job, s.err
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// gatedFetcher blocks each call until released or the context ends, then answers with
// the job regardless, like a slow response that resolves after teardown.
type gatedFetcher struct {
	release chan struct{}
	started chan string
	job     jobs.Job
}

func newGatedFetcher(status jobs.Status) *gatedFetcher {
	return &gatedFetcher{
		release: make(chan struct{}),
		started: make(chan string, 16),
		job:     jobs.Job{Status: status},
	}
}

func (f *gatedFetcher) JobStatus(ctx context.Context, jobID string) (jobs.Job, error) {
	f.started <- jobID
	select {
	case <-f.release:
	case <-ctx.Done():
	}
	job := f.job
	job.ID = jobID
	return job, nil
}
