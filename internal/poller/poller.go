// Package poller keeps an up-to-date view of one backend job by querying its status until
// the job reaches a terminal state or the caller cancels.
package poller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"video-dashboard/internal/jobs"
	"video-dashboard/internal/shared/metrics"
	"video-dashboard/internal/shared/telemetry"
)

const (
	// DefaultInterval is the delay between status requests while a job is active.
	DefaultInterval = 3 * time.Second
	// DefaultMaxInterval caps the delay when backoff is enabled.
	DefaultMaxInterval = time.Minute
)

var (
	// ErrUnexpectedStatus ends polling when the backend reports a status outside the known set.
	ErrUnexpectedStatus = errors.New("unexpected job status")
	// ErrAlreadyRunning is returned when Run is called a second time.
	ErrAlreadyRunning = errors.New("poller already started")
)

// StatusFetcher fetches one job snapshot.
type StatusFetcher interface {
	JobStatus(ctx context.Context, jobID string) (jobs.Job, error)
}

// Options configures a Poller. Zero values select defaults.
type Options struct {
	Interval time.Duration
	// Backoff multiplies the interval after each consecutive failure. Values <= 1 disable it.
	Backoff     float64
	MaxInterval time.Duration

	OnSnapshot func(jobs.Job)
	OnError    func(error)
	// OnComplete fires once, when a completed snapshot carrying a result is applied.
	OnComplete func(jobs.AnalysisResult)
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = DefaultMaxInterval
	}
	if o.MaxInterval < o.Interval {
		o.MaxInterval = o.Interval
	}
	return o
}

// State is what the poller currently knows. Job is the last successful snapshot and is kept
// when a later request fails; Err is the most recent failure and is cleared by a success.
type State struct {
	JobID string
	Job   *jobs.Job
	Err   error
	Polls int
	Done  bool
}

// Poller polls a single job. Run drives it; at most one request is in flight at a time.
type Poller struct {
	fetcher StatusFetcher
	jobID   string
	opts    Options
	refresh chan struct{}

	mu        sync.Mutex
	state     State
	started   bool
	completed bool
}

// New creates a poller for jobID.
func New(fetcher StatusFetcher, jobID string, opts Options) *Poller {
	return &Poller{
		fetcher: fetcher,
		jobID:   jobID,
		opts:    opts.withDefaults(),
		refresh: make(chan struct{}, 1),
		state:   State{JobID: jobID},
	}
}

// JobID returns the job being polled.
func (p *Poller) JobID() string { return p.jobID }

// State returns a copy of the current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Refresh asks for an immediate re-query. Requests made while one is already in flight are
// answered by that request. It is a no-op once polling has stopped.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Run polls immediately and then every interval while the job is pending or processing.
// It returns nil once a terminal status is applied, ErrUnexpectedStatus for an unknown one,
// or ctx.Err() when cancelled. Responses that arrive after cancellation are dropped.
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.started = true
	p.mu.Unlock()

	metrics.PollerStarted()
	defer metrics.PollerStopped()
	defer p.markDone()

	timer := time.NewTimer(0)
	defer timer.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		case <-p.refresh:
			timer.Stop()
		}

		job, err := p.fetch(ctx)
		p.drainRefresh()
		if ctx.Err() != nil {
			metrics.IncStaleResponses()
			return ctx.Err()
		}

		if err != nil {
			failures++
			p.fail(err)
		} else {
			failures = 0
			if stop, stopErr := p.apply(job); stop {
				return stopErr
			}
		}
		timer.Reset(p.delay(failures))
	}
}

func (p *Poller) fetch(ctx context.Context) (jobs.Job, error) {
	metrics.IncPolls()
	start := time.Now()
	job, err := p.fetcher.JobStatus(ctx, p.jobID)
	metrics.ObservePollDuration(time.Since(start))
	return job, err
}

func (p *Poller) drainRefresh() {
	select {
	case <-p.refresh:
	default:
	}
}

func (p *Poller) fail(err error) {
	metrics.IncPollErrors()
	p.mu.Lock()
	p.state.Err = err
	p.mu.Unlock()

	telemetry.Warn("poll.error", map[string]any{"job_id": p.jobID, "error": err.Error()})
	if p.opts.OnError != nil {
		p.opts.OnError(err)
	}
}

// apply stores a snapshot and reports whether polling should stop.
func (p *Poller) apply(job jobs.Job) (bool, error) {
	p.mu.Lock()
	snapshot := job
	p.state.Job = &snapshot
	p.state.Err = nil
	p.state.Polls++

	var result *jobs.AnalysisResult
	if job.Status == jobs.StatusCompleted && job.AnalysisResult != nil && !p.completed {
		p.completed = true
		result = job.AnalysisResult
	}
	p.mu.Unlock()

	if p.opts.OnSnapshot != nil {
		p.opts.OnSnapshot(job)
	}

	switch {
	case job.Status.IsActive():
		return false, nil
	case job.Status.IsTerminal():
		metrics.IncTerminal(job.Status.String())
		telemetry.Info("poll.terminal", map[string]any{"job_id": p.jobID, "status": job.Status.String()})
		if result != nil && p.opts.OnComplete != nil {
			p.opts.OnComplete(*result)
		}
		return true, nil
	default:
		err := fmt.Errorf("%w %q for job %s", ErrUnexpectedStatus, job.Status, p.jobID)
		p.mu.Lock()
		p.state.Err = err
		p.mu.Unlock()
		telemetry.Error("poll.unexpected_status", map[string]any{"job_id": p.jobID, "status": job.Status.String()})
		if p.opts.OnError != nil {
			p.opts.OnError(err)
		}
		return true, err
	}
}

func (p *Poller) markDone() {
	p.mu.Lock()
	p.state.Done = true
	p.mu.Unlock()
}

func (p *Poller) delay(failures int) time.Duration {
	if failures == 0 || p.opts.Backoff <= 1 {
		return p.opts.Interval
	}
	d := float64(p.opts.Interval) * math.Pow(p.opts.Backoff, float64(failures))
	if d > float64(p.opts.MaxInterval) {
		return p.opts.MaxInterval
	}
	return time.Duration(d)
}
