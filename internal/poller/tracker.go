package poller

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"video-dashboard/internal/jobs"
	"video-dashboard/internal/shared/metrics"
	"video-dashboard/internal/shared/telemetry"
)

// Listener receives updates for the job currently being watched. Calls are serialized.
// A Listener may read the Tracker (Current, IsCurrent, Refresh) but must not call Watch or Stop.
type Listener interface {
	Snapshot(sessionID string, job jobs.Job)
	PollError(sessionID, jobID string, err error)
	Completed(sessionID string, result jobs.AnalysisResult)
}

// Session describes the active watch.
type Session struct {
	ID    string
	JobID string
	State State
}

type session struct {
	id     string
	poller *Poller
	cancel context.CancelFunc
	done   chan struct{}
}

// Tracker owns the single "current job" slot. Watching a new job retires the previous
// poller first, and updates from a retired poller are never forwarded.
type Tracker struct {
	base     context.Context
	fetcher  StatusFetcher
	opts     Options
	listener Listener

	// watchMu serializes Watch and Stop so retirement and start happen in order.
	watchMu sync.Mutex
	// deliverMu is held across a listener call so retire cannot clear the slot mid-delivery.
	// mu alone guards current, so readers never wait on a listener.
	deliverMu sync.Mutex
	mu        sync.Mutex
	current   *session
}

// NewTracker builds a tracker whose pollers live at most as long as ctx.
// Callbacks set in opts are ignored; updates go to listener.
func NewTracker(ctx context.Context, fetcher StatusFetcher, opts Options, listener Listener) *Tracker {
	opts.OnSnapshot = nil
	opts.OnError = nil
	opts.OnComplete = nil
	return &Tracker{
		base:     ctx,
		fetcher:  fetcher,
		opts:     opts,
		listener: listener,
	}
}

// Watch retires any active poll and starts polling jobID. It returns the new session id.
func (t *Tracker) Watch(jobID string) string {
	t.watchMu.Lock()
	defer t.watchMu.Unlock()

	t.retire()

	s := &session{id: uuid.NewString(), done: make(chan struct{})}
	opts := t.opts
	opts.OnSnapshot = func(job jobs.Job) {
		t.forward(s, func() { t.listener.Snapshot(s.id, job) })
	}
	opts.OnError = func(err error) {
		t.forward(s, func() { t.listener.PollError(s.id, jobID, err) })
	}
	opts.OnComplete = func(result jobs.AnalysisResult) {
		t.forward(s, func() { t.listener.Completed(s.id, result) })
	}
	s.poller = New(t.fetcher, jobID, opts)

	ctx, cancel := context.WithCancel(t.base)
	s.cancel = cancel

	t.mu.Lock()
	t.current = s
	t.mu.Unlock()

	telemetry.Info("poll.watch", map[string]any{"job_id": jobID, "session_id": s.id})
	go func() {
		defer close(s.done)
		defer cancel()
		err := s.poller.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			telemetry.Warn("poll.stopped", map[string]any{"job_id": jobID, "session_id": s.id, "error": err.Error()})
		}
	}()
	return s.id
}

// Stop retires the active poll, if any, and clears the slot.
func (t *Tracker) Stop() {
	t.watchMu.Lock()
	defer t.watchMu.Unlock()
	t.retire()
}

// Refresh re-queries the current job immediately. It reports false when nothing is polling.
func (t *Tracker) Refresh() bool {
	t.mu.Lock()
	s := t.current
	t.mu.Unlock()
	if s == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
	}
	s.poller.Refresh()
	return true
}

// Current returns the active session, including a finished one that has not been replaced.
func (t *Tracker) Current() (Session, bool) {
	t.mu.Lock()
	s := t.current
	t.mu.Unlock()
	if s == nil {
		return Session{}, false
	}
	return Session{ID: s.id, JobID: s.poller.JobID(), State: s.poller.State()}, true
}

// IsCurrent reports whether sessionID is the active session.
func (t *Tracker) IsCurrent(sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil && t.current.id == sessionID
}

// Wait blocks until the current poll goroutine exits or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	s := t.current
	t.mu.Unlock()
	if s == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retire clears the slot, then cancels and waits for the old poller. Must hold watchMu.
func (t *Tracker) retire() {
	t.deliverMu.Lock()
	t.mu.Lock()
	old := t.current
	t.current = nil
	t.mu.Unlock()
	t.deliverMu.Unlock()
	if old == nil {
		return
	}
	old.cancel()
	<-old.done
	telemetry.Info("poll.retired", map[string]any{"job_id": old.poller.JobID(), "session_id": old.id})
}

func (t *Tracker) forward(s *session, fn func()) {
	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()

	t.mu.Lock()
	live := t.current == s
	t.mu.Unlock()
	if !live {
		metrics.IncStaleResponses()
		return
	}
	fn()
}
