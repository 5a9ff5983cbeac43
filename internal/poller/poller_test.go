package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"video-dashboard/internal/jobs"
)

func completedJob(raw string) jobs.Job {
	return jobs.Job{
		Status:   jobs.StatusCompleted,
		Progress: 1,
		AnalysisResult: &jobs.AnalysisResult{
			JobID:    "job-1",
			Analysis: jobs.Analysis{RawResponse: raw, ModelUsed: "gemini-2.5-flash"},
		},
	}
}

func TestRunStopsAfterCompletionAndFiresOnce(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []step{
		{job: jobs.Job{Status: jobs.StatusPending}},
		{job: jobs.Job{Status: jobs.StatusProcessing, Progress: 0.5}},
		{job: completedJob("R")},
	}}

	var mu sync.Mutex
	var results []jobs.AnalysisResult
	var statuses []jobs.Status
	p := New(fetcher, "job-1", Options{
		Interval:   time.Millisecond,
		OnSnapshot: func(j jobs.Job) { mu.Lock(); statuses = append(statuses, j.Status); mu.Unlock() },
		OnComplete: func(r jobs.AnalysisResult) { mu.Lock(); results = append(results, r); mu.Unlock() },
	})

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if got := fetcher.Calls(); got != 3 {
		t.Fatalf("expected 3 requests, got %d", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(results) != 1 || results[0].Analysis.RawResponse != "R" {
		t.Fatalf("expected exactly one completion carrying R, got %+v", results)
	}
	want := []jobs.Status{jobs.StatusPending, jobs.StatusProcessing, jobs.StatusCompleted}
	if len(statuses) != len(want) {
		t.Fatalf("unexpected snapshots %v", statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("snapshot %d = %s, want %s", i, statuses[i], want[i])
		}
	}
	if st := p.State(); !st.Done || st.Polls != 3 {
		t.Fatalf("unexpected final state %+v", st)
	}
}

func TestRunStopsOnFailedAndCancelled(t *testing.T) {
	for _, status := range []jobs.Status{jobs.StatusFailed, jobs.StatusCancelled} {
		fetcher := &scriptedFetcher{steps: []step{{job: jobs.Job{Status: status, ErrorMessage: "boom"}}}}
		completions := 0
		p := New(fetcher, "job-1", Options{
			Interval:   time.Millisecond,
			OnComplete: func(jobs.AnalysisResult) { completions++ },
		})
		if err := p.Run(context.Background()); err != nil {
			t.Fatalf("%s: Run: %v", status, err)
		}
		time.Sleep(10 * time.Millisecond)
		if fetcher.Calls() != 1 {
			t.Fatalf("%s: expected a single request, got %d", status, fetcher.Calls())
		}
		if completions != 0 {
			t.Fatalf("%s: completion must not fire", status)
		}
	}
}

func TestTransportErrorKeepsSnapshotAndContinues(t *testing.T) {
	netErr := errors.New("connection refused")
	fetcher := &scriptedFetcher{steps: []step{
		{job: jobs.Job{Status: jobs.StatusProcessing, Progress: 0.3}},
		{err: netErr},
		{job: completedJob("done")},
	}}

	var p *Poller
	var seenDuringError State
	p = New(fetcher, "job-1", Options{
		Interval: time.Millisecond,
		OnError:  func(error) { seenDuringError = p.State() },
	})

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seenDuringError.Job == nil || seenDuringError.Job.Status != jobs.StatusProcessing {
		t.Fatalf("expected previous snapshot to survive the error, got %+v", seenDuringError.Job)
	}
	if !errors.Is(seenDuringError.Err, netErr) {
		t.Fatalf("expected error flag alongside snapshot, got %v", seenDuringError.Err)
	}
	final := p.State()
	if final.Err != nil || final.Job.Status != jobs.StatusCompleted {
		t.Fatalf("expected success to clear the error, got %+v", final)
	}
}

func TestCancelDiscardsInFlightResponse(t *testing.T) {
	fetcher := newGatedFetcher(jobs.StatusCompleted)
	snapshots := 0
	p := New(fetcher, "job-1", Options{
		Interval:   time.Millisecond,
		OnSnapshot: func(jobs.Job) { snapshots++ },
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	<-fetcher.started
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if snapshots != 0 {
		t.Fatalf("late response must not be applied, got %d snapshots", snapshots)
	}
	if st := p.State(); st.Job != nil {
		t.Fatalf("expected no snapshot, got %+v", st.Job)
	}
}

func TestAtMostOneRequestInFlight(t *testing.T) {
	fetcher := &scriptedFetcher{
		steps: []step{{job: jobs.Job{Status: jobs.StatusProcessing}}},
		delay: 5 * time.Millisecond,
	}
	p := New(fetcher, "job-1", Options{Interval: time.Microsecond})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	stopSpam := make(chan struct{})
	go func() {
		for {
			select {
			case <-stopSpam:
				return
			default:
				p.Refresh()
			}
		}
	}()
	_ = p.Run(ctx)
	close(stopSpam)

	if maxInFlight := fetcher.maxSeen.Load(); maxInFlight != 1 {
		t.Fatalf("expected at most one in-flight request, saw %d", maxInFlight)
	}
	if fetcher.Calls() < 2 {
		t.Fatalf("expected polling to continue, got %d calls", fetcher.Calls())
	}
}

func TestRefreshTriggersImmediateRequest(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []step{{job: jobs.Job{Status: jobs.StatusPending}}}}
	p := New(fetcher, "job-1", Options{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = p.Run(ctx); close(done) }()

	waitFor(t, func() bool { return p.State().Polls == 1 })
	p.Refresh()
	waitFor(t, func() bool { return fetcher.Calls() == 2 })

	cancel()
	<-done
}

func TestUnknownStatusStopsWithError(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []step{{job: jobs.Job{Status: jobs.StatusUnknown}}}}
	p := New(fetcher, "job-1", Options{Interval: time.Millisecond})
	if err := p.Run(context.Background()); !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}
	if fetcher.Calls() != 1 {
		t.Fatalf("expected one request, got %d", fetcher.Calls())
	}
}

func TestRunTwiceFails(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []step{{job: jobs.Job{Status: jobs.StatusCompleted}}}}
	p := New(fetcher, "job-1", Options{})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := p.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if fetcher.Calls() != 1 {
		t.Fatalf("second Run must not poll, got %d calls", fetcher.Calls())
	}
}

func TestDelayBackoff(t *testing.T) {
	p := New(nil, "job-1", Options{Interval: time.Second, Backoff: 2, MaxInterval: 5 * time.Second})
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := p.delay(tt.failures); got != tt.want {
			t.Fatalf("delay(%d) = %s, want %s", tt.failures, got, tt.want)
		}
	}

	plain := New(nil, "job-1", Options{})
	if got := plain.delay(4); got != DefaultInterval {
		t.Fatalf("expected default interval without backoff, got %s", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
