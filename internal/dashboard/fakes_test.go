package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"video-dashboard/internal/appstate"
	"video-dashboard/internal/backend"
	"video-dashboard/internal/jobs"
	"video-dashboard/internal/poller"
	"video-dashboard/internal/queue"
)

const sampleRaw = "**1. Resumo Geral**\nUm vídeo curto.\n\n**2. Análise Visual**\nCores vivas.\n\n**6. Insights e Análise**\nBom engajamento."

type fakeBackend struct {
	mu        sync.Mutex
	scripts   map[string][]jobs.Job
	polls     map[string]int
	submitted []jobs.SubmitRequest
	cancelled []string
	deleted   []string

	submitErr error
	deleteErr error
	statsErr  error
	healthErr error
	stats     jobs.SystemStats
	list      jobs.List
	nextID    string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		scripts: map[string][]jobs.Job{},
		polls:   map[string]int{},
		nextID:  "job-1",
	}
}

func (f *fakeBackend) script(jobID string, snaps ...jobs.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[jobID] = snaps
}

func (f *fakeBackend) JobStatus(_ context.Context, jobID string) (jobs.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snaps := f.scripts[jobID]
	if len(snaps) == 0 {
		return jobs.Job{}, &backend.APIError{Op: "job status", StatusCode: http.StatusNotFound, Detail: "Job not found"}
	}
	i := f.polls[jobID]
	f.polls[jobID] = i + 1
	if i >= len(snaps) {
		i = len(snaps) - 1
	}
	return snaps[i], nil
}

func (f *fakeBackend) Polls(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[jobID]
}

func (f *fakeBackend) SubmitAnalysis(_ context.Context, req jobs.SubmitRequest) (jobs.SubmitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return jobs.SubmitResponse{}, f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return jobs.SubmitResponse{JobID: f.nextID, Status: jobs.StatusPending, Message: "Análise iniciada"}, nil
}

func (f *fakeBackend) ListJobs(_ context.Context, page, perPage int, status string) (jobs.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.list
	out.Page = page
	out.PerPage = perPage
	return out, nil
}

func (f *fakeBackend) SystemStats(context.Context) (jobs.SystemStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, f.statsErr
}

func (f *fakeBackend) CancelJob(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, jobID)
	return nil
}

func (f *fakeBackend) DeleteJob(_ context.Context, jobID string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, jobID)
	return nil
}

func (f *fakeBackend) Health(context.Context) (jobs.Health, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.healthErr != nil {
		return jobs.Health{}, f.healthErr
	}
	return jobs.Health{Status: "healthy", Timestamp: "2026-01-01T00:00:00"}, nil
}

func (f *fakeBackend) Submitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []queue.Message
}

func (r *recordingNotifier) Send(_ context.Context, msg queue.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingNotifier) Messages() []queue.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]queue.Message(nil), r.msgs...)
}

// slowRepo stalls every save, like a preference store under load.
type slowRepo struct {
	*appstate.MemoryRepo
	delay time.Duration
	saves atomic.Int32
}

func (r *slowRepo) Save(ctx context.Context, profile string, prefs appstate.Preferences) error {
	r.saves.Add(1)
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.MemoryRepo.Save(ctx, profile, prefs)
}

type harness struct {
	backend  *fakeBackend
	store    *appstate.Store
	notifier *recordingNotifier
	hub      *Hub
	svc      *Service
	router   *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithRepo(t, appstate.NewMemoryRepo())
}

func newHarnessWithRepo(t *testing.T, repo appstate.PreferencesRepo) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	fb := newFakeBackend()
	store := appstate.NewStore(repo, "test")
	notifier := &recordingNotifier{}
	hub := NewHub([]string{"*"})
	go hub.Run(ctx)

	svc := NewService(ctx, Deps{
		Backend:  fb,
		Store:    store,
		Notifier: notifier,
		Hub:      hub,
		Poll:     poller.Options{Interval: 5 * time.Millisecond},
	})
	t.Cleanup(func() {
		svc.Close()
		cancel()
	})

	h := NewHandler(svc, store, hub)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	h.RegisterLive(r)

	return &harness{backend: fb, store: store, notifier: notifier, hub: hub, svc: svc, router: r}
}

func (h *harness) do(method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func completedJob(id string) jobs.Job {
	return jobs.Job{
		ID:          id,
		Status:      jobs.StatusCompleted,
		Progress:    1,
		CompletedAt: jobs.NewTimestamp(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)),
		AnalysisResult: &jobs.AnalysisResult{
			JobID:     id,
			Timestamp: "2026-02-01T12:00:00",
			Analysis: jobs.Analysis{
				AnalysisType: jobs.AnalysisComprehensive,
				ModelUsed:    "gemini-1.5-pro",
				FileSize:     5 * 1024 * 1024,
				RawResponse:  sampleRaw,
			},
		},
	}
}
