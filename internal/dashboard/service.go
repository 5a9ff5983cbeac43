// Package dashboard ties the backend client, the application state, the job
// tracker and the live-update hub into the operations the HTTP API exposes.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"video-dashboard/internal/appstate"
	"video-dashboard/internal/backend"
	"video-dashboard/internal/jobs"
	"video-dashboard/internal/poller"
	"video-dashboard/internal/queue"
	"video-dashboard/internal/sections"
	"video-dashboard/internal/services/health"
	"video-dashboard/internal/shared/metrics"
	"video-dashboard/internal/shared/telemetry"
)

const (
	saveTimeout   = 5 * time.Second
	notifyTimeout = 10 * time.Second
)

// Backend is the part of the backend API the dashboard calls.
type Backend interface {
	poller.StatusFetcher
	SubmitAnalysis(ctx context.Context, req jobs.SubmitRequest) (jobs.SubmitResponse, error)
	ListJobs(ctx context.Context, page, perPage int, status string) (jobs.List, error)
	SystemStats(ctx context.Context) (jobs.SystemStats, error)
	CancelJob(ctx context.Context, jobID string) error
	DeleteJob(ctx context.Context, jobID string, cleanupFiles bool) error
	Health(ctx context.Context) (jobs.Health, error)
}

// Service implements the dashboard operations.
type Service struct {
	backend  Backend
	store    *appstate.Store
	notifier queue.Client
	hub      *Hub
	health   *health.Service
	tracker  *poller.Tracker
	now      func() time.Time

	// watchMu keeps the store's current job and the tracker's session in step.
	watchMu sync.Mutex
	bg      sync.WaitGroup
}

// Deps are the collaborators of a Service. Notifier and Hub are optional.
type Deps struct {
	Backend  Backend
	Store    *appstate.Store
	Notifier queue.Client
	Hub      *Hub
	Poll     poller.Options
}

// NewService builds a Service whose pollers live at most as long as ctx.
func NewService(ctx context.Context, deps Deps) *Service {
	s := &Service{
		backend:  deps.Backend,
		store:    deps.Store,
		notifier: deps.Notifier,
		hub:      deps.Hub,
		health:   health.NewService(deps.Backend),
		now:      time.Now,
	}
	if s.notifier == nil {
		s.notifier = queue.LogClient{}
	}
	s.tracker = poller.NewTracker(ctx, deps.Backend, deps.Poll, s)
	return s
}

// Submit validates the request, creates the job, records it in the history and starts watching it.
// An empty analysis type falls back to the configured default.
func (s *Service) Submit(ctx context.Context, instagramURL, analysisType string) (jobs.SubmitResponse, string, error) {
	if analysisType == "" {
		analysisType = s.store.Settings().DefaultAnalysisType
	}
	req, err := jobs.NewSubmitRequest(instagramURL, analysisType)
	if err != nil {
		return jobs.SubmitResponse{}, "", err
	}

	resp, err := s.backend.SubmitAnalysis(ctx, req)
	if err != nil {
		telemetry.Error("analysis.submit.failed", map[string]any{
			"instagram_url": req.InstagramURL,
			"error":         err.Error(),
		})
		return jobs.SubmitResponse{}, "", err
	}
	metrics.IncSubmissions()

	status := resp.Status
	if status == "" || status == jobs.StatusUnknown {
		status = jobs.StatusPending
	}
	item := jobs.Summary{
		JobID:        resp.JobID,
		InstagramURL: req.InstagramURL,
		Status:       status,
		CreatedAt:    jobs.NewTimestamp(s.now()),
	}
	if err := s.store.AddToHistory(ctx, item); err != nil {
		// The job exists; a lost history save must not hide it from the user.
		telemetry.Warn("history.save.failed", map[string]any{"job_id": resp.JobID, "error": err.Error()})
	}

	sessionID := s.Watch(resp.JobID)
	telemetry.Info("analysis.submitted", map[string]any{
		"job_id":        resp.JobID,
		"analysis_type": req.AnalysisType,
		"session_id":    sessionID,
	})
	return resp, sessionID, nil
}

// Watch makes jobID the current job and starts polling it, retiring any previous poll.
func (s *Service) Watch(jobID string) string {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	// The store must know the new job before the first snapshot can arrive.
	s.store.SetCurrentJob(jobID)
	id := s.tracker.Watch(jobID)
	s.hub.Publish(Event{Type: EventCurrent, SessionID: id, JobID: jobID})
	return id
}

// StopWatching retires the active poll and clears the current job.
func (s *Service) StopWatching() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	jobID := s.store.CurrentJobID()
	s.tracker.Stop()
	s.store.ClearCurrent()
	if jobID != "" {
		s.hub.Publish(Event{Type: EventStopped, JobID: jobID})
	}
}

// Refresh re-queries the current job now. It returns ErrNoCurrentJob when nothing is polling.
func (s *Service) Refresh() error {
	if !s.tracker.Refresh() {
		return ErrNoCurrentJob
	}
	return nil
}

// Current assembles the view of the watched job.
func (s *Service) Current() CurrentView {
	st := s.store.Snapshot()
	view := CurrentView{
		JobID:     st.CurrentJobID,
		Job:       st.CurrentJob,
		Error:     st.CurrentError,
		Analysis:  st.CurrentAnalysis,
		Sections:  []sections.Tab{},
		Presented: jobs.PresentationFor(jobs.StatusUnknown),
	}
	if sess, ok := s.tracker.Current(); ok && sess.JobID == st.CurrentJobID {
		view.SessionID = sess.ID
		view.Polling = !sess.State.Done
	}
	if st.CurrentJob != nil {
		view.Presented = jobs.PresentationFor(st.CurrentJob.Status)
		view.ProgressPercent = st.CurrentJob.ProgressPercent()
	}
	if st.CurrentAnalysis != nil {
		raw := st.CurrentAnalysis.Analysis.RawResponse
		view.RawText = raw
		view.Sections = s.segment(raw).Tabs()
		view.FileSize = jobs.FormatFileSize(st.CurrentAnalysis.Analysis.FileSize)
	}
	return view
}

func (s *Service) segment(raw string) sections.Sections {
	if s.store.Settings().TolerantSections {
		return sections.SegmentTolerant(raw)
	}
	return sections.Segment(raw)
}

// ListJobs proxies the backend job list.
func (s *Service) ListJobs(ctx context.Context, page, perPage int, status string) (jobs.List, error) {
	return s.backend.ListJobs(ctx, page, perPage, status)
}

// CancelJob cancels jobID on the backend and marks it cancelled in the history.
func (s *Service) CancelJob(ctx context.Context, jobID string) error {
	if jobID == "" {
		return ErrJobIDRequired
	}
	if err := s.backend.CancelJob(ctx, jobID); err != nil {
		return err
	}
	cancelled := jobs.StatusCancelled
	if err := s.store.UpdateHistoryItem(ctx, jobID, appstate.HistoryUpdate{Status: &cancelled}); err != nil && !errors.Is(err, appstate.ErrHistoryItemNotFound) {
		telemetry.Warn("history.save.failed", map[string]any{"job_id": jobID, "error": err.Error()})
	}
	if s.store.CurrentJobID() == jobID {
		// Pick up the backend's terminal snapshot without waiting for the next tick.
		s.tracker.Refresh()
	}
	telemetry.Info("job.cancelled", map[string]any{"job_id": jobID})
	return nil
}

// DeleteJob deletes jobID on the backend and forgets it locally.
func (s *Service) DeleteJob(ctx context.Context, jobID string, cleanupFiles bool) error {
	if jobID == "" {
		return ErrJobIDRequired
	}
	if err := s.backend.DeleteJob(ctx, jobID, cleanupFiles); err != nil {
		return err
	}
	if err := s.store.RemoveFromHistory(ctx, jobID); err != nil && !errors.Is(err, appstate.ErrHistoryItemNotFound) {
		telemetry.Warn("history.save.failed", map[string]any{"job_id": jobID, "error": err.Error()})
	}
	if s.store.CurrentJobID() == jobID {
		s.StopWatching()
	}
	telemetry.Info("job.deleted", map[string]any{"job_id": jobID, "cleanup_files": cleanupFiles})
	return nil
}

// Stats fetches system stats and caches them in the state.
func (s *Service) Stats(ctx context.Context) (jobs.SystemStats, error) {
	stats, err := s.backend.SystemStats(ctx)
	if err != nil {
		return jobs.SystemStats{}, err
	}
	s.store.SetSystemStats(stats)
	return stats, nil
}

// Health reports the dashboard's own status and the backend's.
func (s *Service) Health(ctx context.Context) health.Report {
	return s.health.Status(ctx, health.Dashboard{
		Watching: s.store.CurrentJobID(),
		Clients:  s.hubClients(),
	})
}

// Overview fetches health and stats concurrently. A failed stats call is
// reported in the result rather than failing the whole overview.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Health = s.Health(gctx)
		return nil
	})
	g.Go(func() error {
		stats, err := s.Stats(gctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			out.StatsError = backend.ErrorMessage(err)
			return nil
		}
		out.Stats = &stats
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

// Reset stops watching and restores the initial state.
func (s *Service) Reset(ctx context.Context) error {
	s.StopWatching()
	return s.store.Reset(ctx)
}

// Close stops polling and waits for pending notifications.
func (s *Service) Close() {
	s.tracker.Stop()
	s.bg.Wait()
}

func (s *Service) hubClients() int {
	if s.hub == nil {
		return 0
	}
	return s.hub.Clients()
}

// Snapshot implements poller.Listener. It only touches memory; the history save
// and the notification run in the background so a slow preference store never
// holds up the poll.
func (s *Service) Snapshot(sessionID string, job jobs.Job) {
	res := s.store.ApplySnapshot(job)
	if !res.Applied {
		metrics.IncStaleResponses()
		return
	}
	if res.Dirty {
		s.persist(job.ID)
	}
	s.hub.Publish(Event{Type: EventSnapshot, SessionID: sessionID, JobID: job.ID, Data: job})

	if job.Status.IsTerminal() && !res.WasTerminal {
		telemetry.Info("job.finished", map[string]any{
			"job_id":     job.ID,
			"status":     job.Status.String(),
			"session_id": sessionID,
		})
		s.notify(job)
	}
}

func (s *Service) persist(jobID string) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := s.store.Save(ctx); err != nil {
			telemetry.Warn("history.save.failed", map[string]any{"job_id": jobID, "error": err.Error()})
		}
	}()
}

// PollError implements poller.Listener.
func (s *Service) PollError(sessionID, jobID string, err error) {
	if !s.store.ApplyPollError(jobID, backend.ErrorMessage(err)) {
		return
	}
	s.hub.Publish(Event{
		Type:      EventPollError,
		SessionID: sessionID,
		JobID:     jobID,
		Data:      map[string]string{"message": backend.ErrorMessage(err)},
	})
}

// Completed implements poller.Listener.
func (s *Service) Completed(sessionID string, result jobs.AnalysisResult) {
	tabs := s.segment(result.Analysis.RawResponse).Tabs()
	telemetry.Info("analysis.completed", map[string]any{
		"job_id":     result.JobID,
		"session_id": sessionID,
		"sections":   len(tabs),
		"model":      result.Analysis.ModelUsed,
	})
	s.hub.Publish(Event{
		Type:      EventCompleted,
		SessionID: sessionID,
		JobID:     result.JobID,
		Data:      CompletedPayload{Result: result, Sections: tabs},
	})
}

// notify sends the terminal-state notification off the poll path.
func (s *Service) notify(job jobs.Job) {
	if !s.store.Settings().Notifications {
		return
	}
	item, _ := s.store.HistoryItem(job.ID)
	msg := queue.JobFinished(job, item.InstagramURL, s.now())

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Send(ctx, msg); err != nil {
			telemetry.Error("notify.failed", map[string]any{"job_id": job.ID, "error": err.Error()})
		}
	}()
}

var _ poller.Listener = (*Service)(nil)
