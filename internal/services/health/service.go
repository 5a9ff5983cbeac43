package health

import (
	"context"
	"time"

	"video-dashboard/internal/backend"
	"video-dashboard/internal/jobs"
)

// Overall statuses.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Checker reports the health of a dependency.
type Checker interface {
	Health(ctx context.Context) (jobs.Health, error)
}

// Dashboard describes this service.
type Dashboard struct {
	Watching string `json:"watching,omitempty"`
	Clients  int    `json:"live_clients"`
}

// Report combines the dashboard and backend health.
type Report struct {
	Status       string       `json:"status"`
	Timestamp    string       `json:"timestamp"`
	Dashboard    Dashboard    `json:"dashboard"`
	Backend      *jobs.Health `json:"backend,omitempty"`
	BackendError string       `json:"backend_error,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	backend Checker
	now     func() time.Time
}

// NewService constructs a new health service.
func NewService(backend Checker) *Service {
	return &Service{backend: backend, now: time.Now}
}

// Status checks the backend and returns the combined report. An unreachable or
// failing backend degrades the report rather than failing it.
func (s *Service) Status(ctx context.Context, dash Dashboard) Report {
	report := Report{
		Status:    StatusHealthy,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Dashboard: dash,
	}
	h, err := s.backend.Health(ctx)
	if err != nil {
		report.Status = StatusDegraded
		report.BackendError = backend.ErrorMessage(err)
		return report
	}
	if h.Status != "" && h.Status != StatusHealthy && h.Status != "ok" {
		report.Status = StatusDegraded
	}
	report.Backend = &h
	return report
}
