package dashboard

import "errors"

var (
	// ErrNoCurrentJob is returned when an operation needs a watched job and there is none.
	ErrNoCurrentJob = errors.New("no job is being watched")
	// ErrNotCompleted is returned when exporting a job that has no analysis yet.
	ErrNotCompleted = errors.New("analysis is not completed")
	// ErrInvalidExportFormat rejects export formats other than json and txt.
	ErrInvalidExportFormat = errors.New("export format must be json or txt")
	// ErrJobIDRequired is returned when a job id is empty.
	ErrJobIDRequired = errors.New("job_id is required")
	// ErrHubClosed is returned when a live connection arrives after shutdown.
	ErrHubClosed = errors.New("live updates are shut down")
)
