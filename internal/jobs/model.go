package jobs

// Job is one snapshot of a backend analysis job as returned by the status endpoint.
// Snapshots are values; a newer poll produces a new Job rather than mutating one.
type Job struct {
	ID             string          `json:"job_id"`
	Status         Status          `json:"status"`
	Progress       float64         `json:"progress"`
	CreatedAt      *Timestamp      `json:"created_at,omitempty"`
	StartedAt      *Timestamp      `json:"started_at,omitempty"`
	CompletedAt    *Timestamp      `json:"completed_at,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	AnalysisResult *AnalysisResult `json:"analysis_result,omitempty"`
}

// ProgressPercent clamps the advisory progress value into [0, 100].
func (j Job) ProgressPercent() float64 {
	p := j.Progress
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p * 100
}

// AnalysisResult is the terminal payload of a completed job.
type AnalysisResult struct {
	JobID     string   `json:"job_id"`
	Timestamp string   `json:"timestamp"`
	Analysis  Analysis `json:"analysis"`
}

// Analysis carries the model output and its metadata.
type Analysis struct {
	AnalysisType       string              `json:"analysis_type"`
	ModelUsed          string              `json:"model_used"`
	FileSize           int64               `json:"file_size"`
	RawResponse        string              `json:"raw_response"`
	StructuredAnalysis *StructuredAnalysis `json:"structured_analysis,omitempty"`
}

// StructuredAnalysis is the backend's own best-effort split of the response.
type StructuredAnalysis struct {
	Sections     map[string]string `json:"sections,omitempty"`
	FullText     string            `json:"full_text"`
	WordCount    int               `json:"word_count"`
	AnalysisType string            `json:"analysis_type"`
}

// Summary is a job row in listings and in the dashboard history.
type Summary struct {
	JobID         string     `json:"job_id"`
	InstagramURL  string     `json:"instagram_url"`
	Status        Status     `json:"status"`
	CreatedAt     *Timestamp `json:"created_at,omitempty"`
	CompletedAt   *Timestamp `json:"completed_at,omitempty"`
	VideoFilename string     `json:"video_filename,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
}

// List is one page of job summaries.
type List struct {
	Jobs    []Summary `json:"jobs"`
	Total   int       `json:"total"`
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
}

// DiskUsage describes one storage area reported by the backend.
type DiskUsage struct {
	Path        string  `json:"path"`
	TotalSize   int64   `json:"total_size"`
	TotalSizeMB float64 `json:"total_size_mb"`
	FileCount   int     `json:"file_count"`
}

// SystemStats aggregates job counts per status and disk usage.
type SystemStats struct {
	TotalJobs      int                  `json:"total_jobs"`
	PendingJobs    int                  `json:"pending_jobs"`
	ProcessingJobs int                  `json:"processing_jobs"`
	CompletedJobs  int                  `json:"completed_jobs"`
	FailedJobs     int                  `json:"failed_jobs"`
	DiskUsage      map[string]DiskUsage `json:"disk_usage"`
}

// Health is the backend liveness payload.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Info is the backend root payload.
type Info struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// SubmitRequest asks the backend to analyze one video.
type SubmitRequest struct {
	InstagramURL string `json:"instagram_url"`
	AnalysisType string `json:"analysis_type"`
}

// SubmitResponse acknowledges a created job.
type SubmitResponse struct {
	JobID   string `json:"job_id"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}
