package jobs

import (
	"encoding/json"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"pending", StatusPending},
		{"PROCESSING", StatusProcessing},
		{" completed ", StatusCompleted},
		{"failed", StatusFailed},
		{"cancelled", StatusCancelled},
		{"canceled", StatusCancelled},
		{"queued", StatusUnknown},
		{"", StatusUnknown},
	}
	for _, tt := range tests {
		if got := ParseStatus(tt.raw); got != tt.want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestStatusClassification(t *testing.T) {
	for _, s := range Statuses {
		if s.IsTerminal() == s.IsActive() {
			t.Fatalf("%s must be exactly one of terminal or active", s)
		}
	}
	if StatusUnknown.IsTerminal() || StatusUnknown.IsActive() {
		t.Fatalf("unknown status must be neither terminal nor active")
	}
}

func TestPresentationTableIsExhaustive(t *testing.T) {
	table := PresentationTable()
	if len(table) != len(Statuses)+1 {
		t.Fatalf("expected %d rows, got %d", len(Statuses)+1, len(table))
	}
	seen := map[Status]bool{}
	for _, row := range table {
		if row.Label == "" || row.Icon == "" || row.Color == "" {
			t.Fatalf("incomplete row %+v", row)
		}
		seen[row.Status] = true
	}
	for _, s := range Statuses {
		if !seen[s] {
			t.Fatalf("missing row for %s", s)
		}
	}
	if got := PresentationFor(Status("bogus")); got.Status != StatusUnknown {
		t.Fatalf("expected unknown fallback, got %+v", got)
	}
}

func TestJobDecodesBackendPayload(t *testing.T) {
	payload := `{
		"job_id": "job-1",
		"status": "completed",
		"progress": 1.0,
		"created_at": "2025-03-01T10:00:00.123456",
		"started_at": "2025-03-01T10:00:05+00:00",
		"completed_at": null,
		"error_message": null,
		"analysis_result": {
			"job_id": "job-1",
			"timestamp": "2025-03-01T10:02:00",
			"analysis": {"analysis_type": "comprehensive", "model_used": "gemini-2.5-flash", "file_size": 2048, "raw_response": "text"}
		}
	}`
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if job.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if job.CreatedAt == nil || job.CreatedAt.Year() != 2025 {
		t.Fatalf("expected created_at parsed, got %v", job.CreatedAt)
	}
	if job.CompletedAt != nil {
		t.Fatalf("expected nil completed_at, got %v", job.CompletedAt)
	}
	if job.AnalysisResult == nil || job.AnalysisResult.Analysis.FileSize != 2048 {
		t.Fatalf("expected analysis result, got %+v", job.AnalysisResult)
	}
}

func TestProgressPercentClamps(t *testing.T) {
	if got := (Job{Progress: 1.7}).ProgressPercent(); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
	if got := (Job{Progress: -0.2}).ProgressPercent(); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}
