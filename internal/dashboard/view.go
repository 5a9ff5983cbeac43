package dashboard

import (
	"video-dashboard/internal/jobs"
	"video-dashboard/internal/sections"
	"video-dashboard/internal/services/health"
)

// CurrentView is everything the UI needs to render the watched job.
type CurrentView struct {
	JobID           string               `json:"job_id,omitempty"`
	SessionID       string               `json:"session_id,omitempty"`
	Polling         bool                 `json:"polling"`
	Job             *jobs.Job            `json:"job,omitempty"`
	Error           string               `json:"error,omitempty"`
	Presented       jobs.Presentation    `json:"presentation"`
	ProgressPercent float64              `json:"progress_percent"`
	Analysis        *jobs.AnalysisResult `json:"analysis,omitempty"`
	Sections        []sections.Tab       `json:"sections"`
	RawText         string               `json:"raw_text,omitempty"`
	FileSize        string               `json:"file_size,omitempty"`
}

// CompletedPayload is the data of a completed event.
type CompletedPayload struct {
	Result   jobs.AnalysisResult `json:"result"`
	Sections []sections.Tab      `json:"sections"`
}

// Overview is the health and stats shown on the dashboard landing page.
type Overview struct {
	Health     health.Report     `json:"health"`
	Stats      *jobs.SystemStats `json:"stats,omitempty"`
	StatsError string            `json:"stats_error,omitempty"`
}
