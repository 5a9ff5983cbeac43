package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"video-dashboard/internal/jobs"
	"video-dashboard/internal/shared/telemetry"
)

const (
	DefaultBaseURL = "http://localhost:8000/api"
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 64 << 10
)

// Client talks to the video analysis backend.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient builds a client rooted at baseURL (which should include the /api prefix).
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http or https, got %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// SubmitAnalysis asks the backend to create an analysis job.
func (c *Client) SubmitAnalysis(ctx context.Context, req jobs.SubmitRequest) (jobs.SubmitResponse, error) {
	var out jobs.SubmitResponse
	err := c.do(ctx, "submit analysis", http.MethodPost, "/video/analyze", nil, req, &out)
	return out, err
}

// JobStatus fetches one snapshot of a job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (jobs.Job, error) {
	var out jobs.Job
	err := c.do(ctx, "job status", http.MethodGet, "/video/status/"+url.PathEscape(jobID), nil, nil, &out)
	return out, err
}

// ListJobs returns one page of jobs, optionally filtered by status.
func (c *Client) ListJobs(ctx context.Context, page, perPage int, status string) (jobs.List, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	if s := strings.TrimSpace(status); s != "" {
		q.Set("status", s)
	}
	var out jobs.List
	err := c.do(ctx, "list jobs", http.MethodGet, "/jobs", q, nil, &out)
	return out, err
}

// SystemStats returns job counts and disk usage.
func (c *Client) SystemStats(ctx context.Context) (jobs.SystemStats, error) {
	var out jobs.SystemStats
	err := c.do(ctx, "system stats", http.MethodGet, "/jobs/stats", nil, nil, &out)
	return out, err
}

// CancelJob asks the backend to cancel a running job.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	return c.do(ctx, "cancel job", http.MethodPost, "/jobs/"+url.PathEscape(jobID)+"/cancel", nil, nil, nil)
}

// DeleteJob removes a job and optionally its files.
func (c *Client) DeleteJob(ctx context.Context, jobID string, cleanupFiles bool) error {
	q := url.Values{}
	q.Set("cleanup_files", strconv.FormatBool(cleanupFiles))
	return c.do(ctx, "delete job", http.MethodDelete, "/jobs/"+url.PathEscape(jobID), q, nil, nil)
}

// Health checks backend liveness.
func (c *Client) Health(ctx context.Context) (jobs.Health, error) {
	var out jobs.Health
	err := c.do(ctx, "health", http.MethodGet, "/health", nil, nil, &out)
	return out, err
}

// Info returns the backend root description.
func (c *Client) Info(ctx context.Context) (jobs.Info, error) {
	var out jobs.Info
	err := c.do(ctx, "info", http.MethodGet, "/", nil, nil, &out)
	return out, err
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.endpoint(path, query)
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	telemetry.Debug("backend.request", map[string]any{"method": method, "url": target})
	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.Error("backend.request_failed", map[string]any{"method": method, "url": target, "error": err.Error()})
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	telemetry.Debug("backend.response", map[string]any{
		"method":      method,
		"url":         target,
		"status":      resp.StatusCode,
		"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(op, resp)
		telemetry.Error("backend.response_error", map[string]any{
			"method": method,
			"url":    target,
			"status": resp.StatusCode,
			"detail": apiErr.Detail,
		})
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return &TransportError{Op: op, Err: ctx.Err()}
		}
		return fmt.Errorf("%s: %w: %v", op, ErrDecode, err)
	}
	return nil
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

func decodeAPIError(op string, resp *http.Response) *APIError {
	apiErr := &APIError{Op: op, StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Message = body.Message
	apiErr.Detail = detailText(body.Detail)
	return apiErr
}

// detailText flattens FastAPI's detail, which is a string for HTTPException and a list
// of {loc,msg,type} objects for request validation failures.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return string(raw)
}
