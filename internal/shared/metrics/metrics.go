package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	pollsTotal          atomic.Uint64
	pollErrorsTotal     atomic.Uint64
	staleResponsesTotal atomic.Uint64
	submissionsTotal    atomic.Uint64
	jobsCompletedTotal  atomic.Uint64
	jobsFailedTotal     atomic.Uint64
	jobsCancelledTotal  atomic.Uint64
	activePollers       atomic.Int64

	pollDuration = newHistogram([]float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000})
)

// IncPolls counts one status request issued by a poller.
func IncPolls() { pollsTotal.Add(1) }

// IncPollErrors counts a status request that failed.
func IncPollErrors() { pollErrorsTotal.Add(1) }

// IncStaleResponses counts a response dropped because its poll was already retired.
func IncStaleResponses() { staleResponsesTotal.Add(1) }

// IncSubmissions counts accepted analysis submissions.
func IncSubmissions() { submissionsTotal.Add(1) }

// IncTerminal counts a job observed reaching a terminal status.
func IncTerminal(status string) {
	switch status {
	case "completed":
		jobsCompletedTotal.Add(1)
	case "failed":
		jobsFailedTotal.Add(1)
	case "cancelled":
		jobsCancelledTotal.Add(1)
	}
}

// PollerStarted and PollerStopped track live pollers.
func PollerStarted() { activePollers.Add(1) }

func PollerStopped() { activePollers.Add(-1) }

// ObservePollDuration records one status request latency.
func ObservePollDuration(d time.Duration) {
	ms := float64(d.Microseconds()) / 1000.0
	if ms < 0 {
		ms = 0
	}
	pollDuration.Observe(ms)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "dashboard_polls_total", "Job status requests issued", pollsTotal.Load())
	writeCounter(&buf, "dashboard_poll_errors_total", "Job status requests that failed", pollErrorsTotal.Load())
	writeCounter(&buf, "dashboard_stale_responses_total", "Status responses discarded after their poll was retired", staleResponsesTotal.Load())
	writeCounter(&buf, "dashboard_submissions_total", "Analysis jobs submitted", submissionsTotal.Load())
	writeCounter(&buf, "dashboard_jobs_completed_total", "Jobs observed completing", jobsCompletedTotal.Load())
	writeCounter(&buf, "dashboard_jobs_failed_total", "Jobs observed failing", jobsFailedTotal.Load())
	writeCounter(&buf, "dashboard_jobs_cancelled_total", "Jobs observed cancelled", jobsCancelledTotal.Load())
	writeGauge(&buf, "dashboard_active_pollers", "Pollers currently running", activePollers.Load())
	writeHistogram(&buf, "dashboard_poll_duration_ms", "Job status request latency in milliseconds", pollDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound holds it; Render accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeGauge(buf *bytes.Buffer, name, help string, value int64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s gauge\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
