package dashboard

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"video-dashboard/internal/appstate"
	"video-dashboard/internal/backend"
	"video-dashboard/internal/jobs"
	"video-dashboard/internal/shared/server/middleware"
	"video-dashboard/internal/shared/server/respond"
	"video-dashboard/internal/shared/telemetry"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Handler wires HTTP handlers to the dashboard service.
type Handler struct {
	Svc   *Service
	Store *appstate.Store
	Hub   *Hub
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, store *appstate.Store, hub *Hub) *Handler {
	return &Handler{Svc: svc, Store: store, Hub: hub}
}

// RegisterRoutes attaches the dashboard API to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.submit)
	rg.GET("/analyses/:id/export", h.export)

	rg.GET("/current", h.current)
	rg.PUT("/current", h.switchCurrent)
	rg.POST("/current/refresh", h.refresh)
	rg.DELETE("/current", h.stopCurrent)

	rg.GET("/jobs", h.listJobs)
	rg.POST("/jobs/:id/cancel", h.cancelJob)
	rg.DELETE("/jobs/:id", h.deleteJob)

	rg.GET("/stats", h.stats)
	rg.GET("/overview", h.overview)
	rg.GET("/health", h.health)

	rg.GET("/history", h.history)
	rg.DELETE("/history/:id", h.removeHistory)
	rg.DELETE("/history", h.clearHistory)

	rg.GET("/preferences", h.preferences)
	rg.PATCH("/preferences", h.updatePreferences)
	rg.POST("/preferences/reset", h.reset)

	rg.GET("/statuses", h.statuses)
}

// RegisterLive attaches the WebSocket stream.
func (h *Handler) RegisterLive(r gin.IRoutes) {
	r.GET("/ws/current", h.live)
}

type submitRequest struct {
	InstagramURL string `json:"instagram_url"`
	AnalysisType string `json:"analysis_type"`
}

func (h *Handler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	resp, sessionID, err := h.Svc.Submit(c.Request.Context(), req.InstagramURL, req.AnalysisType)
	if err != nil {
		h.fail(c, err, "failed to submit analysis")
		return
	}
	c.Set(middleware.JobIDKey, resp.JobID)
	c.Set(middleware.SessionIDKey, sessionID)

	respond.JSON(c, http.StatusAccepted, gin.H{
		"job_id":     resp.JobID,
		"status":     resp.Status,
		"message":    resp.Message,
		"session_id": sessionID,
	})
}

func (h *Handler) current(c *gin.Context) {
	view := h.Svc.Current()
	c.Set(middleware.JobIDKey, view.JobID)
	respond.OK(c, view)
}

type switchRequest struct {
	JobID string `json:"job_id"`
}

func (h *Handler) switchCurrent(c *gin.Context) {
	var req switchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		h.fail(c, ErrJobIDRequired, "")
		return
	}
	sessionID := h.Svc.Watch(jobID)
	c.Set(middleware.JobIDKey, jobID)
	c.Set(middleware.SessionIDKey, sessionID)
	respond.OK(c, gin.H{"job_id": jobID, "session_id": sessionID})
}

func (h *Handler) refresh(c *gin.Context) {
	if err := h.Svc.Refresh(); err != nil {
		h.fail(c, err, "")
		return
	}
	c.Set(middleware.JobIDKey, h.Store.CurrentJobID())
	respond.JSON(c, http.StatusAccepted, gin.H{"refreshing": true})
}

func (h *Handler) stopCurrent(c *gin.Context) {
	h.Svc.StopWatching()
	c.Status(http.StatusNoContent)
}

func (h *Handler) export(c *gin.Context) {
	jobID := c.Param("id")
	c.Set(middleware.JobIDKey, jobID)

	out, err := h.Svc.Export(c.Request.Context(), jobID, c.Query("format"))
	if err != nil {
		h.fail(c, err, "failed to export analysis")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, out.FileName))
	c.Data(http.StatusOK, out.ContentType, out.Body)
}

func (h *Handler) listJobs(c *gin.Context) {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := queryInt(c, "per_page", defaultPerPage)
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	status := strings.TrimSpace(c.Query("status"))
	if status != "" && jobs.ParseStatus(status) == jobs.StatusUnknown {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid status filter", nil)
		return
	}
	if status != "" {
		status = jobs.ParseStatus(status).String()
	}

	list, err := h.Svc.ListJobs(c.Request.Context(), page, perPage, status)
	if err != nil {
		h.fail(c, err, "failed to list jobs")
		return
	}
	respond.OK(c, list)
}

func (h *Handler) cancelJob(c *gin.Context) {
	jobID := c.Param("id")
	c.Set(middleware.JobIDKey, jobID)
	if err := h.Svc.CancelJob(c.Request.Context(), jobID); err != nil {
		h.fail(c, err, "failed to cancel job")
		return
	}
	respond.OK(c, gin.H{"job_id": jobID, "status": jobs.StatusCancelled})
}

func (h *Handler) deleteJob(c *gin.Context) {
	jobID := c.Param("id")
	c.Set(middleware.JobIDKey, jobID)
	cleanup := true
	if v := c.Query("cleanup_files"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "cleanup_files must be a boolean", nil)
			return
		}
		cleanup = parsed
	}
	if err := h.Svc.DeleteJob(c.Request.Context(), jobID, cleanup); err != nil {
		h.fail(c, err, "failed to delete job")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to fetch stats")
		return
	}
	respond.OK(c, stats)
}

func (h *Handler) overview(c *gin.Context) {
	out, err := h.Svc.Overview(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to build overview")
		return
	}
	respond.OK(c, out)
}

func (h *Handler) health(c *gin.Context) {
	report := h.Svc.Health(c.Request.Context())
	respond.OK(c, report)
}

func (h *Handler) history(c *gin.Context) {
	respond.OK(c, gin.H{"history": h.Store.Preferences().History})
}

func (h *Handler) removeHistory(c *gin.Context) {
	jobID := c.Param("id")
	c.Set(middleware.JobIDKey, jobID)
	if err := h.Store.RemoveFromHistory(c.Request.Context(), jobID); err != nil {
		h.fail(c, err, "failed to update history")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) clearHistory(c *gin.Context) {
	if err := h.Store.ClearHistory(c.Request.Context()); err != nil {
		h.fail(c, err, "failed to update history")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) preferences(c *gin.Context) {
	respond.OK(c, h.Store.Preferences())
}

func (h *Handler) updatePreferences(c *gin.Context) {
	var req appstate.PreferencesPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	prefs, err := h.Store.UpdatePreferences(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "failed to save preferences")
		return
	}
	respond.OK(c, prefs)
}

func (h *Handler) reset(c *gin.Context) {
	if err := h.Svc.Reset(c.Request.Context()); err != nil {
		h.fail(c, err, "failed to reset preferences")
		return
	}
	respond.OK(c, h.Store.Preferences())
}

func (h *Handler) statuses(c *gin.Context) {
	respond.OK(c, gin.H{"statuses": jobs.PresentationTable()})
}

func (h *Handler) live(c *gin.Context) {
	view := h.Svc.Current()
	initial := &Event{Type: EventCurrent, SessionID: view.SessionID, JobID: view.JobID, Data: view}
	if err := h.Hub.Serve(c.Writer, c.Request, initial); err != nil {
		telemetry.Warn("ws.upgrade.failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"error":      err.Error(),
		})
	}
}

// fail maps service errors onto the error envelope.
func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	var apiErr *backend.APIError
	switch {
	case jobs.IsValidation(err):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrJobIDRequired),
		errors.Is(err, ErrInvalidExportFormat),
		errors.Is(err, appstate.ErrInvalidTheme),
		errors.Is(err, appstate.ErrInvalidRefreshInterval):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, appstate.ErrHistoryItemNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrNoCurrentJob):
		respond.Error(c, http.StatusConflict, "no_current_job", err.Error(), nil)
	case errors.Is(err, ErrNotCompleted):
		respond.Error(c, http.StatusConflict, "not_completed", err.Error(), nil)
	case errors.As(err, &apiErr):
		if apiErr.NotFound() {
			respond.Error(c, http.StatusNotFound, "not_found", backend.ErrorMessage(err), nil)
			return
		}
		respond.Error(c, http.StatusBadGateway, "backend_error", backend.ErrorMessage(err), gin.H{"status_code": apiErr.StatusCode})
	case errors.Is(err, backend.ErrTransport):
		respond.Error(c, http.StatusServiceUnavailable, "backend_unavailable", backend.ErrorMessage(err), nil)
	default:
		if fallback == "" {
			fallback = "Unexpected server error"
		}
		telemetry.Error("dashboard.error", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}
