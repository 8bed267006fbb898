package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"revdash/internal/api/middleware"
	"revdash/internal/dashboard"
	"revdash/internal/export"
	"revdash/internal/jobs"
)

const dateLayout = "2006-01-02"

// parseRange reads the start/end query parameters. Missing values default
// to the current month to date (UTC).
func parseRange(r *http.Request) (start, end time.Time, err error) {
	now := time.Now().UTC()
	end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	if s := r.URL.Query().Get("start"); s != "" {
		start, err = time.Parse(dateLayout, s)
		if err != nil {
			return start, end, fmt.Errorf("invalid start date %q, want YYYY-MM-DD", s)
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		end, err = time.Parse(dateLayout, s)
		if err != nil {
			return start, end, fmt.Errorf("invalid end date %q, want YYYY-MM-DD", s)
		}
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("end date precedes start date")
	}
	return start, end, nil
}

// DashboardHandler serves the aggregate dashboard, per-product daily series
// and synchronous CSV downloads.
type DashboardHandler struct {
	svc *dashboard.Service
	log zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(svc *dashboard.Service, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, log: log}
}

// refresh runs a load cycle for the request's range and maps load errors to
// HTTP status codes. The boolean reports whether a response was written.
func (h *DashboardHandler) refresh(w http.ResponseWriter, r *http.Request) (*dashboard.Snapshot, bool) {
	start, end, err := parseRange(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	snap, err := h.svc.Refresh(r.Context(), start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Load cycle failed")
		if errors.Is(err, dashboard.ErrSourceUnavailable) {
			middleware.WriteError(w, http.StatusServiceUnavailable, "No transaction source available")
		} else {
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to load dashboard data")
		}
		return nil, false
	}
	return snap, true
}

// Dashboard handles GET /api/dashboard
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.refresh(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, snap)
}

// Daily handles GET /api/products/{name}/daily
func (h *DashboardHandler) Daily(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Product name is required")
		return
	}

	snap, ok := h.refresh(w, r)
	if !ok {
		return
	}

	points := h.svc.Daily(snap, name)
	if points == nil {
		points = []dashboard.DailyPoint{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"product": name,
		"points":  points,
		"count":   len(points),
	})
}

// ExportCSV handles GET /api/export/{document}
func (h *DashboardHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	doc, err := export.ParseDocument(chi.URLParam(r, "document"))
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Unknown export document")
		return
	}

	snap, ok := h.refresh(w, r)
	if !ok {
		return
	}

	data, err := export.Render(doc, snap)
	if err != nil {
		h.log.Error().Err(err).Str("document", string(doc)).Msg("Failed to render export")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to render export")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(doc.Filename())))

	// UTF-8 BOM for Excel
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		h.log.Error().Err(err).Msg("CSV write failed (BOM)")
		return
	}
	if _, err := w.Write(data); err != nil {
		h.log.Error().Err(err).Msg("CSV write failed (body)")
	}
}

// ExportsHandler enqueues asynchronous export jobs.
type ExportsHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewExportsHandler creates a new exports handler.
func NewExportsHandler(publisher jobs.Publisher, log zerolog.Logger) *ExportsHandler {
	return &ExportsHandler{publisher: publisher, log: log}
}

// Create handles POST /api/exports
func (h *ExportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start  string `json:"start"`
		End    string `json:"end"`
		Prefix string `json:"prefix"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Start == "" || req.End == "" {
		middleware.WriteError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	start, err := time.Parse(dateLayout, req.Start)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid start date, want YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, req.End)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid end date, want YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		middleware.WriteError(w, http.StatusBadRequest, "end date precedes start date")
		return
	}

	job := &jobs.ExportJob{
		Start:  start,
		End:    end,
		Prefix: req.Prefix,
	}
	if err := h.publisher.PublishExport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Msg("Export job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, job)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobsList == nil {
		jobsList = []*jobs.ExportJob{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
