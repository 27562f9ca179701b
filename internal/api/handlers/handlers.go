// Package handlers implements the HTTP API: upload source extracts, trigger
// pipeline runs, poll job state and inspect the loaded tables.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dfarias/escrow-etl/internal/api/middleware"
	"github.com/dfarias/escrow-etl/internal/jobs"
	"github.com/dfarias/escrow-etl/internal/load"
	"github.com/dfarias/escrow-etl/internal/pipeline"
)

// maxUploadBytes bounds one uploaded extract. The largest observed exports
// are a few megabytes; 64 MiB leaves ample headroom.
const maxUploadBytes = 64 << 20

// UploadsHandler receives source files and stores them for later runs.
type UploadsHandler struct {
	uploadDir string
	log       zerolog.Logger
}

func NewUploadsHandler(uploadDir string, log zerolog.Logger) *UploadsHandler {
	return &UploadsHandler{uploadDir: uploadDir, log: log}
}

// Upload handles POST /api/uploads. The request is a multipart form with a
// single "file" field; the response carries the stored path to pass to a
// run request.
func (h *UploadsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." {
		middleware.WriteError(w, http.StatusBadRequest, "Filename is required")
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.log.Error().Err(err).Msg("Failed to create upload directory")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	storedPath := filepath.Join(h.uploadDir, uuid.New().String()+"-"+name)
	dst, err := os.Create(storedPath)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create upload file")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer dst.Close()

	size, err := io.Copy(dst, file)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to write upload file")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	h.log.Info().Str("path", storedPath).Int64("size", size).Msg("Source file uploaded")
	middleware.WriteJSON(w, http.StatusCreated, map[string]any{
		"path":       storedPath,
		"filename":   name,
		"size_bytes": size,
	})
}

// RunsHandler triggers pipeline runs and reports runner state.
type RunsHandler struct {
	publisher jobs.Publisher
	runner    *pipeline.Runner
	log       zerolog.Logger
}

func NewRunsHandler(publisher jobs.Publisher, runner *pipeline.Runner, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{publisher: publisher, runner: runner, log: log}
}

// Enqueue handles POST /api/runs. The run executes asynchronously; poll the
// returned job ID for the outcome.
func (h *RunsHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BalancesPath    string `json:"balances_path"`
		WithdrawalsPath string `json:"withdrawals_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BalancesPath == "" || req.WithdrawalsPath == "" {
		middleware.WriteError(w, http.StatusBadRequest, "balances_path and withdrawals_path are required")
		return
	}

	job := &jobs.RunJob{
		BalancesPath:    req.BalancesPath,
		WithdrawalsPath: req.WithdrawalsPath,
	}
	if err := h.publisher.PublishRun(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue run")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Msg("Run enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// Status handles GET /api/runs/status: the live state of the runner,
// including the current step while a run executes.
func (h *RunsHandler) Status(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.runner.Status())
}

// JobsHandler exposes queued and finished jobs.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// ListJobs handles GET /api/jobs with optional status and limit query
// parameters.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.JobFilter{Status: jobs.JobStatus(r.URL.Query().Get("status"))}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if _, err := fmt.Sscanf(limit, "%d", &filter.Limit); err != nil || filter.Limit < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  list,
		"count": len(list),
	})
}

// GetJob handles GET /api/jobs/{id}. The response embeds the pipeline
// result, including the full run log, once the job finished.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// TablesHandler reports the state of the destination store.
type TablesHandler struct {
	loader load.Loader
	log    zerolog.Logger
}

func NewTablesHandler(loader load.Loader, log zerolog.Logger) *TablesHandler {
	return &TablesHandler{loader: loader, log: log}
}

// Stats handles GET /api/tables: row counts per loaded table.
func (h *TablesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.loader.Stats(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read table stats")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read table stats")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"tables": stats})
}

// Health handles GET /health. It pings the destination store so a green
// health check means runs can actually load.
func (h *TablesHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.loader.Ping(r.Context()); err != nil {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
