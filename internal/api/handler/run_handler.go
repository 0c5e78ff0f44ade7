package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"variation-pipeline/internal/model"
	"variation-pipeline/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner executes a pipeline run
type Runner interface {
	Run(ctx context.Context, runID string) (*model.RunSummary, error)
	RunWithIdentifiers(ctx context.Context, runID string, ids []string) (*model.RunSummary, error)
}

// CreateRunRequest optionally replaces the spreadsheet with an explicit list
type CreateRunRequest struct {
	Identifiers []string `json:"identifiers" example:"P21917,P14416"`
}

// CreateRunResponse is returned when a run is accepted
type CreateRunResponse struct {
	Message   string    `json:"message"`
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse carries an error message
type ErrorResponse struct {
	Error string `json:"error"`
}

// RunHandler serves the run endpoints. Only one run executes at a time since
// all runs share the same artifact folders.
type RunHandler struct {
	ctx    context.Context
	runner Runner
	config interface{}
	logger *zap.Logger

	mu      sync.Mutex
	running string
	wg      sync.WaitGroup
}

// NewRunHandler creates a handler; runs started by it are cancelled with ctx.
// cfg is recorded with each run.
func NewRunHandler(ctx context.Context, runner Runner, cfg interface{}, logger *zap.Logger) *RunHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunHandler{ctx: ctx, runner: runner, config: cfg, logger: logger}
}

// Wait blocks until background runs have finished
func (h *RunHandler) Wait() {
	h.wg.Wait()
}

// CreateRun starts a pipeline run in the background
// @Summary Start a run
// @Description Fetch, flatten and partition variation data. Without a body the configured spreadsheet supplies the identifiers.
// @Tags runs
// @Accept json
// @Produce json
// @Param run body CreateRunRequest false "Identifiers to fetch instead of the spreadsheet"
// @Success 202 {object} CreateRunResponse
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Failure 409 {object} ErrorResponse "A run is already in progress"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /runs [post]
func (h *RunHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	ids := make([]string, 0, len(req.Identifiers))
	for _, id := range req.Identifiers {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if req.Identifiers != nil && len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "identifiers must not be empty")
		return
	}

	runID := uuid.New().String()

	h.mu.Lock()
	if h.running != "" {
		active := h.running
		h.mu.Unlock()
		writeError(w, http.StatusConflict, "run "+active+" is already in progress")
		return
	}
	if err := store.SaveRun(runID, h.config); err != nil {
		h.mu.Unlock()
		h.logger.Error("failed to save run", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save run")
		return
	}
	h.running = runID
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		defer func() {
			h.mu.Lock()
			h.running = ""
			h.mu.Unlock()
		}()

		var err error
		if len(ids) > 0 {
			_, err = h.runner.RunWithIdentifiers(h.ctx, runID, ids)
		} else {
			_, err = h.runner.Run(h.ctx, runID)
		}
		if err != nil {
			h.logger.Error("❌ Run failed", zap.String("run_id", runID), zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, CreateRunResponse{
		Message:   "Run started",
		RunID:     runID,
		Status:    model.RunPending,
		CreatedAt: time.Now().UTC(),
	})
}

// ListRuns lists recorded runs
// @Summary List runs
// @Description Newest first, with per-stage counters
// @Tags runs
// @Produce json
// @Success 200 {array} model.RunSummary
// @Failure 503 {object} ErrorResponse "Run history disabled"
// @Router /runs [get]
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		h.storeError(w, err, "Failed to fetch runs")
		return
	}
	if runs == nil {
		runs = []model.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun returns one run
// @Summary Get run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.RunSummary
// @Failure 404 {object} ErrorResponse "Run not found"
// @Router /runs/{id} [get]
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := pathID(r.URL.Path, "")
	if !ok {
		writeError(w, http.StatusBadRequest, "Run ID is required")
		return
	}
	run, err := store.GetRun(runID)
	if err != nil {
		h.storeError(w, err, "Failed to fetch run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetRunEvents returns the per-item diagnostics of a run
// @Summary Get run events
// @Description Per-identifier and per-file outcomes recorded by each stage
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Param limit query int false "Maximum number of events" default(100)
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse "Run not found"
// @Router /runs/{id}/events [get]
func (h *RunHandler) GetRunEvents(w http.ResponseWriter, r *http.Request) {
	runID, ok := pathID(r.URL.Path, "/events")
	if !ok {
		writeError(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if _, err := store.GetRun(runID); err != nil {
		h.storeError(w, err, "Failed to fetch run")
		return
	}
	events, err := store.GetRunEvents(runID, limit)
	if err != nil {
		h.storeError(w, err, "Failed to fetch events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"events": events,
		"count":  len(events),
		"limit":  limit,
	})
}

// DeleteRun removes a run from the history; artifacts are left alone
// @Summary Delete run
// @Tags runs
// @Param id path string true "Run ID"
// @Success 204
// @Failure 404 {object} ErrorResponse "Run not found"
// @Failure 409 {object} ErrorResponse "Run is in progress"
// @Router /runs/{id} [delete]
func (h *RunHandler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := pathID(r.URL.Path, "")
	if !ok {
		writeError(w, http.StatusBadRequest, "Run ID is required")
		return
	}
	// stage results of the active run still reference its row
	h.mu.Lock()
	active := h.running
	h.mu.Unlock()
	if runID == active {
		writeError(w, http.StatusConflict, "run "+runID+" is in progress")
		return
	}
	if err := store.DeleteRun(runID); err != nil {
		h.storeError(w, err, "Failed to delete run")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RunHandler) storeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "Run not found")
	case errors.Is(err, store.ErrNotOpen):
		writeError(w, http.StatusServiceUnavailable, "Run history is disabled")
	default:
		h.logger.Error(msg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// pathID extracts {id} from /api/v1/runs/{id}<suffix>
func pathID(path, suffix string) (string, bool) {
	const prefix = "/api/v1/runs/"
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	id := path[len(prefix) : len(path)-len(suffix)]
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
