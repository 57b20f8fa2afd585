package vald

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ratewalk/valuation-core/internal/autodiff"
	"github.com/ratewalk/valuation-core/internal/optimize"
	"github.com/ratewalk/valuation-core/internal/valuation"
	"github.com/ratewalk/valuation-core/pkg/logger"
	"github.com/ratewalk/valuation-core/pkg/models"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

func (s *HTTPServer) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *HTTPServer) handleMetrics(c *gin.Context) {
	c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	c.Status(http.StatusOK)
	if err := s.collector.WriteText(c.Writer); err != nil {
		logger.Error("failed to write metrics", "error", err)
	}
}

// handleCreateRun handles POST /v1/runs: create the run and start it.
func (s *HTTPServer) handleCreateRun(c *gin.Context) {
	var req struct {
		RunID string           `json:"run_id,omitempty"`
		Input *models.RunInput `json:"input"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}
	if req.Input == nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "input is required")
		return
	}
	if len(req.Input.Paths) == 0 && req.Input.Generator == nil && s.defaults.Snapshot().Generator == nil {
		writeError(c, http.StatusBadRequest, "INVALID_INPUT", "input requires paths or a generator spec")
		return
	}

	rec, err := s.store.Create(req.RunID, req.Input)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			writeError(c, http.StatusConflict, "RUN_EXISTS", err.Error())
		} else {
			writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		}
		return
	}

	if _, err := s.executor.Start(rec.Run.ID); err != nil {
		writeError(c, http.StatusInternalServerError, "START_FAILED", err.Error())
		return
	}

	logger.Info("run created", "run_id", rec.Run.ID)
	c.JSON(http.StatusCreated, gin.H{"run": rec.Run})
}

// handleListRuns handles GET /v1/runs with pagination and filtering.
func (s *HTTPServer) handleListRuns(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 50)
	if limit > 1000 {
		limit = 1000
	}
	offset := parseIntQuery(c, "offset", 0)
	status := models.ParseRunStatus(c.Query("status"))

	recs := s.store.ListFiltered(limit, offset, status)
	runs := make([]*models.Run, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, rec.Run)
	}

	c.JSON(http.StatusOK, gin.H{
		"runs": runs,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
			"count":  len(runs),
		},
	})
}

// handleGetRun handles GET /v1/runs/:id, falling back to the archive
// for runs evicted from memory (e.g., after a restart).
func (s *HTTPServer) handleGetRun(c *gin.Context) {
	runID := c.Param("id")
	if rec, ok := s.store.Get(runID); ok {
		c.JSON(http.StatusOK, gin.H{"run": rec.Run})
		return
	}

	if s.archive != nil {
		run, _, _, err := s.archive.GetRun(c.Request.Context(), runID)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"run": run, "archived": true})
			return
		}
	}

	writeError(c, http.StatusNotFound, "RUN_NOT_FOUND", "run not found")
}

// handleStopRun handles POST /v1/runs/:id/stop.
func (s *HTTPServer) handleStopRun(c *gin.Context) {
	updated, err := s.executor.Stop(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrRunNotFound):
			writeError(c, http.StatusNotFound, "RUN_NOT_FOUND", err.Error())
		case errors.Is(err, ErrRunIDMissing):
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		case errors.Is(err, ErrRunTerminal):
			writeError(c, http.StatusConflict, "RUN_TERMINAL", err.Error())
		default:
			writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		}
		return
	}

	logger.Info("run cancelled", "run_id", updated.Run.ID)
	c.JSON(http.StatusOK, gin.H{"run": updated.Run})
}

// handleGetResult handles GET /v1/runs/:id/result.
func (s *HTTPServer) handleGetResult(c *gin.Context) {
	runID := c.Param("id")
	rec, ok := s.store.Get(runID)
	if !ok {
		if s.archive != nil {
			run, _, result, err := s.archive.GetRun(c.Request.Context(), runID)
			if err == nil && result != nil {
				c.JSON(http.StatusOK, gin.H{"run": run, "result": result, "archived": true})
				return
			}
		}
		writeError(c, http.StatusNotFound, "RUN_NOT_FOUND", "run not found")
		return
	}
	if rec.Result == nil {
		writeError(c, http.StatusConflict, "RESULT_NOT_READY", "run has no result (status: "+string(rec.Run.Status)+")")
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": rec.Run, "result": rec.Result})
}

// handleGetStats handles GET /v1/runs/:id/stats.
func (s *HTTPServer) handleGetStats(c *gin.Context) {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, "RUN_NOT_FOUND", "run not found")
		return
	}
	if rec.Result == nil || rec.Result.Stats == nil {
		writeError(c, http.StatusConflict, "RESULT_NOT_READY", "run has no stats (status: "+string(rec.Run.Status)+")")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": rec.Result.Stats})
}

// handleListArchive handles GET /v1/archive/runs.
func (s *HTTPServer) handleListArchive(c *gin.Context) {
	if s.archive == nil {
		writeError(c, http.StatusNotFound, "ARCHIVE_DISABLED", "run archive is not configured")
		return
	}

	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)
	status := models.ParseRunStatus(c.Query("status"))

	runs, err := s.archive.ListRuns(c.Request.Context(), limit, offset, status)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// handleMinimize handles POST /v1/minimize: one-shot fixed-budget
// gradient descent on a named objective.
func (s *HTTPServer) handleMinimize(c *gin.Context) {
	var req struct {
		Objective struct {
			Type   string  `json:"type"`
			Center float64 `json:"center"`
			Offset float64 `json:"offset"`
		} `json:"objective"`
		InitialGuess float64 `json:"initial_guess"`
		Iterations   int     `json:"iterations,omitempty"`
		LearningRate float64 `json:"learning_rate,omitempty"`
		Gradient     string  `json:"gradient,omitempty"` // exact (default) or numeric
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	objective, err := optimize.NewObjective(req.Objective.Type, req.Objective.Center, req.Objective.Offset)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_OBJECTIVE", err.Error())
		return
	}

	var gradient optimize.Gradient
	switch req.Gradient {
	case "", "exact":
		gradient = optimize.ExactGradient(objective)
	case "numeric":
		gradient = nil // minimizer falls back to central differences
	default:
		writeError(c, http.StatusBadRequest, "INVALID_GRADIENT", "gradient must be exact or numeric")
		return
	}

	defaults := s.defaults.Snapshot()
	iterations := req.Iterations
	if iterations <= 0 {
		iterations = defaults.Iterations
	}
	learningRate := req.LearningRate
	if learningRate <= 0 {
		learningRate = defaults.LearningRate
	}

	m := optimize.NewMinimizer(iterations, learningRate, gradient)
	estimate := m.Minimize(autodiff.Eval(objective), req.InitialGuess)

	c.JSON(http.StatusOK, gin.H{
		"estimate":        estimate,
		"objective_value": autodiff.Eval(objective)(estimate),
		"iterations":      m.Iterations(),
		"learning_rate":   m.LearningRate(),
		"finite":          !math.IsNaN(estimate) && !math.IsInf(estimate, 0),
	})
}

// handleCalibrate handles POST /v1/calibrate: fit a flat rate to an
// observed value series and return the fitted valuation.
func (s *HTTPServer) handleCalibrate(c *gin.Context) {
	var req struct {
		Targets      []float64 `json:"targets"`
		Horizon      int       `json:"horizon,omitempty"`
		InitialGuess float64   `json:"initial_guess"`
		Iterations   int       `json:"iterations,omitempty"`
		LearningRate float64   `json:"learning_rate,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	horizon := req.Horizon
	if horizon <= 0 {
		horizon = len(req.Targets)
	}

	defaults := s.defaults.Snapshot()
	iterations := req.Iterations
	if iterations <= 0 {
		iterations = defaults.Iterations
	}
	learningRate := req.LearningRate
	if learningRate <= 0 {
		learningRate = defaults.LearningRate
	}

	m := optimize.NewMinimizer(iterations, learningRate, nil)
	rate, err := optimize.CalibrateFlatRate(req.Targets, horizon, m, req.InitialGuess)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_TARGETS", err.Error())
		return
	}

	// Fitted series: valuation of a constant path at the calibrated rate.
	valuator, err := valuation.New(horizon)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_HORIZON", err.Error())
		return
	}
	flat := make([]float64, horizon)
	for i := range flat {
		flat[i] = rate
	}
	fitted := valuator.Scan(flat)

	objective := optimize.FlatRateObjective(req.Targets, horizon)
	c.JSON(http.StatusOK, gin.H{
		"rate":   rate,
		"fitted": fitted,
		"mse":    autodiff.Eval(objective)(rate),
	})
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
