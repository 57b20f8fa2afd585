package vald

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ratewalk/valuation-core/internal/metrics"
	"github.com/ratewalk/valuation-core/internal/pathgen"
	"github.com/ratewalk/valuation-core/internal/store"
	"github.com/ratewalk/valuation-core/internal/valuation"
	"github.com/ratewalk/valuation-core/pkg/logger"
	"github.com/ratewalk/valuation-core/pkg/models"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunTerminal  = errors.New("run is terminal")
	ErrRunIDMissing = errors.New("run_id is required")
)

// RunExecutor manages asynchronous run execution and per-run cancellation.
type RunExecutor struct {
	store     *RunStore
	defaults  *Defaults
	collector *metrics.Collector
	archive   *store.Store // nil when persistence is disabled
	notifier  *Notifier

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewRunExecutor creates an executor over the given store and defaults.
func NewRunExecutor(runs *RunStore, defaults *Defaults, collector *metrics.Collector, archive *store.Store) *RunExecutor {
	return &RunExecutor{
		store:     runs,
		defaults:  defaults,
		collector: collector,
		archive:   archive,
		notifier:  NewNotifier(),
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Start begins executing a run asynchronously.
// Returns the updated run state (running) or an error.
func (e *RunExecutor) Start(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	rec, ok := e.store.Get(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	switch {
	case rec.Run.Status == models.RunStatusRunning:
		return rec, nil
	case rec.Run.Status.Terminal():
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusRunning, "")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if old, exists := e.cancels[runID]; exists {
		old()
	}
	e.cancels[runID] = cancel
	e.mu.Unlock()

	go e.runValuation(ctx, runID)
	return updated, nil
}

// Stop requests cancellation for a running run and marks it cancelled.
func (e *RunExecutor) Stop(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()

	if ok {
		cancel()
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusCancelled, "")
	if err != nil {
		if _, exists := e.store.Get(runID); !exists {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	return updated, nil
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	e.mu.Unlock()
}

// resolvePaths produces the scenario batch for a run: explicit paths
// take priority, then the input's generator spec, then the configured
// default generator.
func (e *RunExecutor) resolvePaths(input *models.RunInput, defaults DefaultsSnapshot, horizon int) ([][]float64, error) {
	if len(input.Paths) > 0 {
		return input.Paths, nil
	}
	spec := input.Generator
	if spec == nil {
		spec = defaults.Generator
	}
	if spec == nil {
		return nil, fmt.Errorf("run input requires paths or a generator spec")
	}
	return pathgen.NewGenerator(spec.Seed).Paths(spec, horizon)
}

func (e *RunExecutor) runValuation(ctx context.Context, runID string) {
	defer e.cleanup(runID)

	rec, ok := e.store.Get(runID)
	if !ok {
		logger.Error("run not found", "run_id", runID)
		return
	}
	input := rec.Input
	defaults := e.defaults.Snapshot()

	horizon := input.Horizon
	if horizon <= 0 {
		horizon = defaults.Horizon
	}
	workers := input.Workers
	if workers <= 0 {
		workers = defaults.Workers
	}

	paths, err := e.resolvePaths(input, defaults, horizon)
	if err != nil {
		e.fail(runID, fmt.Sprintf("invalid input: %v", err))
		return
	}

	valuator, err := valuation.New(horizon)
	if err != nil {
		e.fail(runID, fmt.Sprintf("invalid horizon: %v", err))
		return
	}
	valuator.WithWorkers(workers)

	started := time.Now()
	values, err := valuator.EvaluateAll(paths)
	if err != nil {
		e.fail(runID, err.Error())
		return
	}
	duration := time.Since(started)

	if ctx.Err() != nil {
		// Stop already marked the run cancelled; discard the output.
		e.finish(runID, models.RunStatusCancelled, len(paths), duration)
		return
	}

	result := &models.RunResult{
		Values:     values,
		Stats:      metrics.Summarize(values),
		DurationMs: duration.Milliseconds(),
	}
	if err := e.store.SetResult(runID, result); err != nil {
		logger.Error("failed to store result", "run_id", runID, "error", err)
		return
	}
	if _, err := e.store.SetStatus(runID, models.RunStatusCompleted, ""); err != nil {
		// Lost the race against Stop; keep the cancelled status.
		logger.Warn("run finished after cancellation", "run_id", runID)
		e.finish(runID, models.RunStatusCancelled, len(paths), duration)
		return
	}

	logger.Info("run completed", "run_id", runID,
		"scenarios", result.Stats.Scenarios,
		"timesteps", result.Stats.Timesteps,
		"duration_ms", result.DurationMs)
	e.finish(runID, models.RunStatusCompleted, len(paths), duration)
}

// fail marks a run failed unless it was already cancelled.
func (e *RunExecutor) fail(runID, msg string) {
	logger.Error("run failed", "run_id", runID, "error", msg)
	if _, err := e.store.SetStatus(runID, models.RunStatusFailed, msg); err != nil {
		logger.Warn("failed run already terminal", "run_id", runID, "error", err)
	}
	e.finish(runID, models.RunStatusFailed, 0, 0)
}

// finish records metrics, archives the run and fires the callback.
func (e *RunExecutor) finish(runID string, status models.RunStatus, scenarios int, duration time.Duration) {
	if e.collector != nil {
		e.collector.RunFinished(string(status), scenarios, duration.Seconds())
	}

	rec, ok := e.store.Get(runID)
	if !ok {
		return
	}

	if e.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.archive.ArchiveRun(ctx, rec.Run, rec.Input, rec.Result); err != nil {
			logger.Error("failed to archive run", "run_id", runID, "error", err)
		}
	}

	if rec.Input != nil && rec.Input.CallbackURL != "" {
		e.notifier.Notify(rec.Input.CallbackURL, rec)
	}
}
