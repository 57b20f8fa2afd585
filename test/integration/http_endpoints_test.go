package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ratewalk/valuation-core/internal/metrics"
	"github.com/ratewalk/valuation-core/internal/store"
	"github.com/ratewalk/valuation-core/internal/vald"
	"github.com/ratewalk/valuation-core/pkg/config"
)

type daemon struct {
	runs    *vald.RunStore
	handler http.Handler
}

func newDaemon(t *testing.T, archive *store.Store) *daemon {
	t.Helper()
	gin.SetMode(gin.TestMode)

	runs := vald.NewRunStore()
	defaults := vald.NewDefaults(config.Default())
	collector := metrics.NewCollector()
	executor := vald.NewRunExecutor(runs, defaults, collector, archive)
	server := vald.NewHTTPServer(runs, executor, defaults, collector, archive, nil)
	return &daemon{runs: runs, handler: server.Handler()}
}

func (d *daemon) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	d.handler.ServeHTTP(w, req)
	return w
}

func (d *daemon) waitTerminal(t *testing.T, runID string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, ok := d.runs.Get(runID)
		if ok && rec.Run.Status.Terminal() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish in time", runID)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestRunLifecycleWithArchive(t *testing.T) {
	archive, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer archive.Close()

	d := newDaemon(t, archive)

	w := d.do(t, http.MethodPost, "/v1/runs", map[string]any{
		"run_id": "it-run",
		"input": map[string]any{
			"horizon": 3,
			"workers": 2,
			"paths": [][]float64{
				{0.1, 0.2, 0.3},
				{0.05, 0.05, 0.05},
			},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	d.waitTerminal(t, "it-run")

	w = d.do(t, http.MethodGet, "/v1/runs/it-run/result", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("result status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	result := body["result"].(map[string]any)
	values := result["values"].([]any)
	if len(values) != 2 {
		t.Fatalf("expected 2 scenario rows, got %d", len(values))
	}
	row := values[0].([]any)
	if got := row[0].(float64); math.Abs(got-math.Exp(0.2)) > 1e-12 {
		t.Fatalf("values[0][0] = %v, expected %v", got, math.Exp(0.2))
	}

	// The archive catches the finished run; archiving runs shortly after
	// the status flips, so poll it briefly.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, _, _, err := archive.GetRun(context.Background(), "it-run"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run never reached the archive")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A fresh daemon over the same archive (simulating a restart) serves
	// the run from persistence.
	restarted := newDaemon(t, archive)
	w = restarted.do(t, http.MethodGet, "/v1/runs/it-run", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archived get status = %d, body = %s", w.Code, w.Body.String())
	}
	body = decode(t, w)
	if body["archived"] != true {
		t.Fatalf("expected archived fallback, body = %v", body)
	}
	run := body["run"].(map[string]any)
	if run["status"] != "completed" {
		t.Fatalf("archived run = %v", run)
	}

	w = restarted.do(t, http.MethodGet, "/v1/runs/it-run/result", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archived result status = %d, body = %s", w.Code, w.Body.String())
	}

	w = d.do(t, http.MethodGet, "/v1/archive/runs?status=completed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archive list status = %d", w.Code)
	}
	body = decode(t, w)
	if listed := body["runs"].([]any); len(listed) != 1 {
		t.Fatalf("archive list = %v", listed)
	}
}

func TestMetricsReflectFinishedRuns(t *testing.T) {
	d := newDaemon(t, nil)

	w := d.do(t, http.MethodPost, "/v1/runs", map[string]any{
		"run_id": "it-metrics",
		"input": map[string]any{
			"horizon": 2,
			"paths":   [][]float64{{0.1, 0.2}, {0.3, 0.4}, {0.5, 0.6}},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	d.waitTerminal(t, "it-metrics")

	// Metric counters are bumped in the same finish path that flips the
	// status, but give the goroutine a beat to get there.
	deadline := time.Now().Add(5 * time.Second)
	for {
		w = d.do(t, http.MethodGet, "/metrics", nil)
		if strings.Contains(w.Body.String(), `valuation_runs_total{status="completed"} 1`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics never reflected the run:\n%s", w.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(w.Body.String(), "valuation_scenarios_evaluated_total 3") {
		t.Fatalf("scenario counter missing:\n%s", w.Body.String())
	}
}

func TestMinimizeAndCalibrateRoundTrip(t *testing.T) {
	d := newDaemon(t, nil)

	// Calibrate against the valuation of a known flat rate, then check
	// the one-shot minimizer agrees on a plain quadratic.
	rate := 0.04
	horizon := 5
	targets := make([]float64, horizon)
	for i := range targets {
		targets[i] = math.Exp(rate * float64(horizon-(i+1)))
	}

	w := d.do(t, http.MethodPost, "/v1/calibrate", map[string]any{"targets": targets})
	if w.Code != http.StatusOK {
		t.Fatalf("calibrate status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if got := body["rate"].(float64); math.Abs(got-rate) > 1e-4 {
		t.Fatalf("calibrated rate = %v, expected %v", got, rate)
	}

	w = d.do(t, http.MethodPost, "/v1/minimize", map[string]any{
		"objective":     map[string]any{"type": "quadratic", "center": 1.25},
		"initial_guess": -4.0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("minimize status = %d, body = %s", w.Code, w.Body.String())
	}
	body = decode(t, w)
	if got := body["estimate"].(float64); math.Abs(got-1.25) > 0.1 {
		t.Fatalf("estimate = %v, expected within 0.1 of 1.25", got)
	}
}
