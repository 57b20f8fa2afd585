package valuation

import (
	"fmt"
	"math"
	"sync"
)

// Valuator computes per-timestep discounted values for fixed-horizon rate
// paths. Each path is an ordered sequence of per-period rate observations;
// the value emitted at step t is exp(rate * remaining periods), so the
// final step of a full-horizon path always collapses to exp(0) = 1.
type Valuator struct {
	horizon int
	workers int
}

// New creates a Valuator for the given horizon (total number of timesteps).
func New(horizon int) (*Valuator, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	return &Valuator{horizon: horizon, workers: 1}, nil
}

// WithWorkers sets the number of scenarios evaluated concurrently by
// EvaluateAll. Worker count is a throughput knob only: results are
// identical for any value, including 1 (strict sequential).
func (v *Valuator) WithWorkers(n int) *Valuator {
	if n < 1 {
		n = 1
	}
	v.workers = n
	return v
}

// Horizon returns the configured number of timesteps.
func (v *Valuator) Horizon() int {
	return v.horizon
}

// Step computes one timestep of one scenario. It takes the current step
// counter (0-based, before increment) and the rate observed this period,
// and returns the next counter together with the discounted value
// exp(rate * (horizon - (t+1))).
func (v *Valuator) Step(t int, rate float64) (int, float64) {
	remaining := float64(v.horizon - (t + 1))
	return t + 1, math.Exp(rate * remaining)
}

// Scan threads Step across one scenario's rate path, carrying the step
// counter as an explicit accumulator. The output always has the same
// length as the input; non-finite rates produce non-finite values and
// are propagated, not masked.
func (v *Valuator) Scan(path []float64) []float64 {
	out := make([]float64, len(path))
	t := 0
	for i, rate := range path {
		var value float64
		t, value = v.Step(t, rate)
		out[i] = value
	}
	return out
}

// EvaluateAll applies Scan to every row of the batch independently and
// returns a result of identical shape. Every row must have exactly
// horizon observations; a mismatch fails before any row is computed.
//
// Rows share no mutable state, so with workers > 1 they are evaluated on
// a bounded worker pool. Output is bit-identical to sequential execution
// regardless of worker count.
func (v *Valuator) EvaluateAll(batch [][]float64) ([][]float64, error) {
	for i, path := range batch {
		if len(path) != v.horizon {
			return nil, fmt.Errorf("batch row %d has %d observations, horizon is %d", i, len(path), v.horizon)
		}
	}

	out := make([][]float64, len(batch))
	if v.workers <= 1 || len(batch) <= 1 {
		for i, path := range batch {
			out[i] = v.Scan(path)
		}
		return out, nil
	}

	// One task per row, each writing its own pre-sized slot.
	semaphore := make(chan struct{}, v.workers)
	var wg sync.WaitGroup
	for i, path := range batch {
		wg.Add(1)
		go func(idx int, p []float64) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			out[idx] = v.Scan(p)
		}(i, path)
	}
	wg.Wait()

	return out, nil
}
