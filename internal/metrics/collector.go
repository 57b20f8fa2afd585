package metrics

import (
	"math"
	"sync"

	"github.com/ratewalk/valuation-core/pkg/models"
	"github.com/ratewalk/valuation-core/pkg/utils"
)

// Summarize computes batch statistics over a valuation output batch.
// Non-finite values (from pathological rates) are counted and excluded
// from the moments and percentiles — they are reported, never masked.
func Summarize(values [][]float64) *models.BatchStats {
	stats := &models.BatchStats{
		Scenarios: len(values),
	}
	if len(values) > 0 {
		stats.Timesteps = len(values[0])
	}

	finite := make([]float64, 0, stats.Scenarios*stats.Timesteps)
	for _, row := range values {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				stats.NonFinite++
				continue
			}
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return stats
	}

	stats.Min = finite[0]
	stats.Max = finite[0]
	for _, v := range finite {
		stats.Min = utils.MinFloat64(stats.Min, v)
		stats.Max = utils.MaxFloat64(stats.Max, v)
	}
	stats.Mean = utils.Mean(finite)
	stats.StdDev = utils.StdDev(finite)
	stats.P50 = utils.P50(finite)
	stats.P95 = utils.P95(finite)
	stats.P99 = utils.P99(finite)

	return stats
}

// Collector accumulates process-level counters across valuation runs.
// Safe for concurrent use.
type Collector struct {
	mu sync.RWMutex

	runsTotal          map[string]float64
	scenariosTotal     float64
	runDurationSum     float64 // seconds
	runDurationSamples uint64
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		runsTotal: make(map[string]float64),
	}
}

// RunFinished records one finished run with its terminal status, the
// number of scenarios it evaluated and its wall duration in seconds.
func (c *Collector) RunFinished(status string, scenarios int, seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runsTotal[status]++
	c.scenariosTotal += float64(scenarios)
	c.runDurationSum += seconds
	c.runDurationSamples++
}

// RunsTotal returns the number of finished runs for a status.
func (c *Collector) RunsTotal(status string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runsTotal[status]
}

// ScenariosTotal returns the total number of scenarios evaluated.
func (c *Collector) ScenariosTotal() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scenariosTotal
}

type snapshot struct {
	runsTotal          map[string]float64
	scenariosTotal     float64
	runDurationSum     float64
	runDurationSamples uint64
}

func (c *Collector) snapshot() snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	runs := make(map[string]float64, len(c.runsTotal))
	for k, v := range c.runsTotal {
		runs[k] = v
	}
	return snapshot{
		runsTotal:          runs,
		scenariosTotal:     c.scenariosTotal,
		runDurationSum:     c.runDurationSum,
		runDurationSamples: c.runDurationSamples,
	}
}
