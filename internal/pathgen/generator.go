package pathgen

import (
	"fmt"

	"github.com/ratewalk/valuation-core/pkg/config"
	"github.com/ratewalk/valuation-core/pkg/models"
	"github.com/ratewalk/valuation-core/pkg/utils"
)

// Generator synthesizes scenario rate paths from a generator spec.
// A generator built from a non-zero seed is fully deterministic.
type Generator struct {
	rng *utils.RandSource
}

// NewGenerator creates a new path generator seeded with the given seed.
// Seed 0 selects a time-based seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng: utils.NewRandSource(seed),
	}
}

// Paths generates a (scenarios x horizon) batch of rate paths according
// to the spec. Scenarios are generated row by row from a single source,
// so a fixed seed always yields the same batch.
func (g *Generator) Paths(spec *models.GeneratorSpec, horizon int) ([][]float64, error) {
	if err := config.ValidateGenerator(spec); err != nil {
		return nil, err
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}

	batch := make([][]float64, spec.Scenarios)
	for i := range batch {
		switch spec.Model {
		case "constant":
			batch[i] = g.constantPath(spec.Value, horizon)
		case "uniform":
			batch[i] = g.uniformPath(spec.Min, spec.Max, horizon)
		case "normal_walk":
			batch[i] = g.normalWalkPath(spec.Start, spec.Drift, spec.Volatility, horizon)
		}
	}
	return batch, nil
}

// constantPath repeats a single rate across the horizon
func (g *Generator) constantPath(value float64, horizon int) []float64 {
	path := make([]float64, horizon)
	for t := range path {
		path[t] = value
	}
	return path
}

// uniformPath draws each observation independently from [min, max)
func (g *Generator) uniformPath(min, max float64, horizon int) []float64 {
	path := make([]float64, horizon)
	for t := range path {
		path[t] = g.rng.UniformFloat64(min, max)
	}
	return path
}

// normalWalkPath accumulates normally distributed increments from the
// starting rate: r_t = r_{t-1} + N(drift, volatility)
func (g *Generator) normalWalkPath(start, drift, volatility float64, horizon int) []float64 {
	path := make([]float64, horizon)
	rate := start
	for t := range path {
		rate += g.rng.NormFloat64(drift, volatility)
		path[t] = rate
	}
	return path
}
