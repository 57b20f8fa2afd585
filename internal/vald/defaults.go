package vald

import (
	"sync"

	"github.com/ratewalk/valuation-core/pkg/config"
	"github.com/ratewalk/valuation-core/pkg/models"
)

// DefaultsSnapshot is one consistent view of the run defaults.
type DefaultsSnapshot struct {
	Horizon      int
	Workers      int
	Iterations   int
	LearningRate float64
	Generator    *models.GeneratorSpec
}

// Defaults holds the hot-reloadable run defaults. The config watcher
// replaces them atomically; in-flight runs keep the snapshot they
// started with.
type Defaults struct {
	mu   sync.RWMutex
	snap DefaultsSnapshot
}

// NewDefaults builds run defaults from a validated config.
func NewDefaults(cfg *config.Config) *Defaults {
	d := &Defaults{}
	d.Update(cfg)
	return d
}

// Update replaces the defaults from a newly loaded config.
func (d *Defaults) Update(cfg *config.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap = DefaultsSnapshot{
		Horizon:      cfg.Valuation.Horizon,
		Workers:      cfg.Valuation.Workers,
		Iterations:   cfg.Minimizer.Iterations,
		LearningRate: cfg.Minimizer.LearningRate,
		Generator:    cfg.Generator,
	}
}

// Snapshot returns the current defaults.
func (d *Defaults) Snapshot() DefaultsSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap
}
