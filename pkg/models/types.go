package models

// RunStatus represents the status of a valuation run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// ParseRunStatus maps a user-supplied string to a RunStatus. Unknown
// strings map to the empty status (no filter).
func ParseRunStatus(s string) RunStatus {
	switch RunStatus(s) {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return RunStatus(s)
	}
	return ""
}

// Run represents one valuation run
type Run struct {
	ID              string    `json:"id"`
	Status          RunStatus `json:"status"`
	CreatedAtUnixMs int64     `json:"created_at_unix_ms"`
	StartedAtUnixMs int64     `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64     `json:"ended_at_unix_ms,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// GeneratorSpec describes how to synthesize rate paths for a run that
// does not supply them explicitly. Seed 0 means non-deterministic
// (time-based) seeding.
type GeneratorSpec struct {
	Model      string  `json:"model" yaml:"model"` // constant, uniform, normal_walk
	Scenarios  int     `json:"scenarios" yaml:"scenarios"`
	Seed       int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	Value      float64 `json:"value,omitempty" yaml:"value,omitempty"`           // constant
	Min        float64 `json:"min,omitempty" yaml:"min,omitempty"`               // uniform
	Max        float64 `json:"max,omitempty" yaml:"max,omitempty"`               // uniform
	Start      float64 `json:"start,omitempty" yaml:"start,omitempty"`           // normal_walk
	Drift      float64 `json:"drift,omitempty" yaml:"drift,omitempty"`           // normal_walk
	Volatility float64 `json:"volatility,omitempty" yaml:"volatility,omitempty"` // normal_walk
}

// RunInput is the full specification of a valuation run. Either Paths
// or Generator must be set; zero-valued Horizon and Workers fall back
// to the daemon's configured defaults.
type RunInput struct {
	Horizon     int            `json:"horizon,omitempty"`
	Workers     int            `json:"workers,omitempty"`
	Paths       [][]float64    `json:"paths,omitempty"`
	Generator   *GeneratorSpec `json:"generator,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
}

// BatchStats summarizes the output batch of one run. Non-finite values
// are counted but excluded from the moments and percentiles.
type BatchStats struct {
	Scenarios int     `json:"scenarios"`
	Timesteps int     `json:"timesteps"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	P50       float64 `json:"p50"`
	P95       float64 `json:"p95"`
	P99       float64 `json:"p99"`
	NonFinite int     `json:"non_finite,omitempty"`
}

// RunResult holds the computed values and summary for a completed run.
type RunResult struct {
	Values     [][]float64 `json:"values"`
	Stats      *BatchStats `json:"stats,omitempty"`
	DurationMs int64       `json:"duration_ms"`
}
