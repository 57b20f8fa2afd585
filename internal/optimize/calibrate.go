package optimize

import (
	"fmt"
	"math"

	"github.com/ratewalk/valuation-core/internal/autodiff"
)

// FlatRateObjective is the mean squared error between the valuation
// series of a single constant rate r over the given horizon,
// value_t = exp(r * (horizon - (t+1))), and an observed target series.
// Expressed over duals so the minimizer gets an exact gradient.
func FlatRateObjective(targets []float64, horizon int) autodiff.DualFunc {
	return func(r autodiff.Dual) autodiff.Dual {
		sum := autodiff.Const(0)
		for t, target := range targets {
			remaining := float64(horizon - (t + 1))
			diff := r.Scale(remaining).Exp().Sub(autodiff.Const(target))
			sum = sum.Add(diff.Square())
		}
		return sum.Scale(1 / float64(len(targets)))
	}
}

// CalibrateFlatRate finds the constant per-period rate whose valuation
// series best fits the observed targets in least squares, using the
// fixed-budget minimizer with the exact forward-mode gradient.
// The target series must cover the full horizon.
func CalibrateFlatRate(targets []float64, horizon int, m *Minimizer, initialGuess float64) (float64, error) {
	if len(targets) == 0 {
		return 0, fmt.Errorf("at least one target value is required")
	}
	if len(targets) != horizon {
		return 0, fmt.Errorf("target series has %d values, horizon is %d", len(targets), horizon)
	}
	for i, target := range targets {
		if math.IsNaN(target) || math.IsInf(target, 0) {
			return 0, fmt.Errorf("target %d is not finite", i)
		}
	}
	if m == nil {
		m = NewMinimizer(DefaultIterations, DefaultLearningRate, nil)
	}

	objective := FlatRateObjective(targets, horizon)
	calibrator := NewMinimizer(m.iterations, m.learningRate, ExactGradient(objective)).
		WithProgressReporter(m.progress)
	return calibrator.Minimize(autodiff.Eval(objective), initialGuess), nil
}
