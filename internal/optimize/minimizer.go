package optimize

import (
	"github.com/ratewalk/valuation-core/internal/autodiff"
)

// Func is a real-valued function of one real argument.
type Func func(float64) float64

// Gradient is the differentiation capability the minimizer consumes:
// given a scalar objective it returns the objective's derivative as a
// callable of the same signature. How the derivative is obtained
// (forward-mode duals, central differences, a hand-derived formula) is
// the provider's business.
type Gradient func(Func) Func

// Default configuration: the minimizer always runs the full iteration
// budget with a fixed learning rate, so cost is uniform across
// invocations and batches.
const (
	DefaultIterations   = 1000
	DefaultLearningRate = 0.01
)

// ProgressFunc reports the estimate after each iteration.
type ProgressFunc func(iteration int, estimate float64)

// Minimizer runs a fixed number of gradient-descent steps on a scalar
// objective. There is no convergence check: the loop always runs the
// full budget, even when the gradient has already reached zero.
type Minimizer struct {
	iterations   int
	learningRate float64
	gradient     Gradient
	progress     ProgressFunc
}

// NewMinimizer creates a minimizer with the given iteration budget,
// learning rate and gradient provider. Non-positive values fall back to
// the defaults; a nil provider falls back to numeric differentiation.
func NewMinimizer(iterations int, learningRate float64, gradient Gradient) *Minimizer {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if learningRate <= 0 {
		learningRate = DefaultLearningRate
	}
	if gradient == nil {
		gradient = func(f Func) Func { return autodiff.Numeric(f) }
	}
	return &Minimizer{
		iterations:   iterations,
		learningRate: learningRate,
		gradient:     gradient,
	}
}

// WithProgressReporter sets a callback invoked after every iteration.
func (m *Minimizer) WithProgressReporter(fn ProgressFunc) *Minimizer {
	m.progress = fn
	return m
}

// Iterations returns the fixed iteration budget.
func (m *Minimizer) Iterations() int {
	return m.iterations
}

// LearningRate returns the fixed step size.
func (m *Minimizer) LearningRate() float64 {
	return m.learningRate
}

// Minimize runs exactly the configured number of update steps
// x <- x - eta*f'(x) from the initial guess and returns the final
// estimate. The function is total: a divergent or non-differentiable
// objective may yield a non-finite result, which the caller is
// responsible for detecting.
func (m *Minimizer) Minimize(objective Func, initialGuess float64) float64 {
	grad := m.gradient(objective)

	x := initialGuess
	for i := 0; i < m.iterations; i++ {
		x -= m.learningRate * grad(x)
		if m.progress != nil {
			m.progress(i+1, x)
		}
	}
	return x
}
