package autodiff

import "gonum.org/v1/gonum/diff/fd"

// DualFunc is a scalar objective expressed over dual numbers, making it
// differentiable by forward-mode evaluation.
type DualFunc func(Dual) Dual

// Eval lowers a dual objective to a plain scalar function.
func Eval(f DualFunc) func(float64) float64 {
	return func(x float64) float64 {
		return f(Const(x)).Val
	}
}

// Grad returns the exact derivative of a dual objective as a plain
// scalar function.
func Grad(f DualFunc) func(float64) float64 {
	return func(x float64) float64 {
		return f(Var(x)).Deriv
	}
}

// Numeric returns a central-difference approximation of the derivative
// of a black-box scalar function. Used when the objective cannot be
// expressed over duals.
func Numeric(f func(float64) float64) func(float64) float64 {
	return func(x float64) float64 {
		return fd.Derivative(f, x, nil)
	}
}
