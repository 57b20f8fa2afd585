package autodiff

import "math"

// Dual is a dual number a + bε with ε² = 0. Evaluating a function over
// duals with b = 1 carries the exact derivative alongside the value
// (forward-mode differentiation).
type Dual struct {
	Val   float64
	Deriv float64
}

// Const lifts a constant into a dual with zero derivative.
func Const(x float64) Dual {
	return Dual{Val: x}
}

// Var lifts the differentiation variable: derivative 1.
func Var(x float64) Dual {
	return Dual{Val: x, Deriv: 1}
}

// Add returns d + o.
func (d Dual) Add(o Dual) Dual {
	return Dual{Val: d.Val + o.Val, Deriv: d.Deriv + o.Deriv}
}

// Sub returns d - o.
func (d Dual) Sub(o Dual) Dual {
	return Dual{Val: d.Val - o.Val, Deriv: d.Deriv - o.Deriv}
}

// Mul returns d * o.
func (d Dual) Mul(o Dual) Dual {
	return Dual{
		Val:   d.Val * o.Val,
		Deriv: d.Deriv*o.Val + d.Val*o.Deriv,
	}
}

// Div returns d / o.
func (d Dual) Div(o Dual) Dual {
	return Dual{
		Val:   d.Val / o.Val,
		Deriv: (d.Deriv*o.Val - d.Val*o.Deriv) / (o.Val * o.Val),
	}
}

// Neg returns -d.
func (d Dual) Neg() Dual {
	return Dual{Val: -d.Val, Deriv: -d.Deriv}
}

// Scale returns d multiplied by the constant k.
func (d Dual) Scale(k float64) Dual {
	return Dual{Val: d.Val * k, Deriv: d.Deriv * k}
}

// Exp returns e^d.
func (d Dual) Exp() Dual {
	v := math.Exp(d.Val)
	return Dual{Val: v, Deriv: d.Deriv * v}
}

// Log returns the natural logarithm of d.
func (d Dual) Log() Dual {
	return Dual{Val: math.Log(d.Val), Deriv: d.Deriv / d.Val}
}

// Sqrt returns the square root of d.
func (d Dual) Sqrt() Dual {
	v := math.Sqrt(d.Val)
	return Dual{Val: v, Deriv: d.Deriv / (2 * v)}
}

// Square returns d².
func (d Dual) Square() Dual {
	return d.Mul(d)
}
