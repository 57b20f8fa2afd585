package optimize

import (
	"fmt"

	"github.com/ratewalk/valuation-core/internal/autodiff"
)

// ObjectiveType identifies a named objective shape.
type ObjectiveType string

const (
	// ObjectiveQuadratic is (x - center)^2 + offset.
	ObjectiveQuadratic ObjectiveType = "quadratic"
	// ObjectiveAbsolute is |x - center| smoothed as sqrt((x-center)^2 + eps).
	ObjectiveAbsolute ObjectiveType = "absolute"
)

// smoothing constant for the absolute objective, keeps it differentiable
// at the center
const absEpsilon = 1e-9

// Quadratic returns (x - center)^2 + offset as a dual objective.
func Quadratic(center, offset float64) autodiff.DualFunc {
	return func(x autodiff.Dual) autodiff.Dual {
		d := x.Sub(autodiff.Const(center))
		return d.Square().Add(autodiff.Const(offset))
	}
}

// Absolute returns a smoothed |x - center| as a dual objective.
func Absolute(center float64) autodiff.DualFunc {
	return func(x autodiff.Dual) autodiff.Dual {
		d := x.Sub(autodiff.Const(center))
		return d.Square().Add(autodiff.Const(absEpsilon)).Sqrt()
	}
}

// NewObjective builds a dual objective from a named type and its
// parameters.
func NewObjective(objType string, center, offset float64) (autodiff.DualFunc, error) {
	switch ObjectiveType(objType) {
	case ObjectiveQuadratic, "":
		return Quadratic(center, offset), nil
	case ObjectiveAbsolute:
		return Absolute(center), nil
	default:
		return nil, &UnknownObjectiveError{ObjectiveType: objType}
	}
}

// ExactGradient adapts a dual objective into a Gradient capability that
// ignores the lowered function and returns the forward-mode derivative.
func ExactGradient(f autodiff.DualFunc) Gradient {
	return func(Func) Func {
		return autodiff.Grad(f)
	}
}

// UnknownObjectiveError indicates an unknown objective type.
type UnknownObjectiveError struct {
	ObjectiveType string
}

func (e *UnknownObjectiveError) Error() string {
	return fmt.Sprintf("unknown objective type: %s", e.ObjectiveType)
}
