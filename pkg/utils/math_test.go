package utils

import (
	"math"
	"testing"
)

func TestMinMaxClamp(t *testing.T) {
	if MinFloat64(1, 2) != 1 || MaxFloat64(1, 2) != 2 {
		t.Error("min/max failed")
	}
	if ClampFloat64(5, 0, 3) != 3 {
		t.Error("clamp above max failed")
	}
	if ClampFloat64(-1, 0, 3) != 0 {
		t.Error("clamp below min failed")
	}
	if ClampFloat64(2, 0, 3) != 2 {
		t.Error("clamp in range failed")
	}
}

func TestMeanVarianceStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	if got := Mean(values); got != 5 {
		t.Errorf("mean = %v, expected 5", got)
	}
	if got := Variance(values); got != 4 {
		t.Errorf("variance = %v, expected 4", got)
	}
	if got := StdDev(values); got != 2 {
		t.Errorf("stddev = %v, expected 2", got)
	}

	if Mean(nil) != 0 || Variance(nil) != 0 {
		t.Error("empty slices should yield 0")
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	if got := P50(values); got != 3 {
		t.Errorf("p50 = %v, expected 3", got)
	}
	if got := Percentile(values, 0); got != 1 {
		t.Errorf("p0 = %v, expected 1", got)
	}
	if got := Percentile(values, 100); got != 5 {
		t.Errorf("p100 = %v, expected 5", got)
	}
	// Interpolated: index 0.95*4 = 3.8 between 4 and 5.
	if got := P95(values); math.Abs(got-4.8) > 1e-12 {
		t.Errorf("p95 = %v, expected 4.8", got)
	}
	if got := Percentile(nil, 50); got != 0 {
		t.Errorf("empty percentile = %v", got)
	}
}

func TestSumAndRound(t *testing.T) {
	if got := Sum([]float64{1.5, 2.5, -1}); got != 3 {
		t.Errorf("sum = %v, expected 3", got)
	}
	if got := Round(3.14159, 2); got != 3.14 {
		t.Errorf("round = %v, expected 3.14", got)
	}
	if got := Round(2.675, 0); got != 3 {
		t.Errorf("round = %v, expected 3", got)
	}
}
