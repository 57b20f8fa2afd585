package valuation

import (
	"math"
	"testing"
)

func TestNew(t *testing.T) {
	v, err := New(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Horizon() != 10 {
		t.Fatalf("expected horizon 10, got %d", v.Horizon())
	}

	for _, horizon := range []int{0, -1} {
		if _, err := New(horizon); err == nil {
			t.Errorf("New(%d) should fail", horizon)
		}
	}
}

func TestStep(t *testing.T) {
	v, _ := New(3)

	tests := []struct {
		t        int
		rate     float64
		nextT    int
		expected float64
	}{
		{0, 0.1, 1, math.Exp(0.1 * 2)},
		{1, 0.2, 2, math.Exp(0.2 * 1)},
		{2, 0.3, 3, 1.0}, // final step: remaining horizon is zero
		{0, 0.0, 1, 1.0},
		{0, -0.5, 1, math.Exp(-0.5 * 2)},
	}

	for _, tt := range tests {
		nextT, value := v.Step(tt.t, tt.rate)
		if nextT != tt.nextT {
			t.Errorf("Step(%d, %f) next counter = %d, expected %d", tt.t, tt.rate, nextT, tt.nextT)
		}
		if value != tt.expected {
			t.Errorf("Step(%d, %f) = %v, expected %v", tt.t, tt.rate, value, tt.expected)
		}
	}
}

func TestScanLengthInvariance(t *testing.T) {
	v, _ := New(100)

	for _, length := range []int{0, 1, 5, 100} {
		path := make([]float64, length)
		out := v.Scan(path)
		if len(out) != length {
			t.Errorf("Scan of length %d produced %d values", length, len(out))
		}
	}
}

func TestScanCounterReachesHorizon(t *testing.T) {
	v, _ := New(5)

	// Thread Step manually and confirm the counter lands exactly on the
	// horizon after one call per observation.
	path := []float64{0.01, 0.02, 0.03, 0.04, 0.05}
	counter := 0
	for _, rate := range path {
		counter, _ = v.Step(counter, rate)
	}
	if counter != v.Horizon() {
		t.Fatalf("counter after full scan = %d, expected %d", counter, v.Horizon())
	}
}

func TestScanConcreteScenario(t *testing.T) {
	v, _ := New(3)

	out := v.Scan([]float64{0.1, 0.2, 0.3})
	expected := []float64{math.Exp(0.2), math.Exp(0.2), 1.0}

	if len(out) != len(expected) {
		t.Fatalf("expected %d values, got %d", len(expected), len(out))
	}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("out[%d] = %v, expected %v", i, out[i], expected[i])
		}
	}
}

func TestScanFinalStepIdentity(t *testing.T) {
	v, _ := New(7)

	path := []float64{1.5, -0.3, 0.7, 0.0, 2.1, -1.0, 123.4}
	out := v.Scan(path)
	if out[len(out)-1] != 1.0 {
		t.Fatalf("final value = %v, expected exactly 1.0", out[len(out)-1])
	}
}

func TestScanPropagatesNonFinite(t *testing.T) {
	v, _ := New(3)

	out := v.Scan([]float64{math.NaN(), math.Inf(1), 0.1})
	if !math.IsNaN(out[0]) {
		t.Errorf("NaN rate should produce NaN value, got %v", out[0])
	}
	if !math.IsInf(out[1], 1) {
		t.Errorf("+Inf rate should produce +Inf value, got %v", out[1])
	}
}

func TestEvaluateAllMatchesScan(t *testing.T) {
	v, _ := New(4)

	batch := [][]float64{
		{0.1, 0.2, 0.3, 0.4},
		{-0.1, 0.0, 0.1, 0.2},
		{1.0, 1.0, 1.0, 1.0},
	}

	out, err := v.EvaluateAll(batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(batch) {
		t.Fatalf("expected %d rows, got %d", len(batch), len(out))
	}

	for i, path := range batch {
		expected := v.Scan(path)
		for j := range expected {
			if out[i][j] != expected[j] {
				t.Errorf("row %d: out[%d] = %v, scan gives %v", i, j, out[i][j], expected[j])
			}
		}
	}
}

func TestEvaluateAllParallelEquivalence(t *testing.T) {
	horizon := 16
	batch := make([][]float64, 50)
	for i := range batch {
		batch[i] = make([]float64, horizon)
		for j := range batch[i] {
			batch[i][j] = float64(i)*0.01 - float64(j)*0.003
		}
	}

	sequential, _ := New(horizon)
	seqOut, err := sequential.EvaluateAll(batch)
	if err != nil {
		t.Fatalf("sequential evaluation failed: %v", err)
	}

	for _, workers := range []int{2, 4, 8, 64} {
		parallel, _ := New(horizon)
		parOut, err := parallel.WithWorkers(workers).EvaluateAll(batch)
		if err != nil {
			t.Fatalf("parallel evaluation (workers=%d) failed: %v", workers, err)
		}
		for i := range seqOut {
			for j := range seqOut[i] {
				if parOut[i][j] != seqOut[i][j] {
					t.Fatalf("workers=%d row %d col %d: %v != %v", workers, i, j, parOut[i][j], seqOut[i][j])
				}
			}
		}
	}
}

func TestEvaluateAllDeterminism(t *testing.T) {
	v, _ := New(8)
	v.WithWorkers(4)

	batch := [][]float64{
		{0.01, 0.02, 0.03, 0.04, 0.05, 0.06, 0.07, 0.08},
		{-0.01, -0.02, -0.03, -0.04, -0.05, -0.06, -0.07, -0.08},
	}

	first, err := v.EvaluateAll(batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for run := 0; run < 10; run++ {
		again, err := v.EvaluateAll(batch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := range first {
			for j := range first[i] {
				if again[i][j] != first[i][j] {
					t.Fatalf("run %d row %d col %d differs: %v != %v", run, i, j, again[i][j], first[i][j])
				}
			}
		}
	}
}

func TestEvaluateAllShapeMismatch(t *testing.T) {
	v, _ := New(3)

	batch := [][]float64{
		{0.1, 0.2, 0.3},
		{0.1, 0.2}, // short row
	}
	if _, err := v.EvaluateAll(batch); err == nil {
		t.Fatalf("expected shape mismatch error")
	}

	// The check must run before any row is computed: a bad final row
	// still fails the whole batch.
	batch = [][]float64{
		{0.1, 0.2, 0.3},
		{0.1, 0.2, 0.3, 0.4},
	}
	if _, err := v.EvaluateAll(batch); err == nil {
		t.Fatalf("expected shape mismatch error for long row")
	}
}

func TestEvaluateAllEmptyBatch(t *testing.T) {
	v, _ := New(3)
	out, err := v.EvaluateAll(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d rows", len(out))
	}
}
