package contrast

import (
	"math"
	"testing"
)

func TestInfoNCE_WorkedExample(t *testing.T) {
	// Every row [1, 0, 0]: loss per row is log(e + 2) - 1.
	logits := [][]float32{
		{1, 0, 0},
		{1, 0, 0},
		{1, 0, 0},
		{1, 0, 0},
	}

	want := math.Log(math.E+2) - 1
	got := InfoNCE(logits)
	if !almostEqual(got, want) {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestInfoNCE_UniformLogits(t *testing.T) {
	// All entries equal: softmax is uniform over 2N-1 classes, so the loss
	// is log(2N-1) regardless of the shared value.
	logits := [][]float32{
		{3, 3, 3, 3, 3},
		{3, 3, 3, 3, 3},
	}

	want := math.Log(5)
	got := InfoNCE(logits)
	if !almostEqual(got, want) {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestInfoNCE_DominantPositive(t *testing.T) {
	// A strongly dominant positive drives the loss toward zero.
	logits := [][]float32{{50, 0, 0}}

	got := InfoNCE(logits)
	if got < 0 || got > 1e-4 {
		t.Errorf("expected near-zero loss, got %f", got)
	}
}

func TestInfoNCE_LargeLogitsStable(t *testing.T) {
	// Without log-sum-exp stabilization exp(1000) overflows to +Inf.
	logits := [][]float32{{1000, 999, 998}}

	got := InfoNCE(logits)
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("loss not finite: %f", got)
	}
}

func TestInfoNCE_EmptyLogits(t *testing.T) {
	if got := InfoNCE(nil); got != 0 {
		t.Errorf("expected 0 for empty logits, got %f", got)
	}
}
