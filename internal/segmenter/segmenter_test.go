package segmenter

import (
	"testing"

	"github.com/lasagna-io/lsg2/internal/errs"
	"github.com/lasagna-io/lsg2/segment"
)

func TestFixedTiling(t *testing.T) {
	got, err := Fixed(10, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []Range{{0, 2}, {3, 5}, {6, 8}, {9, 9}}
	if len(got) != len(want) {
		t.Fatalf("got %d ranges, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("range %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFixedEmpty(t *testing.T) {
	got, err := Fixed(0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Fixed(0, 5) = %+v, want empty", got)
	}
}

func TestFixedRejectsNonPositiveLength(t *testing.T) {
	_, err := Fixed(10, 0)
	if !errs.Is(err, errs.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestAdaptiveRejectsBadBounds(t *testing.T) {
	_, err := Adaptive([]float64{1, 2, 3}, segment.Mean, 0, 5, 1.0)
	if !errs.Is(err, errs.InvalidInput) {
		t.Fatalf("expected InvalidInput for min_len=0, got %v", err)
	}
	_, err = Adaptive([]float64{1, 2, 3}, segment.Mean, 5, 2, 1.0)
	if !errs.Is(err, errs.InvalidInput) {
		t.Fatalf("expected InvalidInput for max_len < min_len, got %v", err)
	}
}

func TestAdaptiveExtendsWhileFlat(t *testing.T) {
	// A perfectly constant run should extend all the way to maxLen under Mean.
	values := make([]float64, 20)
	for i := range values {
		values[i] = 5
	}
	got, err := Adaptive(values, segment.Mean, 2, 8, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	want := []Range{{0, 7}, {8, 15}, {16, 19}}
	if len(got) != len(want) {
		t.Fatalf("got %d ranges, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("range %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAdaptiveBreaksOnThreshold(t *testing.T) {
	// Large jump after index 2 should stop Mean extension early.
	values := []float64{1, 1, 1, 100, 100, 100}
	got, err := Adaptive(values, segment.Mean, 1, 6, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) < 2 {
		t.Fatalf("expected the jump to force a segment break, got %+v", got)
	}
}
