package sim

import (
	"math"
	"testing"
)

func TestCalculatePercentile_EmptyInput_ReturnsZero(t *testing.T) {
	// GIVEN empty float64 slice
	// WHEN CalculatePercentile is called
	result := CalculatePercentile([]float64{}, 99)
	// THEN it returns 0 (not panic)
	if result != 0.0 {
		t.Errorf("expected 0.0 for empty input, got %f", result)
	}
}

func TestCalculatePercentile_SingleElement(t *testing.T) {
	for _, p := range []float64{0, 50, 95, 100} {
		if got := CalculatePercentile([]float64{42}, p); got != 42 {
			t.Errorf("p%v of [42] = %v, want 42", p, got)
		}
	}
}

func TestCalculatePercentile_Interpolates(t *testing.T) {
	data := []float64{40, 10, 30, 20} // unsorted on purpose
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{50, 25},
		{100, 40},
		{95, 38.5},
	}
	for _, tt := range tests {
		if got := CalculatePercentile(data, tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("p%v = %v, want %v", tt.p, got, tt.want)
		}
	}
	if data[0] != 40 {
		t.Error("CalculatePercentile must not reorder its input")
	}
}

func TestCalculateMean(t *testing.T) {
	if got := CalculateMean(nil); got != 0 {
		t.Errorf("mean of nil = %v, want 0", got)
	}
	if got := CalculateMean([]float64{1, 2, 3, 6}); got != 3 {
		t.Errorf("mean = %v, want 3", got)
	}
}
