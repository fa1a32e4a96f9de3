// ABOUTME: Tests for dirty value detection
// ABOUTME: Covers epsilon thresholds, non-finite transitions and the Filter helper
package axis

import (
	"math"
	"testing"
)

func TestIsDirty(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name     string
		value    float64
		last     float64
		epsilon  float64
		expected bool
	}{
		{"below epsilon", 0.501, 0.500, 0.002, false},
		{"above epsilon", 0.503, 0.500, 0.002, true},
		{"identical", 0.42, 0.42, 0.5, false},
		{"identical zero epsilon", 0.42, 0.42, 0, false},
		{"tiny change zero epsilon", 0.42, 0.4200001, 0, true},
		{"became active", 0.3, nan, 0.01, true},
		{"became inactive", nan, 0.3, 0.01, true},
		{"both inactive", nan, nan, 0.01, false},
		{"infinite to finite", 0.3, math.Inf(1), 0.01, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDirty(tt.value, tt.last, tt.epsilon); got != tt.expected {
				t.Errorf("IsDirty(%v, %v, %v) = %v, expected %v",
					tt.value, tt.last, tt.epsilon, got, tt.expected)
			}
		})
	}
}

func TestIsDirtyIdempotence(t *testing.T) {
	for _, v := range []float64{0, 0.001, 0.5, 0.999, 1} {
		for _, eps := range []float64{0, 1e-9, 0.001, 0.1, 1} {
			if IsDirty(v, v, eps) {
				t.Errorf("IsDirty(%v, %v, %v) should be false", v, v, eps)
			}
		}
		if !IsDirty(v, math.NaN(), 0.01) {
			t.Errorf("IsDirty(%v, NaN) should be true", v)
		}
	}
}

func TestDefaultEpsilon(t *testing.T) {
	tests := []struct {
		precision int
		expected  float64
	}{
		{1, 1.0 / 9},
		{2, 1.0 / 99},
		{3, 1.0 / 999},
		{4, 1.0 / 9999},
		{0, 1.0 / 9},
	}

	for _, tt := range tests {
		if got := DefaultEpsilon(tt.precision); math.Abs(got-tt.expected) > 1e-15 {
			t.Errorf("DefaultEpsilon(%d) = %v, expected %v", tt.precision, got, tt.expected)
		}
	}
}

func TestFilterCheck(t *testing.T) {
	f := NewFilter(2, true) // epsilon 1/99

	if !f.Check(L0, 0.5) {
		t.Error("first value should always be dirty")
	}
	if f.Check(L0, 0.505) {
		t.Error("sub-epsilon change should be filtered")
	}
	if f.Last(L0) != 0.5 {
		t.Errorf("filtered value must not replace last, got %v", f.Last(L0))
	}
	if !f.Check(L0, 0.52) {
		t.Error("change above epsilon should pass")
	}
	if !f.Check(R0, 0.52) {
		t.Error("axes are tracked independently")
	}

	f.Reset()
	if !math.IsNaN(f.Last(L0)) {
		t.Error("expected reset to forget last values")
	}
	if !f.Check(L0, 0.52) {
		t.Error("expected value after reset to be dirty")
	}
}

func TestFilterDisabledPassesEverything(t *testing.T) {
	f := NewFilter(2, false)

	for i := 0; i < 3; i++ {
		if !f.Check(L0, 0.5) {
			t.Errorf("disabled filter should pass repeat value #%d", i)
		}
	}
	if f.Check(L0, math.NaN()) {
		t.Error("disabled filter should still drop NaN")
	}
}
