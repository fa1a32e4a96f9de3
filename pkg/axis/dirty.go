// ABOUTME: Change detection for outgoing axis values
// ABOUTME: Suppresses deltas too small to be visible at the transport's precision
package axis

import "math"

// IsDirty reports whether value differs enough from last to be worth sending.
// A change between finite and non-finite always counts; an unchanged value
// never does, whatever the epsilon.
func IsDirty(value, last, epsilon float64) bool {
	valueFinite := !math.IsNaN(value) && !math.IsInf(value, 0)
	lastFinite := !math.IsNaN(last) && !math.IsInf(last, 0)

	if valueFinite != lastFinite {
		return true
	}
	if !valueFinite {
		return false
	}
	delta := math.Abs(value - last)
	return delta > 0 && delta >= epsilon
}

// DefaultEpsilon is the smallest step representable with precision decimal
// digits, 1/(10^precision - 1)
func DefaultEpsilon(precision int) float64 {
	if precision < 1 {
		precision = 1
	}
	return 1 / (math.Pow(10, float64(precision)) - 1)
}

// Filter tracks the last transmitted value of each axis. Not safe for
// concurrent use; each output loop owns its own Filter.
type Filter struct {
	Epsilon float64
	Enabled bool
	last    map[Axis]float64
}

// NewFilter creates a filter for the given precision
func NewFilter(precision int, enabled bool) *Filter {
	return &Filter{
		Epsilon: DefaultEpsilon(precision),
		Enabled: enabled,
		last:    make(map[Axis]float64),
	}
}

// Check reports whether value should be sent for axis and, if so, records it
// as the last transmitted value
func (f *Filter) Check(a Axis, value float64) bool {
	last, seen := f.last[a]
	if !seen {
		last = math.NaN()
	}

	if f.Enabled && !IsDirty(value, last, f.Epsilon) {
		return false
	}
	if !f.Enabled && math.IsNaN(value) {
		return false
	}

	f.last[a] = value
	return true
}

// Last returns the last transmitted value of an axis, NaN if none
func (f *Filter) Last(a Axis) float64 {
	if v, ok := f.last[a]; ok {
		return v
	}
	return math.NaN()
}

// Reset forgets all transmitted values, so the next Check of every axis is dirty
func (f *Filter) Reset() {
	clear(f.last)
}
