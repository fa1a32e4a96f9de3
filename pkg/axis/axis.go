// ABOUTME: Motion axis identifiers and live per-axis settings
// ABOUTME: Range and default values are stored atomically for lock-free reads
package axis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync/atomic"
)

// Axis is one independently controlled motion channel, named by its
// two-character code (for example "L0" for stroke, "R0" for twist).
type Axis string

const (
	L0 Axis = "L0" // up/down
	L1 Axis = "L1" // forward/backward
	L2 Axis = "L2" // left/right
	R0 Axis = "R0" // twist
	R1 Axis = "R1" // roll
	R2 Axis = "R2" // pitch
	V0 Axis = "V0" // vibration
	V1 Axis = "V1"
	A0 Axis = "A0" // auxiliary
	A1 Axis = "A1"
	A2 Axis = "A2"
)

// MinimumSeparation is the smallest allowed gap between range minimum and maximum
const MinimumSeparation = 0.01

// All returns the known axes in protocol order
func All() []Axis {
	return []Axis{L0, L1, L2, R0, R1, R2, V0, V1, A0, A1, A2}
}

// Parse validates an axis name
func Parse(s string) (Axis, error) {
	a := Axis(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range All() {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown axis %q", s)
}

// DefaultValue returns the resting value of an axis: centred for linear and
// rotation axes, off for vibration and auxiliary channels
func (a Axis) DefaultValue() float64 {
	switch {
	case strings.HasPrefix(string(a), "V"), strings.HasPrefix(string(a), "A"):
		return 0
	default:
		return 0.5
	}
}

func (a Axis) String() string { return string(a) }

// atomicFloat stores a float64 as its bit pattern
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

// Range is the live output range of an axis. Each field is read and written
// atomically; a reader may observe a new minimum with an old maximum, which
// only affects a single tick.
type Range struct {
	minimum atomicFloat
	maximum atomicFloat
}

// NewRange creates a range, clamping it to a valid configuration
func NewRange(minimum, maximum float64) *Range {
	r := &Range{}
	r.minimum.Store(0)
	r.maximum.Store(1)
	r.Set(minimum, maximum)
	return r
}

// Minimum returns the lower bound
func (r *Range) Minimum() float64 { return r.minimum.Load() }

// Maximum returns the upper bound
func (r *Range) Maximum() float64 { return r.maximum.Load() }

// SetMinimum clamps v to [0, maximum-0.01] and stores it
func (r *Range) SetMinimum(v float64) {
	if math.IsNaN(v) {
		return
	}
	r.minimum.Store(clamp(v, 0, r.Maximum()-MinimumSeparation))
}

// SetMaximum clamps v to [minimum+0.01, 1] and stores it
func (r *Range) SetMaximum(v float64) {
	if math.IsNaN(v) {
		return
	}
	r.maximum.Store(clamp(v, r.Minimum()+MinimumSeparation, 1))
}

// Set replaces both bounds, keeping the minimum separation
func (r *Range) Set(minimum, maximum float64) {
	if math.IsNaN(minimum) || math.IsNaN(maximum) {
		return
	}
	minimum = clamp(minimum, 0, 1-MinimumSeparation)
	maximum = clamp(maximum, minimum+MinimumSeparation, 1)
	r.minimum.Store(minimum)
	r.maximum.Store(maximum)
}

// Lerp maps a normalized value into [minimum, maximum]
func (r *Range) Lerp(raw float64) float64 {
	minimum, maximum := r.Minimum(), r.Maximum()
	return minimum + (maximum-minimum)*raw
}

// Settings is the live state of one axis
type Settings struct {
	Range        *Range
	defaultValue atomicFloat
}

// Default returns the configured resting value
func (s *Settings) Default() float64 { return s.defaultValue.Load() }

// SetDefault stores a new resting value, clamped to [0,1]
func (s *Settings) SetDefault(v float64) {
	if math.IsNaN(v) {
		return
	}
	s.defaultValue.Store(clamp(v, 0, 1))
}

// Table holds the settings of every axis. The set of axes is fixed at
// construction; values inside are safe to change concurrently.
type Table struct {
	settings map[Axis]*Settings
}

// NewTable creates settings for the given axes (all known axes if none)
// with full ranges and per-axis default values
func NewTable(axes ...Axis) *Table {
	if len(axes) == 0 {
		axes = All()
	}

	t := &Table{settings: make(map[Axis]*Settings, len(axes))}
	for _, a := range axes {
		s := &Settings{Range: NewRange(0, 1)}
		s.SetDefault(a.DefaultValue())
		t.settings[a] = s
	}
	return t
}

// Get returns the settings of an axis, nil if the axis is not in the table
func (t *Table) Get(a Axis) *Settings {
	return t.settings[a]
}

// Axes returns the table's axes in protocol order
func (t *Table) Axes() []Axis {
	order := make(map[Axis]int)
	for i, a := range All() {
		order[a] = i
	}

	axes := make([]Axis, 0, len(t.settings))
	for a := range t.settings {
		axes = append(axes, a)
	}
	sort.Slice(axes, func(i, j int) bool { return order[axes[i]] < order[axes[j]] })
	return axes
}

// Default returns the resting value of an axis
func (t *Table) Default(a Axis) float64 {
	if s := t.settings[a]; s != nil {
		return s.Default()
	}
	return a.DefaultValue()
}

// Map converts a normalized value into the axis' live output range.
// Non-finite values pass through unchanged.
func (t *Table) Map(a Axis, raw float64) float64 {
	s := t.settings[a]
	if s == nil || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return raw
	}
	return s.Range.Lerp(clamp(raw, 0, 1))
}

// clamp limits v to [lo, hi]; hi wins if rounding leaves lo above it
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}
