// ABOUTME: Ordered keyframe sequence for a single motion axis
// ABOUTME: Provides binary search, monotonic cursor advance and gap detection
package timeline

import (
	"math"
	"sort"
)

// GapEpsilon is the position/value delta below which a segment carries no motion
const GapEpsilon = 0.001

// Keyframe is a single (position, value) sample of a motion curve.
// Position is in seconds, Value is normalized to 0..1.
type Keyframe struct {
	Position float64
	Value    float64
}

// Timeline is a sorted sequence of keyframes without duplicate positions.
//
// A Timeline is built with Insert (or New) and then shared read-only. Once handed
// to a provider it must not be mutated; loading a new script replaces the
// whole Timeline.
type Timeline struct {
	keyframes []Keyframe
}

// New builds a timeline from keyframes in any order. Later duplicates of a
// position are dropped.
func New(keyframes ...Keyframe) *Timeline {
	t := &Timeline{keyframes: make([]Keyframe, 0, len(keyframes))}
	for _, kf := range keyframes {
		t.Insert(kf.Position, kf.Value)
	}
	return t
}

// Insert places a keyframe at its sorted position.
// Returns false if a keyframe already exists at exactly that position.
func (t *Timeline) Insert(position, value float64) bool {
	i := t.IndexBefore(position)
	if i < len(t.keyframes) && t.keyframes[i].Position == position {
		return false
	}

	t.keyframes = append(t.keyframes, Keyframe{})
	copy(t.keyframes[i+1:], t.keyframes[i:])
	t.keyframes[i] = Keyframe{Position: position, Value: value}
	return true
}

// Len returns the number of keyframes
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keyframes)
}

// At returns the keyframe at index i
func (t *Timeline) At(i int) Keyframe {
	return t.keyframes[i]
}

// Keyframes returns a copy of the keyframe sequence
func (t *Timeline) Keyframes() []Keyframe {
	out := make([]Keyframe, len(t.keyframes))
	copy(out, t.keyframes)
	return out
}

// Duration returns the position of the last keyframe, or 0 for an empty timeline
func (t *Timeline) Duration() float64 {
	if t.Len() == 0 {
		return 0
	}
	return t.keyframes[len(t.keyframes)-1].Position
}

// IndexBefore returns the first index whose position is >= position.
// Positions before the first keyframe return 0, positions after the last
// return Len().
func (t *Timeline) IndexBefore(position float64) int {
	return sort.Search(len(t.keyframes), func(i int) bool {
		return t.keyframes[i].Position >= position
	})
}

// IndexAfter returns the first index whose position is > position.
// Positions before the first keyframe return 0, positions at or after the
// last return Len(). IndexAfter(p)-1 is the left index of the segment
// containing p.
func (t *Timeline) IndexAfter(position float64) int {
	return sort.Search(len(t.keyframes), func(i int) bool {
		return t.keyframes[i].Position > position
	})
}

// SegmentIndex returns the left index of the segment containing position,
// -1 before the first keyframe
func (t *Timeline) SegmentIndex(position float64) int {
	return t.IndexAfter(position) - 1
}

// AdvanceIndex moves a left segment index forward until it brackets position.
// index must have been valid for an earlier position <= position; -1 starts
// from the beginning. The result always equals SegmentIndex(position).
func (t *Timeline) AdvanceIndex(index int, position float64) int {
	if index < -1 {
		index = -1
	}
	for index+1 < len(t.keyframes) && t.keyframes[index+1].Position <= position {
		index++
	}
	return index
}

// ValidIndex reports whether [index, index+1] is a segment of the timeline
func (t *Timeline) ValidIndex(index int) bool {
	return index >= 0 && index+1 < t.Len()
}

// IsGap reports whether the segment starting at index carries no meaningful motion
func (t *Timeline) IsGap(index int) bool {
	if !t.ValidIndex(index) {
		return false
	}

	from, to := t.keyframes[index], t.keyframes[index+1]
	return math.Abs(to.Position-from.Position) < GapEpsilon ||
		math.Abs(to.Value-from.Value) < GapEpsilon
}

// SkipGap advances index past consecutive gap segments
func (t *Timeline) SkipGap(index int) int {
	for t.IsGap(index) {
		index++
	}
	return index
}

// Snapshot describes the segment starting at index.
// Missing endpoints leave their index at -1.
func (t *Timeline) Snapshot(index int) Snapshot {
	s := Snapshot{IndexFrom: -1, IndexTo: -1}
	if index >= 0 && index < t.Len() {
		s.From = t.keyframes[index]
		s.IndexFrom = index
	}
	if index+1 >= 0 && index+1 < t.Len() {
		s.To = t.keyframes[index+1]
		s.IndexTo = index + 1
	}
	return s
}

// Snapshot is the active bracketing segment of an axis
type Snapshot struct {
	From      Keyframe
	To        Keyframe
	IndexFrom int
	IndexTo   int
}

// EmptySnapshot returns a snapshot with no active segment
func EmptySnapshot() Snapshot {
	return Snapshot{IndexFrom: -1, IndexTo: -1}
}

// Valid reports whether both endpoints are present
func (s Snapshot) Valid() bool {
	return s.IndexFrom >= 0 && s.IndexTo >= 0
}

// Duration returns the segment length in seconds, NaN without an active segment
func (s Snapshot) Duration() float64 {
	if !s.Valid() {
		return math.NaN()
	}
	return s.To.Position - s.From.Position
}

// Equal compares the bracketing indices and keyframes
func (s Snapshot) Equal(o Snapshot) bool {
	return s.IndexFrom == o.IndexFrom && s.IndexTo == o.IndexTo &&
		s.From == o.From && s.To == o.To
}
