// ABOUTME: Tests for keyframe timeline search and cursor behaviour
// ABOUTME: Covers sort invariant, boundaries, cursor advance and gaps
package timeline

import (
	"math"
	"math/rand"
	"testing"
)

func TestInsertKeepsSortedWithoutDuplicates(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tl := &Timeline{}

	for i := 0; i < 500; i++ {
		// Coarse positions force plenty of duplicates
		pos := float64(rng.Intn(200)) / 10
		tl.Insert(pos, rng.Float64())
	}

	for i := 1; i < tl.Len(); i++ {
		if tl.At(i-1).Position >= tl.At(i).Position {
			t.Fatalf("timeline not strictly sorted at %d: %v >= %v",
				i, tl.At(i-1).Position, tl.At(i).Position)
		}
	}
}

func TestInsertRejectsDuplicatePosition(t *testing.T) {
	tl := New(Keyframe{1, 0.2})

	if tl.Insert(1, 0.9) {
		t.Error("expected duplicate insert to be rejected")
	}
	if tl.At(0).Value != 0.2 {
		t.Errorf("expected original value 0.2 to survive, got %v", tl.At(0).Value)
	}
	if !tl.Insert(0.5, 0.1) {
		t.Error("expected new position to be inserted")
	}
	if tl.At(0).Position != 0.5 {
		t.Errorf("expected 0.5 first, got %v", tl.At(0).Position)
	}
}

func TestIndexSearchBoundaries(t *testing.T) {
	tl := New(Keyframe{0, 0.5}, Keyframe{1, 1}, Keyframe{2, 0})

	tests := []struct {
		name     string
		position float64
		before   int
		after    int
	}{
		{"before start", -1, 0, 0},
		{"at first", 0, 0, 1},
		{"inside first segment", 0.5, 1, 1},
		{"at middle", 1, 1, 2},
		{"at last", 2, 2, 3},
		{"after end", 5, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tl.IndexBefore(tt.position); got != tt.before {
				t.Errorf("IndexBefore(%v) = %d, expected %d", tt.position, got, tt.before)
			}
			if got := tl.IndexAfter(tt.position); got != tt.after {
				t.Errorf("IndexAfter(%v) = %d, expected %d", tt.position, got, tt.after)
			}
		})
	}
}

func TestAdvanceIndexMatchesFreshSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tl := &Timeline{}
	for i := 0; i < 60; i++ {
		tl.Insert(float64(i)*0.37+rng.Float64()*0.2, rng.Float64())
	}

	algorithms := []Algorithm{Linear, Step, Pchip, Makima}
	cursor := -1
	for pos := -0.5; pos < tl.Duration()+0.5; pos += 0.013 + rng.Float64()*0.05 {
		cursor = tl.AdvanceIndex(cursor, pos)
		fresh := tl.IndexAfter(pos) - 1

		if cursor != fresh {
			t.Fatalf("cursor %d differs from fresh search %d at %v", cursor, fresh, pos)
		}

		for _, alg := range algorithms {
			a := tl.Interpolate(cursor, pos, alg)
			b := tl.Interpolate(fresh, pos, alg)
			if !(a == b || (math.IsNaN(a) && math.IsNaN(b))) {
				t.Fatalf("%v: cursor value %v differs from fresh value %v at %v", alg, a, b, pos)
			}
		}
	}
}

func TestIsGapAndSkipGap(t *testing.T) {
	tl := New(
		Keyframe{0, 0.5},
		Keyframe{1, 0.5},    // flat
		Keyframe{2, 0.5005}, // below epsilon
		Keyframe{3, 0.9},
		Keyframe{4, 0.1},
	)

	if !tl.IsGap(0) {
		t.Error("expected flat segment to be a gap")
	}
	if !tl.IsGap(1) {
		t.Error("expected sub-epsilon segment to be a gap")
	}
	if tl.IsGap(2) {
		t.Error("expected moving segment not to be a gap")
	}
	if tl.IsGap(4) {
		t.Error("expected out-of-range index not to be a gap")
	}

	if got := tl.SkipGap(0); got != 2 {
		t.Errorf("SkipGap(0) = %d, expected 2", got)
	}
	if got := tl.SkipGap(3); got != 3 {
		t.Errorf("SkipGap(3) = %d, expected 3", got)
	}
}

func TestSnapshotDuration(t *testing.T) {
	tl := New(Keyframe{1, 0}, Keyframe{3, 1})

	s := tl.Snapshot(0)
	if !s.Valid() {
		t.Fatal("expected valid snapshot")
	}
	if s.Duration() != 2 {
		t.Errorf("expected duration 2, got %v", s.Duration())
	}

	if d := tl.Snapshot(1).Duration(); !math.IsNaN(d) {
		t.Errorf("expected NaN duration past the end, got %v", d)
	}
	if d := tl.Snapshot(-1).Duration(); !math.IsNaN(d) {
		t.Errorf("expected NaN duration before the start, got %v", d)
	}
	if !tl.Snapshot(0).Equal(tl.Snapshot(0)) {
		t.Error("expected identical snapshots to be equal")
	}
}
