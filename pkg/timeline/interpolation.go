// ABOUTME: Interpolation algorithms over timeline segments
// ABOUTME: Implements linear, step, PCHIP and modified Akima evaluation
package timeline

import (
	"fmt"
	"math"
	"strings"
)

// Algorithm selects how values are computed between keyframes
type Algorithm int

const (
	Linear Algorithm = iota
	Step
	Pchip
	Makima
)

func (a Algorithm) String() string {
	switch a {
	case Linear:
		return "linear"
	case Step:
		return "step"
	case Pchip:
		return "pchip"
	case Makima:
		return "makima"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// ParseAlgorithm parses an algorithm name (case-insensitive)
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "":
		return Linear, nil
	case "step":
		return Step, nil
	case "pchip":
		return Pchip, nil
	case "makima":
		return Makima, nil
	default:
		return Linear, fmt.Errorf("unknown interpolation algorithm %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Interpolate evaluates the curve at position inside the segment [index, index+1].
// Returns NaN if index is not a valid segment.
func (t *Timeline) Interpolate(index int, position float64, algorithm Algorithm) float64 {
	if !t.ValidIndex(index) {
		return math.NaN()
	}

	p1, p2 := t.keyframes[index], t.keyframes[index+1]
	switch algorithm {
	case Step:
		if position >= p2.Position {
			return p2.Value
		}
		return p1.Value
	case Pchip:
		p0, p3 := t.point(index-1), t.point(index+2)
		return pchip(p0, p1, p2, p3, position)
	case Makima:
		return makima(t.point(index-2), t.point(index-1), p1, p2, t.point(index+2), t.point(index+3), position)
	default:
		return lerp(p1, p2, position)
	}
}

// point returns keyframe k, synthesizing out-of-range neighbours by linear
// extrapolation of position from the two boundary keyframes while holding
// the boundary value. Requires at least two keyframes.
func (t *Timeline) point(k int) Keyframe {
	n := len(t.keyframes)
	switch {
	case k < 0:
		first, second := t.keyframes[0], t.keyframes[1]
		step := second.Position - first.Position
		return Keyframe{Position: first.Position + float64(k)*step, Value: first.Value}
	case k >= n:
		last, prev := t.keyframes[n-1], t.keyframes[n-2]
		step := last.Position - prev.Position
		return Keyframe{Position: last.Position + float64(k-n+1)*step, Value: last.Value}
	default:
		return t.keyframes[k]
	}
}

func lerp(p1, p2 Keyframe, position float64) float64 {
	t := (position - p1.Position) / (p2.Position - p1.Position)
	t = clamp01(t)
	if t == 1 {
		return p2.Value
	}
	return p1.Value + (p2.Value-p1.Value)*t
}

func pchip(p0, p1, p2, p3 Keyframe, position float64) float64 {
	h0 := p1.Position - p0.Position
	h1 := p2.Position - p1.Position
	h2 := p3.Position - p2.Position

	d0 := (p1.Value - p0.Value) / h0
	d1 := (p2.Value - p1.Value) / h1
	d2 := (p3.Value - p2.Value) / h2

	m1 := pchipSlope(h0, h1, d0, d1)
	m2 := pchipSlope(h1, h2, d1, d2)
	return hermite(p1, p2, m1, m2, position)
}

// pchipSlope is the Fritsch-Carlson weighted harmonic mean of adjacent secants
func pchipSlope(hl, hr, dl, dr float64) float64 {
	if dl*dr <= 0 {
		return 0
	}
	w1 := 2*hr + hl
	w2 := hr + 2*hl
	return (w1 + w2) / (w1/dl + w2/dr)
}

func makima(pm2, pm1, p1, p2, p3, p4 Keyframe, position float64) float64 {
	s0 := secant(pm2, pm1)
	s1 := secant(pm1, p1)
	s2 := secant(p1, p2)
	s3 := secant(p2, p3)
	s4 := secant(p3, p4)

	m1 := makimaSlope(s0, s1, s2, s3)
	m2 := makimaSlope(s1, s2, s3, s4)
	return hermite(p1, p2, m1, m2, position)
}

// makimaSlope blends the two secants around a knot, weighting each by how
// far the opposite side deviates from flat
func makimaSlope(s0, s1, s2, s3 float64) float64 {
	w1 := math.Abs(s3-s2) + math.Abs(s3+s2)/2
	w2 := math.Abs(s1-s0) + math.Abs(s1+s0)/2
	if w1+w2 == 0 {
		return 0
	}
	return (w1*s1 + w2*s2) / (w1 + w2)
}

func secant(a, b Keyframe) float64 {
	return (b.Value - a.Value) / (b.Position - a.Position)
}

// hermite evaluates a cubic Hermite segment with tangents m1 and m2
func hermite(p1, p2 Keyframe, m1, m2, position float64) float64 {
	h := p2.Position - p1.Position
	t := clamp01((position - p1.Position) / h)
	if t == 0 {
		return p1.Value
	}
	if t == 1 {
		return p2.Value
	}

	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return h00*p1.Value + h10*h*m1 + h01*p2.Value + h11*h*m2
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
