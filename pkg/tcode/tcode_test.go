// ABOUTME: Tests for the axis text protocol
// ABOUTME: Covers value formatting, line encoding and parsing
package tcode

import (
	"math"
	"testing"
	"time"

	"github.com/motionsync/motionsync-go/pkg/axis"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		value     float64
		precision int
		expected  string
	}{
		{0, 3, "000"},
		{1, 3, "999"},
		{0.5, 3, "500"},
		{0.5, 2, "50"},
		{0.123456, 4, "1234"},
		{1.7, 2, "99"},
		{-1, 2, "00"},
		{0.5, 0, "5"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.value, tt.precision); got != tt.expected {
			t.Errorf("FormatValue(%v, %d) = %q, expected %q", tt.value, tt.precision, got, tt.expected)
		}
	}
}

func TestEncode(t *testing.T) {
	cmds := []Command{
		{Axis: axis.L0, Value: 0.5},
		{Axis: axis.R0, Value: math.NaN()},
		{Axis: axis.R1, Value: 0.25},
	}

	plain := Encoder{Precision: 3}
	if got := plain.Encode(cmds, 16*time.Millisecond); got != "L0500 R1250\n" {
		t.Errorf("unexpected plain line %q", got)
	}

	offload := Encoder{Precision: 3, OffloadElapsed: true}
	if got := offload.Encode(cmds, 16*time.Millisecond); got != "L0500I16 R1250I16\n" {
		t.Errorf("unexpected offload line %q", got)
	}

	if got := plain.Encode([]Command{{Axis: axis.L0, Value: math.NaN()}}, 0); got != "" {
		t.Errorf("expected empty line for non-finite values, got %q", got)
	}
}

func TestEncodeExplicitInterval(t *testing.T) {
	e := Encoder{Precision: 2}
	line := e.Encode([]Command{{Axis: axis.V0, Value: 1, Interval: 250 * time.Millisecond}}, 0)
	if line != "V099I250\n" {
		t.Errorf("unexpected line %q", line)
	}
}

func TestParseRoundTripsEncodedLine(t *testing.T) {
	e := Encoder{Precision: 4, OffloadElapsed: true}
	line := e.Encode([]Command{
		{Axis: axis.L0, Value: 0.3333},
		{Axis: axis.R2, Value: 1},
	}, 33*time.Millisecond)

	cmds, err := Parse(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(cmds))
	}
	if cmds[0].Axis != axis.L0 || math.Abs(cmds[0].Value-0.3333) > 1e-4 {
		t.Errorf("unexpected first command %+v", cmds[0])
	}
	if cmds[1].Axis != axis.R2 || cmds[1].Value != 1 || cmds[1].Interval != 33*time.Millisecond {
		t.Errorf("unexpected second command %+v", cmds[1])
	}
}

func TestParseErrors(t *testing.T) {
	for _, line := range []string{"L0", "X0500", "L0abc", "L0500Ixyz", "L01234567890"} {
		if _, err := Parse(line); err == nil {
			t.Errorf("expected error for %q", line)
		}
	}
}
