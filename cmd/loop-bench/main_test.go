// ABOUTME: Tests for the loop benchmark helpers
// ABOUTME: Tests variant generation, script generation and result rendering
package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/motionsync/motionsync-go/pkg/output"
)

func TestVariantsCoverEveryLoop(t *testing.T) {
	configs := variants(benchOptions{interval: time.Millisecond})
	if len(configs) != 4 {
		t.Fatalf("expected 4 variants, got %d", len(configs))
	}

	seen := make(map[string]bool)
	for _, cfg := range configs {
		seen[cfg.Discipline.String()+"/"+cfg.Execution.String()] = true
		if cfg.Interval != output.DefaultMinInterval {
			t.Errorf("expected interval clamped to %s, got %s", output.DefaultMinInterval, cfg.Interval)
		}
	}
	for _, want := range []string{"fixed-rate/thread", "fixed-rate/task", "polled/thread", "polled/task"} {
		if !seen[want] {
			t.Errorf("missing variant %s", want)
		}
	}
}

func TestSineScript(t *testing.T) {
	tl := sineScript(1, 250*time.Millisecond, 0)
	if tl.Len() != 5 {
		t.Fatalf("expected 5 keyframes, got %d", tl.Len())
	}
	for _, kf := range tl.Keyframes() {
		if kf.Value < 0 || kf.Value > 1 {
			t.Errorf("value %v out of range at %v", kf.Value, kf.Position)
		}
	}
	if first := tl.At(0); first.Value != 0.5 {
		t.Errorf("expected first value 0.5, got %v", first.Value)
	}
}

func TestRenderResults(t *testing.T) {
	out := renderResults([]result{
		{cfg: output.DefaultConfig(), stats: output.Stats{Rate: 100, Jitter: 1500 * time.Microsecond, Ticks: 300}, lines: 280},
		{cfg: output.Config{Discipline: output.Polled, Execution: output.Task}, err: errors.New("boom")},
	})
	for _, want := range []string{"fixed-rate/thread", "100.0 Hz", "1.50ms", "280", "polled/task", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
