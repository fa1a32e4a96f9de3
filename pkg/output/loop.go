// ABOUTME: Loop contract shared by the four scheduling variants
// ABOUTME: Builds the per-tick command set through range mapping, dirty filtering and encoding
package output

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/motionsync/motionsync-go/pkg/axis"
	"github.com/motionsync/motionsync-go/pkg/provider"
	"github.com/motionsync/motionsync-go/pkg/tcode"
)

// Transport delivers encoded lines to a device
type Transport interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, line string) error
	Close() error
}

// Loop is one scheduling discipline on one execution model. Run blocks until
// ctx is done (returning nil) or the transport fails.
type Loop interface {
	Run(ctx context.Context) error
	Discipline() Discipline
	Execution() Execution
}

// NewLoop builds the variant selected by cfg
func NewLoop(cfg Config, p *provider.Provider, t Transport, stats *UpdateContext, logger *slog.Logger) Loop {
	cfg = cfg.Normalize()
	if logger == nil {
		logger = slog.Default()
	}
	if stats == nil {
		stats = NewUpdateContext()
	}

	base := loopBase{
		config:    cfg,
		provider:  p,
		transport: t,
		stats:     stats,
		logger:    logger,
		encoder:   tcode.Encoder{Precision: cfg.Precision, OffloadElapsed: cfg.OffloadElapsed},
		filter:    axis.NewFilter(cfg.Precision, cfg.DirtyFilter),
		axes:      cfg.Axes,
	}
	if len(base.axes) == 0 {
		base.axes = p.Axes()
	}

	switch {
	case cfg.Discipline == Polled && cfg.Execution == Task:
		return &PolledTask{loopBase: base}
	case cfg.Discipline == Polled:
		return &PolledThread{loopBase: base}
	case cfg.Execution == Task:
		return &FixedRateTask{loopBase: base}
	default:
		return &FixedRateThread{loopBase: base}
	}
}

// loopBase is the state every variant owns exclusively
type loopBase struct {
	config    Config
	provider  *provider.Provider
	transport Transport
	stats     *UpdateContext
	logger    *slog.Logger
	encoder   tcode.Encoder
	filter    *axis.Filter
	axes      []axis.Axis

	commands []tcode.Command
	lastSend time.Time
}

func (b *loopBase) reset() {
	b.filter.Reset()
	b.lastSend = time.Time{}
}

// sampleAll queues the current value of every axis that changed enough
func (b *loopBase) sampleAll() {
	table := b.provider.Table()
	for _, a := range b.axes {
		value := table.Map(a, b.provider.Value(a))
		if b.filter.Check(a, value) {
			b.commands = append(b.commands, tcode.Command{Axis: a, Value: value})
		}
	}
}

// flush encodes and sends the queued commands
func (b *loopBase) flush(ctx context.Context, now time.Time) error {
	defer func() { b.commands = b.commands[:0] }()
	if len(b.commands) == 0 {
		return nil
	}

	var elapsed time.Duration
	if !b.lastSend.IsZero() {
		elapsed = now.Sub(b.lastSend)
	}

	line := b.encoder.Encode(b.commands, elapsed)
	if line == "" {
		return nil
	}
	if err := b.transport.Send(ctx, line); err != nil {
		return err
	}

	b.lastSend = now
	b.stats.RecordSent()
	return nil
}

// remaining is the end-of-tick sleep: interval minus elapsed, at least MinSleep
func remaining(interval, elapsed time.Duration) time.Duration {
	return max(MinSleep, interval-elapsed)
}

// blockingSleep sleeps for d or until ctx is done. With precise set the last
// PreciseSpin is spent spinning on the clock instead of parked on a timer.
// Returns false if ctx ended the sleep.
func blockingSleep(ctx context.Context, d time.Duration, precise bool) bool {
	deadline := time.Now().Add(d)

	coarse := d
	if precise {
		coarse = d - PreciseSpin
	}
	if coarse > 0 {
		t := time.NewTimer(coarse)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}

	if precise {
		for time.Now().Before(deadline) {
			if ctx.Err() != nil {
				return false
			}
		}
	}
	return ctx.Err() == nil
}

// lockThread pins the calling goroutine to its OS thread for the loop's lifetime
func lockThread() func() {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
