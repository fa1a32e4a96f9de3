// ABOUTME: Fixed-rate scheduling loops
// ABOUTME: Sample every axis each interval on a locked OS thread or a plain goroutine
package output

import (
	"context"
	"time"
)

// FixedRateThread ticks on a goroutine locked to its own OS thread. It may
// spin the tail of each sleep to cut scheduler jitter.
type FixedRateThread struct {
	loopBase
}

func (l *FixedRateThread) Discipline() Discipline { return FixedRate }
func (l *FixedRateThread) Execution() Execution   { return Thread }

// Run ticks until ctx is done or a send fails
func (l *FixedRateThread) Run(ctx context.Context) error {
	defer lockThread()()
	l.reset()

	interval := l.config.Interval
	l.logger.Debug("fixed-rate thread loop started",
		"interval", interval,
		"precise_sleep", l.config.PreciseSleep)

	for ctx.Err() == nil {
		start := time.Now()
		l.stats.Tick(start, interval)

		l.sampleAll()
		if err := l.flush(ctx, start); err != nil {
			return err
		}

		if !blockingSleep(ctx, remaining(interval, time.Since(start)), l.config.PreciseSleep) {
			break
		}
	}
	return nil
}

// FixedRateTask ticks on an ordinary goroutine, suspended on a reused timer
type FixedRateTask struct {
	loopBase
}

func (l *FixedRateTask) Discipline() Discipline { return FixedRate }
func (l *FixedRateTask) Execution() Execution   { return Task }

// Run ticks until ctx is done or a send fails
func (l *FixedRateTask) Run(ctx context.Context) error {
	l.reset()

	interval := l.config.Interval
	l.logger.Debug("fixed-rate task loop started", "interval", interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			start := time.Now()
			l.stats.Tick(start, interval)

			l.sampleAll()
			if err := l.flush(ctx, start); err != nil {
				return err
			}

			timer.Reset(remaining(interval, time.Since(start)))
		}
	}
}
