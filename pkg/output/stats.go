// ABOUTME: Rolling tick statistics shared by every loop variant
// ABOUTME: Tracks tick rate and worst jitter per window and a rolling update error
package output

import (
	"sync"
	"time"
)

const (
	// StatsWindow is the span over which rate and jitter are aggregated
	StatsWindow = 250 * time.Millisecond

	// UpdateErrorSamples is the length of the rolling update error average
	UpdateErrorSamples = 25
)

// Stats is a point-in-time copy of an UpdateContext
type Stats struct {
	Rate        float64       // ticks per second over the last window
	Jitter      time.Duration // worst deviation from the expected interval in the last window
	UpdateError time.Duration // rolling average of |actual - expected| segment durations
	Ticks       uint64
	Sent        uint64
}

// UpdateContext accumulates the statistics of one target. The loop writes,
// the UI reads.
type UpdateContext struct {
	mu sync.Mutex

	lastTick     time.Time
	windowStart  time.Time
	windowTicks  int
	windowSpan   time.Duration
	windowJitter time.Duration

	rate   float64
	jitter time.Duration

	errors     [UpdateErrorSamples]time.Duration
	errorNext  int
	errorCount int
	errorSum   time.Duration

	ticks uint64
	sent  uint64
}

// NewUpdateContext creates empty statistics
func NewUpdateContext() *UpdateContext {
	return &UpdateContext{}
}

// Tick records a loop iteration starting at now. expected is the configured
// interval; zero skips jitter tracking.
func (u *UpdateContext) Tick(now time.Time, expected time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.ticks++
	if u.lastTick.IsZero() {
		u.lastTick = now
		u.windowStart = now
		return
	}

	actual := now.Sub(u.lastTick)
	u.lastTick = now
	u.windowTicks++
	u.windowSpan += actual

	if expected > 0 {
		jitter := actual - expected
		if jitter < 0 {
			jitter = -jitter
		}
		u.windowJitter = max(u.windowJitter, jitter)
	}

	if now.Sub(u.windowStart) >= StatsWindow {
		if u.windowSpan > 0 {
			u.rate = float64(u.windowTicks) / u.windowSpan.Seconds()
		}
		u.jitter = u.windowJitter
		u.windowStart = now
		u.windowTicks = 0
		u.windowSpan = 0
		u.windowJitter = 0
	}
}

// RecordUpdateError adds one sample of actual minus expected segment time
func (u *UpdateContext) RecordUpdateError(d time.Duration) {
	if d < 0 {
		d = -d
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.errorCount == UpdateErrorSamples {
		u.errorSum -= u.errors[u.errorNext]
	} else {
		u.errorCount++
	}
	u.errors[u.errorNext] = d
	u.errorSum += d
	u.errorNext = (u.errorNext + 1) % UpdateErrorSamples
}

// RecordSent counts a transmitted line
func (u *UpdateContext) RecordSent() {
	u.mu.Lock()
	u.sent++
	u.mu.Unlock()
}

// Stats returns a copy of the current statistics
func (u *UpdateContext) Stats() Stats {
	u.mu.Lock()
	defer u.mu.Unlock()

	s := Stats{
		Rate:   u.rate,
		Jitter: u.jitter,
		Ticks:  u.ticks,
		Sent:   u.sent,
	}
	if u.errorCount > 0 {
		s.UpdateError = u.errorSum / time.Duration(u.errorCount)
	}
	return s
}

// Reset clears everything, used when a target reconnects
func (u *UpdateContext) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.lastTick, u.windowStart = time.Time{}, time.Time{}
	u.windowTicks, u.windowSpan, u.windowJitter = 0, 0, 0
	u.rate, u.jitter = 0, 0
	u.errors = [UpdateErrorSamples]time.Duration{}
	u.errorNext, u.errorCount, u.errorSum = 0, 0, 0
	u.ticks, u.sent = 0, 0
}
