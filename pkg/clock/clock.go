// ABOUTME: Media position clock with drift compensation
// ABOUTME: Extrapolates playback position between reports from a media player
package clock

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

const (
	// SeekThreshold is the residual above which a report is treated as a seek
	SeekThreshold = 500 * time.Millisecond

	// LostAfter is how long a playing clock may go without reports
	LostAfter = 5 * time.Second

	maxDrift = 0.05
)

// Quality represents how well the clock tracks the player
type Quality int

const (
	QualityGood Quality = iota
	QualityDegraded
	QualityLost
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityDegraded:
		return "degraded"
	default:
		return "lost"
	}
}

// State is a playback report from a media player
type State struct {
	Position float64 // seconds
	Duration float64 // seconds, 0 if unknown
	Speed    float64 // playback rate, 1 is normal
	Playing  bool
}

// Clock tracks the media position between player reports. Players typically
// report every 100ms-1s; loops sample the clock every few milliseconds.
type Clock struct {
	mu            sync.RWMutex
	now           func() time.Time
	logger        *slog.Logger
	anchorPos     float64   // position at anchorTime
	anchorTime    time.Time // local time of the last accepted report
	speed         float64
	duration      float64
	playing       bool
	drift         float64 // rate correction (dimensionless: s/s)
	residual      float64 // last report residual in seconds
	quality       Quality
	lastReport    time.Time
	sampleCount   int
	smoothingRate float64
}

// New creates a media clock
func New(logger *slog.Logger) *Clock {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clock{
		now:           time.Now,
		logger:        logger,
		speed:         1,
		smoothingRate: 0.1, // 10% weight to new samples
		quality:       QualityLost,
	}
}

// Report processes a playback report, smoothing small residuals and snapping
// to the reported position on seeks and play state changes
func (c *Clock) Report(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if s.Speed <= 0 {
		s.Speed = 1
	}
	c.duration = s.Duration

	stateChanged := s.Playing != c.playing || s.Speed != c.speed
	if c.sampleCount == 0 || !s.Playing || stateChanged {
		c.snap(s, now)
		return
	}

	predicted := c.positionAt(now)
	residual := s.Position - predicted
	if math.Abs(residual) > SeekThreshold.Seconds() {
		c.logger.Debug("media seek detected",
			slog.Float64("from", predicted),
			slog.Float64("to", s.Position))
		c.snap(s, now)
		return
	}

	dt := now.Sub(c.lastReport).Seconds()
	if dt <= 0 {
		return
	}

	// Fixed-gain filter: move toward the report and fold the residual into
	// the rate estimate
	c.anchorPos = predicted + c.smoothingRate*residual
	c.anchorTime = now
	c.drift = clamp(c.drift+c.smoothingRate*residual/dt, -maxDrift, maxDrift)
	c.residual = residual
	c.lastReport = now
	c.sampleCount++

	if math.Abs(residual) < 0.05 {
		c.quality = QualityGood
	} else {
		c.quality = QualityDegraded
	}

	if c.sampleCount < 10 {
		c.logger.Debug("media clock sample",
			slog.Int("sample", c.sampleCount),
			slog.Float64("position", c.anchorPos),
			slog.Float64("drift", c.drift),
			slog.Float64("residual", residual))
	}
}

func (c *Clock) snap(s State, now time.Time) {
	c.anchorPos = s.Position
	c.anchorTime = now
	c.speed = s.Speed
	c.playing = s.Playing
	c.drift = 0
	c.residual = 0
	c.lastReport = now
	c.sampleCount++
	c.quality = QualityGood
}

// Position returns the extrapolated media position now
func (c *Clock) Position() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.positionAt(c.now())
}

func (c *Clock) positionAt(now time.Time) float64 {
	pos := c.anchorPos
	if c.playing {
		pos += now.Sub(c.anchorTime).Seconds() * c.speed * (1 + c.drift)
	}
	if c.duration > 0 && pos > c.duration {
		pos = c.duration
	}
	return pos
}

// Playing reports whether the last report said the media is playing
func (c *Clock) Playing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playing
}

// Speed returns the playback rate
func (c *Clock) Speed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

// Duration returns the media duration, 0 if unknown
func (c *Clock) Duration() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.duration
}

// Stats returns the current drift estimate, last residual and quality
func (c *Clock) Stats() (drift, residual float64, quality Quality) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.drift, c.residual, c.quality
}

// CheckQuality marks the clock lost if a playing player stopped reporting
func (c *Clock) CheckQuality() Quality {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sampleCount == 0 {
		return QualityLost
	}
	if c.playing && c.now().Sub(c.lastReport) > LostAfter {
		c.quality = QualityLost
	}
	return c.quality
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
