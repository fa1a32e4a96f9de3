// ABOUTME: Simulated media player
// ABOUTME: Plays an imaginary file at a fixed speed for dry runs and benchmarks
package media

import (
	"context"
	"time"
)

// DefaultReportInterval is how often Simulated reports
const DefaultReportInterval = 100 * time.Millisecond

// Simulated plays from Start for Duration seconds, optionally looping
type Simulated struct {
	Start    float64
	Duration float64
	Speed    float64
	Loop     bool
	Path     string
	Interval time.Duration

	now func() time.Time
}

// NewSimulated returns a source playing duration seconds at normal speed
func NewSimulated(duration float64, loop bool) *Simulated {
	return &Simulated{Duration: duration, Speed: 1, Loop: loop}
}

func (s *Simulated) Name() string {
	return "simulated"
}

// Run reports playing state every Interval until ctx is done, then reports paused
func (s *Simulated) Run(ctx context.Context, report ReportFunc) error {
	now := s.now
	if now == nil {
		now = time.Now
	}
	speed := s.Speed
	if speed <= 0 {
		speed = 1
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultReportInterval
	}

	start := now()
	state := State{Position: s.Start, Duration: s.Duration, Speed: speed, Playing: true, Path: s.Path}
	report(state)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			state.Playing = false
			report(state)
			return nil
		case <-ticker.C:
		}

		pos := s.Start + now().Sub(start).Seconds()*speed
		if s.Duration > 0 && pos >= s.Duration {
			if !s.Loop {
				state.Position = s.Duration
				state.Playing = false
				report(state)
				<-ctx.Done()
				return nil
			}
			// restart from zero; the clock treats the jump as a seek
			s.Start = 0
			start = now()
			pos = 0
		}
		state.Position = pos
		report(state)
	}
}
