// ABOUTME: Media position sources
// ABOUTME: Common playback state and the interface every source implements
package media

import (
	"context"

	"github.com/motionsync/motionsync-go/pkg/clock"
)

// State is the playback state reported by a source
type State struct {
	Position float64 // seconds
	Duration float64 // seconds, 0 if unknown
	Speed    float64
	Playing  bool
	Path     string // media file, empty if unknown
}

// ClockState converts to a clock report
func (s State) ClockState() clock.State {
	return clock.State{
		Position: s.Position,
		Duration: s.Duration,
		Speed:    s.Speed,
		Playing:  s.Playing,
	}
}

// ReportFunc receives state reports; it may be called from several goroutines
type ReportFunc func(State)

// Source produces playback reports until ctx is done
type Source interface {
	Name() string
	Run(ctx context.Context, report ReportFunc) error
}
