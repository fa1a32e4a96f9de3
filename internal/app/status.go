// ABOUTME: Point-in-time application status
// ABOUTME: Collects clock, script, player and output statistics for display
package app

import (
	"github.com/motionsync/motionsync-go/pkg/axis"
	"github.com/motionsync/motionsync-go/pkg/clock"
	"github.com/motionsync/motionsync-go/pkg/media"
	"github.com/motionsync/motionsync-go/pkg/output"
)

// TargetStatus describes one output target
type TargetStatus struct {
	Name       string
	Transport  string
	Discipline output.Discipline
	Execution  output.Execution
	State      output.State
	Stats      output.Stats
	Err        error
}

// AxisStatus is the current value of one axis
type AxisStatus struct {
	Axis  axis.Axis
	Value float64
}

// Status is a snapshot of the whole pipeline
type Status struct {
	Source   string
	Position float64
	Duration float64
	Playing  bool
	Quality  clock.Quality
	Drift    float64
	Script   string

	Axes    []AxisStatus
	Players []media.PlayerInfo
	Targets []TargetStatus
}

// Status collects the current status
func (a *App) Status() Status {
	drift, _, quality := a.clock.Stats()

	a.mu.Lock()
	script := a.script
	a.mu.Unlock()

	st := Status{
		Source:   a.source.Name(),
		Position: a.provider.Position(),
		Duration: a.clock.Duration(),
		Playing:  a.clock.Playing(),
		Quality:  quality,
		Drift:    drift,
		Script:   script,
	}

	for _, ax := range a.provider.Axes() {
		st.Axes = append(st.Axes, AxisStatus{Axis: ax, Value: a.provider.Value(ax)})
	}
	if a.server != nil {
		st.Players = a.server.Players()
	}

	transports := make(map[string]string, len(a.settings.Outputs))
	for _, o := range a.settings.Outputs {
		transports[o.Name] = o.Transport
	}
	for _, t := range a.targets {
		cfg := t.Config()
		st.Targets = append(st.Targets, TargetStatus{
			Name:       t.Name,
			Transport:  transports[t.Name],
			Discipline: cfg.Loop.Discipline,
			Execution:  cfg.Loop.Execution,
			State:      t.State(),
			Stats:      t.Stats(),
			Err:        t.Err(),
		})
	}
	return st
}
