package settings

import (
	"time"

	"github.com/motionsync/motionsync-go/pkg/axis"
	"github.com/motionsync/motionsync-go/pkg/output"
	"github.com/motionsync/motionsync-go/pkg/output/transport"
	"github.com/motionsync/motionsync-go/pkg/timeline"
)

// AxisTable builds live axis settings from the document
func (s *Settings) AxisTable() *axis.Table {
	names := make([]axis.Axis, 0, len(s.Axes))
	for _, a := range s.Axes {
		names = append(names, axis.Axis(a.Name))
	}

	table := axis.NewTable(names...)
	for _, a := range s.Axes {
		a.Apply(table.Get(axis.Axis(a.Name)))
	}
	return table
}

// Apply copies range and default into live settings
func (a Axis) Apply(st *axis.Settings) {
	if st == nil {
		return
	}
	st.Range.Set(a.Minimum, a.Maximum)
	if a.Default != nil {
		st.SetDefault(*a.Default)
	}
}

// InterpolationAlgorithm returns the axis algorithm, linear if unparseable
func (a Axis) InterpolationAlgorithm() timeline.Algorithm {
	alg, _ := timeline.ParseAlgorithm(a.Algorithm)
	return alg
}

// LoopConfig converts to a loop configuration
func (o Output) LoopConfig() output.Config {
	discipline, _ := output.ParseDiscipline(o.Discipline)
	execution, _ := output.ParseExecution(o.Execution)

	cfg := output.Config{
		Discipline:     discipline,
		Execution:      execution,
		Interval:       time.Duration(o.IntervalMS) * time.Millisecond,
		MinInterval:    time.Duration(o.MinIntervalMS) * time.Millisecond,
		MaxInterval:    time.Duration(o.MaxIntervalMS) * time.Millisecond,
		PreciseSleep:   o.PreciseSleep,
		Precision:      o.Precision,
		DirtyFilter:    o.DirtyFilter == nil || *o.DirtyFilter,
		OffloadElapsed: o.OffloadElapsed,
	}
	for _, name := range o.Axes {
		cfg.Axes = append(cfg.Axes, axis.Axis(name))
	}
	return cfg.Normalize()
}

// TransportConfig converts to a transport configuration
func (o Output) TransportConfig() transport.Config {
	kind, _ := transport.ParseKind(o.Transport)
	return transport.Config{
		Kind:     kind,
		Address:  o.Address,
		BaudRate: o.BaudRate,
	}
}

// TargetConfig converts to an output target configuration
func (o Output) TargetConfig() output.TargetConfig {
	return output.TargetConfig{
		Name: o.Name,
		Loop: o.LoopConfig(),
	}
}

// UpdateInterval returns how often the provider samples the media clock
func (m Media) UpdateInterval() time.Duration {
	return time.Duration(m.UpdateIntervalMS) * time.Millisecond
}

// Offset returns the motion offset relative to the media position
func (m Media) Offset() time.Duration {
	return time.Duration(m.OffsetMS) * time.Millisecond
}
