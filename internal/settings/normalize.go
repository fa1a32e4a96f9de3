package settings

import (
	"fmt"
	"strings"

	"github.com/motionsync/motionsync-go/pkg/axis"
	"github.com/motionsync/motionsync-go/pkg/media"
	"github.com/motionsync/motionsync-go/pkg/output"
	"github.com/motionsync/motionsync-go/pkg/provider"
	"github.com/motionsync/motionsync-go/pkg/tcode"
	"github.com/motionsync/motionsync-go/pkg/timeline"
)

// Normalize trims and lower-cases names and replaces missing or out of range
// tunables with defaults. Names it cannot fix are left for Validate.
func (s *Settings) Normalize() error {
	s.normalizeLogging()
	if err := s.normalizeMedia(); err != nil {
		return err
	}
	if err := s.normalizeScript(); err != nil {
		return err
	}
	s.normalizeAxes()
	s.normalizeOutputs()
	return nil
}

func (s *Settings) normalizeLogging() {
	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))
	if s.Logging.Level == "" {
		s.Logging.Level = defaultLogLevel
	}
	if s.Logging.Level == "warning" {
		s.Logging.Level = "warn"
	}
	s.Logging.File = strings.TrimSpace(s.Logging.File)
}

func (s *Settings) normalizeMedia() error {
	m := &s.Media
	m.Source = strings.ToLower(strings.TrimSpace(m.Source))
	if m.Source == "" {
		m.Source = defaultMediaSource
	}
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		m.Name = "motionsync"
	}
	if m.Port <= 0 {
		m.Port = media.DefaultPort
	}
	m.Path = strings.TrimSpace(m.Path)
	if m.Path == "" {
		m.Path = media.DefaultPath
	}
	if !strings.HasPrefix(m.Path, "/") {
		m.Path = "/" + m.Path
	}
	if m.Duration <= 0 {
		m.Duration = defaultDuration
	}
	if m.UpdateIntervalMS <= 0 {
		m.UpdateIntervalMS = int(provider.DefaultUpdateInterval.Milliseconds())
	}
	return nil
}

func (s *Settings) normalizeScript() error {
	var err error
	if s.Script.Path, err = expandPath(strings.TrimSpace(s.Script.Path)); err != nil {
		return fmt.Errorf("script.path: %w", err)
	}
	s.Script.DefaultAxis = strings.ToUpper(strings.TrimSpace(s.Script.DefaultAxis))
	if s.Script.DefaultAxis == "" {
		s.Script.DefaultAxis = timeline.DefaultScriptAxis
	}
	return nil
}

func (s *Settings) normalizeAxes() {
	if len(s.Axes) == 0 {
		s.Axes = Default().Axes
		return
	}
	for i := range s.Axes {
		a := &s.Axes[i]
		a.Name = strings.ToUpper(strings.TrimSpace(a.Name))
		if a.Default == nil {
			a.Default = ptr(axis.Axis(a.Name).DefaultValue())
		}
		*a.Default = clamp01(*a.Default)
		a.Minimum = clamp01(a.Minimum)
		a.Maximum = clamp01(a.Maximum)
		if a.Maximum-a.Minimum < axis.MinimumSeparation {
			a.Minimum, a.Maximum = 0, 1
		}
		a.Algorithm = strings.ToLower(strings.TrimSpace(a.Algorithm))
		if a.Algorithm == "" {
			a.Algorithm = timeline.Linear.String()
		}
	}
}

func (s *Settings) normalizeOutputs() {
	for i := range s.Outputs {
		o := &s.Outputs[i]
		o.Name = strings.TrimSpace(o.Name)
		if o.Name == "" {
			o.Name = fmt.Sprintf("output-%d", i+1)
		}
		o.Transport = strings.ToLower(strings.TrimSpace(o.Transport))
		o.Address = strings.TrimSpace(o.Address)
		for j := range o.Axes {
			o.Axes[j] = strings.ToUpper(strings.TrimSpace(o.Axes[j]))
		}

		o.Discipline = strings.ToLower(strings.TrimSpace(o.Discipline))
		if o.Discipline == "" {
			o.Discipline = output.FixedRate.String()
		}
		o.Execution = strings.ToLower(strings.TrimSpace(o.Execution))
		if o.Execution == "" {
			o.Execution = output.Thread.String()
		}

		if o.MinIntervalMS <= 0 {
			o.MinIntervalMS = int(output.DefaultMinInterval.Milliseconds())
		}
		if o.MaxIntervalMS < o.MinIntervalMS {
			o.MaxIntervalMS = max(int(output.DefaultMaxInterval.Milliseconds()), o.MinIntervalMS)
		}
		if o.IntervalMS <= 0 {
			o.IntervalMS = int(output.DefaultInterval.Milliseconds())
		}
		o.IntervalMS = min(max(o.IntervalMS, o.MinIntervalMS), o.MaxIntervalMS)

		if o.Precision <= 0 || o.Precision > tcode.MaxPrecision {
			o.Precision = tcode.DefaultPrecision
		}
		if o.DirtyFilter == nil {
			o.DirtyFilter = ptr(true)
		}
	}
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
