package settings

import (
	"errors"
	"fmt"

	"github.com/motionsync/motionsync-go/pkg/axis"
	"github.com/motionsync/motionsync-go/pkg/output"
	"github.com/motionsync/motionsync-go/pkg/output/transport"
	"github.com/motionsync/motionsync-go/pkg/timeline"
)

// Validate ensures the settings are usable. Call Normalize first.
func (s *Settings) Validate() error {
	if err := s.validateLogging(); err != nil {
		return err
	}
	if err := s.validateMedia(); err != nil {
		return err
	}
	if err := s.validateAxes(); err != nil {
		return err
	}
	return s.validateOutputs()
}

func (s *Settings) validateLogging() error {
	switch s.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", s.Logging.Level)
}

func (s *Settings) validateMedia() error {
	switch s.Media.Source {
	case "websocket", "simulated":
	default:
		return fmt.Errorf("media.source must be websocket or simulated, got %q", s.Media.Source)
	}
	if s.Media.Port > 65535 {
		return fmt.Errorf("media.port %d out of range", s.Media.Port)
	}
	return nil
}

func (s *Settings) validateAxes() error {
	if len(s.Axes) == 0 {
		return errors.New("at least one axis must be configured")
	}
	seen := make(map[string]bool, len(s.Axes))
	for _, a := range s.Axes {
		if _, err := axis.Parse(a.Name); err != nil {
			return fmt.Errorf("axes: %w", err)
		}
		if seen[a.Name] {
			return fmt.Errorf("axes: %s configured twice", a.Name)
		}
		seen[a.Name] = true
		if _, err := timeline.ParseAlgorithm(a.Algorithm); err != nil {
			return fmt.Errorf("axes.%s: %w", a.Name, err)
		}
	}
	if _, err := axis.Parse(s.Script.DefaultAxis); err != nil {
		return fmt.Errorf("script.default_axis: %w", err)
	}
	return nil
}

func (s *Settings) validateOutputs() error {
	configured := make(map[string]bool, len(s.Axes))
	for _, a := range s.Axes {
		configured[a.Name] = true
	}

	names := make(map[string]bool, len(s.Outputs))
	for _, o := range s.Outputs {
		if names[o.Name] {
			return fmt.Errorf("outputs: name %q used twice", o.Name)
		}
		names[o.Name] = true

		kind, err := transport.ParseKind(o.Transport)
		if err != nil {
			return fmt.Errorf("outputs.%s: %w", o.Name, err)
		}
		if kind != transport.KindNull && o.Address == "" {
			return fmt.Errorf("outputs.%s: %s transport needs an address", o.Name, kind)
		}
		if _, err := output.ParseDiscipline(o.Discipline); err != nil {
			return fmt.Errorf("outputs.%s: %w", o.Name, err)
		}
		if _, err := output.ParseExecution(o.Execution); err != nil {
			return fmt.Errorf("outputs.%s: %w", o.Name, err)
		}
		for _, name := range o.Axes {
			if !configured[name] {
				return fmt.Errorf("outputs.%s: axis %q is not configured", o.Name, name)
			}
		}
	}
	return nil
}
