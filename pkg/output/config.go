// ABOUTME: Output loop configuration
// ABOUTME: Scheduling discipline, execution model and interval bounds for a target
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/motionsync/motionsync-go/pkg/axis"
	"github.com/motionsync/motionsync-go/pkg/tcode"
)

const (
	DefaultInterval    = 10 * time.Millisecond
	DefaultMinInterval = 3 * time.Millisecond
	DefaultMaxInterval = 33 * time.Millisecond

	// MinSleep is the floor of the end-of-tick sleep
	MinSleep = time.Millisecond

	// PreciseSpin is how much of a precise sleep is spent spinning
	PreciseSpin = 2 * time.Millisecond
)

// Discipline decides when a loop transmits
type Discipline int

const (
	// FixedRate ticks at a configured interval regardless of timeline activity
	FixedRate Discipline = iota
	// Polled transmits when an axis enters a new timeline segment
	Polled
)

func (d Discipline) String() string {
	switch d {
	case Polled:
		return "polled"
	default:
		return "fixed-rate"
	}
}

// ParseDiscipline accepts "fixed-rate" and "polled"; empty means fixed-rate
func ParseDiscipline(s string) (Discipline, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fixed-rate", "fixed", "fixedrate":
		return FixedRate, nil
	case "polled", "poll":
		return Polled, nil
	default:
		return FixedRate, fmt.Errorf("unknown discipline %q", s)
	}
}

func (d Discipline) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Discipline) UnmarshalText(text []byte) error {
	parsed, err := ParseDiscipline(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Execution decides what a loop runs on
type Execution int

const (
	// Thread runs the loop on a goroutine locked to its own OS thread with
	// blocking sleeps and waits
	Thread Execution = iota
	// Task runs the loop as an ordinary goroutine suspended on timers and channels
	Task
)

func (e Execution) String() string {
	switch e {
	case Task:
		return "task"
	default:
		return "thread"
	}
}

// ParseExecution accepts "thread" and "task"; empty means thread
func ParseExecution(s string) (Execution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "thread":
		return Thread, nil
	case "task":
		return Task, nil
	default:
		return Thread, fmt.Errorf("unknown execution model %q", s)
	}
}

func (e Execution) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *Execution) UnmarshalText(text []byte) error {
	parsed, err := ParseExecution(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Config describes one output loop
type Config struct {
	Discipline Discipline
	Execution  Execution

	// Interval is the fixed-rate tick period, clamped to [MinInterval, MaxInterval]
	Interval    time.Duration
	MinInterval time.Duration
	MaxInterval time.Duration

	// PreciseSleep spins the last PreciseSpin of each sleep on thread loops
	PreciseSleep bool

	Precision      int
	DirtyFilter    bool
	OffloadElapsed bool

	// Axes limits the loop to a subset of axes; empty means every provider axis
	Axes []axis.Axis
}

// DefaultConfig returns a fixed-rate thread loop at the default interval
func DefaultConfig() Config {
	return Config{
		Discipline:  FixedRate,
		Execution:   Thread,
		Interval:    DefaultInterval,
		MinInterval: DefaultMinInterval,
		MaxInterval: DefaultMaxInterval,
		Precision:   tcode.DefaultPrecision,
		DirtyFilter: true,
	}
}

// Normalize fills zero values with defaults and clamps the interval
func (c Config) Normalize() Config {
	if c.MinInterval <= 0 {
		c.MinInterval = DefaultMinInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultMaxInterval
	}
	if c.MaxInterval < c.MinInterval {
		c.MaxInterval = c.MinInterval
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	c.Interval = min(max(c.Interval, c.MinInterval), c.MaxInterval)

	if c.Precision <= 0 {
		c.Precision = tcode.DefaultPrecision
	}
	if c.Precision > tcode.MaxPrecision {
		c.Precision = tcode.MaxPrecision
	}
	return c
}

// Rate returns the configured tick rate in Hz
func (c Config) Rate() float64 {
	c = c.Normalize()
	return float64(time.Second) / float64(c.Interval)
}
