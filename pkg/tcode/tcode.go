// ABOUTME: Shared text protocol for axis commands
// ABOUTME: Encodes and parses lines of the form "L0500I16 R0250I16\n"
package tcode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/motionsync/motionsync-go/pkg/axis"
)

const (
	// DefaultPrecision is the number of value digits most devices accept
	DefaultPrecision = 3

	// MaxPrecision bounds the digit count to what fits an int64 comfortably
	MaxPrecision = 9
)

// Command is one axis value on a line
type Command struct {
	Axis     axis.Axis
	Value    float64
	Interval time.Duration // 0 when the line carries no interval
}

// Encoder formats commands for a transport
type Encoder struct {
	Precision int

	// OffloadElapsed appends the time since the previous update as an
	// interval so the device can smooth between values itself
	OffloadElapsed bool
}

// FormatValue renders a normalized value as precision digits, scaled to
// 10^precision - 1 so that 1.0 maps to all nines
func FormatValue(value float64, precision int) string {
	precision = clampPrecision(precision)
	scale := math.Pow(10, float64(precision)) - 1
	v := int64(math.Round(clamp01(value) * scale))
	return fmt.Sprintf("%0*d", precision, v)
}

// Encode renders commands as a single newline-terminated line. Commands
// with non-finite values are skipped. Returns "" if nothing remains.
func (e Encoder) Encode(commands []Command, elapsed time.Duration) string {
	var b strings.Builder
	for _, c := range commands {
		if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			continue
		}

		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(c.Axis))
		b.WriteString(FormatValue(c.Value, e.Precision))

		interval := c.Interval
		if interval == 0 && e.OffloadElapsed {
			interval = elapsed
		}
		if ms := interval.Milliseconds(); ms > 0 {
			b.WriteByte('I')
			b.WriteString(strconv.FormatInt(ms, 10))
		}
	}

	if b.Len() == 0 {
		return ""
	}
	b.WriteByte('\n')
	return b.String()
}

// Parse reads a line produced by Encode. The value precision is inferred
// from the digit count of each command.
func Parse(line string) ([]Command, error) {
	fields := strings.Fields(line)
	commands := make([]Command, 0, len(fields))

	for _, f := range fields {
		if len(f) < 3 {
			return nil, fmt.Errorf("command %q too short", f)
		}

		a, err := axis.Parse(f[:2])
		if err != nil {
			return nil, err
		}

		rest := f[2:]
		var intervalPart string
		if i := strings.IndexAny(rest, "Ii"); i >= 0 {
			rest, intervalPart = rest[:i], rest[i+1:]
		}

		if rest == "" || len(rest) > MaxPrecision {
			return nil, fmt.Errorf("command %q has invalid value digits", f)
		}
		digits, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", f, err)
		}

		cmd := Command{
			Axis:  a,
			Value: float64(digits) / (math.Pow(10, float64(len(rest))) - 1),
		}
		if intervalPart != "" {
			ms, err := strconv.ParseInt(intervalPart, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("command %q: invalid interval: %w", f, err)
			}
			cmd.Interval = time.Duration(ms) * time.Millisecond
		}
		commands = append(commands, cmd)
	}

	return commands, nil
}

func clampPrecision(p int) int {
	if p < 1 {
		return 1
	}
	if p > MaxPrecision {
		return MaxPrecision
	}
	return p
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
