// ABOUTME: Funscript loader producing per-axis timelines
// ABOUTME: Parses single and multi-axis funscript JSON documents
package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
)

// DefaultScriptAxis is the axis a single-axis funscript drives
const DefaultScriptAxis = "L0"

// axisSuffixes names the sibling files of a multi-file script, as in
// "video.twist.funscript", in axis order
var axisSuffixes = []struct {
	suffix string
	axis   string
}{
	{"stroke", "L0"},
	{"surge", "L1"},
	{"sway", "L2"},
	{"twist", "R0"},
	{"roll", "R1"},
	{"pitch", "R2"},
	{"vib", "V0"},
	{"pump", "V1"},
	{"valve", "A0"},
	{"suck", "A1"},
	{"lube", "A2"},
}

// SuffixAxis returns the axis named by a script file's inner suffix. Both
// names ("video.twist.funscript") and axis ids ("video.R0.funscript") count.
func SuffixAxis(path string) (string, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ext := filepath.Ext(stem)
	if len(ext) < 2 {
		return "", false
	}
	suffix := ext[1:]
	for _, s := range axisSuffixes {
		if strings.EqualFold(suffix, s.suffix) || strings.EqualFold(suffix, s.axis) {
			return s.axis, true
		}
	}
	return "", false
}

// Script is a parsed funscript: one timeline per axis name
type Script struct {
	Name      string
	Timelines map[string]*Timeline
}

type funscriptAction struct {
	At  float64 `json:"at"`
	Pos float64 `json:"pos"`
}

type funscriptAxis struct {
	ID      string            `json:"id"`
	Actions []funscriptAction `json:"actions"`
}

type funscriptDocument struct {
	Version  string            `json:"version"`
	Inverted bool              `json:"inverted"`
	Range    float64           `json:"range"`
	Actions  []funscriptAction `json:"actions"`
	Axes     []funscriptAxis   `json:"axes"`
}

// ParseFunscript reads a funscript document. Top-level actions map to
// defaultAxis; entries of "axes" map to their own id.
func ParseFunscript(r io.Reader, defaultAxis string) (*Script, error) {
	var doc funscriptDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode funscript: %w", err)
	}

	if defaultAxis == "" {
		defaultAxis = DefaultScriptAxis
	}

	scale := 100.0
	if doc.Range > 0 {
		scale = doc.Range
	}

	script := &Script{Timelines: make(map[string]*Timeline)}
	if len(doc.Actions) > 0 {
		script.Timelines[defaultAxis] = buildTimeline(doc.Actions, scale, doc.Inverted)
	}
	for _, ax := range doc.Axes {
		if ax.ID == "" || len(ax.Actions) == 0 {
			continue
		}
		script.Timelines[strings.ToUpper(ax.ID)] = buildTimeline(ax.Actions, scale, doc.Inverted)
	}

	if len(script.Timelines) == 0 {
		return nil, fmt.Errorf("funscript has no actions")
	}

	return script, nil
}

// LoadFunscript opens and parses a funscript file. A file with an axis
// suffix drives that axis instead of defaultAxis.
func LoadFunscript(path, defaultAxis string) (*Script, error) {
	if a, ok := SuffixAxis(path); ok {
		defaultAxis = a
	}
	return loadFile(path, defaultAxis)
}

func loadFile(path, defaultAxis string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open funscript: %w", err)
	}
	defer f.Close()

	script, err := ParseFunscript(f, defaultAxis)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	script.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return script, nil
}

// LoadScriptSet loads "<stem>.funscript" and every axis-suffixed sibling
// such as "<stem>.twist.funscript" or "<stem>.R0.funscript" into one script. A suffixed file replaces
// the base file's timeline for its axis. Returns nil and no files when none exist.
func LoadScriptSet(stem, defaultAxis string) (*Script, []string, error) {
	type candidate struct{ path, axis string }
	candidates := []candidate{{stem + ".funscript", defaultAxis}}
	for _, s := range axisSuffixes {
		candidates = append(candidates,
			candidate{stem + "." + s.suffix + ".funscript", s.axis},
			candidate{stem + "." + s.axis + ".funscript", s.axis})
	}

	set := &Script{Name: filepath.Base(stem), Timelines: make(map[string]*Timeline)}
	var files []string
	for _, c := range candidates {
		if _, err := os.Stat(c.path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, nil, fmt.Errorf("failed to stat funscript: %w", err)
		}
		script, err := loadFile(c.path, c.axis)
		if err != nil {
			return nil, nil, err
		}
		maps.Copy(set.Timelines, script.Timelines)
		files = append(files, c.path)
	}

	if len(files) == 0 {
		return nil, nil, nil
	}
	return set, files, nil
}

func buildTimeline(actions []funscriptAction, scale float64, inverted bool) *Timeline {
	t := &Timeline{keyframes: make([]Keyframe, 0, len(actions))}
	for _, a := range actions {
		v := clamp01(a.Pos / scale)
		if inverted {
			v = 1 - v
		}
		t.Insert(a.At/1000, v)
	}
	return t
}
