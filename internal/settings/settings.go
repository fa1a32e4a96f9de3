// ABOUTME: Settings document for motionsync
// ABOUTME: Loads and saves the TOML file holding media, script, axis and output settings
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Logging configures log output
type Logging struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Media configures the playback position source
type Media struct {
	Source   string  `toml:"source"` // "websocket" or "simulated"
	Name     string  `toml:"name"`
	Port     int     `toml:"port"`
	Path     string  `toml:"path"`
	MDNS     bool    `toml:"mdns"`
	OffsetMS int     `toml:"offset_ms"` // shifts motion relative to the picture
	Duration float64 `toml:"simulated_duration"`
	Loop     bool    `toml:"simulated_loop"`

	UpdateIntervalMS int `toml:"update_interval_ms"`
}

// Script configures the motion script loaded at startup
type Script struct {
	Path        string `toml:"path"`
	DefaultAxis string `toml:"default_axis"`
	// FollowMedia loads <media path without extension>.funscript when the player opens a file
	FollowMedia bool `toml:"follow_media"`
}

// Axis configures one motion axis
type Axis struct {
	Name      string   `toml:"name"`
	Default   *float64 `toml:"default"` // axis resting value if unset
	Minimum   float64  `toml:"minimum"`
	Maximum   float64  `toml:"maximum"`
	Algorithm string   `toml:"algorithm"`
}

// Output configures one output target
type Output struct {
	Name      string   `toml:"name"`
	Disabled  bool     `toml:"disabled"`
	Transport string   `toml:"transport"`
	Address   string   `toml:"address"`
	BaudRate  int      `toml:"baud_rate"`
	Axes      []string `toml:"axes"`

	Discipline    string `toml:"discipline"`
	Execution     string `toml:"execution"`
	IntervalMS    int    `toml:"interval_ms"`
	MinIntervalMS int    `toml:"min_interval_ms"`
	MaxIntervalMS int    `toml:"max_interval_ms"`
	PreciseSleep  bool   `toml:"precise_sleep"`

	Precision      int   `toml:"precision"`
	DirtyFilter    *bool `toml:"dirty_filter"` // on if unset
	OffloadElapsed bool  `toml:"offload_elapsed"`
}

// Settings is the whole document
type Settings struct {
	Logging Logging  `toml:"logging"`
	Media   Media    `toml:"media"`
	Script  Script   `toml:"script"`
	Axes    []Axis   `toml:"axes"`
	Outputs []Output `toml:"outputs"`
}

// DefaultPath returns the default settings file location
func DefaultPath() (string, error) {
	return expandPath("~/.config/motionsync/settings.toml")
}

// Load reads path (the default location if empty). A missing file yields
// defaults; exists reports whether the file was found.
func Load(path string) (s *Settings, resolved string, exists bool, err error) {
	cfg := Default()

	if path == "" {
		if path, err = DefaultPath(); err != nil {
			return nil, "", false, err
		}
	}
	if resolved, err = expandPath(path); err != nil {
		return nil, "", false, err
	}

	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, "", false, fmt.Errorf("read settings: %w", err)
	default:
		exists = true
		// axes and outputs in the file replace the defaults rather than merging by index
		cfg.Axes = nil
		cfg.Outputs = nil
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse settings: %w", err)
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// Save writes the document to path, creating parent directories
func (s *Settings) Save(path string) error {
	resolved, err := expandPath(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := os.WriteFile(resolved, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Output returns the named output
func (s *Settings) Output(name string) (*Output, bool) {
	for i := range s.Outputs {
		if strings.EqualFold(s.Outputs[i].Name, name) {
			return &s.Outputs[i], true
		}
	}
	return nil, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
