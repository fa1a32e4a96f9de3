// ABOUTME: Tests for the settings store
// ABOUTME: Tests defaults, loading, normalization, validation and saving
package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/motionsync/motionsync-go/pkg/axis"
	"github.com/motionsync/motionsync-go/pkg/output"
	"github.com/motionsync/motionsync-go/pkg/output/transport"
	"github.com/motionsync/motionsync-go/pkg/timeline"
)

func writeSettings(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	s, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Error("expected exists=false")
	}
	if resolved != path {
		t.Errorf("expected resolved %q, got %q", path, resolved)
	}
	if len(s.Axes) != 2 || s.Axes[0].Name != "L0" || s.Axes[1].Name != "R0" {
		t.Errorf("unexpected default axes %+v", s.Axes)
	}
	if len(s.Outputs) != 1 || s.Outputs[0].Transport != "null" {
		t.Errorf("unexpected default outputs %+v", s.Outputs)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeSettings(t, `
[logging]
level = "DEBUG"

[media]
source = "simulated"
offset_ms = -40

[[axes]]
name = "l0"
minimum = 0.2
maximum = 0.8
algorithm = "Makima"

[[axes]]
name = "v0"

[[outputs]]
name = "osr2"
transport = "Serial"
address = "/dev/ttyUSB0"
discipline = "polled"
execution = "task"
axes = ["l0"]
dirty_filter = false

[[outputs]]
transport = "udp"
address = "10.0.0.2:8000"
interval_ms = 1
`)

	s, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Error("expected exists=true")
	}

	if s.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %q", s.Logging.Level)
	}
	if s.Media.Source != "simulated" || s.Media.Offset() != -40*time.Millisecond {
		t.Errorf("unexpected media %+v", s.Media)
	}
	if !s.Media.MDNS {
		t.Error("omitted media.mdns should keep its default")
	}

	if len(s.Axes) != 2 {
		t.Fatalf("expected file axes to replace defaults, got %+v", s.Axes)
	}
	l0 := s.Axes[0]
	if l0.Name != "L0" || l0.InterpolationAlgorithm() != timeline.Makima || *l0.Default != 0.5 {
		t.Errorf("unexpected L0 %+v", l0)
	}
	v0 := s.Axes[1]
	if *v0.Default != 0 || v0.Minimum != 0 || v0.Maximum != 1 || v0.InterpolationAlgorithm() != timeline.Linear {
		t.Errorf("unexpected V0 %+v", v0)
	}

	osr := s.Outputs[0].LoopConfig()
	if osr.Discipline != output.Polled || osr.Execution != output.Task || osr.DirtyFilter {
		t.Errorf("unexpected loop config %+v", osr)
	}
	if len(osr.Axes) != 1 || osr.Axes[0] != axis.L0 {
		t.Errorf("unexpected loop axes %v", osr.Axes)
	}
	if tc := s.Outputs[0].TransportConfig(); tc.Kind != transport.KindSerial || tc.Address != "/dev/ttyUSB0" {
		t.Errorf("unexpected transport config %+v", tc)
	}

	second := s.Outputs[1]
	if second.Name != "output-2" {
		t.Errorf("expected generated name output-2, got %q", second.Name)
	}
	if second.LoopConfig().Interval != output.DefaultMinInterval {
		t.Errorf("expected interval clamped to %v, got %v", output.DefaultMinInterval, second.LoopConfig().Interval)
	}
	if !second.LoopConfig().DirtyFilter {
		t.Error("dirty filter should default on")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		errPart  string
	}{
		{"bad toml", `[logging`, "parse settings"},
		{"bad level", "[logging]\nlevel = \"loud\"", "logging.level"},
		{"bad source", "[media]\nsource = \"vcr\"", "media.source"},
		{"unknown axis", "[[axes]]\nname = \"Z9\"", "unknown axis"},
		{"duplicate axis", "[[axes]]\nname = \"L0\"\n[[axes]]\nname = \"l0\"", "twice"},
		{"bad algorithm", "[[axes]]\nname = \"L0\"\nalgorithm = \"cubic\"", "algorithm"},
		{"bad transport", "[[outputs]]\ntransport = \"smoke\"\naddress = \"x\"", "unknown transport"},
		{"missing address", "[[outputs]]\ntransport = \"tcp\"", "needs an address"},
		{"bad discipline", "[[outputs]]\ntransport = \"null\"\ndiscipline = \"sometimes\"", "discipline"},
		{"unconfigured axis", "[[outputs]]\ntransport = \"null\"\naxes = [\"R1\"]", "not configured"},
		{"duplicate output", "[[outputs]]\nname = \"a\"\ntransport = \"null\"\n[[outputs]]\nname = \"a\"\ntransport = \"null\"", "used twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := Load(writeSettings(t, tt.contents))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("expected error containing %q, got %v", tt.errPart, err)
			}
		})
	}
}

func TestNormalizeRanges(t *testing.T) {
	s := Default()
	s.Axes = []Axis{
		{Name: "L0", Minimum: -1, Maximum: 2},
		{Name: "R0", Minimum: 0.5, Maximum: 0.5},
	}
	if err := s.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if s.Axes[0].Minimum != 0 || s.Axes[0].Maximum != 1 {
		t.Errorf("expected clamped range, got %+v", s.Axes[0])
	}
	if s.Axes[1].Minimum != 0 || s.Axes[1].Maximum != 1 {
		t.Errorf("expected collapsed range reset, got %+v", s.Axes[1])
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")

	s := Default()
	s.Media.Port = 9001
	s.Outputs = append(s.Outputs, Output{Name: "tcp", Transport: "tcp", Address: "127.0.0.1:8000"})
	if err := s.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || loaded.Media.Port != 9001 || len(loaded.Outputs) != 2 {
		t.Errorf("unexpected reloaded settings %+v", loaded)
	}
	if _, ok := loaded.Output("TCP"); !ok {
		t.Error("expected case-insensitive output lookup")
	}
}

func TestAxisTable(t *testing.T) {
	s := Default()
	s.Axes = []Axis{{Name: "L0", Minimum: 0.1, Maximum: 0.9, Default: ptr(0.3)}}
	if err := s.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	table := s.AxisTable()
	st := table.Get(axis.L0)
	if st == nil {
		t.Fatal("L0 missing from table")
	}
	if st.Range.Minimum() != 0.1 || st.Range.Maximum() != 0.9 || st.Default() != 0.3 {
		t.Errorf("unexpected live settings min=%v max=%v default=%v", st.Range.Minimum(), st.Range.Maximum(), st.Default())
	}
	if table.Get(axis.R0) != nil {
		t.Error("unconfigured axis should not be in the table")
	}
}
