// ABOUTME: Tests for the CLI command tree and helpers
// ABOUTME: Tests config init and validate, target listing, logging and the instance lock
package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/motionsync/motionsync-go/internal/settings"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")

	out, err := execute(t, "config", "init", "--path", path)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("expected output to name %s, got %q", path, out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file not written: %v", err)
	}

	if _, err := execute(t, "config", "init", "--path", path); err == nil {
		t.Error("expected init to refuse an existing file")
	}
	if _, err := execute(t, "config", "init", "--path", path, "--overwrite"); err != nil {
		t.Errorf("overwrite failed: %v", err)
	}

	out, err = execute(t, "config", "validate", "--config", path)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "Settings valid") || strings.Contains(out, "defaults were used") {
		t.Errorf("unexpected validate output %q", out)
	}
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("[[outputs]]\nname = \"x\"\ntransport = \"carrier-pigeon\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "config", "validate", "--config", path); err == nil {
		t.Error("expected validation error")
	}
}

func TestTargetsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	out, err := execute(t, "targets", "--config", path)
	if err != nil {
		t.Fatalf("targets failed: %v", err)
	}
	for _, want := range []string{"Name", "null", "fixed-rate/thread", "100 Hz"} {
		if !strings.Contains(out, want) {
			t.Errorf("targets output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTargetsDisabledPolled(t *testing.T) {
	s := settings.Default()
	s.Outputs[0].Disabled = true
	s.Outputs[0].Discipline = "polled"
	s.Outputs[0].Axes = []string{"L0", "R0"}

	out := renderTargets(&s)
	for _, want := range []string{"no", "polled/thread", "L0,R0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTableAlignsNumericColumns(t *testing.T) {
	out := renderTable(deviceColumns, [][]string{
		{"osr2", "tcp", "10.0.0.5", "8000"},
		{"sr6", "udp", "10.0.0.6", "80"},
	})
	for _, want := range []string{"Port", "osr2", "10.0.0.6", "  80 "} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, expected %v", tt.in, got, tt.expected)
		}
	}
}

func TestNewLoggerWritesFileAndStdout(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	path := filepath.Join(t.TempDir(), "motionsync.log")
	var stdout bytes.Buffer

	logger, closeFn, err := newLogger(settings.Logging{Level: "info", File: path}, false, &stdout)
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	logger.Info("hello", "k", "v")
	logger.Debug("hidden")
	closeFn()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, got := range []string{string(data), stdout.String()} {
		if !strings.Contains(got, "msg=hello") || !strings.Contains(got, "k=v") {
			t.Errorf("missing log line in %q", got)
		}
		if strings.Contains(got, "hidden") {
			t.Errorf("debug line should be filtered: %q", got)
		}
	}
}

func TestNewLoggerTUIKeepsStdoutClean(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var stdout bytes.Buffer
	logger, closeFn, err := newLogger(settings.Logging{Level: "debug"}, true, &stdout)
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	logger.Info("quiet")
	if stdout.Len() != 0 {
		t.Errorf("expected nothing on stdout, got %q", stdout.String())
	}
}

func TestInstanceLock(t *testing.T) {
	path := lockPath(filepath.Join(t.TempDir(), "cfg", "settings.toml"))
	if filepath.Base(path) != lockFileName {
		t.Fatalf("unexpected lock path %s", path)
	}

	release, err := acquireInstanceLock(path)
	if err != nil {
		t.Fatalf("first lock failed: %v", err)
	}
	if _, err := acquireInstanceLock(path); err == nil {
		t.Error("expected second lock to fail")
	}
	release()

	release, err = acquireInstanceLock(path)
	if err != nil {
		t.Fatalf("relock failed: %v", err)
	}
	release()
}
