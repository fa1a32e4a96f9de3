// ABOUTME: Tests for funscript loading
// ABOUTME: Covers single-axis, multi-axis, inverted and invalid documents
package timeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFunscriptSingleAxis(t *testing.T) {
	doc := `{"version":"1.0","inverted":false,"range":100,
		"actions":[{"at":1000,"pos":100},{"at":0,"pos":50},{"at":2000,"pos":0}]}`

	script, err := ParseFunscript(strings.NewReader(doc), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tl, ok := script.Timelines[DefaultScriptAxis]
	if !ok {
		t.Fatalf("expected timeline for %s", DefaultScriptAxis)
	}
	if tl.Len() != 3 {
		t.Fatalf("expected 3 keyframes, got %d", tl.Len())
	}

	expected := []Keyframe{{0, 0.5}, {1, 1}, {2, 0}}
	for i, kf := range expected {
		if tl.At(i) != kf {
			t.Errorf("keyframe %d: expected %+v, got %+v", i, kf, tl.At(i))
		}
	}
}

func TestParseFunscriptMultiAxisInverted(t *testing.T) {
	doc := `{"inverted":true,
		"actions":[{"at":0,"pos":0},{"at":500,"pos":100}],
		"axes":[{"id":"r0","actions":[{"at":0,"pos":25},{"at":100,"pos":75}]}]}`

	script, err := ParseFunscript(strings.NewReader(doc), "L0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(script.Timelines) != 2 {
		t.Fatalf("expected 2 timelines, got %d", len(script.Timelines))
	}

	twist := script.Timelines["R0"]
	if twist == nil {
		t.Fatal("expected R0 timeline (ids are upper-cased)")
	}
	if twist.At(0).Value != 0.75 {
		t.Errorf("expected inverted value 0.75, got %v", twist.At(0).Value)
	}
	if script.Timelines["L0"].At(1).Value != 0 {
		t.Errorf("expected inverted value 0, got %v", script.Timelines["L0"].At(1).Value)
	}
}

func TestParseFunscriptErrors(t *testing.T) {
	if _, err := ParseFunscript(strings.NewReader("not json"), ""); err == nil {
		t.Error("expected decode error")
	}
	if _, err := ParseFunscript(strings.NewReader(`{"actions":[]}`), ""); err == nil {
		t.Error("expected error for empty script")
	}
}

func TestLoadFunscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.funscript")
	if err := os.WriteFile(path, []byte(`{"actions":[{"at":0,"pos":10},{"at":250,"pos":90}]}`), 0o644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	script, err := LoadFunscript(path, "L0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if script.Name != "clip" {
		t.Errorf("expected name clip, got %q", script.Name)
	}

	if _, err := LoadFunscript(filepath.Join(t.TempDir(), "missing.funscript"), "L0"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSuffixAxis(t *testing.T) {
	tests := []struct {
		path     string
		axis     string
		expected bool
	}{
		{"/v/video.twist.funscript", "R0", true},
		{"/v/video.Surge.funscript", "L1", true},
		{"/v/video.r2.funscript", "R2", true},
		{"/v/video.funscript", "", false},
		{"/v/a.b.funscript", "", false},
		{"/v/.funscript", "", false},
	}
	for _, tt := range tests {
		axis, ok := SuffixAxis(tt.path)
		if axis != tt.axis || ok != tt.expected {
			t.Errorf("SuffixAxis(%q) = (%q, %v), expected (%q, %v)", tt.path, axis, ok, tt.axis, tt.expected)
		}
	}
}

func TestLoadFunscriptUsesSuffixAxis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.twist.funscript")
	if err := os.WriteFile(path, []byte(`{"actions":[{"at":0,"pos":0},{"at":500,"pos":100}]}`), 0o644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	script, err := LoadFunscript(path, "L0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := script.Timelines["R0"]; !ok || len(script.Timelines) != 1 {
		t.Errorf("expected only an R0 timeline, got %v", script.Timelines)
	}
}

func TestLoadScriptSet(t *testing.T) {
	dir := t.TempDir()
	write := func(name, doc string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	write("movie.funscript", `{"actions":[{"at":0,"pos":0},{"at":1000,"pos":100}],
		"axes":[{"id":"R0","actions":[{"at":0,"pos":0},{"at":1000,"pos":0}]}]}`)
	write("movie.twist.funscript", `{"actions":[{"at":0,"pos":100},{"at":1000,"pos":100}]}`)
	write("movie.R2.funscript", `{"actions":[{"at":0,"pos":50},{"at":2000,"pos":50}]}`)
	write("other.roll.funscript", `{"actions":[{"at":0,"pos":50},{"at":2000,"pos":50}]}`)

	script, files, err := LoadScriptSet(filepath.Join(dir, "movie"), "L0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectedFiles := []string{
		filepath.Join(dir, "movie.funscript"),
		filepath.Join(dir, "movie.twist.funscript"),
		filepath.Join(dir, "movie.R2.funscript"),
	}
	if len(files) != len(expectedFiles) {
		t.Fatalf("expected files %v, got %v", expectedFiles, files)
	}
	for i := range expectedFiles {
		if files[i] != expectedFiles[i] {
			t.Errorf("file %d: expected %s, got %s", i, expectedFiles[i], files[i])
		}
	}

	if script.Name != "movie" || len(script.Timelines) != 3 {
		t.Fatalf("unexpected script %q with %d timelines", script.Name, len(script.Timelines))
	}
	if got := script.Timelines["R0"].At(0).Value; got != 1 {
		t.Errorf("expected twist file to replace the embedded R0 axis, got first value %v", got)
	}
	if _, ok := script.Timelines["R1"]; ok {
		t.Error("scripts of other media must not load")
	}

	script, files, err = LoadScriptSet(filepath.Join(dir, "nothing"), "L0")
	if err != nil || script != nil || files != nil {
		t.Errorf("expected nothing loaded, got %v %v %v", script, files, err)
	}
}
