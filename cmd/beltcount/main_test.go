package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ayusman/beltcount/internal/store"
)

// newContext parses args against the run flags.
func newContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()

	set := flag.NewFlagSet("run", flag.ContinueOnError)
	for _, f := range runFlags() {
		if err := f.Apply(set); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestLoadSettings_FlagOverrides(t *testing.T) {
	c := newContext(t, "--input", "belt.mp4", "--policy", "edge", "--line-y", "300", "--output", "")

	got, err := loadSettings(c)
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if got.Input != "belt.mp4" || got.Counting.Policy != "edge" || got.Counting.LineY != 300 {
		t.Errorf("overrides not applied: %+v", got)
	}
	if got.Output != "" {
		t.Errorf("Output = %q, want empty (explicitly cleared)", got.Output)
	}
	if got.LogFile != "count_log.txt" {
		t.Errorf("LogFile = %q, want default", got.LogFile)
	}
}

func TestLoadSettings_ConfigFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "belt.yaml")
	yaml := "input: from-file.mp4\ncounting:\n  policy: edge\n  tolerance: 8\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newContext(t, "--config", path, "--policy", "per_frame")

	got, err := loadSettings(c)
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if got.Input != "from-file.mp4" || got.Counting.Tolerance != 8 {
		t.Errorf("file values not applied: %+v", got)
	}
	if got.Counting.Policy != "per_frame" {
		t.Errorf("Policy = %q, flag should win over file", got.Counting.Policy)
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	c := newContext(t, "--policy", "sometimes")
	if _, err := loadSettings(c); err == nil {
		t.Error("loadSettings() should reject an unknown policy")
	}
}

func TestDisplayAddr(t *testing.T) {
	tests := map[string]string{
		":8080":          "localhost:8080",
		"127.0.0.1:9000": "127.0.0.1:9000",
		"":               "",
	}
	for in, want := range tests {
		if got := displayAddr(in); got != want {
			t.Errorf("displayAddr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteRuns(t *testing.T) {
	finished := time.Now()
	runs := []*store.Run{
		{ID: "a1", Source: "cherries.mp4", Policy: "per_frame", Frames: 1500, Count: 1204, StartedAt: time.Now().Add(-time.Hour), FinishedAt: &finished},
		{ID: "b2", Source: "live.mp4", Policy: "edge", StartedAt: time.Now()},
	}

	var out bytes.Buffer
	if err := writeRuns(&out, runs); err != nil {
		t.Fatalf("writeRuns() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2:\n%s", len(lines), out.String())
	}
	for _, want := range []string{"1,204", "1,500", "finished", "1 hour ago"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row %q missing %q", lines[1], want)
		}
	}
	if !strings.Contains(lines[2], "running") {
		t.Errorf("row %q should show an unfinished run", lines[2])
	}
}
