package deps_test

import (
	"os"
	"path/filepath"
	"testing"

	"studyforge/internal/deps"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "pandoc")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []deps.Requirement{
		{Name: "pandoc", Command: present, Description: "slides rendering"},
		{Name: "yt-dlp", Command: "clearly-not-present-binary", Optional: true},
		{Name: "blank", Command: "  "},
	}

	results := deps.CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" || results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected unconfigured command, got %#v", results[2])
	}

	missing := deps.MissingRequired(results)
	if len(missing) != 1 || missing[0].Name != "blank" {
		t.Fatalf("expected only the required blank command missing, got %#v", missing)
	}
}
