package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present", "#!/bin/sh\nexit 0\n")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank command status %#v", results[2])
	}
}

func TestCheckBinariesReadsVersion(t *testing.T) {
	binDir := t.TempDir()
	stub := writeStub(t, binDir, "ffprobe", "#!/bin/sh\necho\necho 'ffprobe version 6.1.1 Copyright'\necho 'built with gcc'\n")

	results := CheckBinaries(context.Background(), []Requirement{{Name: "FFprobe", Command: stub, VersionArgs: []string{"-version"}}})
	if got := results[0].Version; got != "ffprobe version 6.1.1 Copyright" {
		t.Fatalf("unexpected version %q", got)
	}
}

func TestCheckBinariesVersionFailureKeepsAvailability(t *testing.T) {
	binDir := t.TempDir()
	stub := writeStub(t, binDir, "broken", "#!/bin/sh\nexit 3\n")

	results := CheckBinaries(context.Background(), []Requirement{{Name: "Broken", Command: stub, VersionArgs: []string{"-version"}}})
	if !results[0].Available {
		t.Fatal("expected binary to remain available")
	}
	if results[0].Detail == "" {
		t.Fatal("expected version failure detail")
	}
}

func TestCheckBinariesResolvesFromPath(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, binDir, "showcopier-test-tool", "#!/bin/sh\nexit 0\n")
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	results := CheckBinaries(context.Background(), []Requirement{{Name: "Tool", Command: "showcopier-test-tool"}})
	if !results[0].Available {
		t.Fatalf("expected PATH lookup to succeed: %s", results[0].Detail)
	}
	if results[0].Path != filepath.Join(binDir, "showcopier-test-tool") {
		t.Fatalf("unexpected resolved path %q", results[0].Path)
	}
}
