package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	t.Setenv("PATH", binDir)
	dch := writeStub(t, binDir, "dch")

	results := CheckBinaries([]Requirement{
		{Name: "Changelog tool", Command: " dch "},
		{Name: "Package builder", Command: "debuild", Purpose: "builds the source package"},
		{Name: "Unset", Command: ""},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Available || results[0].Path != dch || results[0].Detail != "" {
		t.Fatalf("unexpected status for dch: %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" || results[1].Purpose != "builds the source package" {
		t.Fatalf("unexpected status for debuild: %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for empty command: %#v", results[2])
	}
}

func TestCheckBinariesDeduplicatesCommands(t *testing.T) {
	binDir := t.TempDir()
	t.Setenv("PATH", binDir)
	writeStub(t, binDir, "cargo")

	results := CheckBinaries([]Requirement{
		{Name: "Vendor tool", Command: "cargo"},
		{Name: "Grammar build tool", Command: "cargo"},
	})
	if len(results) != 1 || results[0].Name != "Vendor tool" {
		t.Fatalf("expected one status for a shared command, got %#v", results)
	}
}

func TestCheckBinariesReportsMissingHelpers(t *testing.T) {
	binDir := t.TempDir()
	t.Setenv("PATH", binDir)
	writeStub(t, binDir, "tar")
	writeStub(t, binDir, "debuild")
	writeStub(t, binDir, "dpkg-buildpackage")

	results := CheckBinaries([]Requirement{
		{Name: "Archive tool", Command: "tar", Helpers: []string{"xz"}},
		{Name: "Package builder", Command: "debuild", Helpers: []string{"dpkg-buildpackage"}},
	})
	if !results[0].Available {
		t.Fatalf("missing helper must not make tar unavailable: %#v", results[0])
	}
	if len(results[0].MissingHelpers) != 1 || results[0].Detail != "missing helpers: xz" {
		t.Fatalf("unexpected helper report %#v", results[0])
	}
	if len(results[1].MissingHelpers) != 0 || results[1].Detail != "" {
		t.Fatalf("unexpected helper report %#v", results[1])
	}
}
