package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"ppabuild/internal/config"
)

// defaultTools are the programs a full pipeline run invokes.
var defaultTools = []string{"cargo", "tar", "dch", "debuild"}

// ConfigOption adjusts a config produced by NewConfig.
type ConfigOption func(t testing.TB, cfg *config.Config)

// NewConfig returns a config rooted in a fresh temp directory:
//
//	<base>/target              workspace
//	<base>/logs                run logs
//	<base>/state/history.db    build ledger
//	<base>/packaging/debian    packaging template (written)
//
// Options run after the layout is in place.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "target")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.History.Path = filepath.Join(base, "state", "history.db")
	cfg.Package.DebianDir = filepath.Join(base, "packaging", "debian")
	cfg.Fetch.Progress = false
	WritePackagingTemplate(t, cfg.Package.DebianDir)

	for _, opt := range opts {
		opt(t, &cfg)
	}
	return &cfg
}

// BaseDir returns the temp directory backing a config from NewConfig.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}

// WithSourceURL replaces the release URL template.
func WithSourceURL(url string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.Package.SourceURL = url }
}

// WithHistoryDisabled turns the build ledger off.
func WithHistoryDisabled() ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.History.Enabled = false }
}

// WithStubbedBinaries puts no-op executables named after names (default: the
// pipeline's tools) in <base>/bin and prepends that directory to PATH.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, cfg *config.Config) {
		t.Helper()
		if len(names) == 0 {
			names = defaultTools
		}
		binDir := filepath.Join(BaseDir(cfg), "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
