package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ppabuild/internal/changelog"
	"ppabuild/internal/services"
)

var kineticArgs = []string{"25.01", "kinetic", "25.01-1~ubuntu22.10~ppa1"}

func TestBuildProducesStampedSourcePackage(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, kineticArgs, env.configPath)
	if err != nil {
		t.Fatalf("ppabuild: %v", err)
	}
	requireContains(t, out, "Stamp Changelog")
	requireContains(t, out, "Source package files written to")

	entry, err := changelog.ReadTopEntry(filepath.Join(env.tree(), "debian", "changelog"))
	if err != nil {
		t.Fatalf("read changelog: %v", err)
	}
	if entry.Version != "25.01-1~ubuntu22.10~ppa1" || entry.Distribution != "kinetic" {
		t.Fatalf("unexpected top entry %+v", entry)
	}

	root := env.cfg.Paths.WorkDir
	for _, want := range []string{
		"helix_25.01.orig.tar.xz",
		"helix_25.01-1~ubuntu22.10~ppa1_source.changes",
		filepath.Join("helix-25.01", "debian", "vendor.tar.xz"),
		filepath.Join("helix-25.01", "Cargo.lock"),
	} {
		if _, err := os.Stat(filepath.Join(root, want)); err != nil {
			t.Fatalf("expected %s: %v", want, err)
		}
	}
	for _, gone := range []string{"debian", filepath.Join("helix-25.01", "vendor")} {
		if _, err := os.Stat(filepath.Join(root, gone)); !os.IsNotExist(err) {
			t.Fatalf("%s should not exist after a full run, err=%v", gone, err)
		}
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "kinetic")
	requireContains(t, out, "built")

	out, _, err = runCLI(t, []string{"logs", "-n", "500"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, `"event_type":"run_complete"`)
}

func TestSkipBuildStopsAfterVendoring(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, append([]string{"--skip-build"}, kineticArgs...), env.configPath)
	if err != nil {
		t.Fatalf("ppabuild --skip-build: %v", err)
	}
	requireContains(t, out, "Vendor Dependencies")

	root := env.cfg.Paths.WorkDir
	if _, err := os.Stat(filepath.Join(root, "debian", "vendor.tar.xz")); err != nil {
		t.Fatalf("vendor archive should be staged: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "helix_25.01-1~ubuntu22.10~ppa1_source.changes")); !os.IsNotExist(err) {
		t.Fatalf("debuild must not run, err=%v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "debian", "changelog"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("helix (24.07-1) noble")) {
		t.Fatalf("changelog must not be stamped:\n%s", data)
	}
}

func TestRerunLeavesNoResidue(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, append([]string{"--skip-build"}, kineticArgs...), env.configPath); err != nil {
		t.Fatalf("first run: %v", err)
	}
	stale := filepath.Join(env.cfg.Paths.WorkDir, "stale.txt")
	if err := os.WriteFile(stale, []byte("left over"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, kineticArgs, env.configPath); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale file survived the reset, err=%v", err)
	}
	entries, err := os.ReadDir(filepath.Join(env.tree(), "debian"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() == "debian" {
			t.Fatal("metadata was nested inside an existing debian/ directory")
		}
	}
}

func TestDuplicateBuildRefused(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, kineticArgs, env.configPath); err != nil {
		t.Fatalf("first build: %v", err)
	}
	_, _, err := runCLI(t, kineticArgs, env.configPath)
	if !errors.Is(err, services.ErrUsage) {
		t.Fatalf("expected duplicate build refusal, got %v", err)
	}
	if _, _, err := runCLI(t, append([]string{"--allow-rebuild"}, kineticArgs...), env.configPath); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
}

func TestToolExitCodePropagates(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeTool(t, "debuild", "#!/bin/sh\necho 'gpg: signing failed' >&2\nexit 3\n")

	_, _, err := runCLI(t, kineticArgs, env.configPath)
	if err == nil {
		t.Fatal("expected build failure")
	}
	if code := exitCode(err); code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
	var buf bytes.Buffer
	printError(&buf, err)
	requireContains(t, buf.String(), "error class: external_tool, failed stage: build")
	requireContains(t, buf.String(), "last output from debuild:\n    gpg: signing failed\n")
}

func TestVendorFailureShowsToolOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeTool(t, "cargo", "#!/bin/sh\necho 'error: failed to load source for dependency `serde`' >&2\nexit 101\n")

	_, _, err := runCLI(t, kineticArgs, env.configPath)
	if err == nil {
		t.Fatal("expected vendoring failure")
	}
	var buf bytes.Buffer
	printError(&buf, err)
	requireContains(t, buf.String(), "failed stage: vendor-dependencies")
	requireContains(t, buf.String(), "    error: failed to load source for dependency `serde`")
}

func TestFailedRunSendsNotification(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeTool(t, "debuild", "#!/bin/sh\nexit 2\n")

	var mu sync.Mutex
	var bodies []string
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, r.Header.Get("Title")+"|"+string(body))
		mu.Unlock()
	}))
	defer ntfy.Close()
	env.cfg.Notifications.NtfyTopic = ntfy.URL
	env.writeConfig(t)

	if _, _, err := runCLI(t, kineticArgs, env.configPath); err == nil {
		t.Fatal("expected build failure")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 {
		t.Fatalf("expected one notification, got %v", bodies)
	}
	requireContains(t, bodies[0], "ppabuild - Failed|")
	requireContains(t, bodies[0], "Stage: build")
}

func TestMissingReleaseFailsWithNetworkError(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"99.0", "kinetic", "99.0-1"}, env.configPath)
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if code := exitCode(err); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestUsageErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	cases := map[string][]string{
		"missing arguments":      {"25.01", "kinetic"},
		"unskippable stage":      append([]string{"--skip-stage", "fetch"}, kineticArgs...),
		"unknown stage":          append([]string{"--stop-after", "upload"}, kineticArgs...),
		"conflicting stop point": append([]string{"--skip-build", "--stop-after", "build"}, kineticArgs...),
		"unknown flag":           append([]string{"--dry-run"}, kineticArgs...),
		"bad changelog version":  {"25.01", "kinetic", "ubuntu1"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := runCLI(t, args, env.configPath)
			if !errors.Is(err, services.ErrUsage) {
				t.Fatalf("expected usage error, got %v", err)
			}
			if _, statErr := os.Stat(env.cfg.Paths.WorkDir); !os.IsNotExist(statErr) {
				t.Fatalf("workspace must not be touched, err=%v", statErr)
			}
		})
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}

func TestDoctorReportsMissingTool(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	requireContains(t, out, "Package builder")

	if err := os.Remove(filepath.Join(env.binDir, "debuild")); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", env.binDir)
	out, _, err = runCLI(t, []string{"doctor", "25.01"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	requireContains(t, out, "[ERROR]")
	requireContains(t, out, "Release artifact:")
}
