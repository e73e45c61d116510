package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ppabuild/internal/config"
	"ppabuild/internal/logging"
	"ppabuild/internal/services"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Debug("debug message")
}

func TestConsoleLoggerFormatsHeaderAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithStage(services.WithRunID(context.Background(), "run-1"), "fetch")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "fetcher")).Info(
		"download complete",
		logging.String("size", "12 MB"),
	)

	content := readFile(t, logPath)
	for _, fragment := range []string{"INFO [fetcher] fetch – download complete", "    - size: \"12 MB\""} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
	if strings.Contains(content, "run_id") {
		t.Fatalf("expected run_id folded into header, got %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	if content := readFile(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewJSONLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readFile(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["msg"] != "json message" || entry["level"] != "info" || entry["k"] != "v" {
		t.Fatalf("unexpected json entry: %#v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %#v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestNewRunLoggerWritesDebugToFile(t *testing.T) {
	consolePath := filepath.Join(t.TempDir(), "console.log")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{consolePath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logDir := t.TempDir()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	logger, runLog, err := logging.NewRunLogger(base, logDir, "0123abcd-ef45-6789", now)
	if err != nil {
		t.Fatalf("NewRunLogger returned error: %v", err)
	}
	logger.Debug("tool output", logging.String("line", "Vendoring serde"))
	logger.Info("stage completed")
	if err := runLog.Close(); err != nil {
		t.Fatalf("close run log: %v", err)
	}

	if want := filepath.Join(logDir, "20250102T030405Z-0123abcd.log"); runLog.Path != want {
		t.Fatalf("unexpected run log path %q, want %q", runLog.Path, want)
	}
	fileContent := readFile(t, runLog.Path)
	if !strings.Contains(fileContent, "Vendoring serde") || !strings.Contains(fileContent, "stage completed") {
		t.Fatalf("expected debug and info lines in run log, got %q", fileContent)
	}
	consoleContent := readFile(t, consolePath)
	if strings.Contains(consoleContent, "Vendoring serde") {
		t.Fatalf("expected console to filter debug output, got %q", consoleContent)
	}
	if !strings.Contains(consoleContent, "stage completed") {
		t.Fatalf("expected console to receive info output, got %q", consoleContent)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := services.WithRelease(services.WithRunID(context.Background(), "abc"), "25.01")
	fields := logging.ContextFields(ctx)
	keys := map[string]string{}
	for _, f := range fields {
		keys[f.Key] = f.Value.String()
	}
	if keys[logging.FieldRunID] != "abc" || keys[logging.FieldRelease] != "25.01" {
		t.Fatalf("unexpected context fields: %v", keys)
	}
	if _, ok := keys[logging.FieldStage]; ok {
		t.Fatalf("expected no stage field, got %v", keys)
	}
}

func TestPruneRunLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := filepath.Join(dir, "old.log")
	fresh := filepath.Join(dir, "fresh.log")
	keep := filepath.Join(dir, "current.log")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, fresh, keep, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	stale := now.AddDate(0, 0, -10)
	for _, p := range []string{old, keep, other} {
		if err := os.Chtimes(p, stale, stale); err != nil {
			t.Fatalf("chtimes %s: %v", p, err)
		}
	}

	removed := logging.PruneRunLogs(logging.NewNop(), dir, 7, keep, now)
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, err=%v", err)
	}
	for _, p := range []string{fresh, keep, other} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}
	if got := logging.PruneRunLogs(nil, dir, 0, "", now); got != 0 {
		t.Fatalf("expected pruning disabled at 0 days, got %d", got)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestConsoleLoggerRoundsDurationsAndShortensHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("stage completed",
		logging.Duration("stage_duration", 1234567891*time.Nanosecond),
		logging.String("workspace", filepath.Join(home, "target")),
	)

	content := readFile(t, logPath)
	for _, fragment := range []string{"stage_duration: 1.235s", "workspace: ~/target"} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
}

func TestJSONLoggerRendersDurationsAsText(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("run completed", logging.Duration("run_duration", 90*time.Second))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readFile(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["run_duration"] != "1m30s" {
		t.Fatalf("unexpected run_duration %#v", entry["run_duration"])
	}
}
