package testsupport

import (
	"context"
	"testing"
	"time"

	"ppabuild/internal/config"
	"ppabuild/internal/history"
)

// MustOpenHistory opens a history.Store for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordBuiltRun stores a finished, successfully built run.
func RecordBuiltRun(t testing.TB, store *history.Store, id, codename, changelogVersion string) {
	t.Helper()

	ctx := context.Background()
	started := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	if err := store.BeginRun(ctx, history.Run{
		ID:               id,
		Package:          "helix",
		UpstreamVersion:  "25.01",
		Codename:         codename,
		ChangelogVersion: changelogVersion,
		StartedAt:        started,
	}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := store.FinishRun(ctx, id, history.Outcome{
		Status:     history.StatusSucceeded,
		Built:      true,
		FinishedAt: started.Add(3 * time.Minute),
	}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
}
