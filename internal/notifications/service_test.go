package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ppabuild/internal/config"
	"ppabuild/internal/notifications"
)

var kinetic = notifications.Run{
	Package:          "helix",
	Version:          "25.01",
	Codename:         "kinetic",
	ChangelogVersion: "25.01-1~ubuntu22.10~ppa1",
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(config.Notifications{})
	if err := svc.Publish(context.Background(), notifications.EventRunSucceeded, kinetic); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	built := kinetic
	built.Built = true
	built.Duration = 3*time.Minute + 400*time.Millisecond

	stopped := kinetic
	stopped.StopAfter = "vendor-dependencies"
	stopped.Duration = 42 * time.Second

	failed := kinetic
	failed.FailedStage = "build"
	failed.Err = errors.New("debuild exited with status 3")

	tests := []struct {
		name           string
		event          notifications.Event
		run            notifications.Run
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "built",
			event:         notifications.EventRunSucceeded,
			run:           built,
			expectTitle:   "ppabuild - Complete",
			expectMessage: "Source package ready: helix 25.01-1~ubuntu22.10~ppa1 (kinetic) in 3m0s",
			expectTags:    "ppabuild,kinetic,completed",
		},
		{
			name:          "stopped early",
			event:         notifications.EventRunSucceeded,
			run:           stopped,
			expectTitle:   "ppabuild - Complete",
			expectMessage: "Stopped after vendor-dependencies: helix 25.01-1~ubuntu22.10~ppa1 (kinetic) in 42s",
			expectTags:    "ppabuild,kinetic,completed",
		},
		{
			name:           "failed",
			event:          notifications.EventRunFailed,
			run:            failed,
			expectTitle:    "ppabuild - Failed",
			expectMessage:  "Build failed: helix 25.01-1~ubuntu22.10~ppa1 (kinetic)\nStage: build\nError: debuild exited with status 3",
			expectTags:     "ppabuild,kinetic,error",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "ppabuild - Test",
			expectMessage:  "Notification system test",
			expectTags:     "ppabuild,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				method   string
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured.method = r.Method
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, _ := io.ReadAll(r.Body)
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL, RequestTimeoutSeconds: 5})
			if err := svc.Publish(context.Background(), tc.event, tc.run); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.method != http.MethodPost {
				t.Fatalf("expected POST, got %s", captured.method)
			}
			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic reserved", http.StatusForbidden)
	}))
	defer server.Close()

	svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL})
	err := svc.Publish(context.Background(), notifications.EventTest, notifications.Run{})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

func TestNtfyServiceRejectsUnknownEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for unknown event")
	}))
	defer server.Close()

	svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL})
	if err := svc.Publish(context.Background(), "queued", kinetic); err == nil {
		t.Fatal("expected error for unknown event")
	}
}
