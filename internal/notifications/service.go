package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ppabuild/internal/config"
)

const userAgent = "ppabuild"

// Event names a notification kind.
type Event string

const (
	EventRunSucceeded Event = "run_succeeded"
	EventRunFailed    Event = "run_failed"
	EventTest         Event = "test"
)

// Run describes the release a notification is about.
type Run struct {
	Package          string
	Version          string
	Codename         string
	ChangelogVersion string
	// StopAfter is set when the run ended early on purpose.
	StopAfter   string
	Built       bool
	FailedStage string
	Err         error
	Duration    time.Duration
}

// Service publishes run events.
type Service interface {
	Publish(ctx context.Context, event Event, run Run) error
}

// NewService builds an ntfy-backed notifier, or a no-op when no topic is
// configured.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, run Run) error {
	data, err := format(event, run)
	if err != nil {
		return err
	}
	return n.send(ctx, data)
}

func format(event Event, run Run) (payload, error) {
	release := fmt.Sprintf("%s %s (%s)", run.Package, run.ChangelogVersion, run.Codename)
	switch event {
	case EventRunSucceeded:
		message := "Source package ready: " + release
		if !run.Built {
			message = fmt.Sprintf("Stopped after %s: %s", run.StopAfter, release)
		}
		return payload{
			title:   "ppabuild - Complete",
			message: fmt.Sprintf("%s in %s", message, roundDuration(run.Duration)),
			tags:    []string{"ppabuild", run.Codename, "completed"},
		}, nil
	case EventRunFailed:
		var b strings.Builder
		b.WriteString("Build failed: ")
		b.WriteString(release)
		if run.FailedStage != "" {
			b.WriteString("\nStage: ")
			b.WriteString(run.FailedStage)
		}
		if run.Err != nil {
			b.WriteString("\nError: ")
			b.WriteString(strings.TrimSpace(run.Err.Error()))
		}
		return payload{
			title:    "ppabuild - Failed",
			message:  b.String(),
			tags:     []string{"ppabuild", run.Codename, "error"},
			priority: "high",
		}, nil
	case EventTest:
		return payload{
			title:    "ppabuild - Test",
			message:  "Notification system test",
			tags:     []string{"ppabuild", "test"},
			priority: "low",
		}, nil
	}
	return payload{}, fmt.Errorf("unknown notification event %q", event)
}

func roundDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < 0 {
		d = 0
	}
	return d.String()
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Run) error { return nil }
