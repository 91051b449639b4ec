package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"moversync/internal/config"
)

const userAgent = "moversync/1.0"

// ErrNotConfigured is returned by TestNotification when no topic is set.
var ErrNotConfigured = errors.New("ntfy topic not configured")

// Event identifies an alert kind.
type Event string

const (
	EventBuildFailed        Event = "build_failed"
	EventBuildPartial       Event = "build_partial"
	EventBuildRecovered     Event = "build_recovered"
	EventManagerUnreachable Event = "manager_unreachable"
	EventManagerRestored    Event = "manager_restored"
	EventTest               Event = "test"
)

// Payload carries event fields used to render the message.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	Enabled() bool
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: cfg.Notifications.Timeout()},
	}
}

// TestNotification sends a test message, or returns ErrNotConfigured.
func TestNotification(ctx context.Context, svc Service) error {
	if svc == nil || !svc.Enabled() {
		return ErrNotConfigured
	}
	return svc.Publish(ctx, EventTest, nil)
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Enabled() bool { return true }

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventBuildFailed:
		return message{
			title:    "moversync - Build Failed",
			body:     fmt.Sprintf("Exclusion file was not written: %s", text(payload, "error", "unknown error")),
			tags:     []string{"moversync", "build", "error"},
			priority: "high",
		}, true
	case EventBuildPartial:
		return message{
			title: "moversync - Partial Build",
			body: fmt.Sprintf("Wrote %s exclusions without: %s",
				text(payload, "total", "0"), text(payload, "sources", "unknown")),
			tags: []string{"moversync", "build", "warning"},
		}, true
	case EventBuildRecovered:
		return message{
			title: "moversync - Build Recovered",
			body:  fmt.Sprintf("Exclusion file written again (%s entries)", text(payload, "total", "0")),
			tags:  []string{"moversync", "build", "recovered"},
		}, true
	case EventManagerUnreachable:
		return message{
			title:    "moversync - Manager Unreachable",
			body:     fmt.Sprintf("%s is not responding; its paths are not being excluded", text(payload, "manager", "manager")),
			tags:     []string{"moversync", "connection", "error"},
			priority: "high",
		}, true
	case EventManagerRestored:
		return message{
			title: "moversync - Manager Restored",
			body:  fmt.Sprintf("%s is reachable again", text(payload, "manager", "manager")),
			tags:  []string{"moversync", "connection", "recovered"},
		}, true
	case EventTest:
		return message{
			title:    "moversync - Test",
			body:     "Notification system test",
			tags:     []string{"moversync", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func text(payload Payload, key, fallback string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return fallback
	}
	s := strings.TrimSpace(fmt.Sprint(value))
	if s == "" {
		return fallback
	}
	return s
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) Enabled() bool                                 { return false }
