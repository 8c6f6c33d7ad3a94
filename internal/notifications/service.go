package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
)

const userAgent = "reelsmith/0.1.0"

// Event identifies a pipeline milestone.
type Event string

const (
	EventStageStarted   Event = "stage_started"
	EventStageCompleted Event = "stage_completed"
	EventReelRendered   Event = "reel_rendered"
	EventReelPublished  Event = "reel_published"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event fields. Values are formatted with %v.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is
// configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
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

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventStageCompleted:
		stage := payload.text("stage")
		return message{
			title: "Reelsmith - " + titleCase(stage) + " Complete",
			body:  fmt.Sprintf("✅ %s finished: %s", stage, payload.text("summary")),
			tags:  []string{"reelsmith", stage, "completed"},
		}, true
	case EventReelRendered:
		return message{
			title: "Reelsmith - Reel Rendered",
			body:  fmt.Sprintf("🎬 Rendered %s: %s", payload.text("reelId"), payload.text("title")),
			tags:  []string{"reelsmith", "generate", "rendered"},
		}, true
	case EventReelPublished:
		return message{
			title:    "Reelsmith - Published",
			body:     fmt.Sprintf("📱 Published %s as media %s", payload.text("reelId"), payload.text("mediaId")),
			tags:     []string{"reelsmith", "publish", "instagram"},
			priority: "high",
		}, true
	case EventError:
		body := "❌ Error"
		if label := payload.text("context"); label != "" {
			body += " with " + label
		}
		if detail := payload.text("error"); detail != "" {
			body += ": " + detail
		}
		return message{
			title:    "Reelsmith - Error",
			body:     body,
			tags:     []string{"reelsmith", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Reelsmith - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"reelsmith", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func titleCase(s string) string {
	if s == "" {
		return "Stage"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "notify", "build request", n.endpoint, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notify", "send", "ntfy request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrExternalTool, "notify", "send",
			fmt.Sprintf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
