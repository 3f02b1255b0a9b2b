package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studyforge/internal/config"
)

const userAgent = "studyforge/0.1.0"

// Job describes the finished job a notice is about.
type Job struct {
	ID        string
	ProjectID string
	Type      string
	Duration  time.Duration
	Message   string
}

// Service defines the notification surface exposed to the runner.
type Service interface {
	NotifyJobCompleted(ctx context.Context, job Job) error
	NotifyJobFailed(ctx context.Context, job Job) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		completed: cfg.Notifications.NotifyCompleted,
		failed:    cfg.Notifications.NotifyFailed,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	completed bool
	failed    bool
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, job Job) error {
	if !n.completed {
		return nil
	}
	data := payload{
		title:   "studyforge - Job Complete",
		message: fmt.Sprintf("✅ %s job %s finished for project %s in %s", job.Type, shortID(job.ID), job.ProjectID, roundDuration(job.Duration)),
		tags:    []string{"studyforge", job.Type, "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, job Job) error {
	if !n.failed {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "❌ %s job %s failed for project %s", job.Type, shortID(job.ID), job.ProjectID)
	if msg := strings.TrimSpace(job.Message); msg != "" {
		builder.WriteString(": ")
		builder.WriteString(msg)
	}
	data := payload{
		title:    "studyforge - Job Failed",
		message:  builder.String(),
		tags:     []string{"studyforge", job.Type, "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "studyforge - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"studyforge", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

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

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func roundDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d.Round(time.Second)
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, Job) error { return nil }
func (noopService) NotifyJobFailed(context.Context, Job) error    { return nil }
func (noopService) TestNotification(context.Context) error        { return nil }
