// Package notifications pushes run and clip lifecycle events to an ntfy
// topic. When no topic is configured every notification is a no-op.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipmill/internal/config"
)

const userAgent = "Clipmill/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyRunStarted(ctx context.Context, queued int) error
	NotifyRunCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyVideoProcessed(ctx context.Context, title string, clipsCreated, clipsPublished int) error
	NotifyClipPublished(ctx context.Context, title string, succeeded, targets int) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
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
		endpoint:       topic,
		client:         &http.Client{Timeout: timeout},
		videoProcessed: cfg.Notifications.VideoProcessed,
		clipPublished:  cfg.Notifications.ClipPublished,
		errors:         cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint       string
	client         *http.Client
	videoProcessed bool
	clipPublished  bool
	errors         bool
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, queued int) error {
	data := payload{
		title:   "Clipmill - Run Started",
		message: fmt.Sprintf("Started run with %d queued videos", queued),
		tags:    []string{"clipmill", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var title, message string
	if failed == 0 {
		title = "Clipmill - Run Complete"
		message = fmt.Sprintf("Run complete: %d videos processed in %s", processed, duration)
	} else {
		title = "Clipmill - Run Complete (with errors)"
		message = fmt.Sprintf("Run complete: %d processed, %d failed in %s", processed, failed, duration)
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"clipmill", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyVideoProcessed(ctx context.Context, title string, clipsCreated, clipsPublished int) error {
	if !n.videoProcessed {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Clipmill - Video Processed",
		message: fmt.Sprintf("Processed: %s (%d clips created, %d published)", title, clipsCreated, clipsPublished),
		tags:    []string{"clipmill", "video", "processed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyClipPublished(ctx context.Context, title string, succeeded, targets int) error {
	if !n.clipPublished {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:    "Clipmill - Clip Published",
		message:  fmt.Sprintf("Published: %s (%d/%d channels)", title, succeeded, targets),
		tags:     []string{"clipmill", "clip", "published"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Clipmill - Error",
		message:  builder.String(),
		tags:     []string{"clipmill", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Clipmill - Test",
		message:  "Notification system test",
		tags:     []string{"clipmill", "test"},
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

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, int) error                       { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyVideoProcessed(context.Context, string, int, int) error      { return nil }
func (noopService) NotifyClipPublished(context.Context, string, int, int) error       { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
