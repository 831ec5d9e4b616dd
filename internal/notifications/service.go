package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"hdrconv/internal/config"
	"hdrconv/internal/textutil"
)

const userAgent = "hdrconv/0.1.0"

// Service defines the notification surface used by the CLI and HTTP server.
type Service interface {
	NotifyConversionCompleted(ctx context.Context, outputPath string, sizeBytes int64, elapsed time.Duration) error
	NotifyConversionFailed(ctx context.Context, inputPath, kind, detail string) error
	NotifyBatchCompleted(ctx context.Context, succeeded, failed int, elapsed time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		completed: cfg.Notifications.Completed,
		errors:    cfg.Notifications.Errors,
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
	errors    bool
}

func (n *ntfyService) NotifyConversionCompleted(ctx context.Context, outputPath string, sizeBytes int64, elapsed time.Duration) error {
	if !n.completed {
		return nil
	}
	message := fmt.Sprintf("✅ HDR ready: %s", filepath.Base(strings.TrimSpace(outputPath)))
	var details []string
	if sizeBytes > 0 {
		details = append(details, humanize.Bytes(uint64(sizeBytes)))
	}
	if elapsed > 0 {
		details = append(details, "took "+elapsed.Round(time.Second).String())
	}
	if len(details) > 0 {
		message += " (" + strings.Join(details, ", ") + ")"
	}
	return n.send(ctx, payload{
		title:   "hdrconv - Conversion Complete",
		message: message,
		tags:    []string{"hdrconv", "convert", "completed"},
	})
}

func (n *ntfyService) NotifyConversionFailed(ctx context.Context, inputPath, kind, detail string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ ")
	if label := textutil.Label(kind); label != "" {
		builder.WriteString(label)
	} else {
		builder.WriteString("Error")
	}
	if name := filepath.Base(strings.TrimSpace(inputPath)); name != "." && name != "" {
		builder.WriteString(" for ")
		builder.WriteString(name)
	}
	if detail = firstLine(detail); detail != "" {
		builder.WriteString(": ")
		builder.WriteString(detail)
	}
	return n.send(ctx, payload{
		title:    "hdrconv - Conversion Failed",
		message:  builder.String(),
		tags:     []string{"hdrconv", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, succeeded, failed int, elapsed time.Duration) error {
	if !n.completed {
		return nil
	}
	elapsed = max(elapsed.Round(time.Second), 0)
	title := "hdrconv - Batch Complete"
	message := fmt.Sprintf("Converted %d files in %s", succeeded, elapsed)
	if failed > 0 {
		title = "hdrconv - Batch Complete (with errors)"
		message = fmt.Sprintf("%d converted, %d failed in %s", succeeded, failed, elapsed)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"hdrconv", "batch", "completed"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "hdrconv - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"hdrconv", "test"},
		priority: "low",
	})
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

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if line, _, ok := strings.Cut(text, "\n"); ok {
		return strings.TrimSpace(line)
	}
	return text
}

type noopService struct{}

func (noopService) NotifyConversionCompleted(context.Context, string, int64, time.Duration) error {
	return nil
}
func (noopService) NotifyConversionFailed(context.Context, string, string, string) error { return nil }
func (noopService) NotifyBatchCompleted(context.Context, int, int, time.Duration) error  { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
