package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// WebhookProvider posts messages to a chat webhook as JSON.
type WebhookProvider struct {
	url    string
	token  string // optional bearer token
	client *http.Client
	logger *slog.Logger
}

// NewWebhookProvider creates a webhook provider.
func NewWebhookProvider(url, token string, logger *slog.Logger) *WebhookProvider {
	return &WebhookProvider{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type webhookPayload struct {
	Content string `json:"content"`
}

// Send posts the message to the webhook. Transient transport failures are
// retried a few times inside this single dispatch; after that the error is
// returned for the caller to log. Nothing is queued for later.
func (w *WebhookProvider) Send(ctx context.Context, content string) error {
	jsonData, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	return retry.Do(
		func() error {
			w.logger.Info("Webhook request starting",
				"method", "POST",
				"content_length", len(content))

			startTime := time.Now()
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(jsonData))
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}

			req.Header.Set("Content-Type", "application/json")
			if w.token != "" {
				req.Header.Set("Authorization", "Bearer "+w.token)
			}

			resp, err := w.client.Do(req)
			duration := time.Since(startTime)

			if err != nil {
				w.logger.Warn("Webhook request failed, will retry",
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					w.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				w.logger.Warn("Webhook returned non-2xx status, will retry",
					"status_code", resp.StatusCode)
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}

			w.logger.Info("Webhook request completed",
				"duration_ms", duration.Milliseconds(),
				"status", "success")

			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			w.logger.Info("Retrying webhook send after error", "attempt", n, "error", err)
		}),
	)
}
