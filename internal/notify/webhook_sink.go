package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
)

// WebhookSink POSTs status changes to an HTTP endpoint, signed with
// HMAC-SHA256 over the body in X-Webhook-Signature.
type WebhookSink struct {
	httpClient *http.Client
	url        string
	secret     string
}

func NewWebhookSink(url, secret string) *WebhookSink {
	return &WebhookSink{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
		secret:     secret,
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Send(ctx context.Context, change domain.StatusChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshalling status change: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", computeHMAC(payload, s.secret))
	req.Header.Set("X-Webhook-Event", "message.status_changed")
	req.Header.Set("X-Webhook-ID", change.ProviderEventID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

func computeHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
