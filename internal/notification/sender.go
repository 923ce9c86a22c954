package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered email and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ResendSender posts emails to the Resend API.
type ResendSender struct {
	apiKey string
	url    string
	client *http.Client
}

func NewResendSender(apiKey, url string, client *http.Client) *ResendSender {
	return &ResendSender{apiKey: apiKey, url: url, client: client}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	body, err := json.Marshal(map[string]string{
		"from":    msg.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("resend API status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	telemetry.Logger.Debug("Email sent", zap.String("to", msg.To), zap.String("email_id", result.ID))
	return result.ID, nil
}
