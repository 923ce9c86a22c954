package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/config"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

// CollectionClient talks to the collection request-to-pay endpoints.
type CollectionClient struct {
	cfg  config.MoMoConfig
	http *http.Client
}

func NewCollectionClient(cfg config.MoMoConfig, httpClient *http.Client) *CollectionClient {
	return &CollectionClient{cfg: cfg, http: httpClient}
}

// RequestToPay asks the payer's wallet for approval. A 202 means the request
// was accepted, not that the payment succeeded.
func (c *CollectionClient) RequestToPay(ctx context.Context, accessToken string, r models.RequestToPay) error {
	ctx, span := telemetry.Tracer.Start(ctx, "momo.RequestToPay")
	defer span.End()

	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal request to pay: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/collection/v1_0/requesttopay", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request to pay: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Target-Environment", c.cfg.TargetEnvironment)
	req.Header.Set("X-Reference-Id", r.ReferenceID)
	req.Header.Set("X-Callback-Url", c.cfg.CallbackURL)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observe("requesttopay", "error", start)
		return fmt.Errorf("momo request to pay: %w", err)
	}
	defer resp.Body.Close()
	observe("requesttopay", strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		telemetry.Logger.Error("MTN MoMo request to pay rejected",
			zap.String("reference_id", r.ReferenceID),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(raw)),
		)
		return &APIError{Operation: "requesttopay", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return nil
}

// GetRequestToPayStatus fetches the provider's view of a request-to-pay.
func (c *CollectionClient) GetRequestToPayStatus(ctx context.Context, accessToken, referenceID string) (*models.CallbackPayload, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "momo.GetRequestToPayStatus")
	defer span.End()

	endpoint := c.cfg.BaseURL + "/collection/v1_0/requesttopay/" + url.PathEscape(referenceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Target-Environment", c.cfg.TargetEnvironment)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observe("requesttopay_status", "error", start)
		return nil, fmt.Errorf("momo status request: %w", err)
	}
	defer resp.Body.Close()
	observe("requesttopay_status", strconv.Itoa(resp.StatusCode), start)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Operation: "requesttopay_status", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var status models.CallbackPayload
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	status.Raw = json.RawMessage(raw)
	return &status, nil
}
