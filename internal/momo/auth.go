package momo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/config"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

const (
	defaultTokenTTL  = 3600
	defaultTokenType = "Bearer"
)

// AuthClient fetches collection API bearer tokens. Every call hits the
// provider; wrap it in a CachedTokenProvider to reuse tokens.
type AuthClient struct {
	cfg  config.MoMoConfig
	http *http.Client
}

func NewAuthClient(cfg config.MoMoConfig, httpClient *http.Client) *AuthClient {
	return &AuthClient{cfg: cfg, http: httpClient}
}

func (a *AuthClient) GetAccessToken(ctx context.Context) (*models.AccessToken, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.Tracer.Start(ctx, "momo.GetAccessToken")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/collection/token/", nil)
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(a.cfg.APIUser + ":" + a.cfg.APIKey))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Ocp-Apim-Subscription-Key", a.cfg.SubscriptionKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		observe("token", "error", start)
		return nil, fmt.Errorf("momo token request: %w", err)
	}
	defer resp.Body.Close()
	observe("token", strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		telemetry.Logger.Error("MTN MoMo auth error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var token models.AccessToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: "empty access_token"}
	}
	if token.ExpiresIn <= 0 {
		token.ExpiresIn = defaultTokenTTL
	}
	if token.TokenType == "" {
		token.TokenType = defaultTokenType
	}
	return &token, nil
}

func observe(operation, status string, start time.Time) {
	telemetry.ProviderRequestDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}
