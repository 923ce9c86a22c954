package momo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

const tokenSafetyMargin = 60 * time.Second

// TokenStore is the subset of the redis client the cache needs.
type TokenStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedTokenProvider reuses a bearer token until shortly before it
// expires. Cache failures fall through to the wrapped provider.
type CachedTokenProvider struct {
	next  interfaces.TokenProvider
	store TokenStore
	key   string
	now   func() time.Time
}

// cachedToken keeps the absolute expiry so a cache hit can report how long
// the token has left.
type cachedToken struct {
	Token     models.AccessToken `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
}

func NewCachedTokenProvider(next interfaces.TokenProvider, store TokenStore, apiUser string) *CachedTokenProvider {
	return &CachedTokenProvider{
		next:  next,
		store: store,
		key:   "momo:token:" + apiUser,
		now:   time.Now,
	}
}

func (p *CachedTokenProvider) GetAccessToken(ctx context.Context) (*models.AccessToken, error) {
	raw, err := p.store.Get(ctx, p.key).Bytes()
	switch {
	case err == nil:
		if token, ok := p.decode(raw); ok {
			return token, nil
		}
	case !errors.Is(err, redis.Nil):
		telemetry.Logger.Warn("Token cache read failed", zap.Error(err))
	}

	token, err := p.next.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	lifetime := time.Duration(token.ExpiresIn) * time.Second
	ttl := lifetime - tokenSafetyMargin
	if ttl <= 0 {
		return token, nil
	}
	encoded, err := json.Marshal(cachedToken{Token: *token, ExpiresAt: p.now().Add(lifetime)})
	if err != nil {
		return token, nil
	}
	if err := p.store.Set(ctx, p.key, encoded, ttl).Err(); err != nil {
		telemetry.Logger.Warn("Token cache write failed", zap.Error(err))
	}
	return token, nil
}

func (p *CachedTokenProvider) decode(raw []byte) (*models.AccessToken, bool) {
	var entry cachedToken
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Token.AccessToken == "" {
		return nil, false
	}
	remaining := entry.ExpiresAt.Sub(p.now())
	if remaining <= tokenSafetyMargin {
		return nil, false
	}
	token := entry.Token
	token.ExpiresIn = int(remaining / time.Second)
	return &token, true
}
