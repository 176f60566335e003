package auth

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"skillglide/common/cache"
	"skillglide/services/jobboard/internal/errors"
)

const tokensKey = "auth:tokens"

// Tokens is the bearer material the gateway attaches to backend requests.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (t Tokens) MarshalBinary() ([]byte, error) {
	return json.Marshal(t)
}

func (t *Tokens) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, t)
}

// TokenStore persists Tokens behind an abstract cache so tests can run in
// memory while deployments share tokens through Redis.
type TokenStore interface {
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, tokens Tokens) error
	Clear(ctx context.Context) error
}

type cacheTokenStore struct {
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewTokenStore wraps c. ttl bounds how long tokens live when the refresh
// token carries no expiry of its own.
func NewTokenStore(c cache.Cache, ttl time.Duration, logger *zap.Logger) TokenStore {
	return &cacheTokenStore{cache: c, ttl: ttl, logger: logger}
}

// Load returns empty Tokens when nothing is stored.
func (s *cacheTokenStore) Load(ctx context.Context) (Tokens, error) {
	var tokens Tokens
	err := s.cache.Get(ctx, tokensKey, &tokens)
	if stderrors.Is(err, cache.ErrNotFound) {
		return Tokens{}, nil
	}
	if err != nil {
		return Tokens{}, errors.Unavailable("token store unavailable", err)
	}
	return tokens, nil
}

func (s *cacheTokenStore) Save(ctx context.Context, tokens Tokens) error {
	ttl := s.ttl
	if exp, ok := ExpiresAt(tokens.RefreshToken); ok {
		if remaining := time.Until(exp); remaining > 0 {
			ttl = remaining
		}
	}
	if err := s.cache.Set(ctx, tokensKey, tokens, ttl); err != nil {
		return errors.Unavailable("saving tokens", err)
	}
	s.logger.Debug("stored bearer tokens", zap.Duration("ttl", ttl))
	return nil
}

func (s *cacheTokenStore) Clear(ctx context.Context) error {
	if err := s.cache.Delete(ctx, tokensKey); err != nil && !stderrors.Is(err, cache.ErrNotFound) {
		return errors.Unavailable("clearing tokens", err)
	}
	return nil
}

// ExpiresAt reads the exp claim without verifying the signature. The
// backend owns the signing key; the client only needs to know when to
// refresh.
func ExpiresAt(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// NeedsRefresh reports whether token expires within leeway.
func NeedsRefresh(token string, leeway time.Duration, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	return ok && now.Add(leeway).After(exp)
}
