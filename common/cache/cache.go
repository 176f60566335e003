package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("key not found in cache")
	ErrInvalidValue = errors.New("invalid value for cache")
	ErrClosed       = errors.New("cache is closed")
	ErrInvalidKey   = errors.New("invalid cache key")
)

// Cache is the key/value storage used for session material such as bearer
// tokens. Values are stored as bytes: strings, byte slices and
// encoding.BinaryMarshaler implementations are accepted by Set, and Get
// decodes into *string, *[]byte or an encoding.BinaryUnmarshaler.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Get(ctx context.Context, key string, value interface{}) error

	Delete(ctx context.Context, key string) error

	Clear(ctx context.Context) error

	Close() error
}

type Options struct {
	DefaultTTL time.Duration

	CleanupInterval time.Duration

	KeyPrefix string

	RedisURL string

	RedisPassword string

	RedisDB int
}

func DefaultOptions() Options {
	return Options{
		DefaultTTL:      time.Hour,
		CleanupInterval: time.Minute * 5,
	}
}

// TTL resolves the expiry to use for a write: zero means the configured
// default, falling back to DefaultOptions when none is configured.
func (o Options) TTL(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	if o.DefaultTTL > 0 {
		return o.DefaultTTL
	}
	return DefaultOptions().DefaultTTL
}

func (o Options) Key(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	return o.KeyPrefix + key, nil
}
