package redis

import (
	"context"
	"encoding"
	"errors"
	"time"

	"skillglide/common/cache"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
	opts   cache.Options
}

func New(opts cache.Options) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisURL,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})

	return &Cache{client: client, opts: opts}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	k, err := c.opts.Key(key)
	if err != nil {
		return err
	}

	switch value.(type) {
	case string, []byte, encoding.BinaryMarshaler:
	default:
		return cache.ErrInvalidValue
	}

	return c.client.Set(ctx, k, value, c.opts.TTL(ttl)).Err()
}

func (c *Cache) Get(ctx context.Context, key string, value interface{}) error {
	k, err := c.opts.Key(key)
	if err != nil {
		return err
	}

	val, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return cache.ErrNotFound
	}
	if errors.Is(err, redis.ErrClosed) {
		return cache.ErrClosed
	}
	if err != nil {
		return err
	}

	switch v := value.(type) {
	case *string:
		*v = string(val)
	case *[]byte:
		*v = append((*v)[:0], val...)
	case encoding.BinaryUnmarshaler:
		return v.UnmarshalBinary(val)
	default:
		return cache.ErrInvalidValue
	}

	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	k, err := c.opts.Key(key)
	if err != nil {
		return err
	}
	return c.client.Del(ctx, k).Err()
}

// Clear removes every key under the configured prefix. Without a prefix the
// whole database is flushed.
func (c *Cache) Clear(ctx context.Context) error {
	if c.opts.KeyPrefix == "" {
		return c.client.FlushDB(ctx).Err()
	}

	iter := c.client.Scan(ctx, 0, c.opts.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
