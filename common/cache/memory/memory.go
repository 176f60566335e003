package memory

import (
	"context"
	"encoding"
	"strings"
	"sync"
	"time"

	"skillglide/common/cache"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Cache keeps values in process memory. Expired entries are invisible to Get
// immediately and are swept every CleanupInterval.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	opts    cache.Options
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

func New(opts cache.Options) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		opts:    opts,
		now:     time.Now,
		done:    make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go c.janitor(opts.CleanupInterval)
	}

	return c
}

func (c *Cache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	k, err := c.opts.Key(key)
	if err != nil {
		return err
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = append([]byte(nil), v...)
	case encoding.BinaryMarshaler:
		data, err = v.MarshalBinary()
		if err != nil {
			return err
		}
	default:
		return cache.ErrInvalidValue
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return cache.ErrClosed
	}

	c.entries[k] = entry{value: data, expiresAt: c.now().Add(c.opts.TTL(ttl))}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string, value interface{}) error {
	k, err := c.opts.Key(key)
	if err != nil {
		return err
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return cache.ErrClosed
	}
	e, ok := c.entries[k]
	c.mu.RUnlock()

	if !ok || e.expired(c.now()) {
		return cache.ErrNotFound
	}

	switch v := value.(type) {
	case *string:
		*v = string(e.value)
	case *[]byte:
		*v = append((*v)[:0], e.value...)
	case encoding.BinaryUnmarshaler:
		return v.UnmarshalBinary(e.value)
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

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return cache.ErrClosed
	}
	delete(c.entries, k)
	return nil
}

func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return cache.ErrClosed
	}

	for k := range c.entries {
		if strings.HasPrefix(k, c.opts.KeyPrefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return nil
}
