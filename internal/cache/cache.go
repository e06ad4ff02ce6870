package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LariSevilha/comment-analysis/internal/logger"
)

// Type partitions the cache into logical namespaces, each with its own
// TTL and size policy.
type Type string

const (
	TypeTranslation    Type = "translation"
	TypeKeywords       Type = "keywords"
	TypeClassification Type = "classification"
	TypeUserMetrics    Type = "user_metrics"
	TypeGroupMetrics   Type = "group_metrics"
	TypeBreaker        Type = "breaker"
)

// ErrValueTooLarge is returned when a write exceeds the type's size
// ceiling. The value is rejected whole, never truncated.
var ErrValueTooLarge = errors.New("cache value exceeds type size limit")

// Policy is the per-type expiry and size policy. TTL == 0 means the
// entry never expires; MaxBytes == 0 means no size ceiling.
type Policy struct {
	TTL      time.Duration
	MaxBytes int
}

// defaultPolicies covers every known type. Translation entries never
// expire: translation is a pure function of its input text.
func defaultPolicies() map[Type]Policy {
	return map[Type]Policy{
		TypeTranslation:    {TTL: 0, MaxBytes: 64 * 1024},
		TypeKeywords:       {TTL: 30 * time.Minute, MaxBytes: 256 * 1024},
		TypeClassification: {TTL: 1 * time.Hour, MaxBytes: 16 * 1024},
		TypeUserMetrics:    {TTL: 1 * time.Hour, MaxBytes: 64 * 1024},
		TypeGroupMetrics:   {TTL: 1 * time.Hour, MaxBytes: 64 * 1024},
		TypeBreaker:        {TTL: 24 * time.Hour, MaxBytes: 4 * 1024},
	}
}

// Cache is the typed cache. Every key is namespaced as
// environment:type:key; values are JSON-encoded.
type Cache struct {
	env      string
	store    Store
	stats    *Stats
	policies map[Type]Policy
	log      *logger.Logger
}

// Option customizes a Cache at construction time.
type Option func(*Cache)

// WithPolicy overrides the policy for one cache type.
func WithPolicy(t Type, p Policy) Option {
	return func(c *Cache) {
		c.policies[t] = p
	}
}

// New creates a typed cache over the given store.
func New(env string, store Store, stats *Stats, log *logger.Logger, opts ...Option) *Cache {
	if stats == nil {
		stats = NewStats()
	}
	if log == nil {
		log = logger.Default()
	}
	c := &Cache{
		env:      env,
		store:    store,
		stats:    stats,
		policies: defaultPolicies(),
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) fullKey(t Type, key string) string {
	return fmt.Sprintf("%s:%s:%s", c.env, t, key)
}

func (c *Cache) typePrefix(t Type) string {
	return fmt.Sprintf("%s:%s:", c.env, t)
}

func (c *Cache) policy(t Type) Policy {
	if p, ok := c.policies[t]; ok {
		return p
	}
	return Policy{}
}

// Get reads and JSON-decodes the value into out. The second return is
// true on a hit. Store errors count as misses so callers can fall back.
func (c *Cache) Get(ctx context.Context, t Type, key string, out interface{}) (bool, error) {
	raw, found, err := c.store.Get(ctx, c.fullKey(t, key))
	if err != nil {
		c.stats.miss()
		return false, err
	}
	if !found {
		c.stats.miss()
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.stats.miss()
		return false, fmt.Errorf("decode cached %s/%s: %w", t, key, err)
	}
	c.stats.hit()
	return true, nil
}

// Set JSON-encodes and writes the value under the type's policy.
// Oversized values are rejected with ErrValueTooLarge and logged; the
// cache is left unchanged.
func (c *Cache) Set(ctx context.Context, t Type, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", t, key, err)
	}

	p := c.policy(t)
	if p.MaxBytes > 0 && len(raw) > p.MaxBytes {
		c.stats.reject()
		c.log.WithFields(logger.Fields{
			"cache_type": string(t),
			"key":        key,
			"size":       len(raw),
			"limit":      p.MaxBytes,
		}).Warn("Rejected oversized cache write")
		return ErrValueTooLarge
	}

	if err := c.store.Set(ctx, c.fullKey(t, key), raw, p.TTL); err != nil {
		return err
	}
	c.stats.write()
	return nil
}

// Delete removes a single entry.
func (c *Cache) Delete(ctx context.Context, t Type, key string) error {
	if err := c.store.Delete(ctx, c.fullKey(t, key)); err != nil {
		return err
	}
	c.stats.delete(1)
	return nil
}

// ClearType removes every entry of the given type in this environment.
func (c *Cache) ClearType(ctx context.Context, t Type) error {
	removed, err := c.store.DeleteByPrefix(ctx, c.typePrefix(t))
	c.stats.delete(removed)
	if err != nil {
		return err
	}
	c.log.WithFields(logger.Fields{
		"cache_type": string(t),
		"removed":    removed,
	}).Debug("Cleared cache type")
	return nil
}

// Stats returns a snapshot of the operation counters.
func (c *Cache) Stats() Snapshot {
	return c.stats.Snapshot()
}

// Ping verifies the backing store is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
