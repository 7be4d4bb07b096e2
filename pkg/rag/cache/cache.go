// Package cache stores backend results keyed by the normalized query text.
// Caching is an optimization: every storage failure degrades to a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"compliance-assistant-be/internal/metrics"
	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/pkg/kv"
	"compliance-assistant-be/pkg/rag"
)

const (
	KeyPrefix  = "rag_cache_"
	DefaultTTL = time.Hour
)

type entry struct {
	Result    rag.Result `json:"result"`
	Timestamp int64      `json:"timestamp"`
}

type ResponseCache struct {
	store  kv.Store
	ttl    time.Duration
	now    func() time.Time
	logger logger.ILogger
}

type Option func(*ResponseCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *ResponseCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides time.Now, used by tests to move past the TTL.
func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) {
		c.now = now
	}
}

func New(store kv.Store, log logger.ILogger, opts ...Option) *ResponseCache {
	if log == nil {
		log = logger.NewNopLogger()
	}
	c := &ResponseCache{
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached result for query. Entries at or past the TTL are
// deleted and reported as absent.
func (c *ResponseCache) Get(ctx context.Context, query string) (*rag.Result, bool) {
	key := Key(query)

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			c.logger.Warn("ResponseCache", "Cache read failed, treating as miss", map[string]interface{}{"key": key, "error": err.Error()})
		}
		metrics.ObserveCacheLookup("miss")
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.logger.Warn("ResponseCache", "Corrupt cache entry, evicting", map[string]interface{}{"key": key, "error": err.Error()})
		_ = c.store.Delete(ctx, key)
		metrics.ObserveCacheLookup("miss")
		return nil, false
	}

	age := c.now().Sub(time.UnixMilli(e.Timestamp))
	if age >= c.ttl {
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("ResponseCache", "Failed to evict stale entry", map[string]interface{}{"key": key, "error": err.Error()})
		}
		metrics.ObserveCacheLookup("stale")
		return nil, false
	}

	metrics.ObserveCacheLookup("hit")
	return &e.Result, true
}

// Set overwrites the entry for query with result stamped at now.
func (c *ResponseCache) Set(ctx context.Context, query string, result *rag.Result) {
	if result == nil {
		return
	}
	key := Key(query)
	raw, err := json.Marshal(entry{Result: *result, Timestamp: c.now().UnixMilli()})
	if err != nil {
		c.logger.Warn("ResponseCache", "Failed to encode cache entry", map[string]interface{}{"key": key, "error": err.Error()})
		return
	}
	if err := c.store.Set(ctx, key, raw); err != nil {
		c.logger.Warn("ResponseCache", "Cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// Clear drops every cached result.
func (c *ResponseCache) Clear(ctx context.Context) {
	if err := c.store.DeletePrefix(ctx, KeyPrefix); err != nil {
		c.logger.Warn("ResponseCache", "Failed to clear cache", map[string]interface{}{"error": err.Error()})
	}
}

// Key is the storage key of a query: prefix + base36 of a 32-bit rolling hash
// over the trimmed, lowercased text.
func Key(query string) string {
	return KeyPrefix + strconv.FormatInt(int64(Hash(Normalize(query))), 36)
}

func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Hash is the classic h = h*31 + c polynomial over UTF-16 code units with int32 wrap-around.
func Hash(s string) int32 {
	var h int32
	for _, r := range s {
		if r >= 0x10000 {
			// surrogate pair, hashed as two code units
			r -= 0x10000
			h = h*31 + int32(0xD800+(r>>10))
			h = h*31 + int32(0xDC00+(r&0x3FF))
			continue
		}
		h = h*31 + int32(r)
	}
	return h
}
