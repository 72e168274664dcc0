package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devank/tmplhub/pkg/models"
	"github.com/devank/tmplhub/pkg/templates"
)

// TemplateCache holds snapshots of active template versions keyed by
// (name, language, type). The store stays the source of truth: a snapshot
// can be stale for at most its TTL if an invalidation was lost to a crash,
// and the system must behave correctly (just slower) with no cache at all.
type TemplateCache interface {
	// Get returns the cached snapshot or nil on a miss. Backend failures
	// come back as a cache-kind error for the caller to swallow.
	Get(ctx context.Context, name, language, templateType string) (*models.Template, error)
	Put(ctx context.Context, name, language, templateType string, t *models.Template, ttl time.Duration) error
	Invalidate(ctx context.Context, name, language, templateType string) error
	Ping(ctx context.Context) error
}

func Key(name, language, templateType string) string {
	return fmt.Sprintf("template:%s:%s:%s", name, language, templateType)
}

// RedisCache stores JSON snapshots of Template+Content in Redis with an
// explicit TTL.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, name, language, templateType string) (*models.Template, error) {
	raw, err := c.rdb.Get(ctx, Key(name, language, templateType)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, templates.NewCacheError(err)
	}

	var t models.Template
	if err := json.Unmarshal(raw, &t); err != nil {
		// A corrupt entry is treated as a miss; the store lookup repopulates it.
		return nil, nil
	}
	return &t, nil
}

func (c *RedisCache) Put(ctx context.Context, name, language, templateType string, t *models.Template, ttl time.Duration) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return templates.NewCacheError(err)
	}
	if err := c.rdb.Set(ctx, Key(name, language, templateType), raw, ttl).Err(); err != nil {
		return templates.NewCacheError(err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, name, language, templateType string) error {
	if err := c.rdb.Del(ctx, Key(name, language, templateType)).Err(); err != nil {
		return templates.NewCacheError(err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return templates.NewCacheError(err)
	}
	return nil
}

type memoryEntry struct {
	template  *models.Template
	expiresAt time.Time
}

// MemoryCache is a process-local TemplateCache for single-instance
// deployments and tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, name, language, templateType string) (*models.Template, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[Key(name, language, templateType)]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, Key(name, language, templateType))
		return nil, nil
	}
	return entry.template, nil
}

func (c *MemoryCache) Put(ctx context.Context, name, language, templateType string, t *models.Template, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[Key(name, language, templateType)] = memoryEntry{template: t, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, name, language, templateType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, Key(name, language, templateType))
	return nil
}

func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}
