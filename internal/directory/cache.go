package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds resolved internal-ID -> messaging-ID mappings. Entries are
// invalidated explicitly on account deactivation; the TTL is a backstop.
type Cache interface {
	Get(ctx context.Context, accountID int64) (string, bool, error)
	Set(ctx context.Context, accountID int64, messagingID string) error
	Del(ctx context.Context, accountID int64) error
}

func cacheKey(accountID int64) string {
	return fmt.Sprintf("identity:%d", accountID)
}

type RedisCache struct {
	cli *redis.Client
	ttl time.Duration
}

func NewRedisCache(cli *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{cli: cli, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, accountID int64) (string, bool, error) {
	s, err := c.cli.Get(ctx, cacheKey(accountID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

func (c *RedisCache) Set(ctx context.Context, accountID int64, messagingID string) error {
	return c.cli.Set(ctx, cacheKey(accountID), messagingID, c.ttl).Err()
}

func (c *RedisCache) Del(ctx context.Context, accountID int64) error {
	return c.cli.Del(ctx, cacheKey(accountID)).Err()
}

// MemoryCache is the cache used by tests and single-process deployments.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[int64]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[int64]string)}
}

func (c *MemoryCache) Get(_ context.Context, accountID int64) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.m[accountID]
	return s, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, accountID int64, messagingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[accountID] = messagingID
	return nil
}

func (c *MemoryCache) Del(_ context.Context, accountID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, accountID)
	return nil
}
