package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/ports"
)

const defaultCacheTTL = 5 * time.Minute

var _ ports.ProfileCache = (*ProfileCache)(nil)

// ProfileCache stores unfiltered public profiles as JSON.
// Key format: public:<username>
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &ProfileCache{client: client, ttl: ttl}
}

func (c *ProfileCache) Get(ctx context.Context, username string) (domain.PublicProfile, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PublicProfile{}, false, nil
	}
	if err != nil {
		return domain.PublicProfile{}, false, fmt.Errorf("cache get: %w", err)
	}
	var pp domain.PublicProfile
	if err := json.Unmarshal(raw, &pp); err != nil {
		// A corrupt entry is a miss; the next Set overwrites it.
		return domain.PublicProfile{}, false, nil
	}
	return pp, true, nil
}

func (c *ProfileCache) Set(ctx context.Context, username string, pp domain.PublicProfile) error {
	raw, err := json.Marshal(pp)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(username), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *ProfileCache) Invalidate(ctx context.Context, username string) error {
	if err := c.client.Del(ctx, cacheKey(username)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

func cacheKey(username string) string {
	return "public:" + domain.NormalizeUsername(username)
}
