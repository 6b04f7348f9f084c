package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/heartlink/discovery/internal/config"
)

// counterTTL bounds staleness of cached counters; the DB stays authoritative.
const counterTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes the Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// KeyForLikeCount is the cached count of likes a user has received.
func (c *RedisCache) KeyForLikeCount(userID uint64) string {
	return fmt.Sprintf("likes:count:%d", userID)
}

// KeyForViewCount is the cached count of profile views a user has received.
func (c *RedisCache) KeyForViewCount(userID uint64) string {
	return fmt.Sprintf("views:count:%d", userID)
}

// KeyForUnreadCount is the cached count of unread notifications for a user.
func (c *RedisCache) KeyForUnreadCount(userID uint64) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}

// KeyForMatchNotice identifies the MATCH announcement of an unordered pair.
func (c *RedisCache) KeyForMatchNotice(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("match:notified:%d:%d", a, b)
}

// ClaimMatchNotice marks the pair's MATCH announcement as taken and reports
// whether this caller won the claim. Two likes racing to complete the same
// pair both see the mutual state; only the claim winner announces. Fails
// open: on a cache error the caller should announce rather than drop.
func (c *RedisCache) ClaimMatchNotice(ctx context.Context, a, b uint64) (bool, error) {
	return c.Client.SetNX(ctx, c.KeyForMatchNotice(a, b), 1, 0).Result()
}

// ReleaseMatchNotice clears the claim when the match dissolves so a future
// re-match announces again.
func (c *RedisCache) ReleaseMatchNotice(ctx context.Context, a, b uint64) error {
	return c.Client.Del(ctx, c.KeyForMatchNotice(a, b)).Err()
}

// GetCount reads a cached counter. A cache miss returns (0, false, nil) and
// refreshes nothing; a hit refreshes the TTL since the user is active.
func (c *RedisCache) GetCount(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	_ = c.Client.Expire(ctx, key, counterTTL).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// SetCount stores a counter with a fresh TTL.
func (c *RedisCache) SetCount(ctx context.Context, key string, count int64) error {
	return c.Client.Set(ctx, key, count, counterTTL).Err()
}

// BumpCount adjusts a counter by delta and refreshes its TTL. On a cold key
// Incr initializes from zero, which matches the DB for freshly created state;
// callers invalidate with Del when that assumption breaks.
func (c *RedisCache) BumpCount(ctx context.Context, key string, delta int64) error {
	if err := c.Client.IncrBy(ctx, key, delta).Err(); err != nil {
		return err
	}
	return c.Client.Expire(ctx, key, counterTTL).Err()
}

// Del removes a cached counter so the next read repopulates from the DB.
func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}
