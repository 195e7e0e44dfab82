package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Dosada05/prediction-league/models"
)

const leaderboardKey = "leaderboard:v1"

// redisClient is the subset of *goredis.Client the cache needs.
type redisClient interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// NewRedisClient connects and pings the server so a bad REDIS_ADDR fails at startup.
func NewRedisClient(addr, password string) (*goredis.Client, error) {
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// RedisLeaderboardCache stores the ranked leaderboard as one JSON value.
type RedisLeaderboardCache struct {
	rdb redisClient
	ttl time.Duration
}

func NewRedisLeaderboardCache(rdb redisClient, ttl time.Duration) *RedisLeaderboardCache {
	return &RedisLeaderboardCache{rdb: rdb, ttl: ttl}
}

// Get reports false on a cache miss.
func (c *RedisLeaderboardCache) Get(ctx context.Context) (*models.Leaderboard, bool, error) {
	raw, err := c.rdb.Get(ctx, leaderboardKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", leaderboardKey, err)
	}

	var lb models.Leaderboard
	if err := json.Unmarshal(raw, &lb); err != nil {
		return nil, false, fmt.Errorf("decode cached leaderboard: %w", err)
	}
	return &lb, true, nil
}

func (c *RedisLeaderboardCache) Set(ctx context.Context, lb *models.Leaderboard) error {
	raw, err := json.Marshal(lb)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	if err := c.rdb.Set(ctx, leaderboardKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", leaderboardKey, err)
	}
	return nil
}

func (c *RedisLeaderboardCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, leaderboardKey).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", leaderboardKey, err)
	}
	return nil
}
