package infrastructure

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wavezboy/social.downloader/internal/domain"
)

const resolutionKeyPrefix = "socialdl:resolution:"

// RedisResolutionCache caches successful resolutions in Redis
type RedisResolutionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from configuration and checks connectivity
func NewRedisClient(ctx context.Context, config *domain.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Address, err)
	}
	return client, nil
}

// NewRedisResolutionCache creates a new Redis-backed resolution cache
func NewRedisResolutionCache(client *redis.Client, ttl time.Duration) *RedisResolutionCache {
	return &RedisResolutionCache{
		client: client,
		ttl:    ttl,
	}
}

func resolutionKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return resolutionKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached resolution for a post URL
func (c *RedisResolutionCache) Get(ctx context.Context, url string) (*domain.ResolutionResult, bool, error) {
	val, err := c.client.Get(ctx, resolutionKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var result domain.ResolutionResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	if result.MediaURL == "" {
		return nil, false, nil
	}
	return &result, true, nil
}

// Set stores a resolution for a post URL
func (c *RedisResolutionCache) Set(ctx context.Context, url string, result *domain.ResolutionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, resolutionKey(url), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
