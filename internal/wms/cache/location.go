// Package cache holds read-through caches in front of the repositories.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/config"
	"github.com/redis/go-redis/v9"
)

const (
	locationKeyPrefix = "wms:location:barcode:"
	defaultTTL        = 24 * time.Hour
)

// LocationCache caches locations by barcode. Locations are immutable once
// created, so entries only ever expire by TTL.
type LocationCache interface {
	Get(ctx context.Context, barcode string) (*repository.Location, bool, error)
	Set(ctx context.Context, loc *repository.Location) error
	Close() error
}

type redisLocationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopLocationCache struct{}

// NewLocationCache connects to Redis when a URL is configured and returns a
// no-op cache otherwise.
func NewLocationCache(ctx context.Context, cfg config.RedisConfig) (LocationCache, error) {
	if cfg.URL == "" {
		return NewNoopLocationCache(), nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisLocationCache(client, cfg.TTL), nil
}

// NewRedisLocationCache wraps an existing client
func NewRedisLocationCache(client *redis.Client, ttl time.Duration) LocationCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &redisLocationCache{client: client, ttl: ttl}
}

// NewNoopLocationCache returns a cache that never hits
func NewNoopLocationCache() LocationCache {
	return noopLocationCache{}
}

func locationKey(barcode string) string {
	return locationKeyPrefix + barcode
}

func (c *redisLocationCache) Get(ctx context.Context, barcode string) (*repository.Location, bool, error) {
	payload, err := c.client.Get(ctx, locationKey(barcode)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var loc repository.Location
	if err := json.Unmarshal(payload, &loc); err != nil {
		return nil, false, fmt.Errorf("decode location cache: %w", err)
	}
	return &loc, true, nil
}

func (c *redisLocationCache) Set(ctx context.Context, loc *repository.Location) error {
	payload, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location cache: %w", err)
	}
	if err := c.client.Set(ctx, locationKey(loc.Barcode), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisLocationCache) Close() error {
	return c.client.Close()
}

func (noopLocationCache) Get(ctx context.Context, barcode string) (*repository.Location, bool, error) {
	return nil, false, nil
}

func (noopLocationCache) Set(ctx context.Context, loc *repository.Location) error { return nil }

func (noopLocationCache) Close() error { return nil }
