package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fastest-route-service/internal/config"
	"fastest-route-service/internal/domain"
	"fastest-route-service/internal/ports"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const routeKeyPrefix = "route:"

// NewRedisClient creates a go-redis client and verifies the connection with a PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// RedisRouteCache keeps recently computed trip plans in Redis for a bounded
// time, so identical requests within the TTL skip matrix acquisition.
// Failures are logged and reported as misses.
type RedisRouteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ ports.RouteCache = (*RedisRouteCache)(nil)

func NewRedisRouteCache(rdb *redis.Client, ttl time.Duration) *RedisRouteCache {
	return &RedisRouteCache{rdb: rdb, ttl: ttl}
}

func (c *RedisRouteCache) Get(ctx context.Context, key string) (*domain.TripPlan, bool) {
	k := buildRouteKey(key)

	data, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("route cache get failed: key=%s err=%v", k, err)
		}
		return nil, false
	}

	var plan domain.TripPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		log.Printf("route cache unmarshal failed: key=%s err=%v", k, err)
		return nil, false
	}

	return &plan, true
}

func (c *RedisRouteCache) Set(ctx context.Context, key string, plan *domain.TripPlan) {
	k := buildRouteKey(key)

	data, err := json.Marshal(plan)
	if err != nil {
		log.Printf("route cache marshal failed: key=%s err=%v", k, err)
		return
	}

	if err := c.rdb.Set(ctx, k, data, c.ttl).Err(); err != nil {
		log.Printf("route cache set failed: key=%s err=%v", k, err)
	}
}

func buildRouteKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s%x", routeKeyPrefix, hash[:16])
}
