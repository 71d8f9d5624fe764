// Package cache holds the shared dashboard cache. Redis is optional: without
// a URL every lookup misses and the service reads the store directly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/clinic-assessment-server/internal/domain"
)

const keyPrefix = "clinic:"

// Cache stores JSON documents under string keys.
type Cache interface {
	// Get decodes the value at key into dest. A miss returns false, nil.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// New returns a RedisCache when cfg names a Redis URL and a NoopCache
// otherwise.
func New(cfg domain.CacheConfig, logger *logrus.Logger) (Cache, error) {
	if cfg.RedisURL == "" {
		logger.Info("No Redis URL configured; dashboard cache disabled")
		return NoopCache{}, nil
	}
	return NewRedisCache(cfg, logger)
}

// RedisCache is a Cache backed by Redis. Calls go through a circuit breaker
// so an unavailable Redis fails fast instead of stalling every request.
type RedisCache struct {
	redis   *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	log     *logrus.Logger
}

// NewRedisCache connects to the Redis server named in cfg.
func NewRedisCache(cfg domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	opts.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithField("addr", opts.Addr).Info("Connected to Redis dashboard cache")
	return newRedisCache(client, cfg, logger), nil
}

func newRedisCache(client *redis.Client, cfg domain.CacheConfig, logger *logrus.Logger) *RedisCache {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ttl := cfg.StatsTTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &RedisCache{
		redis:   client,
		breaker: breaker,
		ttl:     ttl,
		log:     logger,
	}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.breaker.Execute(func() (interface{}, error) {
		return c.redis.Get(ctx, keyPrefix+key).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(val.([]byte), dest); err != nil {
		// corrupted entry; drop it and report a miss
		c.log.WithError(err).WithField("key", key).Warn("Discarding undecodable cache entry")
		_ = c.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

// Set implements Cache. Entries expire after the configured stats TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache value: %w", err)
	}
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.redis.Set(ctx, keyPrefix+key, data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("writing cache key %s: %w", key, err)
	}
	return nil
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.redis.Del(ctx, full...).Err()
	})
	if err != nil {
		return fmt.Errorf("deleting cache keys: %w", err)
	}
	return nil
}

// State reports the circuit breaker state.
func (c *RedisCache) State() gobreaker.State {
	return c.breaker.State()
}

// Close implements Cache.
func (c *RedisCache) Close() error {
	return c.redis.Close()
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NoopCache) Set(context.Context, string, any) error         { return nil }
func (NoopCache) Delete(context.Context, ...string) error        { return nil }
func (NoopCache) Close() error                                    { return nil }
