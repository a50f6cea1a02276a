// Package cache wraps a Redis client as the shared TTL key-value
// primitive backing the Idempotency Store, Checkout Session store, and
// Vault Token store: Redis for the hot read/write path, Postgres
// retained as the durable source of truth elsewhere.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrCacheMiss is returned when a key does not exist or has expired.
var ErrCacheMiss = errors.New("cache miss")

// Client is a thin wrapper over go-redis exposing only the operations
// the commerce engine's cache-backed components need.
type Client struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// New builds a Client from a redis:// URL.
func New(url string, logger zerolog.Logger) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Client{
		rdb:    redis.NewClient(opts),
		logger: logger.With().Str("component", "cache").Logger(),
	}, nil
}

// Ping verifies connectivity, used by the readiness handler.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get returns the raw bytes stored at key, or ErrCacheMiss.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores value at key with the given TTL. A zero TTL means no expiry.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// SetNX stores value at key only if it does not already exist,
// returning false if the key was already present — used for the
// single-use vault token consumption guard.
func (c *Client) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

// Delete removes key, returning the number of keys removed (0 or 1).
func (c *Client) Delete(ctx context.Context, key string) (int64, error) {
	return c.rdb.Del(ctx, key).Result()
}

// GetDel atomically retrieves and removes key in one round trip, used
// to consume a vault token exactly once even under concurrent requests.
func (c *Client) GetDel(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}
