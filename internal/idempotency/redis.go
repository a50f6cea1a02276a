package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/cache"
	"github.com/stateset/commerce-engine/internal/models"
)

// cachedRecord is the value shape stored under an idempotency key in Redis.
type cachedRecord struct {
	RequestHash string          `json:"request_hash"`
	Response    json.RawMessage `json:"response"`
}

// RedisStore implements Store over the shared Redis cache, for
// HTTP-facing commands (checkout session creation/completion) that have
// no enclosing SQL transaction to commit the key alongside.
type RedisStore struct {
	cache  *cache.Client
	logger zerolog.Logger
}

// NewRedisStore builds a Redis-backed idempotency store.
func NewRedisStore(c *cache.Client, logger zerolog.Logger) *RedisStore {
	return &RedisStore{cache: c, logger: logger.With().Str("component", "redis_idempotency_store").Logger()}
}

func redisKey(key string) string {
	return "idempotency:" + key
}

// Check validates key against requestHash.
func (s *RedisStore) Check(ctx context.Context, key string, requestHash string) (json.RawMessage, bool, error) {
	raw, err := s.cache.Get(ctx, redisKey(key))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("check idempotency key: %w", err)
	}

	var rec cachedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached idempotency record: %w", err)
	}

	if rec.RequestHash != requestHash {
		s.logger.Warn().Str("key", key).Msg("idempotency key hash mismatch")
		return nil, true, models.ErrIdempotencyMismatch
	}
	return rec.Response, true, nil
}

// Store writes the idempotency record with the given TTL.
func (s *RedisStore) Store(ctx context.Context, key string, requestHash string, responseData interface{}, ttl time.Duration) error {
	responseJSON, err := json.Marshal(responseData)
	if err != nil {
		return fmt.Errorf("marshal response data: %w", err)
	}
	rec := cachedRecord{RequestHash: requestHash, Response: responseJSON}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	return s.cache.Set(ctx, redisKey(key), payload, ttl)
}

// StoreInTransaction is not meaningful for a Redis-backed store since
// Redis does not share a transaction with the SQL connection; callers
// that need atomicity with a SQL write must use PostgresStore instead.
func (s *RedisStore) StoreInTransaction(ctx context.Context, _ pgx.Tx, key string, requestHash string, responseData interface{}, ttl time.Duration) error {
	return s.Store(ctx, key, requestHash, responseData, ttl)
}

// CleanupExpired is a no-op: Redis expires keys natively via TTL.
func (s *RedisStore) CleanupExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
