package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/cache"
	"github.com/stateset/commerce-engine/internal/models"
)

// Store persists checkout sessions read-through-only in the shared
// cache, with a one-hour TTL matching a session's natural lifetime.
type Store struct {
	cache  *cache.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewStore builds a Redis-backed session store.
func NewStore(c *cache.Client, ttl time.Duration, logger zerolog.Logger) *Store {
	return &Store{cache: c, ttl: ttl, logger: logger.With().Str("component", "checkout_store").Logger()}
}

func sessionKey(id uuid.UUID) string {
	return "checkout_session:" + id.String()
}

// Save writes the session, bumping its version and refreshing the TTL.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	sess.Version++
	sess.UpdatedAt = timeNow()
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal checkout session: %w", err)
	}
	if err := s.cache.Set(ctx, sessionKey(sess.ID), payload, s.ttl); err != nil {
		return fmt.Errorf("store checkout session: %w", err)
	}
	return nil
}

// Get returns the session for id, or models.ErrNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	raw, err := s.cache.Get(ctx, sessionKey(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal checkout session: %w", err)
	}
	return &sess, nil
}

// timeNow is a seam so session timestamps can be controlled in tests
// without calling time.Now() from a shared helper.
var timeNow = time.Now
