package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stateset/commerce-engine/internal/cache"
	"github.com/stateset/commerce-engine/internal/models"
)

// VaultToken is the single-use delegated-payment allowance issued by
// agentic_commerce/delegate_payment.
type VaultToken struct {
	ID                string    `json:"id"`
	CheckoutSessionID uuid.UUID `json:"checkout_session_id"`
	MaxAmount         int64     `json:"max_amount"`
	Currency          string    `json:"currency"`
	ExpiresAt         time.Time `json:"expires_at"`
	Reason            string    `json:"reason,omitempty"`
	PaymentMethod     string    `json:"payment_method,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// VaultStore persists vault tokens in the shared cache, consumed
// exactly once via GetDel.
type VaultStore struct {
	cache *cache.Client
}

// NewVaultStore builds a vault token store over the shared cache client.
func NewVaultStore(c *cache.Client) *VaultStore {
	return &VaultStore{cache: c}
}

func vaultKey(id string) string {
	return "vault_token:" + id
}

func newVaultTokenID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "vt_" + hex.EncodeToString(buf), nil
}

// Issue mints a new vault token with the given allowance, storing it
// until its expiry (bounded by a 24h cap so a far-future expires_at
// cannot pin a cache entry indefinitely).
func (s *VaultStore) Issue(ctx context.Context, sessionID uuid.UUID, maxAmount int64, currency string, expiresAt time.Time, reason, paymentMethod string) (*VaultToken, error) {
	id, err := newVaultTokenID()
	if err != nil {
		return nil, fmt.Errorf("generate vault token id: %w", err)
	}
	tok := &VaultToken{
		ID:                id,
		CheckoutSessionID: sessionID,
		MaxAmount:         maxAmount,
		Currency:          currency,
		ExpiresAt:         expiresAt,
		Reason:            reason,
		PaymentMethod:     paymentMethod,
		CreatedAt:         time.Now(),
	}
	payload, err := json.Marshal(tok)
	if err != nil {
		return nil, fmt.Errorf("marshal vault token: %w", err)
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 || ttl > 24*time.Hour {
		ttl = 24 * time.Hour
	}
	if err := s.cache.Set(ctx, vaultKey(id), payload, ttl); err != nil {
		return nil, fmt.Errorf("store vault token: %w", err)
	}
	return tok, nil
}

// ErrTokenConsumedOrExpired covers both "never existed", "already
// consumed", and "expired and evicted" — the caller maps it uniformly
// to InvalidOperation, since for a lookup failure there is nothing
// left to leave intact.
var ErrTokenConsumedOrExpired = errors.New("vault token consumed, expired, or unknown")

// Peek returns the token without consuming it, used to validate before
// the single-use delete.
func (s *VaultStore) Peek(ctx context.Context, id string) (*VaultToken, error) {
	raw, err := s.cache.Get(ctx, vaultKey(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrTokenConsumedOrExpired
	}
	if err != nil {
		return nil, err
	}
	var tok VaultToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("unmarshal vault token: %w", err)
	}
	return &tok, nil
}

// Consume atomically retrieves and deletes the token, guaranteeing that
// under concurrent complete_session calls with the same token at most
// one succeeds.
func (s *VaultStore) Consume(ctx context.Context, id string) (*VaultToken, error) {
	raw, err := s.cache.GetDel(ctx, vaultKey(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrTokenConsumedOrExpired
	}
	if err != nil {
		return nil, err
	}
	var tok VaultToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("unmarshal vault token: %w", err)
	}
	return &tok, nil
}

// Validate checks the vault token against the checkout session and
// grand total, without consuming it.
func (tok *VaultToken) Validate(sessionID uuid.UUID, grandTotal models.Money, now time.Time) error {
	if tok.CheckoutSessionID != sessionID {
		return models.NewServiceError(models.KindInvalidOperation, "vault token was not issued for this checkout session", nil)
	}
	if tok.Currency != grandTotal.Currency {
		return models.NewServiceError(models.KindInvalidOperation, "vault token currency does not match order total", nil)
	}
	if !now.Before(tok.ExpiresAt) {
		return models.NewServiceError(models.KindInvalidOperation, "vault token has expired", nil)
	}
	if tok.MaxAmount < grandTotal.Amount {
		return models.NewServiceError(models.KindInvalidOperation, "vault token allowance is less than the order total", nil)
	}
	return nil
}
