package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors specific to the inventory ledger. InsufficientStock and
// VersionConflict are distinct because the caller retries the latter
// (optimistic race on the balance row) but never the former (a real
// business condition).
var (
	ErrInsufficientStock  = errors.New("insufficient available stock")
	ErrBalanceNotFound    = errors.New("inventory balance not found")
	ErrVersionConflict    = errors.New("inventory balance version conflict")
	ErrInvariantViolation = errors.New("inventory balance invariant violation")
)

// TransactionType enumerates the append-only ledger's transaction kinds.
type TransactionType string

const (
	TransactionReceive    TransactionType = "RECEIVE"
	TransactionAllocate   TransactionType = "ALLOCATE"
	TransactionDeallocate TransactionType = "DEALLOCATE"
	TransactionShip       TransactionType = "SHIP"
	TransactionReturn     TransactionType = "RETURN"
	TransactionAdjust     TransactionType = "ADJUST"
)

// ReferenceType names the aggregate that triggered a ledger transaction.
type ReferenceType string

const (
	ReferenceOrder    ReferenceType = "order"
	ReferenceCheckout ReferenceType = "checkout_session"
	ReferenceReturn   ReferenceType = "return"
	ReferenceManual   ReferenceType = "manual"
)

// Balance is one row per (item, location): the current on-hand,
// allocated, and derived available quantities, plus the optimistic
// version token bumped on every mutating write.
type Balance struct {
	ItemID            uuid.UUID       `json:"item_id"`
	LocationID        uuid.UUID       `json:"location_id"`
	QuantityOnHand    decimal.Decimal `json:"quantity_on_hand"`
	QuantityAllocated decimal.Decimal `json:"quantity_allocated"`
	Version           int64           `json:"version"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// QuantityAvailable is the derived sellable quantity. It must never go
// negative across any committed state.
func (b *Balance) QuantityAvailable() decimal.Decimal {
	return b.QuantityOnHand.Sub(b.QuantityAllocated)
}

// Transaction is an append-only record of a single ledger mutation.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	ItemID          uuid.UUID       `json:"item_id"`
	LocationID      uuid.UUID       `json:"location_id"`
	Type            TransactionType `json:"transaction_type"`
	Quantity        decimal.Decimal `json:"quantity"` // signed
	PreviousOnHand  decimal.Decimal `json:"previous_on_hand"`
	NewOnHand       decimal.Decimal `json:"new_on_hand"`
	ReferenceType   ReferenceType   `json:"reference_type"`
	ReferenceID     uuid.UUID       `json:"reference_id"`
	Actor           string          `json:"actor"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Key identifies a single (item, location) balance row. Batched
// operations sort a slice of Keys into canonical order before locking
// so two concurrent reservations touching overlapping item sets can
// never deadlock against each other.
type Key struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
}

// SortKeys returns keys in canonical (ItemID, LocationID) order.
func SortKeys(keys []Key) []Key {
	out := make([]Key, len(keys))
	copy(out, keys)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && lessKey(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func lessKey(a, b Key) bool {
	if a.ItemID != b.ItemID {
		return a.ItemID.String() < b.ItemID.String()
	}
	return a.LocationID.String() < b.LocationID.String()
}

// Line is a requested quantity against a single (item, location) key,
// used by ReserveMany/ReleaseMany/CommitMany.
type Line struct {
	Key      Key
	Quantity decimal.Decimal
}
