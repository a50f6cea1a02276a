package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository is the Persistence Boundary for the inventory ledger. All
// locking methods must be called within a transaction; the ledger locks
// every balance row it touches, in canonical key order, because
// concurrent reservations racing for the same stock must serialize
// rather than fail. (The order, return and customer repositories also
// lock a single row with GetByIDForUpdate before a version-checked
// update.)
type Repository interface {
	// GetForUpdate locks and returns the balance rows for keys, in
	// canonical key order. Missing rows are created with zero balances
	// under the lock so a first reservation against a brand-new
	// (item, location) pair does not need a separate provisioning step.
	GetForUpdate(ctx context.Context, tx pgx.Tx, keys []Key) (map[Key]*Balance, error)

	// Save persists a balance row with optimistic version check, used
	// only as a defensive backstop — callers normally hold the row's
	// pessimistic lock for the whole transaction, so RowsAffected()==0
	// here indicates a logic error, not a real race.
	Save(ctx context.Context, tx pgx.Tx, balance *Balance) error

	// AppendTransaction inserts one append-only ledger entry.
	AppendTransaction(ctx context.Context, tx pgx.Tx, txn *Transaction) error

	// GetBalance returns a read-only snapshot of a single balance row.
	GetBalance(ctx context.Context, key Key) (*Balance, error)

	// ListTransactions returns the transaction history for a key, most
	// recent first.
	ListTransactions(ctx context.Context, key Key, limit int) ([]*Transaction, error)
}

// NewTransaction builds a Transaction record with a generated ID and
// timestamp, avoiding repeated UUID/timestamp boilerplate at every call
// site the way the outbox event constructor does for OutboxEvent.
func NewTransaction(key Key, typ TransactionType, quantity, previousOnHand, newOnHand decimal.Decimal, refType ReferenceType, refID uuid.UUID, actor string) *Transaction {
	return &Transaction{
		ID:             uuid.New(),
		ItemID:         key.ItemID,
		LocationID:     key.LocationID,
		Type:           typ,
		Quantity:       quantity,
		PreviousOnHand: previousOnHand,
		NewOnHand:      newOnHand,
		ReferenceType:  refType,
		ReferenceID:    refID,
		Actor:          actor,
		CreatedAt:      time.Now(),
	}
}
