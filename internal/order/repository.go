package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListFilter narrows List queries.
type ListFilter struct {
	CustomerID *uuid.UUID
	Status     *Status
	Limit      int
	Offset     int
}

// Repository is the Order Aggregate's persistence contract, following
// the Persistence Boundary's find/insert/update(expected_version)/
// delete shape.
type Repository interface {
	// Create inserts the order, its lines, and its first note within tx.
	Create(ctx context.Context, tx pgx.Tx, o *Order) error

	// GetByID returns an order with its lines and notes, or models.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// GetByIDForUpdate locks the order row for a status transition.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Order, error)

	// UpdateStatus applies an optimistic-version-guarded status update
	// and appends the transition's note, atomically.
	UpdateStatus(ctx context.Context, tx pgx.Tx, o *Order, note Note) error

	// UpdateCustomer reassigns an order's customer_id under the same
	// version guard, for corrections that don't represent a status
	// transition (PUT /orders/{id}).
	UpdateCustomer(ctx context.Context, tx pgx.Tx, o *Order, customerID *uuid.UUID) error

	// List returns orders matching filter, most recently created first.
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
}
