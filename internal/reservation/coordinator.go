// Package reservation implements the Reservation Coordinator: a thin
// layer over the Inventory Ledger that lets the Order and Checkout
// Session aggregates treat "everything reserved under this reference"
// as a single releasable/committable unit. Built on the ledger's own
// reserve/commit/release shape, adding a bookkeeping table so release
// and commit can recover the original line set from just a reference id.
package reservation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/ledger"
)

// Coordinator bridges a reference (order id or checkout session id) to
// the set of (item, location, qty) allocations it holds, so release and
// commit never need to recompute the lines from business state.
type Coordinator struct {
	pool      ledger.Database
	ledgerSvc *ledger.Service
	logger    zerolog.Logger
}

// NewCoordinator builds a reservation coordinator over the ledger service.
func NewCoordinator(pool ledger.Database, ledgerSvc *ledger.Service, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		pool:      pool,
		ledgerSvc: ledgerSvc,
		logger:    logger.With().Str("component", "reservation_coordinator").Logger(),
	}
}

// ReserveMany reserves lines against refID within the caller's
// transaction and records the bookkeeping row so Release/Commit can
// recover the same line set later.
func (c *Coordinator) ReserveMany(ctx context.Context, tx pgx.Tx, lines []ledger.Line, refType ledger.ReferenceType, refID uuid.UUID, actor string) error {
	if err := c.ledgerSvc.ReserveMany(ctx, tx, lines, refType, refID, actor); err != nil {
		return err
	}
	return c.recordAllocations(ctx, tx, lines, refType, refID)
}

// Release releases every recorded allocation for refID within the
// caller's transaction.
func (c *Coordinator) Release(ctx context.Context, tx pgx.Tx, refType ledger.ReferenceType, refID uuid.UUID, actor string) error {
	lines, err := c.loadAllocations(ctx, tx, refType, refID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	if err := c.ledgerSvc.ReleaseMany(ctx, tx, lines, refType, refID, actor); err != nil {
		return err
	}
	return c.clearAllocations(ctx, tx, refType, refID)
}

// Commit converts every recorded allocation for refID into a shipment
// within the caller's transaction.
func (c *Coordinator) Commit(ctx context.Context, tx pgx.Tx, refType ledger.ReferenceType, refID uuid.UUID, actor string) error {
	lines, err := c.loadAllocations(ctx, tx, refType, refID)
	if err != nil {
		return err
	}
	if err := c.ledgerSvc.CommitMany(ctx, tx, lines, refType, refID, actor); err != nil {
		return err
	}
	return c.clearAllocations(ctx, tx, refType, refID)
}

func (c *Coordinator) recordAllocations(ctx context.Context, tx pgx.Tx, lines []ledger.Line, refType ledger.ReferenceType, refID uuid.UUID) error {
	query := `
		INSERT INTO reservation_allocations (reference_type, reference_id, item_id, location_id, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (reference_type, reference_id, item_id, location_id)
		DO UPDATE SET quantity = reservation_allocations.quantity + EXCLUDED.quantity
	`
	for _, l := range lines {
		if _, err := tx.Exec(ctx, query, refType, refID, l.Key.ItemID, l.Key.LocationID, l.Quantity.String()); err != nil {
			return fmt.Errorf("record reservation allocation: %w", err)
		}
	}
	return nil
}

func (c *Coordinator) loadAllocations(ctx context.Context, tx pgx.Tx, refType ledger.ReferenceType, refID uuid.UUID) ([]ledger.Line, error) {
	query := `
		SELECT item_id, location_id, quantity
		FROM reservation_allocations
		WHERE reference_type = $1 AND reference_id = $2
	`
	rows, err := tx.Query(ctx, query, refType, refID)
	if err != nil {
		return nil, fmt.Errorf("load reservation allocations: %w", err)
	}
	defer rows.Close()

	var lines []ledger.Line
	for rows.Next() {
		var l ledger.Line
		var qty string
		if err := rows.Scan(&l.Key.ItemID, &l.Key.LocationID, &qty); err != nil {
			return nil, fmt.Errorf("scan reservation allocation: %w", err)
		}
		if l.Quantity, err = decimalFromString(qty); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (c *Coordinator) clearAllocations(ctx context.Context, tx pgx.Tx, refType ledger.ReferenceType, refID uuid.UUID) error {
	query := `DELETE FROM reservation_allocations WHERE reference_type = $1 AND reference_id = $2`
	if _, err := tx.Exec(ctx, query, refType, refID); err != nil {
		return fmt.Errorf("clear reservation allocations: %w", err)
	}
	return nil
}
