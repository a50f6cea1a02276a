package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/models"
)

// PostgresRepository implements Repository over pgx.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresRepository creates a Postgres-backed order repository.
func NewPostgresRepository(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{
		pool:   pool,
		logger: logger.With().Str("component", "postgres_order_repository").Logger(),
	}
}

// Create inserts the order header, its lines, and its opening note.
func (r *PostgresRepository) Create(ctx context.Context, tx pgx.Tx, o *Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	query := `
		INSERT INTO orders (
			id, customer_id, checkout_session_id, status,
			subtotal_amount, tax_amount, shipping_amount, discount_amount, grand_total_amount, currency,
			version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, NOW(), NOW())
	`
	currency := o.Currency()
	_, err := tx.Exec(ctx, query,
		o.ID, o.CustomerID, o.CheckoutSessionID, o.Status,
		o.Totals.Subtotal.Amount, o.Totals.Tax.Amount, o.Totals.Shipping.Amount,
		o.Totals.Discount.Amount, o.Totals.GrandTotal.Amount, currency,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("failed to insert order")
		return fmt.Errorf("insert order: %w", err)
	}
	o.Version = 1

	lineQuery := `
		INSERT INTO order_lines (id, order_id, variant_id, location_id, sku, quantity, unit_price_amount, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i := range o.Lines {
		l := &o.Lines[i]
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.OrderID = o.ID
		if _, err := tx.Exec(ctx, lineQuery, l.ID, o.ID, l.VariantID, l.LocationID, l.SKU, l.Quantity, l.UnitPrice.Amount, l.UnitPrice.Currency); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	for i := range o.Notes {
		if err := r.insertNote(ctx, tx, o.ID, &o.Notes[i]); err != nil {
			return err
		}
	}

	return nil
}

func (r *PostgresRepository) insertNote(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, n *Note) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.OrderID = orderID
	query := `
		INSERT INTO order_notes (id, order_id, message, reason, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`
	if err := tx.QueryRow(ctx, query, n.ID, orderID, n.Message, n.Reason, n.Actor).Scan(&n.CreatedAt); err != nil {
		return fmt.Errorf("insert order note: %w", err)
	}
	return nil
}

// GetByID returns an order with its lines and notes.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := r.scanOrder(ctx, r.pool.QueryRow(ctx, selectOrderQuery, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLinesAndNotes(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByIDForUpdate locks the order row for a status transition.
func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Order, error) {
	o, err := r.scanOrder(ctx, tx.QueryRow(ctx, selectOrderQuery+" FOR UPDATE", id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLinesAndNotesTx(ctx, tx, o); err != nil {
		return nil, err
	}
	return o, nil
}

const selectOrderQuery = `
	SELECT id, customer_id, checkout_session_id, status,
	       subtotal_amount, tax_amount, shipping_amount, discount_amount, grand_total_amount, currency,
	       version, created_at, updated_at
	FROM orders
	WHERE id = $1
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresRepository) scanOrder(ctx context.Context, row rowScanner) (*Order, error) {
	var o Order
	var currency string
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.CheckoutSessionID, &o.Status,
		&o.Totals.Subtotal.Amount, &o.Totals.Tax.Amount, &o.Totals.Shipping.Amount,
		&o.Totals.Discount.Amount, &o.Totals.GrandTotal.Amount, &currency,
		&o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Totals.Subtotal.Currency = currency
	o.Totals.Tax.Currency = currency
	o.Totals.Shipping.Currency = currency
	o.Totals.Discount.Currency = currency
	o.Totals.GrandTotal.Currency = currency
	return &o, nil
}

func (r *PostgresRepository) loadLinesAndNotes(ctx context.Context, o *Order) error {
	lineRows, err := r.pool.Query(ctx, selectLinesQuery, o.ID)
	if err != nil {
		return fmt.Errorf("query order lines: %w", err)
	}
	defer lineRows.Close()
	if o.Lines, err = scanLines(lineRows); err != nil {
		return err
	}

	noteRows, err := r.pool.Query(ctx, selectNotesQuery, o.ID)
	if err != nil {
		return fmt.Errorf("query order notes: %w", err)
	}
	defer noteRows.Close()
	o.Notes, err = scanNotes(noteRows)
	return err
}

func (r *PostgresRepository) loadLinesAndNotesTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	lineRows, err := tx.Query(ctx, selectLinesQuery, o.ID)
	if err != nil {
		return fmt.Errorf("query order lines: %w", err)
	}
	defer lineRows.Close()
	if o.Lines, err = scanLines(lineRows); err != nil {
		return err
	}

	noteRows, err := tx.Query(ctx, selectNotesQuery, o.ID)
	if err != nil {
		return fmt.Errorf("query order notes: %w", err)
	}
	defer noteRows.Close()
	o.Notes, err = scanNotes(noteRows)
	return err
}

const selectLinesQuery = `
	SELECT id, order_id, variant_id, location_id, sku, quantity, unit_price_amount, currency
	FROM order_lines WHERE order_id = $1 ORDER BY sku
`

const selectNotesQuery = `
	SELECT id, order_id, message, reason, actor, created_at
	FROM order_notes WHERE order_id = $1 ORDER BY created_at ASC
`

type rowsScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanLines(rows rowsScanner) ([]Line, error) {
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.VariantID, &l.LocationID, &l.SKU, &l.Quantity, &l.UnitPrice.Amount, &l.UnitPrice.Currency); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanNotes(rows rowsScanner) ([]Note, error) {
	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Message, &n.Reason, &n.Actor, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// UpdateStatus applies an optimistic-version-guarded status update and
// appends the transition's note atomically.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, o *Order, note Note) error {
	query := `
		UPDATE orders SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`
	result, err := tx.Exec(ctx, query, o.Status, o.ID, o.Version)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("failed to update order status")
		return fmt.Errorf("update order status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrOptimisticLock
	}
	o.Version++
	if err := r.insertNote(ctx, tx, o.ID, &note); err != nil {
		return err
	}
	o.Notes = append(o.Notes, note)
	return nil
}

// UpdateCustomer reassigns an order's customer_id under the same
// optimistic version guard as UpdateStatus.
func (r *PostgresRepository) UpdateCustomer(ctx context.Context, tx pgx.Tx, o *Order, customerID *uuid.UUID) error {
	query := `
		UPDATE orders SET customer_id = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`
	result, err := tx.Exec(ctx, query, customerID, o.ID, o.Version)
	if err != nil {
		return fmt.Errorf("update order customer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrOptimisticLock
	}
	o.Version++
	o.CustomerID = customerID
	return nil
}

// List returns orders matching filter, most recently created first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Order, error) {
	query := `
		SELECT id, customer_id, checkout_session_id, status,
		       subtotal_amount, tax_amount, shipping_amount, discount_amount, grand_total_amount, currency,
		       version, created_at, updated_at
		FROM orders
		WHERE ($1::uuid IS NULL OR customer_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	var statusArg *string
	if filter.Status != nil {
		s := string(*filter.Status)
		statusArg = &s
	}
	rows, err := r.pool.Query(ctx, query, filter.CustomerID, statusArg, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := r.scanOrder(ctx, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
