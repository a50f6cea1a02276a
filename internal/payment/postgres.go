package payment

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

// NewPostgresRepository builds a Postgres-backed payment repository.
func NewPostgresRepository(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{pool: pool, logger: logger.With().Str("component", "postgres_payment_repository").Logger()}
}

// Create inserts a payment row.
func (r *PostgresRepository) Create(ctx context.Context, tx pgx.Tx, p *Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
		INSERT INTO payments (
			id, order_id, checkout_session_id, provider, method, amount, currency, status,
			provider_fee, platform_fee, net, processed_at, idempotency_key, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		RETURNING created_at
	`
	err := tx.QueryRow(ctx, query,
		p.ID, p.OrderID, p.CheckoutSessionID, p.Provider, p.Method, p.Amount.Amount, p.Amount.Currency, p.Status,
		p.ProviderFee, p.PlatformFee, p.Net, p.ProcessedAt, nullIfEmpty(p.IdempotencyKey),
	).Scan(&p.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_id", p.ID.String()).Msg("failed to insert payment")
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

const selectPaymentQuery = `
	SELECT id, order_id, checkout_session_id, provider, method, amount, currency, status,
	       provider_fee, platform_fee, net, processed_at, COALESCE(idempotency_key, ''), created_at
	FROM payments
`

func scanPayment(row interface{ Scan(dest ...interface{}) error }) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.CheckoutSessionID, &p.Provider, &p.Method, &p.Amount.Amount, &p.Amount.Currency, &p.Status,
		&p.ProviderFee, &p.PlatformFee, &p.Net, &p.ProcessedAt, &p.IdempotencyKey, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}

// GetByID returns a payment by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	row := r.pool.QueryRow(ctx, selectPaymentQuery+" WHERE id = $1", id)
	return scanPayment(row)
}

// GetByOrderID returns every payment recorded against an order.
func (r *PostgresRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*Payment, error) {
	rows, err := r.pool.Query(ctx, selectPaymentQuery+" WHERE order_id = $1 ORDER BY created_at ASC", orderID)
	if err != nil {
		return nil, fmt.Errorf("query payments by order: %w", err)
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a payment's status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status Status) error {
	result, err := tx.Exec(ctx, `UPDATE payments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CreateRefund inserts a refund row.
func (r *PostgresRepository) CreateRefund(ctx context.Context, tx pgx.Tx, ref *Refund) error {
	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}
	query := `
		INSERT INTO refunds (id, payment_id, amount, currency, refunded_fees, status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`
	err := tx.QueryRow(ctx, query, ref.ID, ref.PaymentID, ref.Amount.Amount, ref.Amount.Currency, ref.RefundedFees, ref.Status, ref.Reason).Scan(&ref.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}
	return nil
}

// SumRefundsByPayment totals every refund already recorded against
// paymentID, so a caller can reject a new refund that would push the
// cumulative total past the original payment amount.
func (r *PostgresRepository) SumRefundsByPayment(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID) (int64, error) {
	var total int64
	err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM refunds WHERE payment_id = $1`, paymentID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum refunds by payment: %w", err)
	}
	return total, nil
}
