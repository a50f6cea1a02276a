package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists payments and refunds.
type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*Payment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status Status) error
	CreateRefund(ctx context.Context, tx pgx.Tx, r *Refund) error
	// SumRefundsByPayment returns the total minor-unit amount already
	// refunded against paymentID, read within tx so it reflects any
	// refund inserted earlier in the same transaction.
	SumRefundsByPayment(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID) (int64, error)
}
