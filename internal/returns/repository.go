package returns

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists returns, their lines, and their history.
type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, r *Return) error
	GetByID(ctx context.Context, id uuid.UUID) (*Return, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Return, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, r *Return, entry HistoryEntry) error
	MarkRestocked(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	List(ctx context.Context, status *Status) ([]*Return, error)
}
