package customer

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists customers, their addresses, and their notes.
type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, c *Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	Update(ctx context.Context, tx pgx.Tx, c *Customer) error
	AddNote(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, note *Note) error
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Customer, error)
	Count(ctx context.Context) (int64, error)
}
