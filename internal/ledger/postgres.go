package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PostgresRepository implements Repository over pgx, one file per
// aggregate.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresRepository creates a Postgres-backed inventory ledger repository.
func NewPostgresRepository(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{
		pool:   pool,
		logger: logger.With().Str("component", "postgres_ledger_repository").Logger(),
	}
}

// GetForUpdate locks balance rows for keys in canonical order, inserting
// zero-balance rows under the same lock for keys that don't exist yet.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, keys []Key) (map[Key]*Balance, error) {
	ordered := SortKeys(keys)
	result := make(map[Key]*Balance, len(ordered))

	for _, key := range ordered {
		query := `
			SELECT item_id, location_id, quantity_on_hand, quantity_allocated, version, updated_at
			FROM inventory_balances
			WHERE item_id = $1 AND location_id = $2
			FOR UPDATE
		`
		var onHandStr, allocatedStr string
		var b Balance
		err := tx.QueryRow(ctx, query, key.ItemID, key.LocationID).Scan(
			&b.ItemID, &b.LocationID, &onHandStr, &allocatedStr, &b.Version, &b.UpdatedAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			b = Balance{
				ItemID:            key.ItemID,
				LocationID:        key.LocationID,
				QuantityOnHand:    decimal.Zero,
				QuantityAllocated: decimal.Zero,
				Version:           0,
			}
			insert := `
				INSERT INTO inventory_balances (item_id, location_id, quantity_on_hand, quantity_allocated, version, updated_at)
				VALUES ($1, $2, $3, $4, 0, NOW())
				ON CONFLICT (item_id, location_id) DO NOTHING
			`
			if _, err := tx.Exec(ctx, insert, key.ItemID, key.LocationID, decimal.Zero.String(), decimal.Zero.String()); err != nil {
				return nil, fmt.Errorf("provision balance row: %w", err)
			}
			// Re-select under lock now that the row exists.
			if err := tx.QueryRow(ctx, query, key.ItemID, key.LocationID).Scan(
				&b.ItemID, &b.LocationID, &onHandStr, &allocatedStr, &b.Version, &b.UpdatedAt,
			); err != nil {
				return nil, fmt.Errorf("lock newly provisioned balance row: %w", err)
			}
		} else if err != nil {
			r.logger.Error().Err(err).
				Str("item_id", key.ItemID.String()).
				Str("location_id", key.LocationID.String()).
				Msg("failed to lock balance row")
			return nil, fmt.Errorf("lock balance row: %w", err)
		}

		b.QuantityOnHand, err = decimal.NewFromString(onHandStr)
		if err != nil {
			return nil, fmt.Errorf("parse quantity_on_hand: %w", err)
		}
		b.QuantityAllocated, err = decimal.NewFromString(allocatedStr)
		if err != nil {
			return nil, fmt.Errorf("parse quantity_allocated: %w", err)
		}

		result[key] = &b
	}

	return result, nil
}

// Save writes a balance row with an optimistic version check, bumping
// version on success.
func (r *PostgresRepository) Save(ctx context.Context, tx pgx.Tx, balance *Balance) error {
	query := `
		UPDATE inventory_balances
		SET quantity_on_hand = $1, quantity_allocated = $2, version = version + 1, updated_at = NOW()
		WHERE item_id = $3 AND location_id = $4 AND version = $5
	`
	result, err := tx.Exec(ctx, query,
		balance.QuantityOnHand.String(),
		balance.QuantityAllocated.String(),
		balance.ItemID,
		balance.LocationID,
		balance.Version,
	)
	if err != nil {
		r.logger.Error().Err(err).
			Str("item_id", balance.ItemID.String()).
			Msg("failed to save balance")
		return fmt.Errorf("save balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		r.logger.Warn().
			Str("item_id", balance.ItemID.String()).
			Str("location_id", balance.LocationID.String()).
			Int64("version", balance.Version).
			Msg("ledger version conflict on save")
		return ErrVersionConflict
	}
	balance.Version++
	return nil
}

// AppendTransaction inserts one append-only ledger entry.
func (r *PostgresRepository) AppendTransaction(ctx context.Context, tx pgx.Tx, txn *Transaction) error {
	query := `
		INSERT INTO inventory_transactions (
			id, item_id, location_id, transaction_type, quantity,
			previous_on_hand, new_on_hand, reference_type, reference_id, actor, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	_, err := tx.Exec(ctx, query,
		txn.ID, txn.ItemID, txn.LocationID, txn.Type, txn.Quantity.String(),
		txn.PreviousOnHand.String(), txn.NewOnHand.String(),
		txn.ReferenceType, txn.ReferenceID, txn.Actor, txn.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).
			Str("item_id", txn.ItemID.String()).
			Str("transaction_type", string(txn.Type)).
			Msg("failed to append inventory transaction")
		return fmt.Errorf("append inventory transaction: %w", err)
	}
	return nil
}

// GetBalance returns a read-only snapshot (no lock) of a balance row.
func (r *PostgresRepository) GetBalance(ctx context.Context, key Key) (*Balance, error) {
	query := `
		SELECT item_id, location_id, quantity_on_hand, quantity_allocated, version, updated_at
		FROM inventory_balances
		WHERE item_id = $1 AND location_id = $2
	`
	var onHandStr, allocatedStr string
	var b Balance
	err := r.pool.QueryRow(ctx, query, key.ItemID, key.LocationID).Scan(
		&b.ItemID, &b.LocationID, &onHandStr, &allocatedStr, &b.Version, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Balance{ItemID: key.ItemID, LocationID: key.LocationID, QuantityOnHand: decimal.Zero, QuantityAllocated: decimal.Zero}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	if b.QuantityOnHand, err = decimal.NewFromString(onHandStr); err != nil {
		return nil, fmt.Errorf("parse quantity_on_hand: %w", err)
	}
	if b.QuantityAllocated, err = decimal.NewFromString(allocatedStr); err != nil {
		return nil, fmt.Errorf("parse quantity_allocated: %w", err)
	}
	return &b, nil
}

// ListTransactions returns the most recent transactions for a key.
func (r *PostgresRepository) ListTransactions(ctx context.Context, key Key, limit int) ([]*Transaction, error) {
	query := `
		SELECT id, item_id, location_id, transaction_type, quantity,
			   previous_on_hand, new_on_hand, reference_type, reference_id, actor, created_at
		FROM inventory_transactions
		WHERE item_id = $1 AND location_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, key.ItemID, key.LocationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list inventory transactions: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		var t Transaction
		var qty, prev, cur string
		if err := rows.Scan(&t.ID, &t.ItemID, &t.LocationID, &t.Type, &qty, &prev, &cur,
			&t.ReferenceType, &t.ReferenceID, &t.Actor, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory transaction: %w", err)
		}
		if t.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("parse quantity: %w", err)
		}
		if t.PreviousOnHand, err = decimal.NewFromString(prev); err != nil {
			return nil, fmt.Errorf("parse previous_on_hand: %w", err)
		}
		if t.NewOnHand, err = decimal.NewFromString(cur); err != nil {
			return nil, fmt.Errorf("parse new_on_hand: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
