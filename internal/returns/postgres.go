package returns

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

// NewPostgresRepository builds a Postgres-backed return repository.
func NewPostgresRepository(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{pool: pool, logger: logger.With().Str("component", "postgres_return_repository").Logger()}
}

// Create inserts the return header, its lines, and its opening history entry.
func (r *PostgresRepository) Create(ctx context.Context, tx pgx.Tx, ret *Return) error {
	if ret.ID == uuid.Nil {
		ret.ID = uuid.New()
	}
	query := `
		INSERT INTO returns (id, order_id, reason, status, restocked, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, query, ret.ID, ret.OrderID, ret.Reason, ret.Status, ret.Restocked); err != nil {
		r.logger.Error().Err(err).Str("return_id", ret.ID.String()).Msg("failed to insert return")
		return fmt.Errorf("insert return: %w", err)
	}
	ret.Version = 1

	lineQuery := `
		INSERT INTO return_lines (id, return_id, order_line_id, variant_id, location_id, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i := range ret.Lines {
		l := &ret.Lines[i]
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.ReturnID = ret.ID
		if _, err := tx.Exec(ctx, lineQuery, l.ID, ret.ID, l.OrderLineID, l.VariantID, l.LocationID, l.Quantity); err != nil {
			return fmt.Errorf("insert return line: %w", err)
		}
	}

	for i := range ret.History {
		if err := r.insertHistory(ctx, tx, ret.ID, &ret.History[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) insertHistory(ctx context.Context, tx pgx.Tx, returnID uuid.UUID, h *HistoryEntry) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	h.ReturnID = returnID
	query := `
		INSERT INTO return_history (id, return_id, from_status, to_status, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`
	if err := tx.QueryRow(ctx, query, h.ID, returnID, h.FromStatus, h.ToStatus, h.Actor).Scan(&h.CreatedAt); err != nil {
		return fmt.Errorf("insert return history entry: %w", err)
	}
	return nil
}

const selectReturnQuery = `
	SELECT id, order_id, reason, status, restocked, version, created_at, updated_at
	FROM returns
	WHERE id = $1
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresRepository) scanReturn(row rowScanner) (*Return, error) {
	var ret Return
	err := row.Scan(&ret.ID, &ret.OrderID, &ret.Reason, &ret.Status, &ret.Restocked, &ret.Version, &ret.CreatedAt, &ret.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan return: %w", err)
	}
	return &ret, nil
}

// GetByID returns a return with its lines and history.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Return, error) {
	ret, err := r.scanReturn(r.pool.QueryRow(ctx, selectReturnQuery, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLinesAndHistory(ctx, r.pool, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// GetByIDForUpdate locks the return row for a status transition.
func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Return, error) {
	ret, err := r.scanReturn(tx.QueryRow(ctx, selectReturnQuery+" FOR UPDATE", id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLinesAndHistory(ctx, tx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (r *PostgresRepository) loadLinesAndHistory(ctx context.Context, q querier, ret *Return) error {
	lineRows, err := q.Query(ctx, `
		SELECT id, return_id, order_line_id, variant_id, location_id, quantity
		FROM return_lines WHERE return_id = $1
	`, ret.ID)
	if err != nil {
		return fmt.Errorf("query return lines: %w", err)
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var l Line
		if err := lineRows.Scan(&l.ID, &l.ReturnID, &l.OrderLineID, &l.VariantID, &l.LocationID, &l.Quantity); err != nil {
			return fmt.Errorf("scan return line: %w", err)
		}
		ret.Lines = append(ret.Lines, l)
	}
	if err := lineRows.Err(); err != nil {
		return err
	}

	historyRows, err := q.Query(ctx, `
		SELECT id, return_id, from_status, to_status, actor, created_at
		FROM return_history WHERE return_id = $1 ORDER BY created_at ASC
	`, ret.ID)
	if err != nil {
		return fmt.Errorf("query return history: %w", err)
	}
	defer historyRows.Close()
	for historyRows.Next() {
		var h HistoryEntry
		if err := historyRows.Scan(&h.ID, &h.ReturnID, &h.FromStatus, &h.ToStatus, &h.Actor, &h.CreatedAt); err != nil {
			return fmt.Errorf("scan return history entry: %w", err)
		}
		ret.History = append(ret.History, h)
	}
	return historyRows.Err()
}

// UpdateStatus applies an optimistic-version-guarded status update and
// appends the transition's history entry atomically.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, ret *Return, entry HistoryEntry) error {
	query := `
		UPDATE returns SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`
	result, err := tx.Exec(ctx, query, ret.Status, ret.ID, ret.Version)
	if err != nil {
		return fmt.Errorf("update return status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrOptimisticLock
	}
	ret.Version++
	if err := r.insertHistory(ctx, tx, ret.ID, &entry); err != nil {
		return err
	}
	ret.History = append(ret.History, entry)
	return nil
}

// MarkRestocked flags a return as having had its units received back
// into inventory, idempotently guarding against a double restock.
func (r *PostgresRepository) MarkRestocked(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	result, err := tx.Exec(ctx, `UPDATE returns SET restocked = true WHERE id = $1 AND restocked = false`, id)
	if err != nil {
		return fmt.Errorf("mark return restocked: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.NewServiceError(models.KindInvalidOperation, "return has already been restocked", nil)
	}
	return nil
}

// List returns returns matching an optional status filter.
func (r *PostgresRepository) List(ctx context.Context, status *Status) ([]*Return, error) {
	query := `
		SELECT id, order_id, reason, status, restocked, version, created_at, updated_at
		FROM returns
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
	`
	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}
	rows, err := r.pool.Query(ctx, query, statusArg)
	if err != nil {
		return nil, fmt.Errorf("list returns: %w", err)
	}
	defer rows.Close()

	var out []*Return
	for rows.Next() {
		ret, err := r.scanReturn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ret)
	}
	return out, rows.Err()
}
