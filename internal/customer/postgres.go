package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/models"
)

// PostgresRepository implements Repository over pgx.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresRepository builds a Postgres-backed customer repository.
func NewPostgresRepository(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{pool: pool, logger: logger.With().Str("component", "postgres_customer_repository").Logger()}
}

// Create inserts the customer header and its addresses.
func (r *PostgresRepository) Create(ctx context.Context, tx pgx.Tx, c *Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO customers (id, email, name, phone, status, flagged, flag_reason, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, query, c.ID, c.Email, c.Name, c.Phone, c.Status, c.Flagged, c.FlagReason); err != nil {
		if isUniqueViolation(err) {
			return models.NewServiceError(models.KindConflict, "a customer with this email already exists", err)
		}
		r.logger.Error().Err(err).Str("customer_id", c.ID.String()).Msg("failed to insert customer")
		return fmt.Errorf("insert customer: %w", err)
	}
	c.Version = 1

	addrQuery := `
		INSERT INTO customer_addresses (id, customer_id, line1, line2, city, region, postal_code, country, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i := range c.Addresses {
		a := &c.Addresses[i]
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.CustomerID = c.ID
		if _, err := tx.Exec(ctx, addrQuery, a.ID, c.ID, a.Line1, a.Line2, a.City, a.Region, a.PostalCode, a.Country, a.IsDefault); err != nil {
			return fmt.Errorf("insert customer address: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

const selectCustomerQuery = `
	SELECT id, email, name, phone, status, flagged, flag_reason, version, created_at, updated_at
	FROM customers
	WHERE id = $1
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomer(row rowScanner) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &c.Status, &c.Flagged, &c.FlagReason, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return &c, nil
}

// GetByID returns a customer with its addresses and notes.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, selectCustomerQuery, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadAddressesAndNotes(ctx, r.pool, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetByIDForUpdate locks the customer row for a lifecycle transition.
func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Customer, error) {
	c, err := scanCustomer(tx.QueryRow(ctx, selectCustomerQuery+" FOR UPDATE", id))
	if err != nil {
		return nil, err
	}
	if err := r.loadAddressesAndNotes(ctx, tx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetByEmail returns a customer by its unique email address.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	query := `
		SELECT id, email, name, phone, status, flagged, flag_reason, version, created_at, updated_at
		FROM customers WHERE email = $1
	`
	c, err := scanCustomer(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, err
	}
	if err := r.loadAddressesAndNotes(ctx, r.pool, c); err != nil {
		return nil, err
	}
	return c, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (r *PostgresRepository) loadAddressesAndNotes(ctx context.Context, q querier, c *Customer) error {
	addrRows, err := q.Query(ctx, `
		SELECT id, customer_id, line1, line2, city, region, postal_code, country, is_default
		FROM customer_addresses WHERE customer_id = $1
	`, c.ID)
	if err != nil {
		return fmt.Errorf("query customer addresses: %w", err)
	}
	defer addrRows.Close()
	for addrRows.Next() {
		var a Address
		if err := addrRows.Scan(&a.ID, &a.CustomerID, &a.Line1, &a.Line2, &a.City, &a.Region, &a.PostalCode, &a.Country, &a.IsDefault); err != nil {
			return fmt.Errorf("scan customer address: %w", err)
		}
		c.Addresses = append(c.Addresses, a)
	}
	if err := addrRows.Err(); err != nil {
		return err
	}

	noteRows, err := q.Query(ctx, `
		SELECT id, customer_id, message, actor, created_at
		FROM customer_notes WHERE customer_id = $1 ORDER BY created_at ASC
	`, c.ID)
	if err != nil {
		return fmt.Errorf("query customer notes: %w", err)
	}
	defer noteRows.Close()
	for noteRows.Next() {
		var n Note
		if err := noteRows.Scan(&n.ID, &n.CustomerID, &n.Message, &n.Actor, &n.CreatedAt); err != nil {
			return fmt.Errorf("scan customer note: %w", err)
		}
		c.Notes = append(c.Notes, n)
	}
	return noteRows.Err()
}

// Update applies an optimistic-version-guarded field/status update.
func (r *PostgresRepository) Update(ctx context.Context, tx pgx.Tx, c *Customer) error {
	query := `
		UPDATE customers
		SET email = $1, name = $2, phone = $3, status = $4, flagged = $5, flag_reason = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $7 AND version = $8
	`
	result, err := tx.Exec(ctx, query, c.Email, c.Name, c.Phone, c.Status, c.Flagged, c.FlagReason, c.ID, c.Version)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrOptimisticLock
	}
	c.Version++
	return nil
}

// AddNote appends a note to a customer.
func (r *PostgresRepository) AddNote(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, n *Note) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CustomerID = customerID
	query := `
		INSERT INTO customer_notes (id, customer_id, message, actor, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`
	if err := tx.QueryRow(ctx, query, n.ID, customerID, n.Message, n.Actor).Scan(&n.CreatedAt); err != nil {
		return fmt.Errorf("insert customer note: %w", err)
	}
	return nil
}

// Delete permanently removes a customer record, used by delete_customer
// for GDPR-style erasure requests rather than the normal archive path.
func (r *PostgresRepository) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	result, err := tx.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// List returns customers ordered by creation time, most recent first.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*Customer, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, name, phone, status, flagged, flag_reason, version, created_at, updated_at
		FROM customers ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []*Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the total number of customer records.
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return count, nil
}
