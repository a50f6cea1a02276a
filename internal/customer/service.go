package customer

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/messaging"
	"github.com/stateset/commerce-engine/internal/models"
)

// Database is the subset of *pgxpool.Pool the customer service depends
// on, narrow enough that a pgxmock pool satisfies it in tests.
type Database interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service implements the Customer aggregate's commands: plain CRUD and
// lifecycle transitions with no inventory or payment side effects, using
// the same transactional-write-plus-outbox pattern as the other
// aggregates even though these commands never touch the ledger.
type Service struct {
	pool       Database
	repo       Repository
	outboxRepo messaging.OutboxRepository
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewService constructs the customer service.
func NewService(pool Database, repo Repository, outboxRepo messaging.OutboxRepository, logger zerolog.Logger) *Service {
	return &Service{
		pool:       pool,
		repo:       repo,
		outboxRepo: outboxRepo,
		validator:  validator.New(),
		logger:     logger.With().Str("component", "customer_service").Logger(),
	}
}

// CreateCustomerRequest is the create command.
type CreateCustomerRequest struct {
	Email     string `validate:"required,email"`
	Name      string
	Phone     string
	Addresses []Address
}

// CreateCustomer inserts a new active customer.
func (s *Service) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, models.NewServiceError(models.KindValidation, "invalid create_customer request", err)
	}
	c := &Customer{
		Email:     req.Email,
		Name:      req.Name,
		Phone:     req.Phone,
		Status:    StatusActive,
		Addresses: req.Addresses,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.Create(ctx, tx, c); err != nil {
		return nil, err
	}

	event := &models.OutboxEvent{
		AggregateID:   c.ID,
		AggregateType: models.AggregateTypeCustomer,
		EventType:     "customer.created",
		EventPayload:  map[string]interface{}{"customer_id": c.ID.String(), "email": c.Email},
		MaxRetries:    5,
	}
	if err := s.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("create outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return c, nil
}

// UpdateCustomerRequest is the update command; empty fields are left unchanged.
type UpdateCustomerRequest struct {
	Name  string
	Phone string
}

// UpdateCustomer applies a version-guarded profile update.
func (s *Service) UpdateCustomer(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (*Customer, error) {
	return s.withLockedCustomer(ctx, id, func(c *Customer) error {
		if req.Name != "" {
			c.Name = req.Name
		}
		if req.Phone != "" {
			c.Phone = req.Phone
		}
		return nil
	})
}

// ActivateCustomer transitions a suspended customer back to active.
func (s *Service) ActivateCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.withLockedCustomer(ctx, id, func(c *Customer) error {
		if c.Status != StatusSuspended {
			return models.NewServiceError(models.KindInvalidOperation, "only a suspended customer can be activated", ErrInvalidTransition)
		}
		c.Status = StatusActive
		return nil
	})
}

// SuspendCustomer transitions an active customer to suspended.
func (s *Service) SuspendCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.withLockedCustomer(ctx, id, func(c *Customer) error {
		if c.Status != StatusActive {
			return models.NewServiceError(models.KindInvalidOperation, "only an active customer can be suspended", ErrInvalidTransition)
		}
		c.Status = StatusSuspended
		return nil
	})
}

// ArchiveCustomer marks a customer archived from any non-archived state.
func (s *Service) ArchiveCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.withLockedCustomer(ctx, id, func(c *Customer) error {
		if c.Status == StatusArchived {
			return models.NewServiceError(models.KindInvalidOperation, "customer is already archived", ErrInvalidTransition)
		}
		c.Status = StatusArchived
		return nil
	})
}

// FlagCustomer marks a customer flagged with a reason, e.g. for fraud review.
func (s *Service) FlagCustomer(ctx context.Context, id uuid.UUID, reason string) (*Customer, error) {
	if reason == "" {
		return nil, models.NewServiceError(models.KindValidation, "flag reason must not be empty", nil)
	}
	return s.withLockedCustomer(ctx, id, func(c *Customer) error {
		c.Flagged = true
		c.FlagReason = reason
		return nil
	})
}

func (s *Service) withLockedCustomer(ctx context.Context, id uuid.UUID, mutate func(*Customer) error) (*Customer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.repo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(c); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return c, nil
}

// AddNote appends a note to a customer's record.
func (s *Service) AddNote(ctx context.Context, id uuid.UUID, message, actor string) (*Customer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.repo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	note := &Note{Message: message, Actor: actor}
	if err := s.repo.AddNote(ctx, tx, c.ID, note); err != nil {
		return nil, err
	}
	c.Notes = append(c.Notes, *note)
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return c, nil
}

// MergeCustomers archives duplicateID in favour of masterID: the master
// survives and the duplicate is retired rather than deleted, so
// order/payment history stays resolvable. The returned master carries
// the duplicate's addresses and a "merged from" note appended in memory;
// repo.Update writes only the customer row, so neither is stored, and the
// duplicate's own notes are not copied.
func (s *Service) MergeCustomers(ctx context.Context, masterID, duplicateID uuid.UUID) (*Customer, error) {
	if masterID == duplicateID {
		return nil, models.NewServiceError(models.KindValidation, "cannot merge a customer into itself", nil)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	master, err := s.repo.GetByIDForUpdate(ctx, tx, masterID)
	if err != nil {
		return nil, err
	}
	duplicate, err := s.repo.GetByIDForUpdate(ctx, tx, duplicateID)
	if err != nil {
		return nil, err
	}

	master.Addresses = append(master.Addresses, duplicate.Addresses...)
	master.Notes = append(master.Notes, Note{Message: fmt.Sprintf("merged from customer %s", duplicateID), Actor: "system"})
	if err := s.repo.Update(ctx, tx, master); err != nil {
		return nil, err
	}

	duplicate.Status = StatusArchived
	if err := s.repo.Update(ctx, tx, duplicate); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return master, nil
}

// DeleteCustomer permanently erases a customer record.
func (s *Service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.Delete(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetCustomer returns a customer by id.
func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.repo.GetByID(ctx, id)
}

// GetCustomerByEmail returns a customer by email.
func (s *Service) GetCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	return s.repo.GetByEmail(ctx, email)
}

// ListCustomers returns a page of customers.
func (s *Service) ListCustomers(ctx context.Context, limit, offset int) ([]*Customer, error) {
	return s.repo.List(ctx, limit, offset)
}

// CountCustomers returns the total customer count.
func (s *Service) CountCustomers(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
