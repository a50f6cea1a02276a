package ledger

import (
	"context"
	"fmt"

	"github.com/stateset/commerce-engine/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Database is the subset of *pgxpool.Pool the ledger service depends on,
// narrow enough that a pgxmock pool satisfies it in tests.
type Database interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service implements the Inventory Ledger's operations. All mutating
// operations take a caller-owned transaction so that the reservation,
// order, and checkout commands that drive the ledger commit it
// atomically with their own aggregate writes — the ledger never opens
// its own transaction for a mutation, only for read-only pool queries.
type Service struct {
	repo    Repository
	pool    Database
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewService constructs the ledger service.
func NewService(repo Repository, pool Database, metrics *observability.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		pool:    pool,
		metrics: metrics,
		logger:  logger.With().Str("component", "ledger_service").Logger(),
	}
}

// ReserveMany locks and allocates stock for every line, or fails the
// whole batch leaving no partial allocation — callers roll back the tx.
func (s *Service) ReserveMany(ctx context.Context, tx pgx.Tx, lines []Line, refType ReferenceType, refID uuid.UUID, actor string) error {
	keys := make([]Key, len(lines))
	for i, l := range lines {
		keys[i] = l.Key
	}
	balances, err := s.repo.GetForUpdate(ctx, tx, keys)
	if err != nil {
		return fmt.Errorf("lock balances: %w", err)
	}

	for _, line := range lines {
		b := balances[line.Key]
		available := b.QuantityAvailable()
		if available.LessThan(line.Quantity) {
			s.metrics.LedgerInsufficientStockTotal.Inc()
			s.logger.Warn().
				Str("item_id", line.Key.ItemID.String()).
				Str("location_id", line.Key.LocationID.String()).
				Str("requested", line.Quantity.String()).
				Str("available", available.String()).
				Msg("insufficient available stock for reservation")
			return ErrInsufficientStock
		}
	}

	for _, line := range lines {
		b := balances[line.Key]
		previousOnHand := b.QuantityOnHand
		b.QuantityAllocated = b.QuantityAllocated.Add(line.Quantity)
		if err := s.repo.Save(ctx, tx, b); err != nil {
			return fmt.Errorf("save balance after reserve: %w", err)
		}
		txn := NewTransaction(line.Key, TransactionAllocate, line.Quantity, previousOnHand, b.QuantityOnHand, refType, refID, actor)
		if err := s.repo.AppendTransaction(ctx, tx, txn); err != nil {
			return fmt.Errorf("append reserve transaction: %w", err)
		}
	}

	s.metrics.LedgerReservationsTotal.Inc()
	return nil
}

// ReleaseMany deallocates previously reserved stock without touching
// on-hand quantity, used to compensate a failed order/checkout save or
// an explicit cancellation.
func (s *Service) ReleaseMany(ctx context.Context, tx pgx.Tx, lines []Line, refType ReferenceType, refID uuid.UUID, actor string) error {
	keys := make([]Key, len(lines))
	for i, l := range lines {
		keys[i] = l.Key
	}
	balances, err := s.repo.GetForUpdate(ctx, tx, keys)
	if err != nil {
		return fmt.Errorf("lock balances: %w", err)
	}

	for _, line := range lines {
		b := balances[line.Key]
		previousOnHand := b.QuantityOnHand
		newAllocated := b.QuantityAllocated.Sub(line.Quantity)
		if newAllocated.IsNegative() {
			return fmt.Errorf("%w: release would make allocated negative for item %s", ErrInvariantViolation, line.Key.ItemID)
		}
		b.QuantityAllocated = newAllocated
		if err := s.repo.Save(ctx, tx, b); err != nil {
			return fmt.Errorf("save balance after release: %w", err)
		}
		txn := NewTransaction(line.Key, TransactionDeallocate, line.Quantity, previousOnHand, b.QuantityOnHand, refType, refID, actor)
		if err := s.repo.AppendTransaction(ctx, tx, txn); err != nil {
			return fmt.Errorf("append release transaction: %w", err)
		}
	}

	s.metrics.LedgerReleasesTotal.Inc()
	return nil
}

// CommitMany converts a reservation into a shipment: on-hand and
// allocated both decrease by the shipped quantity.
func (s *Service) CommitMany(ctx context.Context, tx pgx.Tx, lines []Line, refType ReferenceType, refID uuid.UUID, actor string) error {
	keys := make([]Key, len(lines))
	for i, l := range lines {
		keys[i] = l.Key
	}
	balances, err := s.repo.GetForUpdate(ctx, tx, keys)
	if err != nil {
		return fmt.Errorf("lock balances: %w", err)
	}

	for _, line := range lines {
		b := balances[line.Key]
		previousOnHand := b.QuantityOnHand
		if b.QuantityAllocated.LessThan(line.Quantity) {
			return fmt.Errorf("%w: shipping more than allocated for item %s", ErrInvariantViolation, line.Key.ItemID)
		}
		b.QuantityAllocated = b.QuantityAllocated.Sub(line.Quantity)
		b.QuantityOnHand = b.QuantityOnHand.Sub(line.Quantity)
		if b.QuantityOnHand.IsNegative() {
			return fmt.Errorf("%w: on-hand would go negative for item %s", ErrInvariantViolation, line.Key.ItemID)
		}
		if err := s.repo.Save(ctx, tx, b); err != nil {
			return fmt.Errorf("save balance after commit: %w", err)
		}
		txn := NewTransaction(line.Key, TransactionShip, line.Quantity, previousOnHand, b.QuantityOnHand, refType, refID, actor)
		if err := s.repo.AppendTransaction(ctx, tx, txn); err != nil {
			return fmt.Errorf("append ship transaction: %w", err)
		}
	}

	s.metrics.LedgerCommitsTotal.Inc()
	return nil
}

// Receive increases on-hand quantity (inbound stock, or a return restock).
func (s *Service) Receive(ctx context.Context, tx pgx.Tx, key Key, quantity decimal.Decimal, refType ReferenceType, refID uuid.UUID, actor string) error {
	balances, err := s.repo.GetForUpdate(ctx, tx, []Key{key})
	if err != nil {
		return fmt.Errorf("lock balance: %w", err)
	}
	b := balances[key]
	previousOnHand := b.QuantityOnHand
	b.QuantityOnHand = b.QuantityOnHand.Add(quantity)
	if err := s.repo.Save(ctx, tx, b); err != nil {
		return fmt.Errorf("save balance after receive: %w", err)
	}
	txType := TransactionReceive
	if refType == ReferenceReturn {
		txType = TransactionReturn
	}
	txn := NewTransaction(key, txType, quantity, previousOnHand, b.QuantityOnHand, refType, refID, actor)
	if err := s.repo.AppendTransaction(ctx, tx, txn); err != nil {
		return fmt.Errorf("append receive transaction: %w", err)
	}
	s.metrics.LedgerReceiptsTotal.Inc()
	return nil
}

// Adjust applies a signed manual correction to on-hand quantity
// (inventory count reconciliation, damage write-off).
func (s *Service) Adjust(ctx context.Context, tx pgx.Tx, key Key, signedQuantity decimal.Decimal, actor string) error {
	balances, err := s.repo.GetForUpdate(ctx, tx, []Key{key})
	if err != nil {
		return fmt.Errorf("lock balance: %w", err)
	}
	b := balances[key]
	previousOnHand := b.QuantityOnHand
	newOnHand := b.QuantityOnHand.Add(signedQuantity)
	if newOnHand.IsNegative() {
		return fmt.Errorf("%w: adjustment would make on-hand negative for item %s", ErrInvariantViolation, key.ItemID)
	}
	b.QuantityOnHand = newOnHand
	if err := s.repo.Save(ctx, tx, b); err != nil {
		return fmt.Errorf("save balance after adjust: %w", err)
	}
	txn := NewTransaction(key, TransactionAdjust, signedQuantity, previousOnHand, b.QuantityOnHand, ReferenceManual, uuid.Nil, actor)
	if err := s.repo.AppendTransaction(ctx, tx, txn); err != nil {
		return fmt.Errorf("append adjust transaction: %w", err)
	}
	return nil
}

// GetBalance returns a read-only snapshot for the given key.
func (s *Service) GetBalance(ctx context.Context, key Key) (*Balance, error) {
	return s.repo.GetBalance(ctx, key)
}
