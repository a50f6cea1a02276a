package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stateset/commerce-engine/internal/idempotency"
	"github.com/stateset/commerce-engine/internal/ledger"
	"github.com/stateset/commerce-engine/internal/messaging"
	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stateset/commerce-engine/internal/observability"
	"github.com/stateset/commerce-engine/internal/payment"
	"github.com/stateset/commerce-engine/internal/reservation"
)

func decimalFromInt64(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// Database is the subset of *pgxpool.Pool the order service depends on,
// narrow enough that a pgxmock pool satisfies it in tests.
type Database interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service implements the Order Aggregate's commands: create, transition,
// and query, built around a transactional-write-plus-outbox pattern so
// every state change and its OutboxEvent commit atomically.
type Service struct {
	pool        Database
	repo        Repository
	outboxRepo  messaging.OutboxRepository
	reservation *reservation.Coordinator
	paymentSvc  *payment.Service
	idempotency idempotency.Store
	validator   *validator.Validate
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// NewService constructs the order service.
func NewService(
	pool Database,
	repo Repository,
	outboxRepo messaging.OutboxRepository,
	coordinator *reservation.Coordinator,
	paymentSvc *payment.Service,
	idempotencyStore idempotency.Store,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		pool:        pool,
		repo:        repo,
		outboxRepo:  outboxRepo,
		reservation: coordinator,
		paymentSvc:  paymentSvc,
		idempotency: idempotencyStore,
		validator:   validator.New(),
		metrics:     metrics,
		logger:      logger.With().Str("component", "order_service").Logger(),
	}
}

// CreateOrderRequest is the command struct for create_order, following
// the tagged-struct-per-command dispatcher design.
type CreateOrderRequest struct {
	CustomerID        *uuid.UUID
	CheckoutSessionID *uuid.UUID
	Lines             []Line `validate:"required,min=1,dive"`
	Totals            Totals `validate:"required"`
	IdempotencyKey    string
	Actor             string `validate:"required"`
}

// CreateOrder reserves inventory for every line, persists the order in
// `pending`, and emits OrderCreated — all within one transaction.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, models.NewServiceError(models.KindValidation, "invalid create_order request", err)
	}

	start := time.Now()
	status := "error"
	defer func() {
		s.metrics.OrderPlacementDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	var requestHash string
	if req.IdempotencyKey != "" {
		var err error
		requestHash, err = idempotency.ComputeRequestHash(req)
		if err != nil {
			return nil, fmt.Errorf("compute request hash: %w", err)
		}
		if cached, exists, err := s.idempotency.Check(ctx, req.IdempotencyKey, requestHash); err != nil {
			return nil, err
		} else if exists {
			var o Order
			if err := decodeCached(cached, &o); err != nil {
				return nil, err
			}
			return &o, nil
		}
	}

	o := &Order{
		CustomerID:        req.CustomerID,
		CheckoutSessionID: req.CheckoutSessionID,
		Status:            StatusPending,
		Lines:             req.Lines,
		Totals:            req.Totals,
		Notes: []Note{{
			Message: "order created",
			Actor:   req.Actor,
		}},
	}
	if err := o.ValidateLines(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	reserveLines := make([]ledger.Line, len(o.Lines))
	for i, l := range o.Lines {
		reserveLines[i] = ledger.Line{
			Key:      ledger.Key{ItemID: l.VariantID, LocationID: l.LocationID},
			Quantity: decimalFromInt64(l.Quantity),
		}
	}

	if err := s.repo.Create(ctx, tx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.reservation.ReserveMany(ctx, tx, reserveLines, ledger.ReferenceOrder, o.ID, req.Actor); err != nil {
		return nil, err
	}

	event := &models.OutboxEvent{
		AggregateID:   o.ID,
		AggregateType: models.AggregateTypeOrder,
		EventType:     models.EventTypeOrderCreated,
		EventPayload:  map[string]interface{}{"order_id": o.ID.String(), "status": string(o.Status)},
		MaxRetries:    5,
	}
	if err := s.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("create outbox event: %w", err)
	}

	if req.IdempotencyKey != "" {
		if err := s.idempotency.StoreInTransaction(ctx, tx, req.IdempotencyKey, requestHash, o, 24*time.Hour); err != nil {
			return nil, fmt.Errorf("store idempotency record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	status = "ok"
	s.metrics.OrdersCreatedTotal.WithLabelValues(o.Currency()).Inc()
	s.metrics.ActiveOrders.Inc()
	return o, nil
}

// CreateFromCheckout inserts an order header, lines, and opening note
// within an already-open transaction, for the checkout session's
// complete_session command where the order write must share the
// payment-and-ledger-commit transaction rather than open its own.
func (s *Service) CreateFromCheckout(ctx context.Context, tx pgx.Tx, o *Order) error {
	if o.Status == "" {
		o.Status = StatusPaid
	}
	if len(o.Notes) == 0 {
		o.Notes = []Note{{Message: "order created from completed checkout session"}}
	}
	if err := o.ValidateLines(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, tx, o); err != nil {
		return fmt.Errorf("create order from checkout: %w", err)
	}
	s.metrics.OrdersCreatedTotal.WithLabelValues(o.Currency()).Inc()
	s.metrics.ActiveOrders.Inc()
	return nil
}

// transition validates and applies a status change, bumping version and
// appending a note within the caller's transaction.
func (s *Service) transition(ctx context.Context, o *Order, to Status, message, reason, actor string) error {
	if !CanTransition(o.Status, to) {
		return models.NewServiceError(models.KindInvalidOperation, fmt.Sprintf("cannot transition order from %s to %s", o.Status, to), ErrInvalidTransition)
	}
	o.Status = to
	return nil
}

// UpdateOrder reassigns an order's customer under an optimistic version
// guard, for PUT /orders/{id} corrections that aren't a status transition.
func (s *Service) UpdateOrder(ctx context.Context, id uuid.UUID, customerID *uuid.UUID) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := s.repo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if IsTerminal(o.Status) {
		return nil, models.NewServiceError(models.KindInvalidOperation, "cannot update a terminal order", nil)
	}
	if err := s.repo.UpdateCustomer(ctx, tx, o, customerID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return o, nil
}

// CancelOrder cancels a pending, paid, processing or on-hold order,
// releasing its reservation.
func (s *Service) CancelOrder(ctx context.Context, id uuid.UUID, reason, actor string) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := s.repo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, o, StatusCancelled, "order cancelled", reason, actor); err != nil {
		return nil, err
	}

	if err := s.reservation.Release(ctx, tx, ledger.ReferenceOrder, o.ID, actor); err != nil {
		return nil, fmt.Errorf("release reservation: %w", err)
	}

	note := Note{Message: "order cancelled", Reason: reason, Actor: actor}
	if err := s.repo.UpdateStatus(ctx, tx, o, note); err != nil {
		return nil, err
	}

	event := &models.OutboxEvent{
		AggregateID:   o.ID,
		AggregateType: models.AggregateTypeOrder,
		EventType:     models.EventTypeOrderCancelled,
		EventPayload:  map[string]interface{}{"order_id": o.ID.String(), "reason": reason},
		MaxRetries:    5,
	}
	if err := s.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("create outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	s.metrics.OrdersCancelledTotal.WithLabelValues(reason).Inc()
	s.metrics.ActiveOrders.Dec()
	return o, nil
}

// ShipOrder converts the order's reservation into a depleted on-hand
// shipment, transitioning processing -> shipped.
func (s *Service) ShipOrder(ctx context.Context, id uuid.UUID, actor string) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := s.repo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, o, StatusShipped, "order shipped", "", actor); err != nil {
		return nil, err
	}

	if err := s.reservation.Commit(ctx, tx, ledger.ReferenceOrder, o.ID, actor); err != nil {
		return nil, fmt.Errorf("commit shipment to ledger: %w", err)
	}

	note := Note{Message: "order shipped", Actor: actor}
	if err := s.repo.UpdateStatus(ctx, tx, o, note); err != nil {
		return nil, err
	}

	event := &models.OutboxEvent{
		AggregateID:   o.ID,
		AggregateType: models.AggregateTypeOrder,
		EventType:     models.EventTypeOrderShipped,
		EventPayload:  map[string]interface{}{"order_id": o.ID.String()},
		MaxRetries:    5,
	}
	if err := s.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("create outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return o, nil
}

// simpleTransition covers the transitions that touch no inventory:
// begin_fulfillment, delivery_confirmed, hold_order, archive_order.
func (s *Service) simpleTransition(ctx context.Context, id uuid.UUID, to Status, message, reason, actor, eventType string) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := s.repo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, o, to, message, reason, actor); err != nil {
		return nil, err
	}

	note := Note{Message: message, Reason: reason, Actor: actor}
	if err := s.repo.UpdateStatus(ctx, tx, o, note); err != nil {
		return nil, err
	}

	if eventType != "" {
		event := &models.OutboxEvent{
			AggregateID:   o.ID,
			AggregateType: models.AggregateTypeOrder,
			EventType:     eventType,
			EventPayload:  map[string]interface{}{"order_id": o.ID.String()},
			MaxRetries:    5,
		}
		if err := s.outboxRepo.Create(ctx, tx, event); err != nil {
			return nil, fmt.Errorf("create outbox event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return o, nil
}

// BeginFulfillment transitions paid -> processing.
func (s *Service) BeginFulfillment(ctx context.Context, id uuid.UUID, actor string) (*Order, error) {
	return s.simpleTransition(ctx, id, StatusProcessing, "fulfillment started", "", actor, "")
}

// ConfirmDelivery transitions shipped -> delivered.
func (s *Service) ConfirmDelivery(ctx context.Context, id uuid.UUID, actor string) (*Order, error) {
	return s.simpleTransition(ctx, id, StatusDelivered, "delivery confirmed", "", actor, models.EventTypeOrderDelivered)
}

// HoldOrder transitions any non-terminal status to on_hold.
func (s *Service) HoldOrder(ctx context.Context, id uuid.UUID, reason, actor string) (*Order, error) {
	return s.simpleTransition(ctx, id, StatusOnHold, "order placed on hold", reason, actor, models.EventTypeOrderOnHold)
}

// ArchiveOrder marks a terminal order archived, retaining its data.
func (s *Service) ArchiveOrder(ctx context.Context, id uuid.UUID, actor string) (*Order, error) {
	return s.simpleTransition(ctx, id, StatusArchived, "order archived", "", actor, models.EventTypeOrderArchived)
}

// PayOrder processes payment for a pending, standalone order (one
// created via POST /orders rather than a completed checkout session),
// committing its reservation to depleted on-hand stock and
// transitioning pending -> paid in the same transaction that records
// the payment, mirroring how CompleteSession composes payment
// processing with a reservation commit for checkout-originated orders.
func (s *Service) PayOrder(ctx context.Context, id uuid.UUID, token, actor string) (*Order, *payment.Payment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := s.repo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.transition(ctx, o, StatusPaid, "payment succeeded", "", actor); err != nil {
		return nil, nil, err
	}

	pay, err := s.paymentSvc.Process(ctx, tx, payment.ProcessRequest{
		Token:   token,
		Amount:  o.Totals.GrandTotal,
		OrderID: &o.ID,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.reservation.Commit(ctx, tx, ledger.ReferenceOrder, o.ID, actor); err != nil {
		return nil, nil, fmt.Errorf("commit reservation to ledger: %w", err)
	}

	note := Note{Message: "payment succeeded", Actor: actor}
	if err := s.repo.UpdateStatus(ctx, tx, o, note); err != nil {
		return nil, nil, err
	}

	events := []*models.OutboxEvent{
		{
			AggregateID:   pay.ID,
			AggregateType: models.AggregateTypePayment,
			EventType:     models.EventTypePaymentSucceeded,
			EventPayload:  map[string]interface{}{"payment_id": pay.ID.String(), "order_id": o.ID.String()},
			MaxRetries:    5,
		},
		{
			AggregateID:   o.ID,
			AggregateType: models.AggregateTypeOrder,
			EventType:     models.EventTypeOrderPaid,
			EventPayload:  map[string]interface{}{"order_id": o.ID.String(), "payment_id": pay.ID.String()},
			MaxRetries:    5,
		},
	}
	for _, event := range events {
		if err := s.outboxRepo.Create(ctx, tx, event); err != nil {
			return nil, nil, fmt.Errorf("create outbox event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}
	return o, pay, nil
}

// GetOrder returns an order by id.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

// ListOrders returns orders matching filter.
func (s *Service) ListOrders(ctx context.Context, filter ListFilter) ([]*Order, error) {
	return s.repo.List(ctx, filter)
}

func decodeCached(raw json.RawMessage, out interface{}) error {
	return json.Unmarshal(raw, out)
}
