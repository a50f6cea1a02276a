package returns

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stateset/commerce-engine/internal/ledger"
	"github.com/stateset/commerce-engine/internal/messaging"
	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stateset/commerce-engine/internal/observability"
	"github.com/stateset/commerce-engine/internal/order"
)

// returnableOrderStatuses names the order states a return may be
// created against: an order has to have actually shipped (or at least
// been paid) before anything can come back.
var returnableOrderStatuses = map[order.Status]bool{
	order.StatusPaid:      true,
	order.StatusShipped:   true,
	order.StatusDelivered: true,
}

// Service implements the Return Aggregate's commands.
type Service struct {
	pool       order.Database
	repo       Repository
	orderSvc   *order.Service
	ledgerSvc  *ledger.Service
	outboxRepo messaging.OutboxRepository
	validator  *validator.Validate
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// NewService constructs the return service.
func NewService(pool order.Database, repo Repository, orderSvc *order.Service, ledgerSvc *ledger.Service, outboxRepo messaging.OutboxRepository, metrics *observability.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		pool:       pool,
		repo:       repo,
		orderSvc:   orderSvc,
		ledgerSvc:  ledgerSvc,
		outboxRepo: outboxRepo,
		validator:  validator.New(),
		metrics:    metrics,
		logger:     logger.With().Str("component", "return_service").Logger(),
	}
}

// CreateReturnRequest is the create_return command.
type CreateReturnRequest struct {
	OrderID uuid.UUID `validate:"required"`
	Reason  string    `validate:"required"`
	Lines   []Line
	Actor   string
}

// CreateReturn opens a return against an order in a returnable state.
func (s *Service) CreateReturn(ctx context.Context, req CreateReturnRequest) (*Return, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, models.NewServiceError(models.KindValidation, "invalid create_return request", err)
	}
	o, err := s.orderSvc.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !returnableOrderStatuses[o.Status] {
		return nil, models.NewServiceError(models.KindInvalidOperation, fmt.Sprintf("order in status %s is not returnable", o.Status), nil)
	}

	ret := &Return{
		OrderID: req.OrderID,
		Reason:  req.Reason,
		Status:  StatusPending,
		Lines:   req.Lines,
		History: []HistoryEntry{{ToStatus: StatusPending, Actor: req.Actor}},
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.Create(ctx, tx, ret); err != nil {
		return nil, fmt.Errorf("create return: %w", err)
	}

	event := &models.OutboxEvent{
		AggregateID:   ret.ID,
		AggregateType: models.AggregateTypeReturn,
		EventType:     models.EventTypeReturnRequested,
		EventPayload:  map[string]interface{}{"return_id": ret.ID.String(), "order_id": req.OrderID.String(), "reason": req.Reason},
		MaxRetries:    5,
	}
	if err := s.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("create outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	s.metrics.ReturnsRequestedTotal.WithLabelValues(req.Reason).Inc()
	return ret, nil
}

func (s *Service) transition(ret *Return, to Status) error {
	if !CanTransition(ret.Status, to) {
		return models.NewServiceError(models.KindInvalidOperation, fmt.Sprintf("cannot transition return from %s to %s", ret.Status, to), ErrInvalidTransition)
	}
	ret.Status = to
	return nil
}

func (s *Service) simpleTransition(ctx context.Context, id uuid.UUID, to Status, actor, eventType string) (*Return, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ret, err := s.repo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	from := ret.Status
	if err := s.transition(ret, to); err != nil {
		return nil, err
	}

	entry := HistoryEntry{FromStatus: from, ToStatus: to, Actor: actor}
	if err := s.repo.UpdateStatus(ctx, tx, ret, entry); err != nil {
		return nil, err
	}

	if eventType != "" {
		event := &models.OutboxEvent{
			AggregateID:   ret.ID,
			AggregateType: models.AggregateTypeReturn,
			EventType:     eventType,
			EventPayload:  map[string]interface{}{"return_id": ret.ID.String()},
			MaxRetries:    5,
		}
		if err := s.outboxRepo.Create(ctx, tx, event); err != nil {
			return nil, fmt.Errorf("create outbox event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return ret, nil
}

// ApproveReturn allows only from pending.
func (s *Service) ApproveReturn(ctx context.Context, id uuid.UUID, actor string) (*Return, error) {
	return s.simpleTransition(ctx, id, StatusApproved, actor, models.EventTypeReturnApproved)
}

// RejectReturn requires a reason and is allowed only from pending/inspecting.
func (s *Service) RejectReturn(ctx context.Context, id uuid.UUID, reason, actor string) (*Return, error) {
	if reason == "" {
		return nil, models.NewServiceError(models.KindValidation, "rejection reason must not be empty", nil)
	}
	return s.simpleTransition(ctx, id, StatusRejected, actor, models.EventTypeReturnRejected)
}

// BeginInspection transitions approved -> inspecting.
func (s *Service) BeginInspection(ctx context.Context, id uuid.UUID, actor string) (*Return, error) {
	return s.simpleTransition(ctx, id, StatusInspecting, actor, "")
}

// BeginProcessingRefund transitions inspecting -> processing_refund.
func (s *Service) BeginProcessingRefund(ctx context.Context, id uuid.UUID, actor string) (*Return, error) {
	return s.simpleTransition(ctx, id, StatusProcessingRefund, actor, "")
}

// CompleteReturn requires inspecting or processing_refund as the prior state.
func (s *Service) CompleteReturn(ctx context.Context, id uuid.UUID, actor string) (*Return, error) {
	ret, err := s.simpleTransition(ctx, id, StatusCompleted, actor, models.EventTypeReturnCompleted)
	if err != nil {
		return nil, err
	}
	s.metrics.ReturnsCompletedTotal.Inc()
	return ret, nil
}

// CancelReturn cancels a non-terminal return.
func (s *Service) CancelReturn(ctx context.Context, id uuid.UUID, actor string) (*Return, error) {
	return s.simpleTransition(ctx, id, StatusCancelled, actor, "")
}

// Restock receives every returned line back into on-hand inventory,
// guarded against being applied twice.
func (s *Service) Restock(ctx context.Context, id uuid.UUID, actor string) (*Return, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ret, err := s.repo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if ret.Status != StatusInspecting && ret.Status != StatusProcessingRefund && ret.Status != StatusCompleted {
		return nil, models.NewServiceError(models.KindInvalidOperation, "return must be inspecting, processing a refund, or completed before restocking", nil)
	}

	for _, l := range ret.Lines {
		key := ledger.Key{ItemID: l.VariantID, LocationID: l.LocationID}
		qty := decimal.NewFromInt(l.Quantity)
		if err := s.ledgerSvc.Receive(ctx, tx, key, qty, ledger.ReferenceReturn, ret.ID, actor); err != nil {
			return nil, fmt.Errorf("restock return line: %w", err)
		}
	}

	if err := s.repo.MarkRestocked(ctx, tx, ret.ID); err != nil {
		return nil, err
	}
	ret.Restocked = true

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return ret, nil
}

// GetReturn returns a return by id.
func (s *Service) GetReturn(ctx context.Context, id uuid.UUID) (*Return, error) {
	return s.repo.GetByID(ctx, id)
}

// ListReturns returns returns matching an optional status filter.
func (s *Service) ListReturns(ctx context.Context, status *Status) ([]*Return, error) {
	return s.repo.List(ctx, status)
}
