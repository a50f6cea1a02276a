package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stateset/commerce-engine/internal/idempotency"
	"github.com/stateset/commerce-engine/internal/ledger"
	"github.com/stateset/commerce-engine/internal/messaging"
	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stateset/commerce-engine/internal/observability"
	"github.com/stateset/commerce-engine/internal/order"
	"github.com/stateset/commerce-engine/internal/payment"
	"github.com/stateset/commerce-engine/internal/reservation"
	"github.com/stateset/commerce-engine/internal/taxfulfillment"
)

// Service implements the Checkout Session commands.
type Service struct {
	pool         order.Database
	store        *Store
	reservation  *reservation.Coordinator
	orderSvc     *order.Service
	paymentSvc   *payment.Service
	outboxRepo   messaging.OutboxRepository
	idempotency  idempotency.Store
	taxPlugin    *taxfulfillment.TaxPlugin
	fulfillment  *taxfulfillment.FulfillmentPlugin
	validator    *validator.Validate
	metrics      *observability.Metrics
	logger       zerolog.Logger
}

// NewService constructs the checkout session service.
func NewService(
	pool order.Database,
	store *Store,
	coordinator *reservation.Coordinator,
	orderSvc *order.Service,
	paymentSvc *payment.Service,
	outboxRepo messaging.OutboxRepository,
	idempotencyStore idempotency.Store,
	taxPlugin *taxfulfillment.TaxPlugin,
	fulfillment *taxfulfillment.FulfillmentPlugin,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		pool:        pool,
		store:       store,
		reservation: coordinator,
		orderSvc:    orderSvc,
		paymentSvc:  paymentSvc,
		outboxRepo:  outboxRepo,
		idempotency: idempotencyStore,
		taxPlugin:   taxPlugin,
		fulfillment: fulfillment,
		validator:   validator.New(),
		metrics:     metrics,
		logger:      logger.With().Str("component", "checkout_service").Logger(),
	}
}

// CreateSessionRequest is the create_session command.
type CreateSessionRequest struct {
	Items              []Item `validate:"required,min=1,dive"`
	Customer           *Customer
	SelectedFulfillment string
	IdempotencyKey     string
	Actor              string
}

func lineQuantities(items []Item) []ledger.Line {
	lines := make([]ledger.Line, len(items))
	for i, it := range items {
		lines[i] = ledger.Line{
			Key:      ledger.Key{ItemID: it.VariantID, LocationID: it.LocationID},
			Quantity: decimal.NewFromInt(it.Quantity),
		}
	}
	return lines
}

func computeSubtotal(items []Item) models.Money {
	if len(items) == 0 {
		return models.Money{}
	}
	currency := items[0].UnitPrice.Currency
	var total int64
	for _, it := range items {
		total += it.UnitPrice.Amount * it.Quantity
	}
	return models.NewMoney(total, currency)
}

// CreateSession reserves inventory for every line and persists a new
// session, computing totals in a single pass.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, models.NewServiceError(models.KindValidation, "invalid create_session request", err)
	}

	sess := &Session{
		ID:        uuid.New(),
		Status:    StatusNotReadyForPayment,
		Items:     req.Items,
		Customer:  req.Customer,
		CreatedAt: time.Now(),
	}
	sess.Fulfillment.Options = convertOptions(s.fulfillment.Options(toCartLines(req.Items)))
	sess.Fulfillment.Selected = req.SelectedFulfillment

	if err := s.computeTotals(ctx, sess); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.reservation.ReserveMany(ctx, tx, lineQuantities(req.Items), ledger.ReferenceCheckout, sess.ID, req.Actor); err != nil {
		return nil, err
	}

	if sess.IsReady() {
		sess.Status = StatusReadyForPayment
	}

	event := &models.OutboxEvent{
		AggregateID:   sess.ID,
		AggregateType: models.AggregateTypeCheckout,
		EventType:     models.EventTypeCheckoutStarted,
		EventPayload:  map[string]interface{}{"session_id": sess.ID.String(), "status": string(sess.Status)},
		MaxRetries:    5,
	}
	if err := s.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("create outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	s.metrics.CheckoutSessionsCreatedTotal.Inc()
	return sess, nil
}

func toCartLines(items []Item) []taxfulfillment.CartLine {
	lines := make([]taxfulfillment.CartLine, len(items))
	for i, it := range items {
		lines[i] = taxfulfillment.CartLine{VariantID: it.VariantID.String(), Quantity: it.Quantity}
	}
	return lines
}

func convertOptions(opts []taxfulfillment.FulfillmentOption) []FulfillmentOption {
	out := make([]FulfillmentOption, len(opts))
	for i, o := range opts {
		out[i] = FulfillmentOption{
			ID:               o.ID,
			Label:            o.Label,
			Price:            o.Price,
			EarliestDelivery: o.EarliestDelivery,
			LatestDelivery:   o.LatestDelivery,
		}
	}
	return out
}

func (s *Service) computeTotals(ctx context.Context, sess *Session) error {
	subtotal := computeSubtotal(sess.Items)
	shipping := models.NewMoney(0, subtotal.Currency)
	for _, opt := range sess.Fulfillment.Options {
		if opt.ID == sess.Fulfillment.Selected {
			shipping = opt.Price
		}
	}

	var addr taxfulfillment.Address
	if sess.Customer != nil && sess.Customer.Address != nil {
		addr = taxfulfillment.Address{Region: sess.Customer.Address.Region, Country: sess.Customer.Address.Country}
	}
	taxResult, err := s.taxPlugin.Calculate(ctx, subtotal, addr, false, shipping)
	if err != nil {
		return fmt.Errorf("calculate tax: %w", err)
	}

	grandTotal, err := subtotal.Add(shipping)
	if err != nil {
		return err
	}
	grandTotal, err = grandTotal.Add(taxResult.TaxAmount)
	if err != nil {
		return err
	}

	sess.Totals = Totals{
		Subtotal:   subtotal,
		Tax:        taxResult.TaxAmount,
		Shipping:   shipping,
		Discount:   models.NewMoney(0, subtotal.Currency),
		GrandTotal: grandTotal,
	}
	return nil
}

// GetSession returns a session by id.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.store.Get(ctx, id)
}

// UpdateSessionRequest is the update_session command.
type UpdateSessionRequest struct {
	Items               []Item
	Customer            *Customer
	SelectedFulfillment string
	Actor               string
}

// UpdateSession replaces item lines (releasing the prior reservation and
// acquiring a new one) and/or updates customer/fulfillment selection.
// Illegal on completed/cancelled sessions. If reserving a changed item
// set fails, the item change is rolled back, the original lines are
// reserved again in a new transaction and an InvalidOperation error is
// returned; only if that second reservation fails is the session moved
// to cancelled.
func (s *Service) UpdateSession(ctx context.Context, id uuid.UUID, req UpdateSessionRequest) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if IsTerminal(sess.Status) {
		return nil, models.NewServiceError(models.KindInvalidOperation, "cannot update a completed or cancelled checkout session", nil)
	}

	itemsChanged := req.Items != nil
	priorItems := sess.Items

	if req.Customer != nil {
		sess.Customer = req.Customer
	}
	if req.SelectedFulfillment != "" {
		sess.Fulfillment.Selected = req.SelectedFulfillment
	}

	if itemsChanged {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}

		if err := s.reservation.Release(ctx, tx, ledger.ReferenceCheckout, sess.ID, req.Actor); err != nil {
			tx.Rollback(ctx)
			return nil, fmt.Errorf("release prior reservation: %w", err)
		}

		sess.Items = req.Items
		if reserveErr := s.reservation.ReserveMany(ctx, tx, lineQuantities(req.Items), ledger.ReferenceCheckout, sess.ID, req.Actor); reserveErr != nil {
			tx.Rollback(ctx)

			// Best-effort re-reserve of the original lines.
			retryTx, beginErr := s.pool.Begin(ctx)
			if beginErr != nil {
				return nil, s.cancelOnReserveFailure(ctx, sess, req.Actor, reserveErr)
			}
			if reReserveErr := s.reservation.ReserveMany(ctx, retryTx, lineQuantities(priorItems), ledger.ReferenceCheckout, sess.ID, req.Actor); reReserveErr != nil {
				retryTx.Rollback(ctx)
				return nil, s.cancelOnReserveFailure(ctx, sess, req.Actor, reserveErr)
			}
			if commitErr := retryTx.Commit(ctx); commitErr != nil {
				return nil, s.cancelOnReserveFailure(ctx, sess, req.Actor, reserveErr)
			}
			sess.Items = priorItems
			return nil, models.NewServiceError(models.KindInvalidOperation, "item reservation failed; original items restored", reserveErr)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit transaction: %w", err)
		}
	}

	sess.Fulfillment.Options = convertOptions(s.fulfillment.Options(toCartLines(sess.Items)))
	if err := s.computeTotals(ctx, sess); err != nil {
		return nil, err
	}

	if sess.IsReady() {
		sess.Status = StatusReadyForPayment
	} else {
		sess.Status = StatusNotReadyForPayment
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// cancelOnReserveFailure transitions a session to cancelled when its
// update_session re-reserve attempt also fails, recording a message for
// the caller: the session is treated as fatally broken rather than left
// item-less and silently retryable.
func (s *Service) cancelOnReserveFailure(ctx context.Context, sess *Session, actor string, cause error) error {
	sess.Status = StatusCancelled
	sess.Messages = append(sess.Messages, Message{
		Code:      "reservation_failed",
		Text:      fmt.Sprintf("item update failed and the original reservation could not be restored: %v", cause),
		CreatedAt: time.Now(),
	})
	if err := s.store.Save(ctx, sess); err != nil {
		return err
	}
	return models.NewServiceError(models.KindInvalidOperation, "checkout session cancelled: reservation could not be restored after a failed update", cause)
}

// CancelSession releases reservations; illegal from a terminal state.
func (s *Service) CancelSession(ctx context.Context, id uuid.UUID, actor string) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if IsTerminal(sess.Status) {
		return nil, models.NewServiceError(models.KindInvalidOperation, "cannot cancel a completed or already-cancelled checkout session", nil)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.reservation.Release(ctx, tx, ledger.ReferenceCheckout, sess.ID, actor); err != nil {
		return nil, fmt.Errorf("release reservation: %w", err)
	}

	event := &models.OutboxEvent{
		AggregateID:   sess.ID,
		AggregateType: models.AggregateTypeCheckout,
		EventType:     models.EventTypeCheckoutCancelled,
		EventPayload:  map[string]interface{}{"session_id": sess.ID.String()},
		MaxRetries:    5,
	}
	if err := s.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("create outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	sess.Status = StatusCancelled
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// CompleteSessionRequest is the complete_session command.
type CompleteSessionRequest struct {
	DelegatedToken string `validate:"required_without=PaymentMethod"`
	PaymentMethod  string `validate:"required_without=DelegatedToken"`
	Actor          string
}

// CompleteSession validates state, processes payment, converts the
// reservation into a shipment, transitions to completed, and
// synthesizes an Order linked back by checkout_session_id.
func (s *Service) CompleteSession(ctx context.Context, id uuid.UUID, req CompleteSessionRequest) (*Session, *order.Order, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, models.NewServiceError(models.KindValidation, "invalid complete_session request", err)
	}

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status != StatusReadyForPayment {
		return nil, nil, models.NewServiceError(models.KindInvalidOperation, "checkout session is not ready for payment", nil)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	token := req.DelegatedToken
	if token == "" {
		token = req.PaymentMethod
	}
	pay, err := s.paymentSvc.Process(ctx, tx, payment.ProcessRequest{
		Token:             token,
		Amount:            sess.Totals.GrandTotal,
		CheckoutSessionID: sess.ID,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.reservation.Commit(ctx, tx, ledger.ReferenceCheckout, sess.ID, req.Actor); err != nil {
		return nil, nil, fmt.Errorf("commit reservation to ledger: %w", err)
	}

	orderLines := make([]order.Line, len(sess.Items))
	for i, it := range sess.Items {
		orderLines[i] = order.Line{
			VariantID:  it.VariantID,
			LocationID: it.LocationID,
			SKU:        it.SKU,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
		}
	}
	var customerID *uuid.UUID
	if sess.Customer != nil {
		customerID = sess.Customer.ID
	}
	o := &order.Order{
		CustomerID:        customerID,
		CheckoutSessionID: &sess.ID,
		Status:            order.StatusPaid,
		Lines:             orderLines,
		Totals: order.Totals{
			Subtotal:   sess.Totals.Subtotal,
			Tax:        sess.Totals.Tax,
			Shipping:   sess.Totals.Shipping,
			Discount:   sess.Totals.Discount,
			GrandTotal: sess.Totals.GrandTotal,
		},
		Notes: []order.Note{{Message: "order created from completed checkout session", Actor: req.Actor}},
	}
	if err := s.orderSvc.CreateFromCheckout(ctx, tx, o); err != nil {
		return nil, nil, fmt.Errorf("synthesize order from session: %w", err)
	}

	event := &models.OutboxEvent{
		AggregateID:   sess.ID,
		AggregateType: models.AggregateTypeCheckout,
		EventType:     models.EventTypeCheckoutCompleted,
		EventPayload:  map[string]interface{}{"session_id": sess.ID.String(), "order_id": o.ID.String(), "payment_id": pay.ID.String()},
		MaxRetries:    5,
	}
	if err := s.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, nil, fmt.Errorf("create outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}

	sess.Status = StatusCompleted
	sess.OrderID = &o.ID
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, nil, err
	}

	s.metrics.CheckoutSessionsCompletedTotal.Inc()
	return sess, o, nil
}
