package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stateset/commerce-engine/internal/observability"
)

// Database is the subset of *pgxpool.Pool the payment service depends
// on, narrow enough that a pgxmock pool satisfies it in tests.
type Database interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service implements the Payment Processor's three routing paths and
// provider selection/refund logic.
type Service struct {
	pool      Database
	repo      Repository
	vault     *VaultStore
	processor ProcessorClient
	providers []Provider
	validator *validator.Validate
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService constructs the payment service over a fixed provider
// candidate set; a production deployment would source this from a
// `payment_providers` table, but the routing/selection logic is
// identical either way.
func NewService(pool Database, repo Repository, vault *VaultStore, processor ProcessorClient, providers []Provider, metrics *observability.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		pool:      pool,
		repo:      repo,
		vault:     vault,
		processor: processor,
		providers: providers,
		validator: validator.New(),
		metrics:   metrics,
		logger:    logger.With().Str("component", "payment_service").Logger(),
		now:       time.Now,
	}
}

// ProcessRequest carries either a delegated vault token, a shared
// payment token, or a direct payment method identifier; Service.Process
// inspects the token prefix to route.
type ProcessRequest struct {
	Token             string       `validate:"required"`
	Amount            models.Money `validate:"required"`
	OrderID           *uuid.UUID
	CheckoutSessionID uuid.UUID
}

// Process routes req by token prefix and records the resulting
// payment within the caller's transaction.
func (s *Service) Process(ctx context.Context, tx pgx.Tx, req ProcessRequest) (*Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, models.NewServiceError(models.KindValidation, "invalid payment processing request", err)
	}

	switch {
	case hasPrefix(req.Token, "vt_"):
		return s.processVaultToken(ctx, tx, req)
	case hasPrefix(req.Token, "spt_"):
		return s.processSharedPaymentToken(ctx, tx, req)
	default:
		return s.processDirect(ctx, tx, req)
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// processVaultToken implements the vt_ routing path: validate without
// consuming, then delete the token atomically (GetDel) before the payment
// row is written in the caller's transaction, so at most one concurrent
// caller gets past the delete. The Redis delete is not part of the
// database transaction: a failure or rollback after this point still
// leaves the token consumed.
func (s *Service) processVaultToken(ctx context.Context, tx pgx.Tx, req ProcessRequest) (*Payment, error) {
	tok, err := s.vault.Peek(ctx, req.Token)
	if err != nil {
		return nil, models.NewServiceError(models.KindInvalidOperation, "vault token is unknown, consumed, or expired", err)
	}
	if err := tok.Validate(req.CheckoutSessionID, req.Amount, s.now()); err != nil {
		return nil, err
	}
	if _, err := s.vault.Consume(ctx, req.Token); err != nil {
		return nil, models.NewServiceError(models.KindInvalidOperation, "vault token was consumed concurrently", err)
	}

	p := &Payment{
		OrderID:           req.OrderID,
		CheckoutSessionID: &req.CheckoutSessionID,
		Provider:          "vault",
		Method:            MethodVaultToken,
		Amount:            req.Amount,
		Status:            StatusCaptured,
		ProcessedAt:       s.now(),
	}
	if err := s.repo.Create(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("record vault token payment: %w", err)
	}
	s.metrics.PaymentsProcessedTotal.WithLabelValues(string(MethodVaultToken), string(StatusCaptured)).Inc()
	s.metrics.PaymentAmountTotal.WithLabelValues(req.Amount.Currency).Add(float64(req.Amount.Amount))
	return p, nil
}

// processSharedPaymentToken implements the spt_ routing path: exchange
// for a granted token, run risk assessment, process, and capture if the
// gateway leaves the charge in requires_capture.
func (s *Service) processSharedPaymentToken(ctx context.Context, tx pgx.Tx, req ProcessRequest) (*Payment, error) {
	granted, err := s.processor.GetGrantedToken(ctx, req.Token)
	if err != nil {
		return nil, models.NewServiceError(models.KindUnavailable, "payment provider unavailable", err)
	}

	shouldBlock, err := s.processor.AssessRisk(ctx, granted, req.Amount.Amount, req.Amount.Currency)
	if err != nil {
		return nil, models.NewServiceError(models.KindUnavailable, "risk assessment unavailable", err)
	}
	if shouldBlock {
		s.metrics.PaymentsProcessedTotal.WithLabelValues(string(MethodSharedPaymentToken), string(StatusFailed)).Inc()
		return nil, models.NewServiceError(models.KindPaymentFailed, "payment blocked by risk assessment", nil)
	}

	gatewayID, status, err := s.processor.ProcessSharedPaymentToken(ctx, granted, req.Amount.Amount, req.Amount.Currency)
	if err != nil {
		return nil, models.NewServiceError(models.KindPaymentFailed, "shared payment token processing failed", err)
	}
	if status == "requires_capture" {
		status, err = s.processor.CapturePayment(ctx, gatewayID)
		if err != nil {
			return nil, models.NewServiceError(models.KindPaymentFailed, "capture failed", err)
		}
	}
	if status != "succeeded" && status != "captured" {
		s.metrics.PaymentsProcessedTotal.WithLabelValues(string(MethodSharedPaymentToken), string(StatusFailed)).Inc()
		return nil, models.NewServiceError(models.KindPaymentFailed, fmt.Sprintf("payment declined with status %q", status), nil)
	}

	id, err := uuid.Parse(gatewayID)
	if err != nil {
		id = uuid.New()
	}
	p := &Payment{
		ID:                id,
		OrderID:           req.OrderID,
		CheckoutSessionID: &req.CheckoutSessionID,
		Provider:          "shared_payment_token_processor",
		Method:            MethodSharedPaymentToken,
		Amount:            req.Amount,
		Status:            StatusCaptured,
		ProcessedAt:       s.now(),
	}
	if err := s.repo.Create(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("record shared payment token payment: %w", err)
	}
	s.metrics.PaymentsProcessedTotal.WithLabelValues(string(MethodSharedPaymentToken), string(StatusCaptured)).Inc()
	s.metrics.PaymentAmountTotal.WithLabelValues(req.Amount.Currency).Add(float64(req.Amount.Amount))
	return p, nil
}

// processDirect implements the stub direct-method path, selecting the
// lowest-fee active provider capable of the currency.
func (s *Service) processDirect(ctx context.Context, tx pgx.Tx, req ProcessRequest) (*Payment, error) {
	provider, err := s.selectProvider(req.Amount)
	if err != nil {
		return nil, err
	}

	fee := provider.Fee(req.Amount.Amount)
	platform := platformFee(req.Amount.Amount)
	p := &Payment{
		OrderID:           req.OrderID,
		CheckoutSessionID: &req.CheckoutSessionID,
		Provider:          provider.Name,
		Method:            MethodDirect,
		Amount:            req.Amount,
		Status:            StatusCaptured,
		ProviderFee:       fee,
		PlatformFee:       platform,
		Net:               req.Amount.Amount - fee - platform,
		ProcessedAt:       s.now(),
	}
	if err := s.repo.Create(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("record direct payment: %w", err)
	}
	s.metrics.PaymentsProcessedTotal.WithLabelValues(string(MethodDirect), string(StatusCaptured)).Inc()
	s.metrics.PaymentAmountTotal.WithLabelValues(req.Amount.Currency).Add(float64(req.Amount.Amount))
	return p, nil
}

// selectProvider returns the active, currency-capable provider with the
// lowest computed fee for amount.
func (s *Service) selectProvider(amount models.Money) (Provider, error) {
	var best *Provider
	var bestFee int64
	for i := range s.providers {
		p := s.providers[i]
		if !p.Active || !p.SupportsCurrency(amount.Currency) {
			continue
		}
		fee := p.Fee(amount.Amount)
		if best == nil || fee < bestFee {
			best = &s.providers[i]
			bestFee = fee
		}
	}
	if best == nil {
		return Provider{}, models.NewServiceError(models.KindUnavailable, "no active payment provider supports this currency", nil)
	}
	return *best, nil
}

// Refund issues a pro-rata refund against a previously captured payment.
func (s *Service) Refund(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID, amount models.Money, reason string) (*Refund, error) {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusCaptured {
		return nil, models.NewServiceError(models.KindInvalidOperation, "only a captured payment can be refunded", nil)
	}
	if amount.Amount > p.Amount.Amount {
		return nil, models.NewServiceError(models.KindValidation, "refund amount exceeds the original payment", nil)
	}

	priorRefunded, err := s.repo.SumRefundsByPayment(ctx, tx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("sum prior refunds: %w", err)
	}
	if amount.Amount+priorRefunded > p.Amount.Amount {
		return nil, models.NewServiceError(models.KindInvalidOperation, "refund amount exceeds the payment's remaining refundable balance", nil)
	}

	totalFees := p.ProviderFee + p.PlatformFee
	refundedFees := roundHalfEven(amount.Amount*totalFees, p.Amount.Amount)

	ref := &Refund{
		PaymentID:    p.ID,
		Amount:       amount,
		RefundedFees: refundedFees,
		Status:       StatusRefunded,
		Reason:       reason,
	}
	if err := s.repo.CreateRefund(ctx, tx, ref); err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}

	newStatus := StatusCaptured
	if amount.Amount+priorRefunded == p.Amount.Amount {
		newStatus = StatusRefunded
	}
	if err := s.repo.UpdateStatus(ctx, tx, p.ID, newStatus); err != nil {
		return nil, err
	}

	s.metrics.RefundsIssuedTotal.WithLabelValues(amount.Currency).Inc()
	return ref, nil
}

// GetByID returns a payment by id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByOrderID returns every payment recorded against an order.
func (s *Service) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*Payment, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

// RefundStandalone opens its own transaction around Refund, for
// HTTP-initiated refunds (POST /payments/refund, POST /orders/{id}/refund)
// that aren't already part of a larger checkout-completion transaction.
func (s *Service) RefundStandalone(ctx context.Context, paymentID uuid.UUID, amount models.Money, reason string) (*Refund, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ref, err := s.Refund(ctx, tx, paymentID, amount, reason)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return ref, nil
}
