// Package payment implements the Payment Processor: vault-token,
// shared-payment-token, and direct-method routing, provider selection
// by lowest computed fee, and pro-rata refunds, layered over the usual
// repository-plus-outbox shape with the resilience package's retry and
// circuit-breaker style wrapping the outbound provider calls.
package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/stateset/commerce-engine/internal/models"
)

// Status is a payment's lifecycle state.
type Status string

const (
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

// Method classifies which of the three routing paths produced a payment.
type Method string

const (
	MethodVaultToken         Method = "vault_token"
	MethodSharedPaymentToken Method = "shared_payment_token"
	MethodDirect             Method = "direct"
)

// Provider is an active payment processor candidate. Fee is computed as
// rate * amount + fixed, both in the same minor units as amount.
type Provider struct {
	Name       string
	Active     bool
	Currencies map[string]bool
	Rate       float64
	Fixed      int64
}

// SupportsCurrency reports whether p can settle the given currency.
func (p Provider) SupportsCurrency(currency string) bool {
	return p.Currencies[currency]
}

// Fee computes the provider's fee for amount, rounded half away from zero.
func (p Provider) Fee(amount int64) int64 {
	scaled := int64(p.Rate * 1_000_000)
	feeFromRate := models.NewMoney(amount, "").MulRate(scaled, 1_000_000).Amount
	return feeFromRate + p.Fixed
}

// Payment is the Payment Processor's aggregate root.
type Payment struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	OrderID           *uuid.UUID `json:"order_id,omitempty" db:"order_id"`
	CheckoutSessionID *uuid.UUID `json:"checkout_session_id,omitempty" db:"checkout_session_id"`
	Provider          string     `json:"provider" db:"provider"`
	Method            Method     `json:"method" db:"method"`
	Amount            models.Money `json:"amount" db:"-"`
	Status            Status     `json:"status" db:"status"`
	ProviderFee        int64     `json:"provider_fee" db:"provider_fee"`
	PlatformFee        int64     `json:"platform_fee" db:"platform_fee"`
	Net                int64     `json:"net" db:"net"`
	ProcessedAt       time.Time  `json:"processed_at" db:"processed_at"`
	IdempotencyKey    string     `json:"idempotency_key,omitempty" db:"idempotency_key"`
	GatewayResponse   map[string]interface{} `json:"gateway_response,omitempty" db:"-"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// Refund is a (partial or full) reversal of a captured payment.
type Refund struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	PaymentID     uuid.UUID    `json:"payment_id" db:"payment_id"`
	Amount        models.Money `json:"amount" db:"-"`
	RefundedFees  int64        `json:"refunded_fees" db:"refunded_fees"`
	Status        Status       `json:"status" db:"status"`
	Reason        string       `json:"reason" db:"reason"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// platformFeeRate is a flat 0.5% rate charged on top of the provider's
// own fee.
const platformFeeRate = 0.005

func platformFee(amount int64) int64 {
	scaled := int64(platformFeeRate * 1_000_000)
	return models.NewMoney(amount, "").MulRate(scaled, 1_000_000).Amount
}

// roundHalfEven rounds n/d to the nearest integer, ties to even, used
// for pro-rata refund fee recovery.
func roundHalfEven(numerator, denominator int64) int64 {
	if denominator == 0 {
		return 0
	}
	quotient := numerator / denominator
	remainder := numerator % denominator
	twice := remainder * 2
	switch {
	case twice < denominator && twice > -denominator:
		return quotient
	case twice == denominator:
		if quotient%2 == 0 {
			return quotient
		}
		return quotient + 1
	case twice == -denominator:
		if quotient%2 == 0 {
			return quotient
		}
		return quotient - 1
	case twice > denominator:
		return quotient + 1
	default:
		return quotient - 1
	}
}
