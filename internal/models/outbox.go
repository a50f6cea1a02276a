package models

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent represents an event to be published to Kafka via the
// transactional outbox pattern: written in the same DB transaction as
// the aggregate change it describes, drained by a background poller.
type OutboxEvent struct {
	ID            uuid.UUID              `json:"id" db:"id"`
	AggregateID   uuid.UUID              `json:"aggregate_id" db:"aggregate_id"`
	AggregateType string                 `json:"aggregate_type" db:"aggregate_type"`
	EventType     string                 `json:"event_type" db:"event_type"`
	EventPayload  map[string]interface{} `json:"event_payload" db:"event_payload"`
	SagaID        *uuid.UUID             `json:"saga_id,omitempty" db:"saga_id"`
	CreatedAt     time.Time              `json:"created_at" db:"created_at"`
	ProcessedAt   *time.Time             `json:"processed_at,omitempty" db:"processed_at"`
	RetryCount    int                    `json:"retry_count" db:"retry_count"`
	MaxRetries    int                    `json:"max_retries" db:"max_retries"`
	LastError     *string                `json:"last_error,omitempty" db:"last_error"`
}

// IsProcessed returns true if the event has been successfully published.
func (e *OutboxEvent) IsProcessed() bool {
	return e.ProcessedAt != nil
}

// CanRetry returns true if the event can be retried.
func (e *OutboxEvent) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// AggregateType constants.
const (
	AggregateTypeOrder    = "order"
	AggregateTypeCheckout = "checkout_session"
	AggregateTypePayment  = "payment"
	AggregateTypeReturn   = "return"
	AggregateTypeCustomer = "customer"
	AggregateTypeLedger   = "inventory_balance"
)

// EventType constants for the commerce engine's domain events.
const (
	EventTypeOrderCreated     = "order.created"
	EventTypeOrderPaid        = "order.paid"
	EventTypeOrderCancelled   = "order.cancelled"
	EventTypeOrderShipped     = "order.shipped"
	EventTypeOrderDelivered   = "order.delivered"
	EventTypeOrderOnHold      = "order.on_hold"
	EventTypeOrderArchived    = "order.archived"

	EventTypeCheckoutStarted   = "checkout.started"
	EventTypeCheckoutUpdated   = "checkout.updated"
	EventTypeCheckoutCompleted = "checkout.completed"
	EventTypeCheckoutCancelled = "checkout.cancelled"

	EventTypePaymentSucceeded = "payment.succeeded"
	EventTypePaymentFailed    = "payment.failed"
	EventTypeRefundIssued     = "payment.refund_issued"

	EventTypeReturnRequested = "return.requested"
	EventTypeReturnApproved  = "return.approved"
	EventTypeReturnRejected  = "return.rejected"
	EventTypeReturnCompleted = "return.completed"

	EventTypeInventoryReserved  = "inventory.reserved"
	EventTypeInventoryReleased  = "inventory.released"
	EventTypeInventoryCommitted = "inventory.committed"
	EventTypeInventoryReceived  = "inventory.received"
)
