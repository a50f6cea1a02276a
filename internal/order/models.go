// Package order implements the Order Aggregate: order + lines + notes
// and its status machine.
package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stateset/commerce-engine/internal/models"
)

// Status is the Order Aggregate's state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusOnHold     Status = "on_hold"
	StatusArchived   Status = "archived"
)

// transitions enumerates every legal (from, to) pair, keyed by the
// current status and then by the target status.
var transitions = map[Status]map[Status]bool{
	StatusPending:    {StatusPaid: true, StatusCancelled: true, StatusOnHold: true},
	StatusPaid:       {StatusProcessing: true, StatusCancelled: true, StatusOnHold: true, StatusRefunded: true},
	StatusProcessing: {StatusShipped: true, StatusOnHold: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true, StatusOnHold: true},
	StatusDelivered:  {StatusOnHold: true, StatusRefunded: true},
	StatusOnHold:     {StatusPending: true, StatusPaid: true, StatusProcessing: true, StatusShipped: true, StatusDelivered: true, StatusCancelled: true},
	StatusCancelled:  {StatusArchived: true},
	StatusRefunded:   {StatusArchived: true},
	StatusArchived:   {},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// IsTerminal reports whether status admits no further business
// transitions except archival.
func IsTerminal(s Status) bool {
	return s == StatusCancelled || s == StatusRefunded || s == StatusArchived
}

// ErrInvalidTransition is returned when a requested status change is
// not in the transition table.
var ErrInvalidTransition = errors.New("invalid order status transition")

// Line is a single order line item.
type Line struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	OrderID     uuid.UUID   `json:"order_id" db:"order_id"`
	VariantID   uuid.UUID   `json:"variant_id" db:"variant_id"`
	LocationID  uuid.UUID   `json:"location_id" db:"location_id"`
	SKU         string      `json:"sku" db:"sku"`
	Quantity    int64       `json:"quantity" db:"quantity"`
	UnitPrice   models.Money `json:"unit_price" db:"-"`
}

// Totals holds an order's monetary summary. All fields share Currency.
type Totals struct {
	Subtotal   models.Money `json:"subtotal"`
	Tax        models.Money `json:"tax"`
	Shipping   models.Money `json:"shipping"`
	Discount   models.Money `json:"discount"`
	GrandTotal models.Money `json:"grand_total"`
}

// Note is an append-only annotation recorded automatically on every
// status transition, not just when an actor supplies one explicitly.
type Note struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	Message   string    `json:"message" db:"message"`
	Reason    string    `json:"reason,omitempty" db:"reason"`
	Actor     string    `json:"actor" db:"actor"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Order is the Order Aggregate root.
type Order struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	CustomerID        *uuid.UUID `json:"customer_id,omitempty" db:"customer_id"`
	CheckoutSessionID *uuid.UUID `json:"checkout_session_id,omitempty" db:"checkout_session_id"`
	Status            Status     `json:"status" db:"status"`
	Lines             []Line     `json:"lines" db:"-"`
	Totals            Totals     `json:"totals" db:"-"`
	Notes             []Note     `json:"notes" db:"-"`
	Version           int64      `json:"version" db:"version"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// Currency returns the order's currency, inherited from the first line.
func (o *Order) Currency() string {
	if len(o.Lines) == 0 {
		return o.Totals.GrandTotal.Currency
	}
	return o.Lines[0].UnitPrice.Currency
}

// ValidateLines rejects empty or mixed-currency line sets.
func (o *Order) ValidateLines() error {
	if len(o.Lines) == 0 {
		return models.NewServiceError(models.KindValidation, "order must have at least one line", nil)
	}
	currency := o.Lines[0].UnitPrice.Currency
	for _, l := range o.Lines {
		if l.UnitPrice.Currency != currency {
			return models.NewServiceError(models.KindValidation, "mixed-currency orders are rejected", nil)
		}
	}
	return nil
}
