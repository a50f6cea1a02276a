// Package checkout implements the agentic-checkout Checkout Session
// state machine: a short-lived, reservation-backed cart that completes
// into a permanent Order.
package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/stateset/commerce-engine/internal/models"
)

// Status is the Checkout Session's state.
type Status string

const (
	StatusNotReadyForPayment Status = "not_ready_for_payment"
	StatusReadyForPayment    Status = "ready_for_payment"
	StatusInProgress         Status = "in_progress"
	StatusCompleted          Status = "completed"
	StatusCancelled          Status = "cancelled"
)

var transitions = map[Status]map[Status]bool{
	StatusNotReadyForPayment: {StatusReadyForPayment: true, StatusNotReadyForPayment: true, StatusCancelled: true, StatusInProgress: true},
	StatusReadyForPayment:    {StatusNotReadyForPayment: true, StatusReadyForPayment: true, StatusInProgress: true, StatusCompleted: true, StatusCancelled: true},
	StatusInProgress:         {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted:          {},
	StatusCancelled:          {},
}

// CanTransition reports whether from -> to is legal. Same-state
// transitions are allowed for not_ready/ready since update_session may
// re-evaluate readiness without a status change being meaningful.
func CanTransition(from, to Status) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// IsTerminal reports whether no further update/complete/cancel call is legal.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Item is a requested cart line.
type Item struct {
	VariantID  uuid.UUID    `json:"variant_id"`
	LocationID uuid.UUID    `json:"location_id"`
	SKU        string       `json:"sku"`
	Quantity   int64        `json:"quantity"`
	UnitPrice  models.Money `json:"unit_price"`
}

// Address is a minimal shipping address, enough to gate readiness and
// feed the tax/fulfillment plug-ins.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Customer is the session's optional customer context.
type Customer struct {
	ID      *uuid.UUID `json:"id,omitempty"`
	Email   string     `json:"email,omitempty"`
	Address *Address   `json:"address,omitempty"`
}

// FulfillmentOption is one choice offered by the fulfillment plug-in.
type FulfillmentOption struct {
	ID             string       `json:"id"`
	Label          string       `json:"label"`
	Price          models.Money `json:"price"`
	EarliestDelivery time.Time  `json:"earliest_delivery"`
	LatestDelivery   time.Time  `json:"latest_delivery"`
}

// Fulfillment holds the offered option set and the caller's selection.
type Fulfillment struct {
	Options  []FulfillmentOption `json:"options"`
	Selected string              `json:"selected,omitempty"`
}

// Totals mirrors order.Totals; duplicated rather than shared so the two
// aggregates' persistence shapes can diverge independently.
type Totals struct {
	Subtotal   models.Money `json:"subtotal"`
	Tax        models.Money `json:"tax"`
	Shipping   models.Money `json:"shipping"`
	Discount   models.Money `json:"discount"`
	GrandTotal models.Money `json:"grand_total"`
}

// Message is a non-fatal, user-facing annotation surfaced to the agent
// driving the checkout (e.g. "fulfillment option no longer available").
type Message struct {
	Code      string    `json:"code"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the Checkout Session aggregate, persisted read-through-only
// in the shared cache with a bounded TTL.
type Session struct {
	ID          uuid.UUID   `json:"id"`
	Status      Status      `json:"status"`
	Items       []Item      `json:"items"`
	Customer    *Customer   `json:"customer,omitempty"`
	Fulfillment Fulfillment `json:"fulfillment"`
	Totals      Totals      `json:"totals"`
	Messages    []Message   `json:"messages"`
	OrderID     *uuid.UUID  `json:"order_id,omitempty"`
	Version     int64       `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Currency returns the session's pricing currency, taken from the first item.
func (s *Session) Currency() string {
	if len(s.Items) == 0 {
		return s.Totals.GrandTotal.Currency
	}
	return s.Items[0].UnitPrice.Currency
}

// IsReady reports I5: a customer address and a selected fulfillment
// option are both present.
func (s *Session) IsReady() bool {
	return s.Customer != nil && s.Customer.Address != nil && s.Fulfillment.Selected != ""
}
