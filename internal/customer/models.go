// Package customer implements the Customer aggregate: simple
// optimistic-versioned CRUD/lifecycle (create/update/activate/suspend/
// archive/flag/add_note/merge) with no inventory or payment side
// effects, since Order and Checkout Session already reference a
// customer by id.
package customer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the customer's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusArchived  Status = "archived"
)

// ErrInvalidTransition is returned when a lifecycle change is illegal
// from the customer's current status.
var ErrInvalidTransition = errors.New("invalid customer status transition")

// Address is a shipping/billing address owned by a customer.
type Address struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CustomerID uuid.UUID `json:"customer_id" db:"customer_id"`
	Line1      string    `json:"line1" db:"line1"`
	Line2      string    `json:"line2,omitempty" db:"line2"`
	City       string    `json:"city" db:"city"`
	Region     string    `json:"region" db:"region"`
	PostalCode string    `json:"postal_code" db:"postal_code"`
	Country    string    `json:"country" db:"country"`
	IsDefault  bool      `json:"is_default" db:"is_default"`
}

// Note is an append-only annotation on a customer record.
type Note struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CustomerID uuid.UUID `json:"customer_id" db:"customer_id"`
	Message    string    `json:"message" db:"message"`
	Actor      string    `json:"actor" db:"actor"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Customer is the Customer aggregate root.
type Customer struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Email       string    `json:"email" db:"email"`
	Name        string    `json:"name" db:"name"`
	Phone       string    `json:"phone,omitempty" db:"phone"`
	Status      Status    `json:"status" db:"status"`
	Flagged     bool      `json:"flagged" db:"flagged"`
	FlagReason  string    `json:"flag_reason,omitempty" db:"flag_reason"`
	Addresses   []Address `json:"addresses" db:"-"`
	Notes       []Note    `json:"notes" db:"-"`
	Version     int64     `json:"version" db:"version"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
