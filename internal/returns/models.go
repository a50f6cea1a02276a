// Package returns implements the Return Aggregate: state machine,
// append-only return_history, and the optional restock side-effect
// calling the Inventory Ledger's receive operation.
package returns

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stateset/commerce-engine/internal/models"
)

// Status is the Return Aggregate's state.
type Status string

const (
	StatusPending          Status = "pending"
	StatusApproved         Status = "approved"
	StatusInspecting       Status = "inspecting"
	StatusProcessingRefund Status = "processing_refund"
	StatusCompleted        Status = "completed"
	StatusRejected         Status = "rejected"
	StatusCancelled        Status = "cancelled"
)

var transitions = map[Status]map[Status]bool{
	StatusPending:          {StatusApproved: true, StatusRejected: true, StatusCancelled: true},
	StatusApproved:         {StatusInspecting: true, StatusCancelled: true},
	StatusInspecting:       {StatusProcessingRefund: true, StatusCompleted: true, StatusRejected: true, StatusCancelled: true},
	StatusProcessingRefund: {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted:        {},
	StatusRejected:         {},
	StatusCancelled:        {},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to Status) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// IsTerminal reports whether no further transition is legal.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// ErrInvalidTransition is returned when a requested status change is
// not in the transition table.
var ErrInvalidTransition = errors.New("invalid return status transition")

// Line is a returned unit of an order line, enough to restock.
type Line struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ReturnID   uuid.UUID `json:"return_id" db:"return_id"`
	OrderLineID uuid.UUID `json:"order_line_id" db:"order_line_id"`
	VariantID  uuid.UUID `json:"variant_id" db:"variant_id"`
	LocationID uuid.UUID `json:"location_id" db:"location_id"`
	Quantity   int64     `json:"quantity" db:"quantity"`
}

// HistoryEntry is an append-only record of a status transition.
type HistoryEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ReturnID  uuid.UUID `json:"return_id" db:"return_id"`
	FromStatus Status   `json:"from_status" db:"from_status"`
	ToStatus   Status   `json:"to_status" db:"to_status"`
	Actor     string    `json:"actor" db:"actor"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Return is the Return Aggregate root.
type Return struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	OrderID   uuid.UUID      `json:"order_id" db:"order_id"`
	Reason    string         `json:"reason" db:"reason"`
	Status    Status         `json:"status" db:"status"`
	Lines     []Line         `json:"lines" db:"-"`
	History   []HistoryEntry `json:"history" db:"-"`
	Restocked bool           `json:"restocked" db:"restocked"`
	Version   int64          `json:"version" db:"version"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}
