package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stateset/commerce-engine/internal/models"
)

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := h.paymentSvc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) getPaymentsByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		writeError(w, r, h.logger, models.NewServiceError(models.KindValidation, "invalid order_id", err))
		return
	}
	payments, err := h.paymentSvc.GetByOrderID(r.Context(), orderID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

type refundPaymentRequest struct {
	PaymentID uuid.UUID    `json:"payment_id"`
	Amount    models.Money `json:"amount"`
	Reason    string       `json:"reason"`
}

func (h *Handler) refundPayment(w http.ResponseWriter, r *http.Request) {
	var req refundPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.refund(w, r, req.PaymentID, req.Amount, req.Reason)
}

type createPaymentRequest struct {
	OrderID uuid.UUID `json:"order_id"`
	Token   string    `json:"token"`
}

// createPayment processes payment for a standalone order (one created
// via POST /orders rather than a completed checkout session, which
// pays as part of complete_session instead), committing its
// reservation to depleted on-hand stock and transitioning it
// pending -> paid in the same transaction as the payment record.
func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.OrderID == uuid.Nil {
		writeError(w, r, h.logger, models.NewServiceError(models.KindValidation, "order_id is required", nil))
		return
	}
	o, pay, err := h.orderSvc.PayOrder(r.Context(), req.OrderID, req.Token, actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Order   interface{} `json:"order"`
		Payment interface{} `json:"payment"`
	}{Order: o, Payment: pay})
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request, paymentID uuid.UUID, amount models.Money, reason string) {
	if paymentID == uuid.Nil {
		writeError(w, r, h.logger, models.NewServiceError(models.KindValidation, "payment_id is required", nil))
		return
	}
	ref, err := h.paymentSvc.RefundStandalone(r.Context(), paymentID, amount, reason)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}
