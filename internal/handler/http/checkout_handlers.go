package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stateset/commerce-engine/internal/checkout"
	"github.com/stateset/commerce-engine/internal/command"
	"github.com/stateset/commerce-engine/internal/models"
)

type checkoutItemRequest struct {
	VariantID  uuid.UUID    `json:"variant_id"`
	LocationID uuid.UUID    `json:"location_id"`
	SKU        string       `json:"sku"`
	Quantity   int64        `json:"quantity"`
	UnitPrice  models.Money `json:"unit_price"`
}

type checkoutAddressRequest struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type checkoutCustomerRequest struct {
	ID      *uuid.UUID               `json:"id"`
	Email   string                   `json:"email"`
	Address *checkoutAddressRequest  `json:"address"`
}

func (c *checkoutCustomerRequest) toDomain() *checkout.Customer {
	if c == nil {
		return nil
	}
	out := &checkout.Customer{ID: c.ID, Email: c.Email}
	if c.Address != nil {
		out.Address = &checkout.Address{
			Name: c.Address.Name, Line1: c.Address.Line1, Line2: c.Address.Line2,
			City: c.Address.City, Region: c.Address.Region,
			PostalCode: c.Address.PostalCode, Country: c.Address.Country,
		}
	}
	return out
}

func toDomainItems(items []checkoutItemRequest) []checkout.Item {
	out := make([]checkout.Item, len(items))
	for i, it := range items {
		out[i] = checkout.Item{
			VariantID: it.VariantID, LocationID: it.LocationID,
			SKU: it.SKU, Quantity: it.Quantity, UnitPrice: it.UnitPrice,
		}
	}
	return out
}

type createCheckoutSessionRequest struct {
	Items               []checkoutItemRequest    `json:"items"`
	Customer            *checkoutCustomerRequest `json:"customer"`
	SelectedFulfillment string                   `json:"selected_fulfillment"`
}

func (h *Handler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if !requireBearer(w, r, h.logger) {
		return
	}
	var req createCheckoutSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	createReq := checkout.CreateSessionRequest{
		Items:               toDomainItems(req.Items),
		Customer:            req.Customer.toDomain(),
		SelectedFulfillment: req.SelectedFulfillment,
		IdempotencyKey:      r.Header.Get("Idempotency-Key"),
		Actor:               actor(r),
	}
	sess, err := command.Dispatch(r.Context(), "create_checkout_session", command.Func[*checkout.Session](func(ctx context.Context) (*checkout.Session, error) {
		return h.checkoutSvc.CreateSession(ctx, createReq)
	}), h.metrics, h.logger)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) getCheckoutSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, models.NewServiceError(models.KindValidation, "invalid session id", err))
		return
	}
	sess, err := h.checkoutSvc.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type updateCheckoutSessionRequest struct {
	Items               []checkoutItemRequest    `json:"items"`
	Customer            *checkoutCustomerRequest `json:"customer"`
	SelectedFulfillment string                   `json:"selected_fulfillment"`
}

func (h *Handler) updateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, models.NewServiceError(models.KindValidation, "invalid session id", err))
		return
	}
	var req updateCheckoutSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var items []checkout.Item
	if req.Items != nil {
		items = toDomainItems(req.Items)
	}
	sess, err := h.checkoutSvc.UpdateSession(r.Context(), id, checkout.UpdateSessionRequest{
		Items:               items,
		Customer:            req.Customer.toDomain(),
		SelectedFulfillment: req.SelectedFulfillment,
		Actor:               actor(r),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type completeCheckoutSessionRequest struct {
	Payment struct {
		DelegatedToken string `json:"delegated_token"`
		Method         string `json:"method"`
	} `json:"payment"`
}

func (h *Handler) completeCheckoutSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, models.NewServiceError(models.KindValidation, "invalid session id", err))
		return
	}
	var req completeCheckoutSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	completeReq := checkout.CompleteSessionRequest{
		DelegatedToken: req.Payment.DelegatedToken,
		PaymentMethod:  req.Payment.Method,
		Actor:          actor(r),
	}
	type completion struct {
		Session *checkout.Session
		Order   interface{}
	}
	out, err := command.Dispatch(r.Context(), "complete_checkout_session", command.Func[completion](func(ctx context.Context) (completion, error) {
		sess, o, err := h.checkoutSvc.CompleteSession(ctx, id, completeReq)
		return completion{Session: sess, Order: o}, err
	}), h.metrics, h.logger)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": out.Session, "order": out.Order})
}

func (h *Handler) cancelCheckoutSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, models.NewServiceError(models.KindValidation, "invalid session id", err))
		return
	}
	sess, err := h.checkoutSvc.CancelSession(r.Context(), id, actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type delegatePaymentRequest struct {
	PaymentMethod string `json:"payment_method"`
	Allowance     struct {
		CheckoutSessionID uuid.UUID `json:"checkout_session_id"`
		MaxAmount         int64     `json:"max_amount"`
		Currency          string    `json:"currency"`
		ExpiresAt         time.Time `json:"expires_at"`
		Reason            string    `json:"reason"`
	} `json:"allowance"`
}

func (h *Handler) delegatePayment(w http.ResponseWriter, r *http.Request) {
	var req delegatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Allowance.MaxAmount <= 0 || req.Allowance.Currency == "" {
		writeError(w, r, h.logger, models.NewServiceError(models.KindValidation, "allowance must specify a positive max_amount and currency", nil))
		return
	}
	tok, err := h.vaultStore.Issue(r.Context(), req.Allowance.CheckoutSessionID, req.Allowance.MaxAmount, req.Allowance.Currency, req.Allowance.ExpiresAt, req.Allowance.Reason, req.PaymentMethod)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":      tok.ID,
		"created": tok.CreatedAt.Format(time.RFC3339),
	})
}
