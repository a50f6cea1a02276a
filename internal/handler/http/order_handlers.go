package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stateset/commerce-engine/internal/command"
	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stateset/commerce-engine/internal/order"
)

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, models.NewServiceError(models.KindValidation, "invalid "+name, err)
	}
	return id, nil
}

type orderLineRequest struct {
	VariantID  uuid.UUID    `json:"variant_id"`
	LocationID uuid.UUID    `json:"location_id"`
	SKU        string       `json:"sku"`
	Quantity   int64        `json:"quantity"`
	UnitPrice  models.Money `json:"unit_price"`
}

type createOrderRequest struct {
	CustomerID *uuid.UUID         `json:"customer_id"`
	Lines      []orderLineRequest `json:"lines"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	lines := make([]order.Line, len(req.Lines))
	var subtotal models.Money
	for i, l := range req.Lines {
		lines[i] = order.Line{VariantID: l.VariantID, LocationID: l.LocationID, SKU: l.SKU, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
		subtotal = models.NewMoney(subtotal.Amount+l.UnitPrice.Amount*l.Quantity, l.UnitPrice.Currency)
	}
	createReq := order.CreateOrderRequest{
		CustomerID: req.CustomerID,
		Lines:      lines,
		Totals: order.Totals{
			Subtotal:   subtotal,
			Shipping:   models.NewMoney(0, subtotal.Currency),
			Tax:        models.NewMoney(0, subtotal.Currency),
			Discount:   models.NewMoney(0, subtotal.Currency),
			GrandTotal: subtotal,
		},
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Actor:          actor(r),
	}
	o, err := command.Dispatch(r.Context(), "create_order", command.Func[*order.Order](func(ctx context.Context) (*order.Order, error) {
		return h.orderSvc.CreateOrder(ctx, createReq)
	}), h.metrics, h.logger)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	o, err := h.orderSvc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	filter := order.ListFilter{}
	q := r.URL.Query()
	if cid := q.Get("customer_id"); cid != "" {
		id, err := uuid.Parse(cid)
		if err != nil {
			writeError(w, r, h.logger, models.NewServiceError(models.KindValidation, "invalid customer_id", err))
			return
		}
		filter.CustomerID = &id
	}
	if st := q.Get("status"); st != "" {
		s := order.Status(st)
		filter.Status = &s
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			filter.Limit = n
		}
	}
	if o := q.Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil {
			filter.Offset = n
		}
	}
	orders, err := h.orderSvc.ListOrders(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

type updateOrderRequest struct {
	CustomerID *uuid.UUID `json:"customer_id"`
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req updateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	o, err := h.orderSvc.UpdateOrder(r.Context(), id, req.CustomerID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req reasonRequest
	decodeJSON(r, &req)
	o, err := h.orderSvc.CancelOrder(r.Context(), id, req.Reason, actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) shipOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	o, err := h.orderSvc.ShipOrder(r.Context(), id, actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) confirmOrderDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	o, err := h.orderSvc.ConfirmDelivery(r.Context(), id, actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) holdOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req reasonRequest
	decodeJSON(r, &req)
	o, err := h.orderSvc.HoldOrder(r.Context(), id, req.Reason, actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// releaseOrder resumes a held order back into its pre-hold lifecycle
// step; since on_hold can be entered from any non-terminal status, the
// engine resumes to processing (the common post-payment steady state)
// and lets a subsequent ship/complete call continue from there.
func (h *Handler) releaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	o, err := h.orderSvc.BeginFulfillment(r.Context(), id, actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) archiveOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	o, err := h.orderSvc.ArchiveOrder(r.Context(), id, actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type refundOrderRequest struct {
	PaymentID uuid.UUID    `json:"payment_id"`
	Amount    models.Money `json:"amount"`
	Reason    string       `json:"reason"`
}

func (h *Handler) refundOrder(w http.ResponseWriter, r *http.Request) {
	if _, err := parseUUIDParam(r, "id"); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req refundOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.refund(w, r, req.PaymentID, req.Amount, req.Reason)
}
