package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/stateset/commerce-engine/internal/returns"
)

type returnLineRequest struct {
	OrderLineID uuid.UUID `json:"order_line_id"`
	VariantID   uuid.UUID `json:"variant_id"`
	LocationID  uuid.UUID `json:"location_id"`
	Quantity    int64     `json:"quantity"`
}

type createReturnRequest struct {
	OrderID uuid.UUID           `json:"order_id"`
	Reason  string              `json:"reason"`
	Lines   []returnLineRequest `json:"lines"`
}

func (h *Handler) createReturn(w http.ResponseWriter, r *http.Request) {
	var req createReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	lines := make([]returns.Line, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = returns.Line{OrderLineID: l.OrderLineID, VariantID: l.VariantID, LocationID: l.LocationID, Quantity: l.Quantity}
	}
	ret, err := h.returnSvc.CreateReturn(r.Context(), returns.CreateReturnRequest{
		OrderID: req.OrderID,
		Reason:  req.Reason,
		Lines:   lines,
		Actor:   actor(r),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ret)
}

func (h *Handler) getReturn(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ret, err := h.returnSvc.GetReturn(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) listReturns(w http.ResponseWriter, r *http.Request) {
	var status *returns.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := returns.Status(s)
		status = &st
	}
	out, err := h.returnSvc.ListReturns(r.Context(), status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) approveReturn(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ret, err := h.returnSvc.ApproveReturn(r.Context(), id, actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) rejectReturn(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ret, err := h.returnSvc.RejectReturn(r.Context(), id, req.Reason, actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) completeReturn(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ret, err := h.returnSvc.CompleteReturn(r.Context(), id, actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) restockReturn(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ret, err := h.returnSvc.Restock(r.Context(), id, actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}
