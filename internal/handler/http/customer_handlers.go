package http

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/stateset/commerce-engine/internal/customer"
	"github.com/stateset/commerce-engine/internal/models"
)

type customerAddressRequest struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"is_default"`
}

type createCustomerRequest struct {
	Email     string                   `json:"email"`
	Name      string                   `json:"name"`
	Phone     string                   `json:"phone"`
	Addresses []customerAddressRequest `json:"addresses"`
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	addrs := make([]customer.Address, len(req.Addresses))
	for i, a := range req.Addresses {
		addrs[i] = customer.Address{
			Line1: a.Line1, Line2: a.Line2, City: a.City, Region: a.Region,
			PostalCode: a.PostalCode, Country: a.Country, IsDefault: a.IsDefault,
		}
	}
	c, err := h.customerSvc.CreateCustomer(r.Context(), customer.CreateCustomerRequest{
		Email:     req.Email,
		Name:      req.Name,
		Phone:     req.Phone,
		Addresses: addrs,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	c, err := h.customerSvc.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	limit, offset := 50, 0
	q := r.URL.Query()
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}
	if o := q.Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil {
			offset = n
		}
	}
	customers, err := h.customerSvc.ListCustomers(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

type updateCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req updateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	c, err := h.customerSvc.UpdateCustomer(r.Context(), id, customer.UpdateCustomerRequest{Name: req.Name, Phone: req.Phone})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.customerSvc.DeleteCustomer(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	c, err := h.customerSvc.ActivateCustomer(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) suspendCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	c, err := h.customerSvc.SuspendCustomer(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) archiveCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	c, err := h.customerSvc.ArchiveCustomer(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) flagCustomer(w http.ResponseWriter, r *http.Request) {
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
	c, err := h.customerSvc.FlagCustomer(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type addCustomerNoteRequest struct {
	Message string `json:"message"`
}

func (h *Handler) addCustomerNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req addCustomerNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Message == "" {
		writeError(w, r, h.logger, models.NewServiceError(models.KindValidation, "message must not be empty", nil))
		return
	}
	c, err := h.customerSvc.AddNote(r.Context(), id, req.Message, actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type mergeCustomersRequest struct {
	MasterID    uuid.UUID `json:"master_id"`
	DuplicateID uuid.UUID `json:"duplicate_id"`
}

func (h *Handler) mergeCustomers(w http.ResponseWriter, r *http.Request) {
	var req mergeCustomersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	c, err := h.customerSvc.MergeCustomers(r.Context(), req.MasterID, req.DuplicateID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
