// Package http implements the commerce engine's JSON HTTP surface: a
// thin chi router and a Handler struct holding only the aggregate
// services it dispatches to. Handlers parse/validate/translate and
// never carry business logic themselves.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/checkout"
	"github.com/stateset/commerce-engine/internal/customer"
	"github.com/stateset/commerce-engine/internal/idempotency"
	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stateset/commerce-engine/internal/observability"
	"github.com/stateset/commerce-engine/internal/order"
	"github.com/stateset/commerce-engine/internal/payment"
	"github.com/stateset/commerce-engine/internal/returns"
)

// Handler wires every aggregate's service into HTTP routes. It holds no
// state of its own beyond those services, the idempotency store and TTL
// backing the Idempotency middleware, the metrics, and a logger.
type Handler struct {
	orderSvc    *order.Service
	checkoutSvc *checkout.Service
	paymentSvc  *payment.Service
	vaultStore  *payment.VaultStore
	returnSvc   *returns.Service
	customerSvc *customer.Service
	idempotency idempotency.Store
	idempoTTL   time.Duration
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// NewHandler constructs the HTTP handler.
func NewHandler(
	orderSvc *order.Service,
	checkoutSvc *checkout.Service,
	paymentSvc *payment.Service,
	vaultStore *payment.VaultStore,
	returnSvc *returns.Service,
	customerSvc *customer.Service,
	idempotencyStore idempotency.Store,
	idempoTTL time.Duration,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		orderSvc:    orderSvc,
		checkoutSvc: checkoutSvc,
		paymentSvc:  paymentSvc,
		vaultStore:  vaultStore,
		returnSvc:   returnSvc,
		customerSvc: customerSvc,
		idempotency: idempotencyStore,
		idempoTTL:   idempoTTL,
		metrics:     metrics,
		logger:      logger.With().Str("component", "http_handler").Logger(),
	}
}

// Routes builds the chi.Mux serving every JSON route plus health/ready/metrics.
func (h *Handler) Routes(readyCheck http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Idempotency-Key", "API-Version"},
	}))

	r.Get("/health", HealthHandler())
	r.Get("/ready", readyCheck)
	r.Handle("/metrics", promhttp.Handler())

	idempotent := Idempotency(h.idempotency, h.idempoTTL, h.logger)

	r.Route("/checkout_sessions", func(r chi.Router) {
		r.With(idempotent).Post("/", h.createCheckoutSession)
		r.Get("/{id}", h.getCheckoutSession)
		r.With(idempotent).Post("/{id}", h.updateCheckoutSession)
		r.With(idempotent).Post("/{id}/complete", h.completeCheckoutSession)
		r.With(idempotent).Post("/{id}/cancel", h.cancelCheckoutSession)
	})

	r.Route("/agentic_commerce", func(r chi.Router) {
		r.With(idempotent).Post("/delegate_payment", h.delegatePayment)
	})

	r.Route("/orders", func(r chi.Router) {
		r.With(idempotent).Post("/", h.createOrder)
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.With(idempotent).Put("/{id}", h.updateOrder)
		r.With(idempotent).Delete("/{id}", h.archiveOrder)
		r.With(idempotent).Post("/{id}/cancel", h.cancelOrder)
		r.With(idempotent).Post("/{id}/ship", h.shipOrder)
		r.With(idempotent).Post("/{id}/complete", h.confirmOrderDelivery)
		r.With(idempotent).Post("/{id}/hold", h.holdOrder)
		r.With(idempotent).Post("/{id}/release", h.releaseOrder)
		r.With(idempotent).Post("/{id}/archive", h.archiveOrder)
		r.With(idempotent).Post("/{id}/refund", h.refundOrder)
	})

	r.Route("/payments", func(r chi.Router) {
		r.With(idempotent).Post("/", h.createPayment)
		r.Get("/{id}", h.getPayment)
		r.Get("/order/{order_id}", h.getPaymentsByOrder)
		r.With(idempotent).Post("/refund", h.refundPayment)
	})

	r.Route("/returns", func(r chi.Router) {
		r.With(idempotent).Post("/", h.createReturn)
		r.Get("/{id}", h.getReturn)
		r.Get("/", h.listReturns)
		r.With(idempotent).Post("/{id}/approve", h.approveReturn)
		r.With(idempotent).Post("/{id}/reject", h.rejectReturn)
		r.With(idempotent).Post("/{id}/complete", h.completeReturn)
		r.With(idempotent).Post("/{id}/restock", h.restockReturn)
	})

	r.Route("/customers", func(r chi.Router) {
		r.With(idempotent).Post("/", h.createCustomer)
		r.Get("/{id}", h.getCustomer)
		r.Get("/", h.listCustomers)
		r.With(idempotent).Put("/{id}", h.updateCustomer)
		r.With(idempotent).Delete("/{id}", h.deleteCustomer)
		r.With(idempotent).Post("/{id}/activate", h.activateCustomer)
		r.With(idempotent).Post("/{id}/suspend", h.suspendCustomer)
		r.With(idempotent).Post("/{id}/archive", h.archiveCustomer)
		r.With(idempotent).Post("/{id}/flag", h.flagCustomer)
		r.With(idempotent).Post("/{id}/notes", h.addCustomerNote)
		r.With(idempotent).Post("/merge", h.mergeCustomers)
	})

	return r
}

// actor resolves the acting principal for audit trails: "api" when the
// request carries an Authorization header, "anonymous" otherwise. The
// bearer token's subject is not decoded (no JWT parsing library is
// wired).
func actor(r *http.Request) string {
	if r.Header.Get("Authorization") != "" {
		return "api"
	}
	return "anonymous"
}

// requireBearer enforces the 401-on-missing-bearer rule for routes that
// open new checkout/payment state.
func requireBearer(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) bool {
	if r.Header.Get("Authorization") == "" {
		writeError(w, r, logger, models.NewServiceError(models.KindUnauthorized, "missing bearer token", nil))
		return false
	}
	return true
}
