package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the commerce engine.
type Metrics struct {
	// Orders
	OrdersCreatedTotal   *prometheus.CounterVec
	OrdersCancelledTotal *prometheus.CounterVec
	OrderPlacementDuration *prometheus.HistogramVec
	ActiveOrders         prometheus.Gauge

	// Checkout sessions
	CheckoutSessionsCreatedTotal   prometheus.Counter
	CheckoutSessionsCompletedTotal prometheus.Counter
	CheckoutSessionsCancelledTotal *prometheus.CounterVec

	// Payments
	PaymentsProcessedTotal *prometheus.CounterVec
	PaymentAmountTotal     *prometheus.CounterVec
	RefundsIssuedTotal     *prometheus.CounterVec
	PaymentProviderErrors  *prometheus.CounterVec
	CircuitBreakerState    *prometheus.GaugeVec

	// Returns
	ReturnsRequestedTotal *prometheus.CounterVec
	ReturnsCompletedTotal prometheus.Counter

	// Inventory ledger
	LedgerReservationsTotal      prometheus.Counter
	LedgerReleasesTotal          prometheus.Counter
	LedgerCommitsTotal           prometheus.Counter
	LedgerReceiptsTotal          prometheus.Counter
	LedgerInsufficientStockTotal prometheus.Counter
	LedgerVersionConflictsTotal  prometheus.Counter

	// Database
	DatabaseOperationDuration *prometheus.HistogramVec
	DatabaseErrors            *prometheus.CounterVec

	// Outbox publisher
	OutboxEventsPublished *prometheus.CounterVec
	OutboxEventsFailed    *prometheus.CounterVec

	// Command dispatcher
	CommandDuration *prometheus.HistogramVec
	CommandFailures *prometheus.CounterVec

	// gRPC
	GRPCRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates metrics with a custom registry (useful for testing).
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OrdersCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_orders_created_total",
				Help: "Total number of orders created",
			},
			[]string{"currency"},
		),
		OrdersCancelledTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_orders_cancelled_total",
				Help: "Total number of orders cancelled",
			},
			[]string{"reason"},
		),
		OrderPlacementDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commerce_order_placement_duration_seconds",
				Help:    "Duration of order creation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		ActiveOrders: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "commerce_active_orders",
				Help: "Number of orders not yet delivered, cancelled, or archived",
			},
		),
		CheckoutSessionsCreatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_checkout_sessions_created_total",
				Help: "Total number of checkout sessions created",
			},
		),
		CheckoutSessionsCompletedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_checkout_sessions_completed_total",
				Help: "Total number of checkout sessions completed",
			},
		),
		CheckoutSessionsCancelledTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_checkout_sessions_cancelled_total",
				Help: "Total number of checkout sessions cancelled",
			},
			[]string{"reason"},
		),
		PaymentsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_payments_processed_total",
				Help: "Total number of payments processed",
			},
			[]string{"method", "status"},
		),
		PaymentAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_payment_amount_minor_units_total",
				Help: "Total payment amount processed, in minor currency units",
			},
			[]string{"currency"},
		),
		RefundsIssuedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_refunds_issued_total",
				Help: "Total number of refunds issued",
			},
			[]string{"currency"},
		),
		PaymentProviderErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_payment_provider_errors_total",
				Help: "Total number of payment provider call failures",
			},
			[]string{"provider", "error_type"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "commerce_circuit_breaker_state",
				Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),
		ReturnsRequestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_returns_requested_total",
				Help: "Total number of returns requested",
			},
			[]string{"reason"},
		),
		ReturnsCompletedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_returns_completed_total",
				Help: "Total number of returns completed",
			},
		),
		LedgerReservationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_ledger_reservations_total",
				Help: "Total number of successful inventory reservation batches",
			},
		),
		LedgerReleasesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_ledger_releases_total",
				Help: "Total number of inventory release batches",
			},
		),
		LedgerCommitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_ledger_commits_total",
				Help: "Total number of inventory commit (ship) batches",
			},
		),
		LedgerReceiptsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_ledger_receipts_total",
				Help: "Total number of inventory receipt operations",
			},
		),
		LedgerInsufficientStockTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_ledger_insufficient_stock_total",
				Help: "Total number of reservation attempts rejected for insufficient stock",
			},
		),
		LedgerVersionConflictsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_ledger_version_conflicts_total",
				Help: "Total number of optimistic version conflicts on the ledger",
			},
		),
		DatabaseOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commerce_database_operation_duration_seconds",
				Help:    "Duration of database operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		DatabaseErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_database_errors_total",
				Help: "Total number of database errors",
			},
			[]string{"operation", "error_type"},
		),
		OutboxEventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_outbox_events_published_total",
				Help: "Total number of outbox events successfully published",
			},
			[]string{"event_type"},
		),
		OutboxEventsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_outbox_events_failed_total",
				Help: "Total number of outbox events failed to publish",
			},
			[]string{"event_type"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commerce_command_duration_seconds",
				Help:    "Duration of command executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command", "status"},
		),
		CommandFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_command_failures_total",
				Help: "Total number of command execution failures",
			},
			[]string{"command", "error_type"},
		),
		GRPCRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commerce_grpc_request_duration_seconds",
				Help:    "Duration of gRPC requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
	}
}
