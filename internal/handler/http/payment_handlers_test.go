package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/ledger"
	"github.com/stateset/commerce-engine/internal/mocks"
	"github.com/stateset/commerce-engine/internal/observability"
	"github.com/stateset/commerce-engine/internal/order"
	"github.com/stateset/commerce-engine/internal/payment"
	"github.com/stateset/commerce-engine/internal/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newPayOrderTestHandler wires a real order.Service and payment.Service
// over mocked repositories, the same layering internal/order/service_test.go
// uses, so createPayment's routing and error translation can be checked
// without a live database.
func newPayOrderTestHandler(t *testing.T) (*Handler, *mocks.MockOrderRepository, pgxmock.PgxPoolIface) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockOrderRepo := mocks.NewMockOrderRepository(ctrl)
	mockOutboxRepo := mocks.NewMockOutboxRepository(ctrl)
	mockLedgerRepo := mocks.NewMockLedgerRepository(ctrl)
	mockPaymentRepo := mocks.NewMockPaymentRepository(ctrl)
	mockProcessor := mocks.NewMockProcessorClient(ctrl)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetricsWithRegistry(registry)
	logger := zerolog.Nop()

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	ledgerSvc := ledger.NewService(mockLedgerRepo, mockPool, metrics, logger)
	coordinator := reservation.NewCoordinator(mockPool, ledgerSvc, logger)
	providers := []payment.Provider{{Name: "cheap-co", Active: true, Currencies: map[string]bool{"USD": true}, Rate: 0.02, Fixed: 10}}
	paymentSvc := payment.NewService(mockPool, mockPaymentRepo, nil, mockProcessor, providers, metrics, logger)
	orderSvc := order.NewService(mockPool, mockOrderRepo, mockOutboxRepo, coordinator, paymentSvc, nil, metrics, logger)

	return &Handler{orderSvc: orderSvc, paymentSvc: paymentSvc, metrics: metrics, logger: logger}, mockOrderRepo, mockPool
}

func TestCreatePayment_RejectsMissingOrderID(t *testing.T) {
	h, _, _ := newPayOrderTestHandler(t)

	router := chi.NewRouter()
	router.Post("/payments", h.createPayment)

	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader([]byte(`{"token":"card_123"}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePayment_InvalidTransition(t *testing.T) {
	h, mockOrderRepo, mockPool := newPayOrderTestHandler(t)

	orderID := uuid.New()
	existing := &order.Order{ID: orderID, Status: order.StatusShipped}
	mockPool.ExpectBegin()
	mockOrderRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), orderID).Return(existing, nil)
	mockPool.ExpectRollback()

	router := chi.NewRouter()
	router.Post("/payments", h.createPayment)

	body, err := json.Marshal(createPaymentRequest{OrderID: orderID, Token: "card_123"})
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
