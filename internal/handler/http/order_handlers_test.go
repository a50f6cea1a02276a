package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/mocks"
	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stateset/commerce-engine/internal/observability"
	"github.com/stateset/commerce-engine/internal/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newOrderTestHandler(t *testing.T) (*Handler, *mocks.MockOrderRepository) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockRepo := mocks.NewMockOrderRepository(ctrl)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetricsWithRegistry(registry)
	logger := zerolog.Nop()

	orderSvc := order.NewService(nil, mockRepo, nil, nil, nil, nil, metrics, logger)

	return &Handler{orderSvc: orderSvc, metrics: metrics, logger: logger}, mockRepo
}

func TestGetOrder_Success(t *testing.T) {
	h, mockRepo := newOrderTestHandler(t)

	id := uuid.New()
	expected := &order.Order{ID: id, Status: order.StatusPending}
	mockRepo.EXPECT().GetByID(gomock.Any(), id).Return(expected, nil)

	router := chi.NewRouter()
	router.Get("/orders/{id}", h.getOrder)

	req := httptest.NewRequest(http.MethodGet, "/orders/"+id.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, id, body.ID)
}

func TestGetOrder_NotFound(t *testing.T) {
	h, mockRepo := newOrderTestHandler(t)

	id := uuid.New()
	mockRepo.EXPECT().GetByID(gomock.Any(), id).Return(nil, models.NewServiceError(models.KindNotFound, "order not found", nil))

	router := chi.NewRouter()
	router.Get("/orders/{id}", h.getOrder)

	req := httptest.NewRequest(http.MethodGet, "/orders/"+id.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder_InvalidID(t *testing.T) {
	h, _ := newOrderTestHandler(t)

	router := chi.NewRouter()
	router.Get("/orders/{id}", h.getOrder)

	req := httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_RejectsMalformedBody(t *testing.T) {
	h, _ := newOrderTestHandler(t)

	router := chi.NewRouter()
	router.Post("/orders", h.createOrder)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte(`{"unexpected_field":true}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
