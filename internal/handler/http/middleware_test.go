package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	var seenID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = requestIDFromContext(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	RequestID(next).ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, rec.Header().Get("X-Request-Id"), seenID)
}

func TestRequestID_EchoesIncoming(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-fixed-123")
	rec := httptest.NewRecorder()
	RequestID(next).ServeHTTP(rec, req)

	assert.Equal(t, "req-fixed-123", rec.Header().Get("X-Request-Id"))
}

func TestIdempotency_PassesThroughWithoutKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockIdempotencyStore(ctrl)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	mw := Idempotency(store, time.Hour, zerolog.Nop())
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	assert.True(t, called)
}

func TestIdempotency_CachesSuccessfulResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockIdempotencyStore(ctrl)

	store.EXPECT().
		Check(gomock.Any(), "key-1", gomock.Any()).
		Return(nil, false, nil)
	store.EXPECT().
		Store(gomock.Any(), "key-1", gomock.Any(), gomock.Any(), time.Hour).
		Return(nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"order-1"}`))
	})

	mw := Idempotency(store, time.Hour, zerolog.Nop())
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Idempotency-Key", "key-1")
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestIdempotency_ReplaysCachedResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockIdempotencyStore(ctrl)

	cached := idempotentReplay{Status: http.StatusCreated, Body: json.RawMessage(`{"id":"order-1"}`)}
	cachedBytes, err := json.Marshal(cached)
	require.NoError(t, err)

	store.EXPECT().
		Check(gomock.Any(), "key-1", gomock.Any()).
		Return(json.RawMessage(cachedBytes), true, nil)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	mw := Idempotency(store, time.Hour, zerolog.Nop())
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Idempotency-Key", "key-1")
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusCreated, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.JSONEq(t, `{"id":"order-1"}`, string(body))
}
