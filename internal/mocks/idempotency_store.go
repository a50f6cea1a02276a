// Code generated by hand in the style of mockgen; DO NOT EDIT manually
// without keeping it in sync with idempotency.Store.

package mocks

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/mock/gomock"
)

// MockIdempotencyStore is a mock of idempotency.Store.
type MockIdempotencyStore struct {
	ctrl     *gomock.Controller
	recorder *MockIdempotencyStoreMockRecorder
}

// MockIdempotencyStoreMockRecorder is the mock recorder for MockIdempotencyStore.
type MockIdempotencyStoreMockRecorder struct {
	mock *MockIdempotencyStore
}

// NewMockIdempotencyStore creates a new mock instance.
func NewMockIdempotencyStore(ctrl *gomock.Controller) *MockIdempotencyStore {
	mock := &MockIdempotencyStore{ctrl: ctrl}
	mock.recorder = &MockIdempotencyStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockIdempotencyStore) EXPECT() *MockIdempotencyStoreMockRecorder {
	return m.recorder
}

func (m *MockIdempotencyStore) Check(ctx context.Context, key string, requestHash string) (json.RawMessage, bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Check", ctx, key, requestHash)
	ret0, _ := ret[0].(json.RawMessage)
	ret1, _ := ret[1].(bool)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

func (mr *MockIdempotencyStoreMockRecorder) Check(ctx, key, requestHash interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Check", reflect.TypeOf((*MockIdempotencyStore)(nil).Check), ctx, key, requestHash)
}

func (m *MockIdempotencyStore) Store(ctx context.Context, key string, requestHash string, responseData interface{}, ttl time.Duration) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Store", ctx, key, requestHash, responseData, ttl)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockIdempotencyStoreMockRecorder) Store(ctx, key, requestHash, responseData, ttl interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Store", reflect.TypeOf((*MockIdempotencyStore)(nil).Store), ctx, key, requestHash, responseData, ttl)
}

func (m *MockIdempotencyStore) StoreInTransaction(ctx context.Context, tx pgx.Tx, key string, requestHash string, responseData interface{}, ttl time.Duration) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "StoreInTransaction", ctx, tx, key, requestHash, responseData, ttl)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockIdempotencyStoreMockRecorder) StoreInTransaction(ctx, tx, key, requestHash, responseData, ttl interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StoreInTransaction", reflect.TypeOf((*MockIdempotencyStore)(nil).StoreInTransaction), ctx, tx, key, requestHash, responseData, ttl)
}

func (m *MockIdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CleanupExpired", ctx)
	ret0, _ := ret[0].(int64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockIdempotencyStoreMockRecorder) CleanupExpired(ctx interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CleanupExpired", reflect.TypeOf((*MockIdempotencyStore)(nil).CleanupExpired), ctx)
}
