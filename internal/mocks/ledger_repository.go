// Code generated by hand in the style of mockgen; DO NOT EDIT manually
// without keeping it in sync with ledger.Repository.

package mocks

import (
	"context"
	"reflect"

	"github.com/stateset/commerce-engine/internal/ledger"
	"github.com/jackc/pgx/v5"
	"go.uber.org/mock/gomock"
)

// MockLedgerRepository is a mock of ledger.Repository.
type MockLedgerRepository struct {
	ctrl     *gomock.Controller
	recorder *MockLedgerRepositoryMockRecorder
}

// MockLedgerRepositoryMockRecorder is the mock recorder for MockLedgerRepository.
type MockLedgerRepositoryMockRecorder struct {
	mock *MockLedgerRepository
}

// NewMockLedgerRepository creates a new mock instance.
func NewMockLedgerRepository(ctrl *gomock.Controller) *MockLedgerRepository {
	mock := &MockLedgerRepository{ctrl: ctrl}
	mock.recorder = &MockLedgerRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockLedgerRepository) EXPECT() *MockLedgerRepositoryMockRecorder {
	return m.recorder
}

func (m *MockLedgerRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, keys []ledger.Key) (map[ledger.Key]*ledger.Balance, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetForUpdate", ctx, tx, keys)
	ret0, _ := ret[0].(map[ledger.Key]*ledger.Balance)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockLedgerRepositoryMockRecorder) GetForUpdate(ctx, tx, keys interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetForUpdate", reflect.TypeOf((*MockLedgerRepository)(nil).GetForUpdate), ctx, tx, keys)
}

func (m *MockLedgerRepository) Save(ctx context.Context, tx pgx.Tx, balance *ledger.Balance) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Save", ctx, tx, balance)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockLedgerRepositoryMockRecorder) Save(ctx, tx, balance interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Save", reflect.TypeOf((*MockLedgerRepository)(nil).Save), ctx, tx, balance)
}

func (m *MockLedgerRepository) AppendTransaction(ctx context.Context, tx pgx.Tx, txn *ledger.Transaction) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AppendTransaction", ctx, tx, txn)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockLedgerRepositoryMockRecorder) AppendTransaction(ctx, tx, txn interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AppendTransaction", reflect.TypeOf((*MockLedgerRepository)(nil).AppendTransaction), ctx, tx, txn)
}

func (m *MockLedgerRepository) GetBalance(ctx context.Context, key ledger.Key) (*ledger.Balance, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetBalance", ctx, key)
	ret0, _ := ret[0].(*ledger.Balance)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockLedgerRepositoryMockRecorder) GetBalance(ctx, key interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetBalance", reflect.TypeOf((*MockLedgerRepository)(nil).GetBalance), ctx, key)
}

func (m *MockLedgerRepository) ListTransactions(ctx context.Context, key ledger.Key, limit int) ([]*ledger.Transaction, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListTransactions", ctx, key, limit)
	ret0, _ := ret[0].([]*ledger.Transaction)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockLedgerRepositoryMockRecorder) ListTransactions(ctx, key, limit interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListTransactions", reflect.TypeOf((*MockLedgerRepository)(nil).ListTransactions), ctx, key, limit)
}
