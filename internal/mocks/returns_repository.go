// Code generated by hand in the style of mockgen; DO NOT EDIT manually
// without keeping it in sync with returns.Repository.

package mocks

import (
	"context"
	"reflect"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stateset/commerce-engine/internal/returns"
	"go.uber.org/mock/gomock"
)

// MockReturnsRepository is a mock of returns.Repository.
type MockReturnsRepository struct {
	ctrl     *gomock.Controller
	recorder *MockReturnsRepositoryMockRecorder
}

// MockReturnsRepositoryMockRecorder is the mock recorder for MockReturnsRepository.
type MockReturnsRepositoryMockRecorder struct {
	mock *MockReturnsRepository
}

// NewMockReturnsRepository creates a new mock instance.
func NewMockReturnsRepository(ctrl *gomock.Controller) *MockReturnsRepository {
	mock := &MockReturnsRepository{ctrl: ctrl}
	mock.recorder = &MockReturnsRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockReturnsRepository) EXPECT() *MockReturnsRepositoryMockRecorder {
	return m.recorder
}

func (m *MockReturnsRepository) Create(ctx context.Context, tx pgx.Tx, r *returns.Return) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Create", ctx, tx, r)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockReturnsRepositoryMockRecorder) Create(ctx, tx, r interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockReturnsRepository)(nil).Create), ctx, tx, r)
}

func (m *MockReturnsRepository) GetByID(ctx context.Context, id uuid.UUID) (*returns.Return, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*returns.Return)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockReturnsRepositoryMockRecorder) GetByID(ctx, id interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockReturnsRepository)(nil).GetByID), ctx, id)
}

func (m *MockReturnsRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*returns.Return, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByIDForUpdate", ctx, tx, id)
	ret0, _ := ret[0].(*returns.Return)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockReturnsRepositoryMockRecorder) GetByIDForUpdate(ctx, tx, id interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByIDForUpdate", reflect.TypeOf((*MockReturnsRepository)(nil).GetByIDForUpdate), ctx, tx, id)
}

func (m *MockReturnsRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, r *returns.Return, entry returns.HistoryEntry) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "UpdateStatus", ctx, tx, r, entry)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockReturnsRepositoryMockRecorder) UpdateStatus(ctx, tx, r, entry interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateStatus", reflect.TypeOf((*MockReturnsRepository)(nil).UpdateStatus), ctx, tx, r, entry)
}

func (m *MockReturnsRepository) MarkRestocked(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MarkRestocked", ctx, tx, id)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockReturnsRepositoryMockRecorder) MarkRestocked(ctx, tx, id interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MarkRestocked", reflect.TypeOf((*MockReturnsRepository)(nil).MarkRestocked), ctx, tx, id)
}

func (m *MockReturnsRepository) List(ctx context.Context, status *returns.Status) ([]*returns.Return, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "List", ctx, status)
	ret0, _ := ret[0].([]*returns.Return)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockReturnsRepositoryMockRecorder) List(ctx, status interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "List", reflect.TypeOf((*MockReturnsRepository)(nil).List), ctx, status)
}
