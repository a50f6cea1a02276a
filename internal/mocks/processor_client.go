// Code generated by hand in the style of mockgen; DO NOT EDIT manually
// without keeping it in sync with payment.ProcessorClient.

package mocks

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"
)

// MockProcessorClient is a mock of payment.ProcessorClient.
type MockProcessorClient struct {
	ctrl     *gomock.Controller
	recorder *MockProcessorClientMockRecorder
}

// MockProcessorClientMockRecorder is the mock recorder for MockProcessorClient.
type MockProcessorClientMockRecorder struct {
	mock *MockProcessorClient
}

// NewMockProcessorClient creates a new mock instance.
func NewMockProcessorClient(ctrl *gomock.Controller) *MockProcessorClient {
	mock := &MockProcessorClient{ctrl: ctrl}
	mock.recorder = &MockProcessorClientMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockProcessorClient) EXPECT() *MockProcessorClientMockRecorder {
	return m.recorder
}

func (m *MockProcessorClient) GetGrantedToken(ctx context.Context, sharedToken string) (string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetGrantedToken", ctx, sharedToken)
	ret0, _ := ret[0].(string)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockProcessorClientMockRecorder) GetGrantedToken(ctx, sharedToken interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetGrantedToken", reflect.TypeOf((*MockProcessorClient)(nil).GetGrantedToken), ctx, sharedToken)
}

func (m *MockProcessorClient) AssessRisk(ctx context.Context, grantedToken string, amount int64, currency string) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AssessRisk", ctx, grantedToken, amount, currency)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockProcessorClientMockRecorder) AssessRisk(ctx, grantedToken, amount, currency interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AssessRisk", reflect.TypeOf((*MockProcessorClient)(nil).AssessRisk), ctx, grantedToken, amount, currency)
}

func (m *MockProcessorClient) ProcessSharedPaymentToken(ctx context.Context, grantedToken string, amount int64, currency string) (string, string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ProcessSharedPaymentToken", ctx, grantedToken, amount, currency)
	ret0, _ := ret[0].(string)
	ret1, _ := ret[1].(string)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

func (mr *MockProcessorClientMockRecorder) ProcessSharedPaymentToken(ctx, grantedToken, amount, currency interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ProcessSharedPaymentToken", reflect.TypeOf((*MockProcessorClient)(nil).ProcessSharedPaymentToken), ctx, grantedToken, amount, currency)
}

func (m *MockProcessorClient) CapturePayment(ctx context.Context, gatewayID string) (string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CapturePayment", ctx, gatewayID)
	ret0, _ := ret[0].(string)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockProcessorClientMockRecorder) CapturePayment(ctx, gatewayID interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CapturePayment", reflect.TypeOf((*MockProcessorClient)(nil).CapturePayment), ctx, gatewayID)
}
