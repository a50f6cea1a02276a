package payment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/mocks"
	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stateset/commerce-engine/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testServiceSetup struct {
	service         *Service
	mockPaymentRepo *mocks.MockPaymentRepository
	mockProcessor   *mocks.MockProcessorClient
	mockPool        pgxmock.PgxPoolIface
	ctrl            *gomock.Controller
}

// setupTestService builds the payment service over mocked repository and
// processor client dependencies. The vt_-prefixed vault token path is
// not exercised here: VaultStore wraps cache.Client directly over
// go-redis with no mockable seam, so that route is left untested at
// this level (see DESIGN.md).
func setupTestService(t *testing.T) *testServiceSetup {
	ctrl := gomock.NewController(t)

	mockPaymentRepo := mocks.NewMockPaymentRepository(ctrl)
	mockProcessor := mocks.NewMockProcessorClient(ctrl)

	logger := zerolog.Nop()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetricsWithRegistry(registry)

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)

	providers := []Provider{
		{Name: "cheap-co", Active: true, Currencies: map[string]bool{"USD": true}, Rate: 0.02, Fixed: 10},
		{Name: "pricey-co", Active: true, Currencies: map[string]bool{"USD": true}, Rate: 0.05, Fixed: 50},
	}

	service := NewService(mockPool, mockPaymentRepo, nil, mockProcessor, providers, metrics, logger)

	return &testServiceSetup{
		service:         service,
		mockPaymentRepo: mockPaymentRepo,
		mockProcessor:   mockProcessor,
		mockPool:        mockPool,
		ctrl:            ctrl,
	}
}

func (s *testServiceSetup) cleanup() {
	s.ctrl.Finish()
	s.mockPool.Close()
}

func TestService_Process_Direct_SelectsLowestFeeProvider(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	setup.mockPool.ExpectBegin()
	tx, err := setup.mockPool.Begin(ctx)
	require.NoError(t, err)

	setup.mockPaymentRepo.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	p, err := setup.service.Process(ctx, tx, ProcessRequest{
		Token:  "card_123",
		Amount: models.NewMoney(10000, "USD"),
	})

	require.NoError(t, err)
	assert.Equal(t, "cheap-co", p.Provider)
	assert.Equal(t, MethodDirect, p.Method)
	assert.Equal(t, StatusCaptured, p.Status)
}

func TestService_Process_Direct_NoSupportedProvider(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	setup.mockPool.ExpectBegin()
	tx, err := setup.mockPool.Begin(ctx)
	require.NoError(t, err)

	_, err = setup.service.Process(ctx, tx, ProcessRequest{
		Token:  "card_123",
		Amount: models.NewMoney(10000, "EUR"),
	})

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindUnavailable, svcErr.Kind)
}

func TestService_Process_SharedPaymentToken_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	setup.mockPool.ExpectBegin()
	tx, err := setup.mockPool.Begin(ctx)
	require.NoError(t, err)

	setup.mockProcessor.EXPECT().
		GetGrantedToken(gomock.Any(), "spt_abc").
		Return("granted-1", nil)
	setup.mockProcessor.EXPECT().
		AssessRisk(gomock.Any(), "granted-1", int64(5000), "USD").
		Return(false, nil)
	setup.mockProcessor.EXPECT().
		ProcessSharedPaymentToken(gomock.Any(), "granted-1", int64(5000), "USD").
		Return(uuid.New().String(), "succeeded", nil)
	setup.mockPaymentRepo.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	p, err := setup.service.Process(ctx, tx, ProcessRequest{
		Token:  "spt_abc",
		Amount: models.NewMoney(5000, "USD"),
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCaptured, p.Status)
}

func TestService_Process_SharedPaymentToken_BlockedByRisk(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	setup.mockPool.ExpectBegin()
	tx, err := setup.mockPool.Begin(ctx)
	require.NoError(t, err)

	setup.mockProcessor.EXPECT().
		GetGrantedToken(gomock.Any(), "spt_abc").
		Return("granted-1", nil)
	setup.mockProcessor.EXPECT().
		AssessRisk(gomock.Any(), "granted-1", int64(5000), "USD").
		Return(true, nil)

	_, err = setup.service.Process(ctx, tx, ProcessRequest{
		Token:  "spt_abc",
		Amount: models.NewMoney(5000, "USD"),
	})

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindPaymentFailed, svcErr.Kind)
}

func TestService_Refund_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	setup.mockPool.ExpectBegin()
	tx, err := setup.mockPool.Begin(ctx)
	require.NoError(t, err)

	paymentID := uuid.New()
	existing := &Payment{
		ID:          paymentID,
		Amount:      models.NewMoney(10000, "USD"),
		Status:      StatusCaptured,
		ProviderFee: 200,
		PlatformFee: 50,
	}

	setup.mockPaymentRepo.EXPECT().
		GetByID(gomock.Any(), paymentID).
		Return(existing, nil)
	setup.mockPaymentRepo.EXPECT().
		SumRefundsByPayment(gomock.Any(), gomock.Any(), paymentID).
		Return(int64(0), nil)
	setup.mockPaymentRepo.EXPECT().
		CreateRefund(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockPaymentRepo.EXPECT().
		UpdateStatus(gomock.Any(), gomock.Any(), paymentID, StatusRefunded).
		Return(nil)

	ref, err := setup.service.Refund(ctx, tx, paymentID, models.NewMoney(10000, "USD"), "customer request")

	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, ref.Status)
}

func TestService_Refund_CumulativeExceedsOriginal(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	setup.mockPool.ExpectBegin()
	tx, err := setup.mockPool.Begin(ctx)
	require.NoError(t, err)

	paymentID := uuid.New()
	existing := &Payment{ID: paymentID, Amount: models.NewMoney(10000, "USD"), Status: StatusCaptured}

	setup.mockPaymentRepo.EXPECT().
		GetByID(gomock.Any(), paymentID).
		Return(existing, nil)
	setup.mockPaymentRepo.EXPECT().
		SumRefundsByPayment(gomock.Any(), gomock.Any(), paymentID).
		Return(int64(3000), nil)

	_, err = setup.service.Refund(ctx, tx, paymentID, models.NewMoney(8000, "USD"), "second refund")

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindInvalidOperation, svcErr.Kind)
}

func TestService_Refund_ExceedsOriginal(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	setup.mockPool.ExpectBegin()
	tx, err := setup.mockPool.Begin(ctx)
	require.NoError(t, err)

	paymentID := uuid.New()
	existing := &Payment{ID: paymentID, Amount: models.NewMoney(1000, "USD"), Status: StatusCaptured}

	setup.mockPaymentRepo.EXPECT().
		GetByID(gomock.Any(), paymentID).
		Return(existing, nil)

	_, err = setup.service.Refund(ctx, tx, paymentID, models.NewMoney(2000, "USD"), "oops")

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindValidation, svcErr.Kind)
}

func TestService_Refund_NotCaptured(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	setup.mockPool.ExpectBegin()
	tx, err := setup.mockPool.Begin(ctx)
	require.NoError(t, err)

	paymentID := uuid.New()
	existing := &Payment{ID: paymentID, Amount: models.NewMoney(1000, "USD"), Status: StatusFailed}

	setup.mockPaymentRepo.EXPECT().
		GetByID(gomock.Any(), paymentID).
		Return(existing, nil)

	_, err = setup.service.Refund(ctx, tx, paymentID, models.NewMoney(500, "USD"), "oops")

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindInvalidOperation, svcErr.Kind)
}

func TestService_RefundStandalone_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	paymentID := uuid.New()
	existing := &Payment{
		ID:     paymentID,
		Amount: models.NewMoney(1000, "USD"),
		Status: StatusCaptured,
	}

	setup.mockPool.ExpectBegin()
	setup.mockPaymentRepo.EXPECT().
		GetByID(gomock.Any(), paymentID).
		Return(existing, nil)
	setup.mockPaymentRepo.EXPECT().
		SumRefundsByPayment(gomock.Any(), gomock.Any(), paymentID).
		Return(int64(0), nil)
	setup.mockPaymentRepo.EXPECT().
		CreateRefund(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockPaymentRepo.EXPECT().
		UpdateStatus(gomock.Any(), gomock.Any(), paymentID, StatusRefunded).
		Return(nil)
	setup.mockPool.ExpectCommit()

	ref, err := setup.service.RefundStandalone(ctx, paymentID, models.NewMoney(1000, "USD"), "customer request")

	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, ref.Status)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_GetByID(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()
	expected := &Payment{ID: id, Status: StatusCaptured}

	setup.mockPaymentRepo.EXPECT().
		GetByID(gomock.Any(), id).
		Return(expected, nil)

	p, err := setup.service.GetByID(ctx, id)

	require.NoError(t, err)
	assert.Equal(t, expected, p)
}
