package returns

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stateset/commerce-engine/internal/ledger"
	"github.com/stateset/commerce-engine/internal/mocks"
	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stateset/commerce-engine/internal/observability"
	"github.com/stateset/commerce-engine/internal/order"
	"github.com/stateset/commerce-engine/internal/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testServiceSetup struct {
	service        *Service
	mockReturnRepo *mocks.MockReturnsRepository
	mockOutboxRepo *mocks.MockOutboxRepository
	mockOrderRepo  *mocks.MockOrderRepository
	mockLedgerRepo *mocks.MockLedgerRepository
	mockPool       pgxmock.PgxPoolIface
	ctrl           *gomock.Controller
}

// setupTestService wires a real order.Service and ledger.Service on top
// of mocked repositories, the same layering internal/order/service_test.go
// uses, since returns.Service calls straight through to those concrete
// types rather than narrower interfaces.
func setupTestService(t *testing.T) *testServiceSetup {
	ctrl := gomock.NewController(t)

	mockReturnRepo := mocks.NewMockReturnsRepository(ctrl)
	mockOutboxRepo := mocks.NewMockOutboxRepository(ctrl)
	mockOrderRepo := mocks.NewMockOrderRepository(ctrl)
	mockLedgerRepo := mocks.NewMockLedgerRepository(ctrl)
	mockIdempo := mocks.NewMockIdempotencyStore(ctrl)

	logger := zerolog.Nop()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetricsWithRegistry(registry)

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)

	ledgerSvc := ledger.NewService(mockLedgerRepo, mockPool, metrics, logger)
	coordinator := reservation.NewCoordinator(mockPool, ledgerSvc, logger)
	orderSvc := order.NewService(mockPool, mockOrderRepo, mockOutboxRepo, coordinator, nil, mockIdempo, metrics, logger)

	service := NewService(mockPool, mockReturnRepo, orderSvc, ledgerSvc, mockOutboxRepo, metrics, logger)

	return &testServiceSetup{
		service:        service,
		mockReturnRepo: mockReturnRepo,
		mockOutboxRepo: mockOutboxRepo,
		mockOrderRepo:  mockOrderRepo,
		mockLedgerRepo: mockLedgerRepo,
		mockPool:       mockPool,
		ctrl:           ctrl,
	}
}

func (s *testServiceSetup) cleanup() {
	s.ctrl.Finish()
	s.mockPool.Close()
}

func TestService_CreateReturn_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	orderID := uuid.New()

	setup.mockOrderRepo.EXPECT().
		GetByID(gomock.Any(), orderID).
		Return(&order.Order{ID: orderID, Status: order.StatusDelivered}, nil)
	setup.mockPool.ExpectBegin()
	setup.mockReturnRepo.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockOutboxRepo.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockPool.ExpectCommit()

	ret, err := setup.service.CreateReturn(ctx, CreateReturnRequest{
		OrderID: orderID,
		Reason:  "defective item",
		Actor:   "agent-1",
	})

	assert.NoError(t, err)
	require.NotNil(t, ret)
	assert.Equal(t, StatusPending, ret.Status)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_CreateReturn_EmptyReason(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	_, err := setup.service.CreateReturn(context.Background(), CreateReturnRequest{OrderID: uuid.New()})

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindValidation, svcErr.Kind)
}

func TestService_CreateReturn_OrderNotReturnable(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	orderID := uuid.New()

	setup.mockOrderRepo.EXPECT().
		GetByID(gomock.Any(), orderID).
		Return(&order.Order{ID: orderID, Status: order.StatusPending}, nil)

	_, err := setup.service.CreateReturn(ctx, CreateReturnRequest{OrderID: orderID, Reason: "changed my mind"})

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindInvalidOperation, svcErr.Kind)
}

func TestService_ApproveReturn_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()

	setup.mockPool.ExpectBegin()
	setup.mockReturnRepo.EXPECT().
		GetByIDForUpdate(gomock.Any(), gomock.Any(), id).
		Return(&Return{ID: id, Status: StatusPending}, nil)
	setup.mockReturnRepo.EXPECT().
		UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockOutboxRepo.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockPool.ExpectCommit()

	ret, err := setup.service.ApproveReturn(ctx, id, "agent-1")

	assert.NoError(t, err)
	assert.Equal(t, StatusApproved, ret.Status)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_RejectReturn_EmptyReason(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	_, err := setup.service.RejectReturn(context.Background(), uuid.New(), "", "agent-1")

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindValidation, svcErr.Kind)
}

func TestService_BeginInspection_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()

	setup.mockPool.ExpectBegin()
	setup.mockReturnRepo.EXPECT().
		GetByIDForUpdate(gomock.Any(), gomock.Any(), id).
		Return(&Return{ID: id, Status: StatusApproved}, nil)
	setup.mockReturnRepo.EXPECT().
		UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockPool.ExpectCommit()

	ret, err := setup.service.BeginInspection(ctx, id, "agent-1")

	assert.NoError(t, err)
	assert.Equal(t, StatusInspecting, ret.Status)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_Restock_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()
	variantID := uuid.New()
	locationID := uuid.New()
	existing := &Return{
		ID:     id,
		Status: StatusInspecting,
		Lines: []Line{
			{VariantID: variantID, LocationID: locationID, Quantity: 3},
		},
	}

	setup.mockPool.ExpectBegin()
	setup.mockReturnRepo.EXPECT().
		GetByIDForUpdate(gomock.Any(), gomock.Any(), id).
		Return(existing, nil)
	setup.mockLedgerRepo.EXPECT().
		GetForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(map[ledger.Key]*ledger.Balance{
			{ItemID: variantID, LocationID: locationID}: {
				ItemID: variantID, LocationID: locationID,
				QuantityOnHand: decimal.NewFromInt(5), QuantityAllocated: decimal.Zero,
			},
		}, nil)
	setup.mockLedgerRepo.EXPECT().
		Save(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockLedgerRepo.EXPECT().
		AppendTransaction(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockReturnRepo.EXPECT().
		MarkRestocked(gomock.Any(), gomock.Any(), id).
		Return(nil)
	setup.mockPool.ExpectCommit()

	ret, err := setup.service.Restock(ctx, id, "warehouse-agent")

	assert.NoError(t, err)
	assert.True(t, ret.Restocked)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_Restock_InvalidStatus(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()

	setup.mockPool.ExpectBegin()
	setup.mockReturnRepo.EXPECT().
		GetByIDForUpdate(gomock.Any(), gomock.Any(), id).
		Return(&Return{ID: id, Status: StatusPending}, nil)
	setup.mockPool.ExpectRollback()

	_, err := setup.service.Restock(ctx, id, "warehouse-agent")

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindInvalidOperation, svcErr.Kind)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_GetReturn(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()
	expected := &Return{ID: id, Status: StatusPending}

	setup.mockReturnRepo.EXPECT().
		GetByID(gomock.Any(), id).
		Return(expected, nil)

	ret, err := setup.service.GetReturn(ctx, id)

	assert.NoError(t, err)
	assert.Equal(t, expected, ret)
}

func TestService_ListReturns(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	status := StatusPending
	expected := []*Return{{ID: uuid.New(), Status: status}}

	setup.mockReturnRepo.EXPECT().
		List(gomock.Any(), &status).
		Return(expected, nil)

	list, err := setup.service.ListReturns(ctx, &status)

	assert.NoError(t, err)
	assert.Len(t, list, 1)
}
