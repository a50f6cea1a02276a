package customer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/mocks"
	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testServiceSetup struct {
	service        *Service
	mockRepo       *mocks.MockCustomerRepository
	mockOutboxRepo *mocks.MockOutboxRepository
	mockPool       pgxmock.PgxPoolIface
	ctrl           *gomock.Controller
}

func setupTestService(t *testing.T) *testServiceSetup {
	ctrl := gomock.NewController(t)

	mockRepo := mocks.NewMockCustomerRepository(ctrl)
	mockOutboxRepo := mocks.NewMockOutboxRepository(ctrl)

	logger := zerolog.Nop()

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)

	service := NewService(mockPool, mockRepo, mockOutboxRepo, logger)

	return &testServiceSetup{
		service:        service,
		mockRepo:       mockRepo,
		mockOutboxRepo: mockOutboxRepo,
		mockPool:       mockPool,
		ctrl:           ctrl,
	}
}

func (s *testServiceSetup) cleanup() {
	s.ctrl.Finish()
	s.mockPool.Close()
}

func TestService_CreateCustomer_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	req := CreateCustomerRequest{Email: "jane@example.com", Name: "Jane Doe"}

	setup.mockPool.ExpectBegin()
	setup.mockRepo.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockOutboxRepo.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockPool.ExpectCommit()

	c, err := setup.service.CreateCustomer(ctx, req)

	assert.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "jane@example.com", c.Email)
	assert.Equal(t, StatusActive, c.Status)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_CreateCustomer_EmptyEmail(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	_, err := setup.service.CreateCustomer(context.Background(), CreateCustomerRequest{Name: "No Email"})

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindValidation, svcErr.Kind)
}

func TestService_CreateCustomer_RepoError(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	req := CreateCustomerRequest{Email: "jane@example.com"}

	setup.mockPool.ExpectBegin()
	setup.mockRepo.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("insert failed"))
	setup.mockPool.ExpectRollback()

	_, err := setup.service.CreateCustomer(ctx, req)

	require.Error(t, err)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_ActivateCustomer_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()
	existing := &Customer{ID: id, Status: StatusSuspended}

	setup.mockPool.ExpectBegin()
	setup.mockRepo.EXPECT().
		GetByIDForUpdate(gomock.Any(), gomock.Any(), id).
		Return(existing, nil)
	setup.mockRepo.EXPECT().
		Update(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockPool.ExpectCommit()

	c, err := setup.service.ActivateCustomer(ctx, id)

	assert.NoError(t, err)
	assert.Equal(t, StatusActive, c.Status)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_ActivateCustomer_InvalidTransition(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()
	existing := &Customer{ID: id, Status: StatusActive}

	setup.mockPool.ExpectBegin()
	setup.mockRepo.EXPECT().
		GetByIDForUpdate(gomock.Any(), gomock.Any(), id).
		Return(existing, nil)

	_, err := setup.service.ActivateCustomer(ctx, id)

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindInvalidOperation, svcErr.Kind)
}

func TestService_SuspendCustomer_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()
	existing := &Customer{ID: id, Status: StatusActive}

	setup.mockPool.ExpectBegin()
	setup.mockRepo.EXPECT().
		GetByIDForUpdate(gomock.Any(), gomock.Any(), id).
		Return(existing, nil)
	setup.mockRepo.EXPECT().
		Update(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockPool.ExpectCommit()

	c, err := setup.service.SuspendCustomer(ctx, id)

	assert.NoError(t, err)
	assert.Equal(t, StatusSuspended, c.Status)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_ArchiveCustomer_AlreadyArchived(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()
	existing := &Customer{ID: id, Status: StatusArchived}

	setup.mockPool.ExpectBegin()
	setup.mockRepo.EXPECT().
		GetByIDForUpdate(gomock.Any(), gomock.Any(), id).
		Return(existing, nil)

	_, err := setup.service.ArchiveCustomer(ctx, id)

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindInvalidOperation, svcErr.Kind)
}

func TestService_FlagCustomer_EmptyReason(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	_, err := setup.service.FlagCustomer(context.Background(), uuid.New(), "")

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindValidation, svcErr.Kind)
}

func TestService_FlagCustomer_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()
	existing := &Customer{ID: id, Status: StatusActive}

	setup.mockPool.ExpectBegin()
	setup.mockRepo.EXPECT().
		GetByIDForUpdate(gomock.Any(), gomock.Any(), id).
		Return(existing, nil)
	setup.mockRepo.EXPECT().
		Update(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockPool.ExpectCommit()

	c, err := setup.service.FlagCustomer(ctx, id, "suspected chargeback fraud")

	assert.NoError(t, err)
	assert.True(t, c.Flagged)
	assert.Equal(t, "suspected chargeback fraud", c.FlagReason)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_AddNote_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()

	setup.mockPool.ExpectBegin()
	setup.mockRepo.EXPECT().
		GetByIDForUpdate(gomock.Any(), gomock.Any(), id).
		Return(&Customer{ID: id, Status: StatusActive}, nil)
	setup.mockRepo.EXPECT().
		AddNote(gomock.Any(), gomock.Any(), id, gomock.Any()).
		Return(nil)
	setup.mockPool.ExpectCommit()

	c, err := setup.service.AddNote(ctx, id, "called about shipping delay", "agent-42")

	assert.NoError(t, err)
	require.Len(t, c.Notes, 1)
	assert.Equal(t, "called about shipping delay", c.Notes[0].Message)
	assert.Equal(t, "agent-42", c.Notes[0].Actor)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_MergeCustomers_SameID(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	id := uuid.New()
	_, err := setup.service.MergeCustomers(context.Background(), id, id)

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindValidation, svcErr.Kind)
}

func TestService_MergeCustomers_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	masterID := uuid.New()
	duplicateID := uuid.New()
	master := &Customer{ID: masterID, Status: StatusActive}
	duplicate := &Customer{
		ID:     duplicateID,
		Status: StatusActive,
		Addresses: []Address{
			{ID: uuid.New(), CustomerID: duplicateID, Line1: "1 Old St"},
		},
	}

	setup.mockPool.ExpectBegin()
	setup.mockRepo.EXPECT().
		GetByIDForUpdate(gomock.Any(), gomock.Any(), masterID).
		Return(master, nil)
	setup.mockRepo.EXPECT().
		GetByIDForUpdate(gomock.Any(), gomock.Any(), duplicateID).
		Return(duplicate, nil)
	setup.mockRepo.EXPECT().
		Update(gomock.Any(), gomock.Any(), master).
		Return(nil)
	setup.mockRepo.EXPECT().
		Update(gomock.Any(), gomock.Any(), duplicate).
		Return(nil)
	setup.mockPool.ExpectCommit()

	result, err := setup.service.MergeCustomers(ctx, masterID, duplicateID)

	assert.NoError(t, err)
	assert.Equal(t, masterID, result.ID)
	require.Len(t, result.Addresses, 1)
	assert.Equal(t, StatusArchived, duplicate.Status)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_DeleteCustomer_Success(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()

	setup.mockPool.ExpectBegin()
	setup.mockRepo.EXPECT().
		Delete(gomock.Any(), gomock.Any(), id).
		Return(nil)
	setup.mockPool.ExpectCommit()

	err := setup.service.DeleteCustomer(ctx, id)

	assert.NoError(t, err)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestService_GetCustomer(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	id := uuid.New()
	expected := &Customer{ID: id, Email: "jane@example.com"}

	setup.mockRepo.EXPECT().
		GetByID(gomock.Any(), id).
		Return(expected, nil)

	c, err := setup.service.GetCustomer(ctx, id)

	assert.NoError(t, err)
	assert.Equal(t, expected, c)
}

func TestService_ListCustomers(t *testing.T) {
	setup := setupTestService(t)
	defer setup.cleanup()

	ctx := context.Background()
	expected := []*Customer{{ID: uuid.New()}, {ID: uuid.New()}}

	setup.mockRepo.EXPECT().
		List(gomock.Any(), 20, 0).
		Return(expected, nil)

	list, err := setup.service.ListCustomers(ctx, 20, 0)

	assert.NoError(t, err)
	assert.Len(t, list, 2)
}
