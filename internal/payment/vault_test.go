package payment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultToken_Validate_Success(t *testing.T) {
	sessionID := uuid.New()
	now := time.Now()
	tok := &VaultToken{
		CheckoutSessionID: sessionID,
		MaxAmount:         5000,
		Currency:          "USD",
		ExpiresAt:         now.Add(time.Hour),
	}

	err := tok.Validate(sessionID, models.NewMoney(5000, "USD"), now)

	require.NoError(t, err)
}

func TestVaultToken_Validate_WrongSession(t *testing.T) {
	tok := &VaultToken{
		CheckoutSessionID: uuid.New(),
		MaxAmount:         5000,
		Currency:          "USD",
		ExpiresAt:         time.Now().Add(time.Hour),
	}

	err := tok.Validate(uuid.New(), models.NewMoney(5000, "USD"), time.Now())

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindInvalidOperation, svcErr.Kind)
}

func TestVaultToken_Validate_CurrencyMismatch(t *testing.T) {
	sessionID := uuid.New()
	tok := &VaultToken{
		CheckoutSessionID: sessionID,
		MaxAmount:         5000,
		Currency:          "USD",
		ExpiresAt:         time.Now().Add(time.Hour),
	}

	err := tok.Validate(sessionID, models.NewMoney(5000, "EUR"), time.Now())

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindInvalidOperation, svcErr.Kind)
}

func TestVaultToken_Validate_Expired(t *testing.T) {
	sessionID := uuid.New()
	now := time.Now()
	tok := &VaultToken{
		CheckoutSessionID: sessionID,
		MaxAmount:         5000,
		Currency:          "USD",
		ExpiresAt:         now.Add(-time.Minute),
	}

	err := tok.Validate(sessionID, models.NewMoney(5000, "USD"), now)

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindInvalidOperation, svcErr.Kind)
}

func TestVaultToken_Validate_AllowanceTooLow(t *testing.T) {
	sessionID := uuid.New()
	now := time.Now()
	tok := &VaultToken{
		CheckoutSessionID: sessionID,
		MaxAmount:         1000,
		Currency:          "USD",
		ExpiresAt:         now.Add(time.Hour),
	}

	err := tok.Validate(sessionID, models.NewMoney(5000, "USD"), now)

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindInvalidOperation, svcErr.Kind)
}
