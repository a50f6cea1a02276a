package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForKind(t *testing.T) {
	cases := []struct {
		kind models.ErrorKind
		want int
	}{
		{models.KindValidation, http.StatusBadRequest},
		{models.KindNotFound, http.StatusNotFound},
		{models.KindInsufficientStock, http.StatusConflict},
		{models.KindPaymentFailed, http.StatusPaymentRequired},
		{models.KindUnauthorized, http.StatusUnauthorized},
		{models.KindForbidden, http.StatusForbidden},
		{models.KindUnavailable, http.StatusServiceUnavailable},
		{models.KindInternal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusForKind(c.kind))
	}
}

func TestWriteError_MapsKindAndHidesInternalMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders/1", nil)
	rec := httptest.NewRecorder()

	writeError(rec, req, zerolog.Nop(), models.NewServiceError(models.KindInternal, "db connection string leaked here", errors.New("boom")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(models.KindInternal), body.Error.Code)
	assert.Equal(t, "internal server error", body.Error.Message)
}

func TestWriteError_PassesThroughNonInternalMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders/1", nil)
	rec := httptest.NewRecorder()

	writeError(rec, req, zerolog.Nop(), models.NewServiceError(models.KindNotFound, "order not found", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "order not found", body.Error.Message)
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte(`{"unknown_field":true}`)))
	var out struct {
		Name string `json:"name"`
	}

	err := decodeJSON(req, &out)

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, models.KindValidation, svcErr.Kind)
}

func TestDecodeJSON_RequiresBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Body = nil
	var out map[string]any

	err := decodeJSON(req, &out)

	require.Error(t, err)
	svcErr := models.AsServiceError(err)
	require.NotNil(t, svcErr)
	assert.True(t, strings.Contains(svcErr.Message, "required"))
}
