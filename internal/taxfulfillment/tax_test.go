package taxfulfillment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxPlugin_Calculate_FallbackWhenNoProviderURL(t *testing.T) {
	plugin := NewTaxPlugin("", 0.08, nil)

	result, err := plugin.Calculate(context.Background(), models.NewMoney(10000, "USD"), Address{Region: "CA", Country: "US"}, false, models.Money{})

	require.NoError(t, err)
	assert.Equal(t, int64(800), result.TaxAmount.Amount)
	require.Len(t, result.Breakdown, 1)
}

func TestTaxPlugin_Calculate_IncludesShippingInBase(t *testing.T) {
	plugin := NewTaxPlugin("", 0.10, nil)

	result, err := plugin.Calculate(context.Background(), models.NewMoney(10000, "USD"), Address{}, true, models.NewMoney(1000, "USD"))

	require.NoError(t, err)
	assert.Equal(t, int64(1100), result.TaxAmount.Amount)
}

func TestTaxPlugin_Calculate_RemoteProviderSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calculate", r.URL.Path)
		var req taxProviderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(10000), req.AmountMinor)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(taxProviderResponse{
			TaxAmountMinor: 950,
			Breakdown:      []TaxBreakdown{{JurisdictionRate: "CA:9.5%", TaxAmount: models.NewMoney(950, "USD")}},
		})
	}))
	defer server.Close()

	plugin := NewTaxPlugin(server.URL, 0.08, nil)

	result, err := plugin.Calculate(context.Background(), models.NewMoney(10000, "USD"), Address{Region: "CA", Country: "US"}, false, models.Money{})

	require.NoError(t, err)
	assert.Equal(t, int64(950), result.TaxAmount.Amount)
	assert.Equal(t, "CA:9.5%", result.Breakdown[0].JurisdictionRate)
}

func TestTaxPlugin_Calculate_RemoteFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	plugin := NewTaxPlugin(server.URL, 0.08, nil)

	result, err := plugin.Calculate(context.Background(), models.NewMoney(10000, "USD"), Address{Region: "CA", Country: "US"}, false, models.Money{})

	require.NoError(t, err)
	assert.Equal(t, int64(800), result.TaxAmount.Amount)
}
