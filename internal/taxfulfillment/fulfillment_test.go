package taxfulfillment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFulfillmentPlugin_Options_ReturnsStandardAndExpedited(t *testing.T) {
	plugin := NewFulfillmentPlugin("USD", 500, 1500)
	fixedNow := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	plugin.now = func() time.Time { return fixedNow }

	options := plugin.Options([]CartLine{{VariantID: "v1", Quantity: 2}})

	require.Len(t, options, 2)
	assert.Equal(t, "standard", options[0].ID)
	assert.Equal(t, int64(500), options[0].Price.Amount)
	assert.Equal(t, fixedNow.AddDate(0, 0, plugin.StandardDays-1), options[0].EarliestDelivery)

	assert.Equal(t, "expedited", options[1].ID)
	assert.Equal(t, int64(1500), options[1].Price.Amount)
	assert.Equal(t, fixedNow.AddDate(0, 0, plugin.ExpeditedDays-1), options[1].EarliestDelivery)
}

func TestFulfillmentPlugin_Options_EmptyCartStillOffersStandard(t *testing.T) {
	plugin := NewFulfillmentPlugin("USD", 500, 1500)

	options := plugin.Options(nil)

	require.Len(t, options, 2)
}
