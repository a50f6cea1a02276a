package taxfulfillment

import (
	"time"

	"github.com/stateset/commerce-engine/internal/models"
)

// FulfillmentOption mirrors checkout.FulfillmentOption without importing
// the checkout package, keeping this plug-in's dependency surface
// pointing only at models.
type FulfillmentOption struct {
	ID               string
	Label            string
	Price            models.Money
	EarliestDelivery time.Time
	LatestDelivery   time.Time
}

// CartLine is the minimal cart shape the fulfillment plug-in needs.
type CartLine struct {
	VariantID string
	Quantity  int64
}

// FulfillmentPlugin produces deterministic shipping options for a given
// (customer, cart) pair. The default implementation offers a flat-rate
// standard option and a premium expedited option; a production plug-in
// would look up carrier rates, but the plug-in boundary keeps that
// swappable without touching the Checkout Session state machine.
type FulfillmentPlugin struct {
	Currency        string
	StandardPrice   int64
	ExpeditedPrice  int64
	StandardDays    int
	ExpeditedDays   int
	now             func() time.Time
}

// NewFulfillmentPlugin builds a fulfillment plug-in with flat-rate pricing.
func NewFulfillmentPlugin(currency string, standardPrice, expeditedPrice int64) *FulfillmentPlugin {
	return &FulfillmentPlugin{
		Currency:       currency,
		StandardPrice:  standardPrice,
		ExpeditedPrice: expeditedPrice,
		StandardDays:   5,
		ExpeditedDays:  2,
		now:            time.Now,
	}
}

// Options returns the offered fulfillment set for a cart. Empty carts
// still receive a standard option so address-only sessions can compute
// readiness deterministically.
func (p *FulfillmentPlugin) Options(lines []CartLine) []FulfillmentOption {
	now := p.now()
	return []FulfillmentOption{
		{
			ID:               "standard",
			Label:            "Standard shipping",
			Price:            models.NewMoney(p.StandardPrice, p.Currency),
			EarliestDelivery: now.AddDate(0, 0, p.StandardDays-1),
			LatestDelivery:   now.AddDate(0, 0, p.StandardDays+2),
		},
		{
			ID:               "expedited",
			Label:            "Expedited shipping",
			Price:            models.NewMoney(p.ExpeditedPrice, p.Currency),
			EarliestDelivery: now.AddDate(0, 0, p.ExpeditedDays-1),
			LatestDelivery:   now.AddDate(0, 0, p.ExpeditedDays),
		},
	}
}
