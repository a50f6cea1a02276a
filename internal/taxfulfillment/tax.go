// Package taxfulfillment implements the Tax/Fulfillment Plug-ins: pure
// deterministic functions over (items, address) plus an optional
// external HTTP seam guarded by the resilience package's circuit
// breaker, configured via TAX_PROVIDER_URL so the plugin has a real
// network call point instead of only ever computing locally.
package taxfulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stateset/commerce-engine/internal/resilience"
)

// TaxBreakdown itemizes a calculated tax amount.
type TaxBreakdown struct {
	JurisdictionRate string       `json:"jurisdiction_rate"`
	TaxAmount        models.Money `json:"tax_amount"`
}

// TaxResult is the outcome of a tax calculation.
type TaxResult struct {
	TaxAmount models.Money   `json:"tax_amount"`
	Breakdown []TaxBreakdown `json:"breakdown"`
}

// Address mirrors checkout.Address without importing the checkout
// package, keeping this plug-in's dependency surface minimal.
type Address struct {
	Region  string
	Country string
}

// TaxPlugin calculates tax for a cart. FallbackRate is injected at
// construction as a configurable default rather than a hardcoded legal
// position.
type TaxPlugin struct {
	FallbackRate float64
	client       *http.Client
	providerURL  string
	breaker      *resilience.CircuitBreaker
}

// NewTaxPlugin builds a tax plug-in. providerURL may be empty, in which
// case the plug-in always falls back to FallbackRate without a network
// call.
func NewTaxPlugin(providerURL string, fallbackRate float64, breaker *resilience.CircuitBreaker) *TaxPlugin {
	return &TaxPlugin{
		FallbackRate: fallbackRate,
		client:       &http.Client{Timeout: 5 * time.Second},
		providerURL:  providerURL,
		breaker:      breaker,
	}
}

// Calculate computes tax on subtotal, optionally including shipping in
// the taxable base, calling the external provider when configured and
// falling back to FallbackRate on any failure. Both the provider URL
// and the rate may be absent; the plugin degrades to defaults.
func (p *TaxPlugin) Calculate(ctx context.Context, subtotal models.Money, addr Address, includeShipping bool, shippingAmt models.Money) (TaxResult, error) {
	base := subtotal
	if includeShipping {
		sum, err := subtotal.Add(shippingAmt)
		if err == nil {
			base = sum
		}
	}

	if p.providerURL != "" {
		if result, err := p.calculateRemote(ctx, base, addr); err == nil {
			return result, nil
		}
	}

	return p.calculateFallback(base), nil
}

func (p *TaxPlugin) calculateFallback(base models.Money) TaxResult {
	const precision = 1_000_000
	numerator := int64(p.FallbackRate*precision + 0.5)
	taxAmount := base.MulRate(numerator, precision)
	return TaxResult{
		TaxAmount: taxAmount,
		Breakdown: []TaxBreakdown{{JurisdictionRate: fmt.Sprintf("fallback:%.4f", p.FallbackRate), TaxAmount: taxAmount}},
	}
}

type taxProviderRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Region      string `json:"region"`
	Country     string `json:"country"`
}

type taxProviderResponse struct {
	TaxAmountMinor int64          `json:"tax_amount_minor"`
	Breakdown      []TaxBreakdown `json:"breakdown"`
}

func (p *TaxPlugin) calculateRemote(ctx context.Context, base models.Money, addr Address) (TaxResult, error) {
	reqBody, err := json.Marshal(taxProviderRequest{
		AmountMinor: base.Amount,
		Currency:    base.Currency,
		Region:      addr.Region,
		Country:     addr.Country,
	})
	if err != nil {
		return TaxResult{}, err
	}

	call := func(ctx context.Context) (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.providerURL+"/calculate", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		resp, err := p.client.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("tax provider returned status %d", resp.StatusCode)
		}
		var out taxProviderResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var raw interface{}
	if p.breaker != nil {
		raw, err = p.breaker.Execute(ctx, call)
	} else {
		raw, err = call(ctx)
	}
	if err != nil {
		return TaxResult{}, err
	}

	out := raw.(taxProviderResponse)
	return TaxResult{
		TaxAmount: models.Money{Amount: out.TaxAmountMinor, Currency: base.Currency},
		Breakdown: out.Breakdown,
	}, nil
}
