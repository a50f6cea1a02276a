package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stateset/commerce-engine/internal/resilience"
)

// ProcessorClient is the external shared-payment-token processor seam
// for the spt_ routing path. A production deployment points this at a
// real gateway; NewStubProcessorClient below is the synthetic-success
// implementation wired when no provider API key is configured. The
// direct-method path does not call a ProcessorClient.
type ProcessorClient interface {
	GetGrantedToken(ctx context.Context, sharedToken string) (grantedToken string, err error)
	AssessRisk(ctx context.Context, grantedToken string, amount int64, currency string) (shouldBlock bool, err error)
	ProcessSharedPaymentToken(ctx context.Context, grantedToken string, amount int64, currency string) (gatewayID string, status string, err error)
	CapturePayment(ctx context.Context, gatewayID string) (status string, err error)
}

// HTTPProcessorClient calls a configured payment provider over HTTP,
// wrapped in a circuit breaker and jittered retry.
type HTTPProcessorClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *resilience.CircuitBreaker
}

// NewHTTPProcessorClient builds a processor client against baseURL.
func NewHTTPProcessorClient(baseURL, apiKey string, breaker *resilience.CircuitBreaker) *HTTPProcessorClient {
	return &HTTPProcessorClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: breaker,
	}
}

func (c *HTTPProcessorClient) call(ctx context.Context, path string, reqBody, respBody interface{}) error {
	run := func(ctx context.Context) error {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal processor request: %w", err)
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build processor request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		resp, err := c.client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("call payment provider: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("payment provider returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return &providerDeclinedError{statusCode: resp.StatusCode}
		}
		if respBody != nil {
			return json.NewDecoder(resp.Body).Decode(respBody)
		}
		return nil
	}

	retryCfg := resilience.DefaultProviderRetryConfig()
	shouldRetry := func(err error) bool {
		var declined *providerDeclinedError
		return !isProviderDeclined(err, &declined)
	}

	return resilience.Retry(ctx, retryCfg, shouldRetry, func(ctx context.Context) error {
		if c.breaker == nil {
			return run(ctx)
		}
		_, err := c.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, run(ctx)
		})
		return err
	})
}

type providerDeclinedError struct {
	statusCode int
}

func (e *providerDeclinedError) Error() string {
	return fmt.Sprintf("payment provider declined (status %d)", e.statusCode)
}

func isProviderDeclined(err error, target **providerDeclinedError) bool {
	declined, ok := err.(*providerDeclinedError)
	if ok {
		*target = declined
	}
	return ok
}

func (c *HTTPProcessorClient) GetGrantedToken(ctx context.Context, sharedToken string) (string, error) {
	var resp struct {
		GrantedToken string `json:"granted_token"`
	}
	if err := c.call(ctx, "/v1/granted_tokens", map[string]string{"shared_token": sharedToken}, &resp); err != nil {
		return "", err
	}
	return resp.GrantedToken, nil
}

func (c *HTTPProcessorClient) AssessRisk(ctx context.Context, grantedToken string, amount int64, currency string) (bool, error) {
	var resp struct {
		ShouldBlock bool `json:"should_block"`
	}
	req := map[string]interface{}{"granted_token": grantedToken, "amount": amount, "currency": currency}
	if err := c.call(ctx, "/v1/risk_assessments", req, &resp); err != nil {
		return false, err
	}
	return resp.ShouldBlock, nil
}

func (c *HTTPProcessorClient) ProcessSharedPaymentToken(ctx context.Context, grantedToken string, amount int64, currency string) (string, string, error) {
	var resp struct {
		GatewayID string `json:"gateway_id"`
		Status    string `json:"status"`
	}
	req := map[string]interface{}{"granted_token": grantedToken, "amount": amount, "currency": currency}
	if err := c.call(ctx, "/v1/shared_payment_tokens/process", req, &resp); err != nil {
		return "", "", err
	}
	return resp.GatewayID, resp.Status, nil
}

func (c *HTTPProcessorClient) CapturePayment(ctx context.Context, gatewayID string) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	req := map[string]string{"gateway_id": gatewayID}
	if err := c.call(ctx, "/v1/payments/"+gatewayID+"/capture", req, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// StubProcessorClient is the stub implementation of the spt_ path: it
// synthesizes a success without calling out.
// Not a production gateway integration.
type StubProcessorClient struct{}

// NewStubProcessorClient builds the synthetic-success stub client.
func NewStubProcessorClient() *StubProcessorClient { return &StubProcessorClient{} }

func (StubProcessorClient) GetGrantedToken(ctx context.Context, sharedToken string) (string, error) {
	return "granted_" + sharedToken, nil
}

func (StubProcessorClient) AssessRisk(ctx context.Context, grantedToken string, amount int64, currency string) (bool, error) {
	return false, nil
}

func (StubProcessorClient) ProcessSharedPaymentToken(ctx context.Context, grantedToken string, amount int64, currency string) (string, string, error) {
	return "gw_" + grantedToken, "succeeded", nil
}

func (StubProcessorClient) CapturePayment(ctx context.Context, gatewayID string) (string, error) {
	return "captured", nil
}
