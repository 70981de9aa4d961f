package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"coursehub-payments/internal/domain/ports/adapter"
	"coursehub-payments/internal/infra/metrics"
)

// Compile-time check
var _ adapter.CheckoutGateway = (*RestGateway)(nil)

// RestGateway talks to the hosted checkout provider's retrieve API. The
// provider is authoritative: whatever it reports about a checkout overrides
// local state.
type RestGateway struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRestGateway(name, baseURL, apiKey string, timeout time.Duration) (*RestGateway, error) {
	if baseURL == "" {
		return nil, errors.New("gateway base url empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid gateway base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if name == "" {
		name = "checkout"
	}
	return &RestGateway{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (g *RestGateway) Name() string { return g.name }

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Status         string `json:"status"` // "success" | "failure"
	ConversationID string `json:"conversationId"`
	BasketID       string `json:"basketId"`
	PaymentID      string `json:"paymentId"`
	ErrorCode      string `json:"errorCode"`
	ErrorMessage   string `json:"errorMessage"`
	FraudStatus    int    `json:"fraudStatus"` // negative values mean fraud hold
}

func (g *RestGateway) Verify(ctx context.Context, token string) (result *adapter.VerificationResult, err error) {
	start := time.Now()
	defer func() {
		label := "ok"
		if err != nil {
			label = "error"
		}
		metrics.ObserveVerifyDuration(label, time.Since(start).Seconds())
	}()

	body, _ := json.Marshal(verifyRequest{Token: token})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/checkout/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway verify http %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("gateway verify decode: %w", err)
	}
	if out.Status != "success" && out.Status != "failure" {
		return nil, fmt.Errorf("gateway verify: unexpected status %q", out.Status)
	}

	return &adapter.VerificationResult{
		Succeeded:      out.Status == "success",
		ConversationID: out.ConversationID,
		BasketID:       out.BasketID,
		PaymentID:      out.PaymentID,
		ErrorCode:      out.ErrorCode,
		ErrorMessage:   out.ErrorMessage,
		Fraud:          out.FraudStatus < 0,
	}, nil
}
