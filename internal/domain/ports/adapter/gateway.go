package adapter

import "context"

// VerificationResult is the gateway's authoritative statement about one
// checkout session. Local state is never trusted over it.
type VerificationResult struct {
	Succeeded      bool
	ConversationID string // the correlation token the gateway echoes back
	BasketID       string // secondary identifier some checkouts were keyed on
	PaymentID      string // provider payment id, set on success
	ErrorCode      string // provider decline code, set on failure
	ErrorMessage   string // provider's human-readable failure detail
	Fraud          bool   // provider flagged the charge for fraud review
}

// CheckoutGateway is the hex port for the external checkout provider.
type CheckoutGateway interface {
	Name() string

	// Verify asks the provider for the outcome of the checkout identified by
	// token. Network/timeout/malformed-response errors are returned as plain
	// errors; a verified decline comes back as a successful call with
	// Succeeded=false and the provider's error classification filled in.
	Verify(ctx context.Context, token string) (*VerificationResult, error)
}
