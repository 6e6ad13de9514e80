// Package providers contains the payment gateway integrations. Each
// gateway implements Provider; the orchestrator never branches on a
// concrete type outside of registry selection.
package providers

import (
	"context"
	"encoding/json"

	"shop-service/internal/domain"
)

type Action string

const (
	ActionIgnore  Action = "IGNORE"
	ActionSuccess Action = "SUCCESS"
	ActionFail    Action = "FAIL"
)

type InitiationResult struct {
	TransactionID string
	// RedirectURL is set by redirect-flow gateways; the client completes
	// payment off-site and returns through the callback URL.
	RedirectURL string
	// ClientSecret is set by intent-flow gateways for client-side
	// confirmation.
	ClientSecret string
	Raw          json.RawMessage
}

type VerificationResult struct {
	Success       bool
	TransactionID string
	Raw           json.RawMessage
}

type WebhookResult struct {
	Action        Action
	TransactionID string
	Raw           json.RawMessage
}

type Provider interface {
	Name() string

	// InitiatePayment begins a payment for the order's authoritative total.
	InitiatePayment(ctx context.Context, order *domain.Order) (*InitiationResult, error)

	// VerifyOrExecute performs the gateway's synchronous completion step:
	// an explicit execute call for redirect-flow gateways, a status refetch
	// for intent-flow ones.
	VerifyOrExecute(ctx context.Context, payment *domain.Payment) (*VerificationResult, error)

	// HandleWebhook decodes and authenticates an asynchronous notification.
	// An unverifiable signature is an error; unrecognized event subtypes
	// map to ActionIgnore.
	HandleWebhook(signature string, body []byte) (*WebhookResult, error)
}

// StatusChecker is the optional polling capability, used for manual
// reconciliation when webhooks are unreliable or absent.
type StatusChecker interface {
	CheckStatus(ctx context.Context, payment *domain.Payment) (*VerificationResult, error)
}
