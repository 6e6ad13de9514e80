package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"shop-service/internal/domain"
	"shop-service/internal/providers"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	args := m.Called(ctx, eventType, payload)
	return args.Error(0)
}

// MockProvider implements providers.Provider without the optional
// StatusChecker capability.
type MockProvider struct {
	mock.Mock
	ProviderName string
}

func (m *MockProvider) Name() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock"
}

func (m *MockProvider) InitiatePayment(ctx context.Context, order *domain.Order) (*providers.InitiationResult, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.InitiationResult), args.Error(1)
}

func (m *MockProvider) VerifyOrExecute(ctx context.Context, payment *domain.Payment) (*providers.VerificationResult, error) {
	args := m.Called(ctx, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.VerificationResult), args.Error(1)
}

func (m *MockProvider) HandleWebhook(signature string, body []byte) (*providers.WebhookResult, error) {
	args := m.Called(signature, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.WebhookResult), args.Error(1)
}

// MockStatusProvider adds the polling capability.
type MockStatusProvider struct {
	MockProvider
}

func (m *MockStatusProvider) CheckStatus(ctx context.Context, payment *domain.Payment) (*providers.VerificationResult, error) {
	args := m.Called(ctx, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.VerificationResult), args.Error(1)
}

var _ providers.Provider = (*MockProvider)(nil)
var _ providers.StatusChecker = (*MockStatusProvider)(nil)
