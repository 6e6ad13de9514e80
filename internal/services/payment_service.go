package services

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"shop-service/internal/apperr"
	"shop-service/internal/domain"
	rabbit "shop-service/internal/infra/rabbitmq"
	"shop-service/internal/providers"
	"shop-service/internal/repository"
)

// Fulfiller consumes stock and marks an order PAID inside the transaction
// handed to it. Implemented by OrderService.
type Fulfiller interface {
	FulfillOrder(ctx context.Context, tx repository.Tx, orderID uint64) error
}

// PaymentService owns the payment lifecycle state machine
// (PENDING -> SUCCESS | FAILED, both terminal) and is the single entry
// point for synchronous execution results and asynchronous webhooks.
type PaymentService struct {
	store     repository.Store
	registry  *providers.Registry
	orders    Fulfiller
	publisher rabbit.PublisherInterface
}

func NewPaymentService(store repository.Store, registry *providers.Registry, orders Fulfiller, pub rabbit.PublisherInterface) *PaymentService {
	return &PaymentService{
		store:     store,
		registry:  registry,
		orders:    orders,
		publisher: pub,
	}
}

type InitializeResult struct {
	PaymentID     uint64               `json:"paymentId"`
	OrderID       uint64               `json:"orderId"`
	Provider      string               `json:"provider"`
	TransactionID string               `json:"transactionId"`
	Status        domain.PaymentStatus `json:"status"`
	RedirectURL   string               `json:"redirectUrl,omitempty"`
	ClientSecret  string               `json:"clientSecret,omitempty"`
}

// InitializePayment verifies ownership and order state, asks the named
// provider to begin a payment for the order's authoritative total, and
// persists the attempt in PENDING.
func (s *PaymentService) InitializePayment(ctx context.Context, userID, orderID uint64, providerName string) (*InitializeResult, error) {
	provider, err := s.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	order, err := s.store.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.New(apperr.KindNotFound, "order not found")
	}
	if order.UserID != userID {
		return nil, apperr.New(apperr.KindForbidden, "order belongs to another user")
	}
	if order.Status != domain.OrderPending {
		return nil, apperr.New(apperr.KindValidation, "order is not pending")
	}

	initiated, err := provider.InitiatePayment(ctx, order)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		OrderID:       order.ID,
		Provider:      provider.Name(),
		TransactionID: initiated.TransactionID,
		AmountCents:   order.TotalCents,
		Status:        domain.PaymentPending,
		RawResponse:   initiated.Raw,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	go s.publish(context.Background(), domain.EventPaymentInitiated, domain.PaymentInitiatedEvent{
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		Provider:      payment.Provider,
		TransactionID: payment.TransactionID,
		AmountCents:   payment.AmountCents,
	})

	return &InitializeResult{
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		Provider:      payment.Provider,
		TransactionID: payment.TransactionID,
		Status:        payment.Status,
		RedirectURL:   initiated.RedirectURL,
		ClientSecret:  initiated.ClientSecret,
	}, nil
}

// TransitionToSuccess marks the payment SUCCESS and fulfills its order
// inside one transaction. Already-SUCCESS is an idempotent no-op; FAILED is
// a conflict (terminal states are never resurrected). A fulfillment failure
// rolls the whole transition back and the payment stays PENDING.
func (s *PaymentService) TransitionToSuccess(ctx context.Context, paymentID uint64, transactionID string, raw json.RawMessage) (*domain.Payment, error) {
	var result *domain.Payment
	var transitioned bool

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		payment, err := tx.FindPaymentByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return apperr.New(apperr.KindNotFound, "payment not found")
		}
		if payment.Status == domain.PaymentSuccess {
			log.Printf("Payment %d already SUCCESS, ignoring duplicate transition", paymentID)
			result = payment
			return nil
		}
		if payment.Status == domain.PaymentFailed {
			return apperr.New(apperr.KindConflict, "failed payment cannot transition to success")
		}

		payment.Status = domain.PaymentSuccess
		if transactionID != "" {
			payment.TransactionID = transactionID
		}
		if raw != nil {
			payment.RawResponse = raw
		}
		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return err
		}

		if err := s.orders.FulfillOrder(ctx, tx, payment.OrderID); err != nil {
			return err
		}

		result = payment
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		go s.publish(context.Background(), domain.EventPaymentSucceeded, domain.PaymentSucceededEvent{
			PaymentID:     result.ID,
			OrderID:       result.OrderID,
			Provider:      result.Provider,
			TransactionID: result.TransactionID,
			AmountCents:   result.AmountCents,
		})
	}

	return result, nil
}

// TransitionToFailed marks the payment FAILED. Terminal states (either one)
// make it a no-op, as does a missing payment: failure signals are frequently
// redelivered and never worth erroring over.
func (s *PaymentService) TransitionToFailed(ctx context.Context, paymentID uint64, raw json.RawMessage) error {
	var transitioned bool
	var payment *domain.Payment

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		p, err := tx.FindPaymentByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p == nil || p.Status == domain.PaymentFailed || p.Status == domain.PaymentSuccess {
			return nil
		}
		p.Status = domain.PaymentFailed
		if raw != nil {
			p.RawResponse = raw
		}
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}
		payment = p
		transitioned = true
		return nil
	})
	if err != nil {
		return err
	}

	if transitioned {
		go s.publish(context.Background(), domain.EventPaymentFailed, domain.PaymentFailedEvent{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			Provider:  payment.Provider,
		})
	}
	return nil
}

type WebhookAck struct {
	Received bool `json:"received"`
}

// ProcessWebhook decodes an asynchronous provider notification and drives
// the matching transition. Unverifiable payloads and unknown transaction
// ids are acknowledged without state change so the gateway does not retry
// forever; only real processing failures propagate.
func (s *PaymentService) ProcessWebhook(ctx context.Context, providerName, signature string, body []byte) (*WebhookAck, error) {
	provider, err := s.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	decoded, err := provider.HandleWebhook(signature, body)
	if err != nil {
		log.Printf("Webhook rejected for provider %s: %v", providerName, err)
		return &WebhookAck{Received: false}, nil
	}
	if decoded.Action == providers.ActionIgnore {
		return &WebhookAck{Received: true}, nil
	}

	payment, err := s.store.FindPaymentByTransactionID(ctx, decoded.TransactionID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		log.Printf("Orphaned transaction %s from provider %s", decoded.TransactionID, providerName)
		return &WebhookAck{Received: true}, nil
	}

	switch decoded.Action {
	case providers.ActionSuccess:
		if _, err := s.TransitionToSuccess(ctx, payment.ID, decoded.TransactionID, decoded.Raw); err != nil {
			return nil, err
		}
	case providers.ActionFail:
		if err := s.TransitionToFailed(ctx, payment.ID, decoded.Raw); err != nil {
			return nil, err
		}
	}

	return &WebhookAck{Received: true}, nil
}

// ExecutePayment is the manual verify/execute trigger: it asks the provider
// for the outcome synchronously and drives the state machine with it.
// ref may be a local payment id or a provider transaction id.
func (s *PaymentService) ExecutePayment(ctx context.Context, providerName, ref string) (*domain.Payment, error) {
	provider, err := s.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	payment, err := s.findPaymentByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperr.New(apperr.KindNotFound, "payment not found")
	}
	if payment.Status == domain.PaymentSuccess {
		return payment, nil
	}

	verified, err := provider.VerifyOrExecute(ctx, payment)
	if err != nil {
		return nil, err
	}

	if verified.Success {
		return s.TransitionToSuccess(ctx, payment.ID, verified.TransactionID, verified.Raw)
	}
	if err := s.TransitionToFailed(ctx, payment.ID, verified.Raw); err != nil {
		return nil, err
	}
	return nil, apperr.New(apperr.KindProvider, "payment execution failed at provider")
}

func (s *PaymentService) findPaymentByRef(ctx context.Context, ref string) (*domain.Payment, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		p, err := s.store.FindPaymentByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	return s.store.FindPaymentByTransactionID(ctx, ref)
}

type StatusResult struct {
	Success       bool                 `json:"success"`
	TransactionID string               `json:"transactionId"`
	Status        domain.PaymentStatus `json:"status"`
}

// QueryPaymentStatus polls the provider and, when the provider reports
// success the local record has not seen, self-heals by driving the same
// transition a webhook would have driven. Polling and push notifications
// converge on one state machine.
func (s *PaymentService) QueryPaymentStatus(ctx context.Context, providerName, transactionID string) (*StatusResult, error) {
	provider, err := s.registry.Get(providerName)
	if err != nil {
		return nil, err
	}
	checker, ok := provider.(providers.StatusChecker)
	if !ok {
		return nil, apperr.Newf(apperr.KindValidation, "provider %s does not support status query", providerName)
	}

	payment, err := s.store.FindPaymentByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperr.New(apperr.KindNotFound, "payment transaction not found")
	}

	polled, err := checker.CheckStatus(ctx, payment)
	if err != nil {
		return nil, err
	}

	if polled.Success && payment.Status != domain.PaymentSuccess {
		log.Printf("Self-healing payment %d: provider reports success, local status %s", payment.ID, payment.Status)
		if payment, err = s.TransitionToSuccess(ctx, payment.ID, polled.TransactionID, polled.Raw); err != nil {
			return nil, err
		}
	}

	return &StatusResult{
		Success:       polled.Success,
		TransactionID: payment.TransactionID,
		Status:        payment.Status,
	}, nil
}

func (s *PaymentService) publish(ctx context.Context, eventType string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		log.Printf("Failed to publish %s: %v", eventType, err)
	}
}
