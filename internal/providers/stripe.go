package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shop-service/internal/apperr"
	"shop-service/internal/config"
	"shop-service/internal/domain"
)

const ProviderStripe = "stripe"

// webhookTolerance bounds how old a signed webhook timestamp may be.
const webhookTolerance = 5 * time.Minute

// Stripe is the intent-flow gateway: a payment intent is created up front,
// the signed webhook is the primary completion signal, and the intent can
// be refetched synchronously as a fallback.
type Stripe struct {
	cfg    config.StripeConfig
	client *http.Client
	now    func() time.Time
}

func NewStripe(cfg config.StripeConfig, timeout time.Duration) *Stripe {
	return &Stripe{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

var _ Provider = (*Stripe)(nil)
var _ StatusChecker = (*Stripe)(nil)

func (s *Stripe) Name() string { return ProviderStripe }

type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

func (s *Stripe) do(ctx context.Context, method, path string, form url.Values) (json.RawMessage, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, s.cfg.BaseURL+path, body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "stripe request", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "stripe request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "stripe response read", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Newf(apperr.KindProvider, "stripe returned status %d: %s", resp.StatusCode, raw)
	}
	return raw, nil
}

func (s *Stripe) InitiatePayment(ctx context.Context, order *domain.Order) (*InitiationResult, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(order.TotalCents, 10))
	form.Set("currency", "usd")
	form.Set("metadata[order_id]", strconv.FormatUint(order.ID, 10))
	form.Set("metadata[order_number]", order.OrderNumber)
	form.Set("automatic_payment_methods[enabled]", "true")

	raw, err := s.do(ctx, http.MethodPost, "/v1/payment_intents", form)
	if err != nil {
		return nil, err
	}
	var intent stripeIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "stripe intent decode", err)
	}
	if intent.ID == "" {
		return nil, apperr.New(apperr.KindProvider, "stripe intent create returned no id")
	}
	return &InitiationResult{
		TransactionID: intent.ID,
		ClientSecret:  intent.ClientSecret,
		Raw:           raw,
	}, nil
}

func (s *Stripe) VerifyOrExecute(ctx context.Context, payment *domain.Payment) (*VerificationResult, error) {
	raw, err := s.do(ctx, http.MethodGet, "/v1/payment_intents/"+payment.TransactionID, nil)
	if err != nil {
		return nil, err
	}
	var intent stripeIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "stripe intent decode", err)
	}
	return &VerificationResult{
		Success:       intent.Status == "succeeded",
		TransactionID: intent.ID,
		Raw:           raw,
	}, nil
}

// CheckStatus is the same refetch as VerifyOrExecute; the intent flow has no
// separate execute step, so polling is side-effect free.
func (s *Stripe) CheckStatus(ctx context.Context, payment *domain.Payment) (*VerificationResult, error) {
	return s.VerifyOrExecute(ctx, payment)
}

type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

func (s *Stripe) HandleWebhook(signature string, body []byte) (*WebhookResult, error) {
	if err := s.verifySignature(signature, body); err != nil {
		return nil, err
	}
	var event stripeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "stripe webhook decode", err)
	}
	switch event.Type {
	case "payment_intent.succeeded":
		return &WebhookResult{Action: ActionSuccess, TransactionID: event.Data.Object.ID, Raw: body}, nil
	case "payment_intent.payment_failed":
		return &WebhookResult{Action: ActionFail, TransactionID: event.Data.Object.ID, Raw: body}, nil
	default:
		return &WebhookResult{Action: ActionIgnore, Raw: body}, nil
	}
}

// verifySignature checks the "t=<unix>,v1=<hex hmac>" header: the HMAC is
// SHA-256 over "<t>.<body>" keyed with the webhook secret, and t must fall
// within the tolerance window.
func (s *Stripe) verifySignature(header string, body []byte) error {
	var ts string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			candidates = append(candidates, v)
		}
	}
	if ts == "" || len(candidates) == 0 {
		return apperr.New(apperr.KindSignature, "stripe webhook signature header malformed")
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return apperr.New(apperr.KindSignature, "stripe webhook timestamp malformed")
	}
	if age := s.now().Sub(time.Unix(unix, 0)); age > webhookTolerance || age < -webhookTolerance {
		return apperr.New(apperr.KindSignature, "stripe webhook timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
	fmt.Fprintf(mac, "%s.%s", ts, body)
	expected := hex.EncodeToString(mac.Sum(nil))
	for _, c := range candidates {
		if hmac.Equal([]byte(expected), []byte(c)) {
			return nil
		}
	}
	return apperr.New(apperr.KindSignature, "stripe webhook signature verification failed")
}
