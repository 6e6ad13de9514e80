package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"shop-service/internal/apperr"
	"shop-service/internal/config"
	"shop-service/internal/domain"
)

const ProviderBkash = "bkash"

// Bkash is the redirect-flow gateway: every API call needs a fresh bearer
// token, payment completes through an explicit execute call after the
// customer returns from the redirect, and there is no usable webhook, so
// reconciliation is poll-only.
type Bkash struct {
	cfg    config.BkashConfig
	client *http.Client
}

func NewBkash(cfg config.BkashConfig, timeout time.Duration) *Bkash {
	return &Bkash{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

var _ Provider = (*Bkash)(nil)
var _ StatusChecker = (*Bkash)(nil)

func (b *Bkash) Name() string { return ProviderBkash }

type bkashTokenResponse struct {
	IDToken string `json:"id_token"`
}

func (b *Bkash) grantToken(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"app_key":    b.cfg.AppKey,
		"app_secret": b.cfg.AppSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.cfg.BaseURL+"/tokenized/checkout/token/grant", bytes.NewReader(body))
	if err != nil {
		return "", apperr.Wrap(apperr.KindProvider, "bkash token grant", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("username", b.cfg.Username)
	req.Header.Set("password", b.cfg.Password)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindProvider, "bkash token grant", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.Newf(apperr.KindProvider, "bkash token grant returned status %d", resp.StatusCode)
	}
	var tok bkashTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", apperr.Wrap(apperr.KindProvider, "bkash token grant", err)
	}
	if tok.IDToken == "" {
		return "", apperr.New(apperr.KindProvider, "bkash token grant returned no token")
	}
	return tok.IDToken, nil
}

// call performs one authenticated API call and returns the raw body so it
// can be persisted for audit.
func (b *Bkash) call(ctx context.Context, method, path, token string, payload any) (json.RawMessage, error) {
	var reqBody io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindProvider, "bkash request encode", err)
		}
		reqBody = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "bkash request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("X-APP-Key", b.cfg.AppKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "bkash request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "bkash response read", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Newf(apperr.KindProvider, "bkash returned status %d: %s", resp.StatusCode, raw)
	}
	return raw, nil
}

type bkashCreateResponse struct {
	PaymentID     string `json:"paymentID"`
	BkashURL      string `json:"bkashURL"`
	StatusMessage string `json:"statusMessage"`
}

func (b *Bkash) InitiatePayment(ctx context.Context, order *domain.Order) (*InitiationResult, error) {
	token, err := b.grantToken(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := b.call(ctx, http.MethodPost, "/tokenized/checkout/create", token, map[string]string{
		"mode":                  "0011",
		"payerReference":        fmt.Sprintf("%d", order.UserID),
		"callbackURL":           b.cfg.CallbackURL,
		"amount":                formatCents(order.TotalCents),
		"currency":              "BDT",
		"intent":                "sale",
		"merchantInvoiceNumber": order.OrderNumber,
	})
	if err != nil {
		return nil, err
	}
	var created bkashCreateResponse
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "bkash create decode", err)
	}
	if created.PaymentID == "" || created.BkashURL == "" {
		return nil, apperr.Newf(apperr.KindProvider, "bkash create failed: %s", created.StatusMessage)
	}
	return &InitiationResult{
		TransactionID: created.PaymentID,
		RedirectURL:   created.BkashURL,
		Raw:           raw,
	}, nil
}

type bkashStatusResponse struct {
	PaymentID         string `json:"paymentID"`
	TransactionStatus string `json:"transactionStatus"`
}

func (b *Bkash) VerifyOrExecute(ctx context.Context, payment *domain.Payment) (*VerificationResult, error) {
	token, err := b.grantToken(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := b.call(ctx, http.MethodPost, "/tokenized/checkout/execute", token, map[string]string{
		"paymentID": payment.TransactionID,
	})
	if err != nil {
		return nil, err
	}
	var executed bkashStatusResponse
	if err := json.Unmarshal(raw, &executed); err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "bkash execute decode", err)
	}
	if executed.TransactionStatus == "Completed" {
		return &VerificationResult{Success: true, TransactionID: executed.PaymentID, Raw: raw}, nil
	}
	return &VerificationResult{Success: false, TransactionID: payment.TransactionID, Raw: raw}, nil
}

func (b *Bkash) CheckStatus(ctx context.Context, payment *domain.Payment) (*VerificationResult, error) {
	token, err := b.grantToken(ctx)
	if err != nil {
		return nil, err
	}
	path := "/tokenized/checkout/payment/status?" + url.Values{"paymentID": {payment.TransactionID}}.Encode()
	raw, err := b.call(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}
	var status bkashStatusResponse
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "bkash status decode", err)
	}
	return &VerificationResult{
		Success:       status.TransactionStatus == "Completed",
		TransactionID: payment.TransactionID,
		Raw:           raw,
	}, nil
}

// HandleWebhook: bkash has no webhook integration; every delivery is ignored
// and reconciliation happens through CheckStatus.
func (b *Bkash) HandleWebhook(signature string, body []byte) (*WebhookResult, error) {
	return &WebhookResult{Action: ActionIgnore, Raw: json.RawMessage(`{}`)}, nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
