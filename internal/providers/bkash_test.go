package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-service/internal/apperr"
	"shop-service/internal/config"
	"shop-service/internal/domain"
)

// fakeBkash stands in for the tokenized checkout gateway. Every endpoint
// checks the credentials the client is expected to send.
func fakeBkash(t *testing.T, execStatus, pollStatus string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/tokenized/checkout/token/grant", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "merchant-user", r.Header.Get("username"))
		assert.Equal(t, "merchant-pass", r.Header.Get("password"))
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["app_key"] != "app-key" || creds["app_secret"] != "app-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id_token": "token-abc"})
	})

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "token-abc", r.Header.Get("Authorization"))
			assert.Equal(t, "app-key", r.Header.Get("X-APP-Key"))
			next(w, r)
		}
	}

	mux.HandleFunc("/tokenized/checkout/create", authed(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0011", req["mode"])
		assert.Equal(t, "12.50", req["amount"])
		assert.Equal(t, "BDT", req["currency"])
		assert.Equal(t, "sale", req["intent"])
		assert.NotEmpty(t, req["merchantInvoiceNumber"])
		json.NewEncoder(w).Encode(map[string]string{
			"paymentID": "TR0011abc",
			"bkashURL":  "https://sandbox.pay/TR0011abc",
		})
	}))

	mux.HandleFunc("/tokenized/checkout/execute", authed(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "TR0011abc", req["paymentID"])
		json.NewEncoder(w).Encode(map[string]string{
			"paymentID":         "TR0011abc",
			"trxID":             "8AB12345CD",
			"transactionStatus": execStatus,
		})
	}))

	mux.HandleFunc("/tokenized/checkout/payment/status", authed(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TR0011abc", r.URL.Query().Get("paymentID"))
		json.NewEncoder(w).Encode(map[string]string{
			"paymentID":         "TR0011abc",
			"transactionStatus": pollStatus,
		})
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func bkashConfig(baseURL string) config.BkashConfig {
	return config.BkashConfig{
		BaseURL:     baseURL,
		Username:    "merchant-user",
		Password:    "merchant-pass",
		AppKey:      "app-key",
		AppSecret:   "app-secret",
		CallbackURL: "https://shop.example/payments/callback",
	}
}

func TestBkashInitiatePayment(t *testing.T) {
	srv := fakeBkash(t, "Completed", "Completed")
	b := NewBkash(bkashConfig(srv.URL), 5*time.Second)

	result, err := b.InitiatePayment(context.Background(), &domain.Order{
		ID: 1, UserID: 7, OrderNumber: "ORD-1", TotalCents: 1250,
	})

	require.NoError(t, err)
	assert.Equal(t, "TR0011abc", result.TransactionID)
	assert.Equal(t, "https://sandbox.pay/TR0011abc", result.RedirectURL)
	assert.Empty(t, result.ClientSecret)
	assert.NotEmpty(t, result.Raw)
}

func TestBkashInitiatePayment_CreateRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tokenized/checkout/token/grant", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id_token": "token-abc"})
	})
	mux.HandleFunc("/tokenized/checkout/create", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"statusMessage": "Insufficient merchant balance"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	b := NewBkash(bkashConfig(srv.URL), 5*time.Second)

	_, err := b.InitiatePayment(context.Background(), &domain.Order{TotalCents: 1250})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindProvider))
	assert.Contains(t, err.Error(), "Insufficient merchant balance")
}

func TestBkashInitiatePayment_TokenGrantFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tokenized/checkout/token/grant", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	b := NewBkash(bkashConfig(srv.URL), 5*time.Second)

	_, err := b.InitiatePayment(context.Background(), &domain.Order{TotalCents: 1250})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindProvider))
}

func TestBkashVerifyOrExecute(t *testing.T) {
	tests := []struct {
		name        string
		execStatus  string
		wantSuccess bool
	}{
		{name: "completed", execStatus: "Completed", wantSuccess: true},
		{name: "failed", execStatus: "Failed", wantSuccess: false},
		{name: "still initiated", execStatus: "Initiated", wantSuccess: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeBkash(t, tt.execStatus, "Completed")
			b := NewBkash(bkashConfig(srv.URL), 5*time.Second)

			result, err := b.VerifyOrExecute(context.Background(), &domain.Payment{TransactionID: "TR0011abc"})

			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, "TR0011abc", result.TransactionID)
		})
	}
}

func TestBkashCheckStatus(t *testing.T) {
	srv := fakeBkash(t, "Completed", "Completed")
	b := NewBkash(bkashConfig(srv.URL), 5*time.Second)

	result, err := b.CheckStatus(context.Background(), &domain.Payment{TransactionID: "TR0011abc"})

	require.NoError(t, err)
	assert.True(t, result.Success)

	srv2 := fakeBkash(t, "Completed", "Initiated")
	b2 := NewBkash(bkashConfig(srv2.URL), 5*time.Second)

	result, err = b2.CheckStatus(context.Background(), &domain.Payment{TransactionID: "TR0011abc"})

	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestBkashHandleWebhook_AlwaysIgnored(t *testing.T) {
	b := NewBkash(bkashConfig("http://unused"), 5*time.Second)

	result, err := b.HandleWebhook("any-signature", []byte(`{"anything":true}`))

	require.NoError(t, err)
	assert.Equal(t, ActionIgnore, result.Action)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "12.50", formatCents(1250))
	assert.Equal(t, "0.05", formatCents(5))
	assert.Equal(t, "100.00", formatCents(10000))
	assert.Equal(t, "0.00", formatCents(0))
}
