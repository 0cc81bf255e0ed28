package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ServicePortal/app/models"
)

// paypalServer issues numbered tokens and accepts captures made with the
// token named by valid.
type paypalServer struct {
	*httptest.Server
	tokens   atomic.Int32
	captures atomic.Int32
	valid    atomic.Value
	lastBody paypalCaptureRequest
	lastID   string
}

func newPayPalServer(t *testing.T) *paypalServer {
	t.Helper()
	ps := &paypalServer{}
	ps.valid.Store("token-1")
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			user, pass, ok := r.BasicAuth()
			if !ok || user != "client" || pass != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			n := ps.tokens.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":3600}`, n)
		case "/v1/billing/subscriptions/I-SUB1/capture":
			ps.captures.Add(1)
			if r.Header.Get("Authorization") != "Bearer "+ps.valid.Load().(string) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			ps.lastID = r.Header.Get("PayPal-Request-Id")
			_ = json.NewDecoder(r.Body).Decode(&ps.lastBody)
			w.WriteHeader(http.StatusAccepted)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ps.Close)
	return ps
}

func newTestPayPal(ps *paypalServer) *PayPalProvider {
	s := &mapSettings{values: map[string]string{
		models.SettingPayPalClientID:     "client",
		models.SettingPayPalClientSecret: "secret",
	}}
	p := NewPayPalProvider(s, ps.Client())
	p.BaseURL = ps.URL
	return p
}

func TestPayPalCapture(t *testing.T) {
	ps := newPayPalServer(t)
	p := newTestPayPal(ps)

	res, err := p.Charge(context.Background(), ChargeRequest{
		Customer:       "I-SUB1",
		Amount:         decimal.RequireFromString("120"),
		Currency:       "gbp",
		IdempotencyKey: "req-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "req-1", res.Reference)
	assert.Equal(t, "req-1", ps.lastID)
	assert.Equal(t, "OUTSTANDING_BALANCE", ps.lastBody.CaptureType)
	assert.Equal(t, paypalAmount{CurrencyCode: "GBP", Value: "120.00"}, ps.lastBody.Amount)

	_, err = p.Charge(context.Background(), ChargeRequest{Customer: "I-SUB1", Amount: decimal.NewFromInt(1), Currency: "GBP"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), ps.tokens.Load(), "token is reused while valid")
}

func TestPayPalRefreshesTokenOnceOn401(t *testing.T) {
	ps := newPayPalServer(t)
	p := newTestPayPal(ps)

	tok, err := p.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)

	ps.valid.Store("token-2")
	res, err := p.Charge(context.Background(), ChargeRequest{Customer: "I-SUB1", Amount: decimal.NewFromInt(5), Currency: "GBP"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Reference)
	assert.Equal(t, int32(2), ps.tokens.Load())
	assert.Equal(t, int32(2), ps.captures.Load())

	ps.valid.Store("never")
	_, err = p.Charge(context.Background(), ChargeRequest{Customer: "I-SUB1", Amount: decimal.NewFromInt(5), Currency: "GBP"})
	require.Error(t, err)
	assert.Equal(t, int32(4), ps.captures.Load())
}

func TestPayPalModeSelectsBaseURL(t *testing.T) {
	s := &mapSettings{values: map[string]string{}}
	p := NewPayPalProvider(s, nil)
	assert.Equal(t, PayPalSandboxBase, p.baseURL())

	s.values[models.SettingPayPalMode] = "LIVE"
	assert.Equal(t, PayPalLiveBase, p.baseURL())

	_, err := p.Authenticate(context.Background())
	assert.Error(t, err)
}
