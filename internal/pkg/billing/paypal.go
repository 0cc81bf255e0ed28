package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ManuelReschke/ServicePortal/app/models"
)

const (
	PayPalSandboxBase = "https://api-m.sandbox.paypal.com"
	PayPalLiveBase    = "https://api-m.paypal.com"
)

// PayPalProvider captures the outstanding balance of a PayPal subscription.
// Access tokens come from the client-credentials grant and are reused until
// they expire or the API answers 401.
type PayPalProvider struct {
	settings   SettingsSource
	HTTPClient *http.Client
	// BaseURL overrides the sandbox/live switch.
	BaseURL string

	mu     sync.Mutex
	source oauth2.TokenSource
	key    string
}

func NewPayPalProvider(settings SettingsSource, client *http.Client) *PayPalProvider {
	return &PayPalProvider{settings: settings, HTTPClient: defaultHTTPClient(client)}
}

func (p *PayPalProvider) Name() string { return models.ProviderPayPal }

func (p *PayPalProvider) baseURL() string {
	if p.BaseURL != "" {
		return strings.TrimRight(p.BaseURL, "/")
	}
	if strings.EqualFold(strings.TrimSpace(p.settings.Get(models.SettingPayPalMode, "sandbox")), "live") {
		return PayPalLiveBase
	}
	return PayPalSandboxBase
}

func (p *PayPalProvider) Authenticate(ctx context.Context) (string, error) {
	return p.token(ctx, false)
}

func (p *PayPalProvider) token(ctx context.Context, force bool) (string, error) {
	clientID := strings.TrimSpace(p.settings.Get(models.SettingPayPalClientID, ""))
	secret := strings.TrimSpace(p.settings.Get(models.SettingPayPalClientSecret, ""))
	if clientID == "" || secret == "" {
		return "", errors.New("paypal client credentials are not configured")
	}
	base := p.baseURL()
	key := base + "|" + clientID + "|" + secret

	p.mu.Lock()
	if force || p.source == nil || p.key != key {
		cfg := clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: secret,
			TokenURL:     base + "/v1/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		// The token source keeps its context for later refreshes, so it must
		// not inherit the per-charge deadline.
		tctx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, p.HTTPClient)
		p.source = cfg.TokenSource(tctx)
		p.key = key
	}
	source := p.source
	p.mu.Unlock()

	tok, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("paypal token: %w", err)
	}
	return tok.AccessToken, nil
}

type paypalCaptureRequest struct {
	Note        string       `json:"note"`
	CaptureType string       `json:"capture_type"`
	Amount      paypalAmount `json:"amount"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// Charge captures against the PayPal subscription id carried in req.Customer.
// The PayPal-Request-Id doubles as the payment reference.
func (p *PayPalProvider) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	subID := strings.TrimSpace(req.Customer)
	if subID == "" {
		return ChargeResult{}, errors.New("paypal subscription id is required")
	}
	note := req.Description
	if note == "" {
		note = "Subscription charge"
	}
	payload, err := json.Marshal(paypalCaptureRequest{
		Note:        note,
		CaptureType: "OUTSTANDING_BALANCE",
		Amount: paypalAmount{
			CurrencyCode: strings.ToUpper(req.Currency),
			Value:        req.Amount.StringFixed(2),
		},
	})
	if err != nil {
		return ChargeResult{}, err
	}

	requestID := req.IdempotencyKey
	if requestID == "" {
		requestID = uuid.NewString()
	}
	endpoint := p.baseURL() + "/v1/billing/subscriptions/" + url.PathEscape(subID) + "/capture"

	status, body, err := doAuthorized(ctx, p.HTTPClient, p, func(token string) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Authorization", "Bearer "+token)
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("Accept", "application/json")
		r.Header.Set("PayPal-Request-Id", requestID)
		return r, nil
	})
	if err != nil {
		return ChargeResult{}, fmt.Errorf("paypal capture: %w", err)
	}
	if status < 200 || status >= 300 {
		return ChargeResult{}, fmt.Errorf("paypal capture failed: status=%d body=%s", status, string(body))
	}
	return ChargeResult{Reference: requestID}, nil
}
