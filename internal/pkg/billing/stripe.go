package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ManuelReschke/ServicePortal/app/models"
)

const defaultStripeAPIBase = "https://api.stripe.com"

// StripeProvider confirms off-session PaymentIntents against a saved card.
type StripeProvider struct {
	settings   SettingsSource
	HTTPClient *http.Client
}

func NewStripeProvider(settings SettingsSource, client *http.Client) *StripeProvider {
	return &StripeProvider{settings: settings, HTTPClient: defaultHTTPClient(client)}
}

func (p *StripeProvider) Name() string { return models.ProviderStripe }

func (p *StripeProvider) Authenticate(ctx context.Context) (string, error) {
	return p.token(ctx, false)
}

// token is the secret key. A forced refresh drops the settings cache so a key
// rotated by an admin is picked up.
func (p *StripeProvider) token(_ context.Context, force bool) (string, error) {
	if force {
		p.settings.Invalidate()
	}
	key := strings.TrimSpace(p.settings.Get(models.SettingStripeSecretKey, ""))
	if key == "" {
		return "", errors.New("stripe secret key is not configured")
	}
	return key, nil
}

type stripePaymentIntent struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *StripeProvider) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if strings.TrimSpace(req.Customer) == "" || strings.TrimSpace(req.PaymentMethod) == "" {
		return ChargeResult{}, errors.New("stripe customer and payment method are required")
	}
	minor := req.Amount.Shift(2).Round(0).IntPart()
	if minor <= 0 {
		return ChargeResult{}, fmt.Errorf("stripe amount must be positive, got %s", req.Amount.StringFixed(2))
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(minor, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("customer", req.Customer)
	form.Set("payment_method", req.PaymentMethod)
	form.Set("confirm", "true")
	form.Set("off_session", "true")
	if req.Description != "" {
		form.Set("description", req.Description)
	}
	encoded := form.Encode()

	base := strings.TrimRight(p.settings.Get(models.SettingStripeAPIBase, defaultStripeAPIBase), "/")
	status, body, err := doAuthorized(ctx, p.HTTPClient, p, func(token string) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/payment_intents", strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Authorization", "Bearer "+token)
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.Header.Set("Accept", "application/json")
		if req.IdempotencyKey != "" {
			r.Header.Set("Idempotency-Key", req.IdempotencyKey)
		}
		return r, nil
	})
	if err != nil {
		return ChargeResult{}, fmt.Errorf("stripe charge: %w", err)
	}

	var intent stripePaymentIntent
	_ = json.Unmarshal(body, &intent)
	if status < 200 || status >= 300 {
		if intent.Error != nil && intent.Error.Message != "" {
			return ChargeResult{}, fmt.Errorf("stripe charge failed: status=%d: %s", status, intent.Error.Message)
		}
		return ChargeResult{}, fmt.Errorf("stripe charge failed: status=%d body=%s", status, string(body))
	}
	if intent.Status != "succeeded" {
		msg := intent.Status
		if intent.LastPaymentError != nil && intent.LastPaymentError.Message != "" {
			msg = intent.LastPaymentError.Message
		}
		return ChargeResult{Reference: intent.ID}, fmt.Errorf("stripe payment intent %s not succeeded: %s", intent.ID, msg)
	}
	return ChargeResult{Reference: intent.ID}, nil
}
