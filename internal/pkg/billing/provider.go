package billing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/ServicePortal/app/models"
)

const (
	providerHTTPTimeout = 20 * time.Second
	maxResponseBody     = 1 << 20
)

// Provider charges a stored customer off-session.
type Provider interface {
	Name() string
	Authenticate(ctx context.Context) (string, error)
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

type ChargeRequest struct {
	Customer       string
	PaymentMethod  string
	Amount         decimal.Decimal
	Currency       string
	Description    string
	IdempotencyKey string
}

type ChargeResult struct {
	Reference string
}

// SettingsSource is the read side of settings.Provider.
type SettingsSource interface {
	Get(key, def string) string
	Bool(key string) bool
	Invalidate()
}

// Route is the provider chosen for a subscription together with the
// identifiers that provider charges against.
type Route struct {
	Provider      Provider
	Customer      string
	PaymentMethod string
}

// ProviderResolver picks the route for a subscription, or reports false when
// the invoice has to be settled manually.
type ProviderResolver interface {
	Resolve(sub *models.Subscription) (Route, bool)
}

type settingsResolver struct {
	settings SettingsSource
	stripe   Provider
	paypal   Provider
}

// NewProviderResolver selects Stripe or PayPal from the identifiers stored on
// the subscription. A provider that is disabled in settings counts as absent,
// and the next provider on file is tried.
func NewProviderResolver(settings SettingsSource, stripe, paypal Provider) ProviderResolver {
	return &settingsResolver{settings: settings, stripe: stripe, paypal: paypal}
}

func (r *settingsResolver) Resolve(sub *models.Subscription) (Route, bool) {
	if sub.HasStripeProfile() && r.stripe != nil && r.settings.Bool(models.SettingStripeEnabled) {
		return Route{
			Provider:      r.stripe,
			Customer:      strings.TrimSpace(models.Deref(sub.StripeCustomerID)),
			PaymentMethod: strings.TrimSpace(models.Deref(sub.StripePaymentMethodID)),
		}, true
	}
	if sub.HasPayPalProfile() && r.paypal != nil && r.settings.Bool(models.SettingPayPalEnabled) {
		return Route{
			Provider: r.paypal,
			Customer: strings.TrimSpace(models.Deref(sub.PayPalSubscriptionID)),
		}, true
	}
	return Route{}, false
}

// tokenSource hands out a bearer token. force skips any cached token.
type tokenSource interface {
	token(ctx context.Context, force bool) (string, error)
}

// doAuthorized sends the request built by build. A 401 forces exactly one
// token refresh and one retry.
func doAuthorized(ctx context.Context, client *http.Client, ts tokenSource, build func(token string) (*http.Request, error)) (int, []byte, error) {
	status, body, err := sendWithToken(ctx, client, ts, false, build)
	if err != nil || status != http.StatusUnauthorized {
		return status, body, err
	}
	return sendWithToken(ctx, client, ts, true, build)
}

func sendWithToken(ctx context.Context, client *http.Client, ts tokenSource, force bool, build func(token string) (*http.Request, error)) (int, []byte, error) {
	token, err := ts.token(ctx, force)
	if err != nil {
		return 0, nil, fmt.Errorf("authenticate: %w", err)
	}
	req, err := build(token)
	if err != nil {
		return 0, nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	return resp.StatusCode, body, nil
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: providerHTTPTimeout}
}
