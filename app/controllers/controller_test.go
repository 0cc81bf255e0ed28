package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/billing"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/clock"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/database"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/formschema"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/mail"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/middleware"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/ordering"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/portal"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/session"
)

type recordingTransport struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingTransport) Send(to, subject, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, to+": "+subject)
	return nil
}

type testApp struct {
	app       *fiber.App
	svc       *portal.Services
	transport *recordingTransport
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db))

	tr := &recordingTransport{}
	svc := portal.NewServices(db, portal.Options{
		Transport: tr,
		Fallback:  mail.NewFallbackLogWriter(&bytes.Buffer{}),
		Clock:     clock.NewFakeClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)),
		Billing:   billing.Config{Workers: 1},
	})
	session.NewSessionStoreWith(nil)
	Initialize(svc)

	app := fiber.New()
	app.Use(middleware.UserContextMiddleware)
	app.Post("/login", HandleAuthLogin)
	app.Post("/signup", HandleAuthSignup)
	app.Post("/logout", middleware.RequireAuth, HandleAuthLogout)
	app.Get("/services", HandleServiceList)
	app.Get("/services/:id/form", HandleServiceFormFields)
	app.Post("/orders", middleware.RequireAuth, HandleOrderPlace)
	app.Get("/orders", middleware.RequireAuth, HandleOrderList)
	app.Get("/notifications", middleware.RequireAuth, HandleNotificationList)
	app.Post("/notifications/read", middleware.RequireAuth, HandleNotificationMarkRead)
	app.Get("/tickets", middleware.RequireAuth, HandleTicketList)
	app.Post("/tickets", middleware.RequireAuth, HandleTicketOpen)
	app.Get("/tickets/:id", middleware.RequireAuth, HandleTicketShow)
	app.Post("/tickets/:id/reply", middleware.RequireAuth, HandleTicketReply)
	app.Post("/tickets/:id/close", middleware.RequireAuth, HandleTicketCloseByClient)
	admin := app.Group("/admin", middleware.RequireAdmin)
	admin.Post("/billing/run", HandleAdminBillingRunNow)
	admin.Get("/subscriptions", HandleAdminSubscriptionList)
	admin.Post("/subscriptions/:id/test-charge", HandleAdminSubscriptionTestCharge)
	admin.Post("/subscriptions/:id/stripe-profile", HandleAdminSubscriptionStripeProfile)
	admin.Post("/subscriptions/:id/paypal-profile", HandleAdminSubscriptionPayPalProfile)
	admin.Post("/services", HandleAdminServiceStore)
	admin.Delete("/services/:id", HandleAdminServiceRemove)
	admin.Post("/orders/:id/payment-status", HandleAdminOrderStatus)
	admin.Get("/forms", HandleAdminFormTemplateList)
	admin.Post("/forms", HandleAdminFormTemplateStore)
	admin.Delete("/forms/:id", HandleAdminFormTemplateRemove)
	admin.Post("/forms/:id/apply", HandleAdminFormTemplateApplyToService)
	admin.Get("/clients", HandleAdminClientList)
	admin.Post("/clients/invite", HandleAdminClientInviteSend)
	admin.Get("/tickets", HandleAdminTicketList)
	admin.Get("/tickets/:id", HandleAdminTicketShow)
	admin.Post("/tickets/:id/reply", HandleAdminTicketRespond)
	admin.Get("/templates/:slug", HandleAdminTemplateShow)
	admin.Post("/templates/:slug", HandleAdminTemplateSave)
	admin.Get("/settings", HandleAdminSettingsShow)
	admin.Post("/settings", HandleAdminSettingsSave)

	return &testApp{app: app, svc: svc, transport: tr}
}

// do sends a JSON request and returns the response with its decoded body.
func (ta *testApp) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (ta *testApp) createUser(t *testing.T, name, email, role string) *models.User {
	t.Helper()
	u, err := models.CreateUser(name, email, "secret-pw")
	require.NoError(t, err)
	u.Role = role
	require.NoError(t, ta.svc.Repos.User.Create(u))
	return u
}

func (ta *testApp) login(t *testing.T, email string) []*http.Cookie {
	t.Helper()
	resp, _ := ta.do(t, http.MethodPost, "/login", map[string]string{"email": email, "password": "secret-pw"}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return resp.Cookies()
}

func (ta *testApp) createService(t *testing.T, interval string) *models.Service {
	t.Helper()
	s := &models.Service{
		Name:            "Bookkeeping",
		Price:           decimal.RequireFromString("49.00"),
		BillingInterval: interval,
		Active:          true,
		FormSchema:      formschema.BuildSchemaFromLines("Company|company|text|required"),
	}
	require.NoError(t, ta.svc.Repos.Service.Create(s))
	return s
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "Ada", "ada@example.com", models.ROLE_CLIENT)

	tests := []struct {
		name  string
		email string
		pass  string
	}{
		{"wrong password", "ada@example.com", "nope-nope"},
		{"unknown email", "bob@example.com", "secret-pw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ta.do(t, http.MethodPost, "/login", map[string]string{"email": tt.email, "password": tt.pass}, nil)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "invalid email or password", body["message"])
		})
	}
}

func TestSignupOrderAndNotifications(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "Admin", "admin@example.com", models.ROLE_ADMIN)
	svc := ta.createService(t, models.IntervalMonthly)

	resp, _ := ta.do(t, http.MethodPost, "/signup", map[string]string{"name": "Ada", "email": "Ada@Example.com", "password": "secret-pw"}, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	cookies := resp.Cookies()

	resp, _ = ta.do(t, http.MethodPost, "/signup", map[string]string{"name": "Ada", "email": "ada@example.com", "password": "secret-pw"}, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, body := ta.do(t, http.MethodPost, "/orders", map[string]any{"service_id": svc.ID, "payment_method": "manual", "responses": map[string]string{}}, cookies)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, map[string]any{"company": "Company is required"}, body["fields"])

	resp, body = ta.do(t, http.MethodPost, "/orders", map[string]any{"service_id": svc.ID, "payment_method": "manual", "responses": map[string]string{"company": "Acme"}}, cookies)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.NotNil(t, body["subscription"])

	resp, body = ta.do(t, http.MethodGet, "/notifications", nil, cookies)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["unread"])

	resp, body = ta.do(t, http.MethodPost, "/notifications/read", nil, cookies)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["marked"])

	assert.Contains(t, ta.transport.sent, "admin@example.com: New order from Ada")
}

func TestClientRoutesRequireSession(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "Ada", "ada@example.com", models.ROLE_CLIENT)
	cookies := ta.login(t, "ada@example.com")

	resp, _ := ta.do(t, http.MethodGet, "/orders", nil, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodPost, "/admin/billing/run", nil, cookies)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodPost, "/logout", nil, cookies)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp, _ = ta.do(t, http.MethodGet, "/orders", nil, cookies)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminTestChargeRedirectsWithFlash(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "Admin", "admin@example.com", models.ROLE_ADMIN)
	client := ta.createUser(t, "Ada", "ada@example.com", models.ROLE_CLIENT)
	svc := ta.createService(t, models.IntervalMonthly)
	cookies := ta.login(t, "admin@example.com")

	placement, err := ta.svc.Orders.PlaceOrder(context.Background(), client, orderingInput(svc.ID))
	require.NoError(t, err)
	subID := placement.Subscription.ID

	resp, _ := ta.do(t, http.MethodPost, "/admin/subscriptions/"+itoa(subID)+"/test-charge", nil, cookies)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin/subscriptions", resp.Header.Get("Location"))

	invoices, err := ta.svc.Repos.Invoice.ListByUser(client.ID)
	require.NoError(t, err)
	assert.Len(t, invoices, 2, "first invoice from the order, second from the test charge")

	resp, _ = ta.do(t, http.MethodPost, "/admin/subscriptions/999/test-charge", nil, cookies)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)

	resp, body := ta.do(t, http.MethodGet, "/admin/subscriptions", nil, cookies)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["subscriptions"], 1)
}

func TestAdminBillingRunAndPaymentStatus(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "Admin", "admin@example.com", models.ROLE_ADMIN)
	client := ta.createUser(t, "Ada", "ada@example.com", models.ROLE_CLIENT)
	svc := ta.createService(t, models.IntervalOneTime)
	cookies := ta.login(t, "admin@example.com")

	placement, err := ta.svc.Orders.PlaceOrder(context.Background(), client, orderingInput(svc.ID))
	require.NoError(t, err)

	resp, body := ta.do(t, http.MethodPost, "/admin/billing/run", nil, cookies)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 0, summary["due"])

	path := "/admin/orders/" + itoa(placement.Order.ID) + "/payment-status"
	resp, body = ta.do(t, http.MethodPost, path, map[string]string{"status": "paid", "reference": "bank-1"}, cookies)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "paid", body["order"].(map[string]any)["payment_status"])

	resp, _ = ta.do(t, http.MethodPost, path, map[string]string{"status": "failed"}, cookies)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodPost, "/admin/orders/999/payment-status", map[string]string{"status": "paid"}, cookies)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdminSettingsMaskSecrets(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "Admin", "admin@example.com", models.ROLE_ADMIN)
	cookies := ta.login(t, "admin@example.com")

	resp, _ := ta.do(t, http.MethodPost, "/admin/settings", map[string]string{
		models.SettingStripeSecretKey: "sk_live_1",
		models.SettingCompanyName:     "Acme Ltd",
	}, cookies)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := ta.do(t, http.MethodPost, "/admin/settings", map[string]string{models.SettingStripeSecretKey: maskedSecret}, cookies)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	settings := body["settings"].(map[string]any)
	assert.Equal(t, maskedSecret, settings[models.SettingStripeSecretKey])
	assert.Equal(t, "Acme Ltd", settings[models.SettingCompanyName])
	assert.Equal(t, "sk_live_1", ta.svc.Settings.Get(models.SettingStripeSecretKey, ""))

	resp, body = ta.do(t, http.MethodPost, "/admin/settings", map[string]string{"favourite_colour": "blue"}, cookies)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, map[string]any{"favourite_colour": "unknown setting"}, body["fields"])
}

func TestAdminServiceAndTemplateEditing(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "Admin", "admin@example.com", models.ROLE_ADMIN)
	cookies := ta.login(t, "admin@example.com")

	resp, body := ta.do(t, http.MethodPost, "/admin/services", map[string]any{
		"name": "Payroll", "price": "15.00", "billing_interval": "monthly", "active": true,
		"form_lines": "Employees|employees|number|required",
	}, cookies)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	id := uint(body["service"].(map[string]any)["id"].(float64))

	resp, body = ta.do(t, http.MethodGet, "/services/"+itoa(id)+"/form", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["fields"], 1)

	resp, _ = ta.do(t, http.MethodPost, "/admin/services", map[string]any{"name": "Bad", "price": "-1", "billing_interval": "monthly"}, cookies)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodDelete, "/admin/services/"+itoa(id), nil, cookies)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp, _ = ta.do(t, http.MethodGet, "/services/"+itoa(id)+"/form", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = ta.do(t, http.MethodPost, "/admin/templates/"+models.TemplateInvoiceOverdue, map[string]string{"subject": "Overdue: {{invoice}}", "body": "Please pay."}, cookies)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Overdue: {{invoice}}", body["template"].(map[string]any)["subject"])

	resp, _ = ta.do(t, http.MethodGet, "/admin/templates/no_such_template", nil, cookies)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdminAttachPaymentProfiles(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "Admin", "admin@example.com", models.ROLE_ADMIN)
	client := ta.createUser(t, "Ada", "ada@example.com", models.ROLE_CLIENT)
	svc := ta.createService(t, models.IntervalMonthly)
	admin := ta.login(t, "admin@example.com")
	clientCookies := ta.login(t, "ada@example.com")

	placement, err := ta.svc.Orders.PlaceOrder(context.Background(), client, orderingInput(svc.ID))
	require.NoError(t, err)
	base := "/admin/subscriptions/" + itoa(placement.Subscription.ID)

	tests := []struct {
		name    string
		path    string
		body    map[string]string
		cookies []*http.Cookie
		status  int
		field   string
	}{
		{"client forbidden", base + "/stripe-profile", map[string]string{"stripe_customer_id": "cus_1", "stripe_payment_method_id": "pm_1"}, clientCookies, fiber.StatusForbidden, ""},
		{"stripe subscription id alone", base + "/stripe-profile", map[string]string{"stripe_subscription_id": "sub_1"}, admin, fiber.StatusUnprocessableEntity, "stripe_customer_id"},
		{"stripe missing payment method", base + "/stripe-profile", map[string]string{"stripe_customer_id": "cus_1"}, admin, fiber.StatusUnprocessableEntity, "stripe_payment_method_id"},
		{"stripe unknown subscription", "/admin/subscriptions/999/stripe-profile", map[string]string{"stripe_customer_id": "cus_1", "stripe_payment_method_id": "pm_1"}, admin, fiber.StatusNotFound, ""},
		{"stripe bad id", "/admin/subscriptions/abc/stripe-profile", map[string]string{}, admin, fiber.StatusBadRequest, ""},
		{"stripe attached", base + "/stripe-profile", map[string]string{"stripe_customer_id": "cus_1", "stripe_payment_method_id": "pm_1"}, admin, fiber.StatusOK, ""},
		{"paypal empty", base + "/paypal-profile", map[string]string{"paypal_subscription_id": " "}, admin, fiber.StatusUnprocessableEntity, "paypal_subscription_id"},
		{"paypal unknown subscription", "/admin/subscriptions/999/paypal-profile", map[string]string{"paypal_subscription_id": "I-SUB1"}, admin, fiber.StatusNotFound, ""},
		{"paypal attached", base + "/paypal-profile", map[string]string{"paypal_subscription_id": "I-SUB1"}, admin, fiber.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ta.do(t, http.MethodPost, tt.path, tt.body, tt.cookies)
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.field != "" {
				assert.Contains(t, body["fields"], tt.field)
			}
		})
	}

	sub, err := ta.svc.Repos.Subscription.GetByID(placement.Subscription.ID)
	require.NoError(t, err)
	assert.True(t, sub.HasStripeProfile())
	assert.True(t, sub.HasPayPalProfile())
	assert.Equal(t, "pm_1", models.Deref(sub.StripePaymentMethodID))
	assert.Equal(t, "I-SUB1", models.Deref(sub.PayPalSubscriptionID))
}

func TestSupportTicketFlow(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "Admin", "admin@example.com", models.ROLE_ADMIN)
	ta.createUser(t, "Ada", "ada@example.com", models.ROLE_CLIENT)
	ta.createUser(t, "Bob", "bob@example.com", models.ROLE_CLIENT)
	admin := ta.login(t, "admin@example.com")
	ada := ta.login(t, "ada@example.com")
	bob := ta.login(t, "bob@example.com")

	resp, body := ta.do(t, http.MethodPost, "/tickets", map[string]string{"subject": "Invoice", "message": ""}, ada)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["fields"], "message")

	resp, body = ta.do(t, http.MethodPost, "/tickets", map[string]string{"subject": "Invoice", "message": "Charged twice?"}, ada)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	id := uint(body["ticket"].(map[string]any)["id"].(float64))
	path := "/tickets/" + itoa(id)
	assert.Contains(t, ta.transport.sent, "admin@example.com: Support request from Ada")

	resp, _ = ta.do(t, http.MethodGet, path, nil, bob)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	tests := []struct {
		name   string
		body   map[string]string
		status int
		want   string
	}{
		{"unknown status", map[string]string{"message": "Looking", "status": "escalated"}, fiber.StatusUnprocessableEntity, ""},
		{"empty message", map[string]string{"message": " "}, fiber.StatusUnprocessableEntity, ""},
		{"default status", map[string]string{"message": "Refund issued."}, fiber.StatusOK, models.TicketStatusAwaitingClient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ta.do(t, http.MethodPost, "/admin"+path+"/reply", tt.body, admin)
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.want != "" {
				assert.Equal(t, tt.want, body["ticket"].(map[string]any)["status"])
			}
		})
	}
	assert.Contains(t, ta.transport.sent, `ada@example.com: New reply to "Invoice"`)

	resp, body = ta.do(t, http.MethodPost, path+"/reply", map[string]string{"message": "Thanks!"}, ada)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, models.TicketStatusOpen, body["ticket"].(map[string]any)["status"])

	resp, body = ta.do(t, http.MethodPost, path+"/close", nil, ada)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, models.TicketStatusClosed, body["ticket"].(map[string]any)["status"])

	resp, body = ta.do(t, http.MethodGet, "/admin/tickets?status=closed", nil, admin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["tickets"], 1)

	resp, body = ta.do(t, http.MethodGet, "/admin"+path, nil, admin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["ticket"].(map[string]any)["messages"], 3)

	resp, _ = ta.do(t, http.MethodGet, "/admin/tickets", nil, ada)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminInviteClient(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "Admin", "admin@example.com", models.ROLE_ADMIN)
	admin := ta.login(t, "admin@example.com")

	resp, body := ta.do(t, http.MethodPost, "/admin/clients/invite", map[string]string{"name": "Ada", "email": "Ada@Example.com", "company": "Acme"}, admin)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["email_sent"])
	assert.Contains(t, ta.transport.sent, "ada@example.com: You have been invited to the client portal")

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"duplicate", map[string]string{"name": "Ada", "email": "ada@example.com"}, fiber.StatusConflict},
		{"bad email", map[string]string{"name": "Bob", "email": "bob"}, fiber.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := ta.do(t, http.MethodPost, "/admin/clients/invite", tt.body, admin)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp, body = ta.do(t, http.MethodGet, "/admin/clients", nil, admin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["clients"], 1)
}

func TestAdminFormTemplates(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "Admin", "admin@example.com", models.ROLE_ADMIN)
	admin := ta.login(t, "admin@example.com")
	svc := ta.createService(t, models.IntervalMonthly)

	resp, body := ta.do(t, http.MethodPost, "/admin/forms", map[string]any{
		"name":   "Payroll",
		"schema": []map[string]any{{"label": "Employees", "type": "number", "required": true}},
	}, admin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	id := uint(body["form_template"].(map[string]any)["id"].(float64))

	resp, body = ta.do(t, http.MethodPost, "/admin/forms", map[string]any{"name": "Empty"}, admin)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["fields"], "schema")

	resp, body = ta.do(t, http.MethodGet, "/admin/forms", nil, admin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["form_templates"], 1)

	resp, _ = ta.do(t, http.MethodPost, "/admin/forms/"+itoa(id)+"/apply", map[string]any{"service_id": svc.ID}, admin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, body = ta.do(t, http.MethodGet, "/services/"+itoa(svc.ID)+"/form", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	fields := body["fields"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "employees", fields[0].(map[string]any)["name"])

	resp, _ = ta.do(t, http.MethodPost, "/admin/forms/"+itoa(id)+"/apply", map[string]any{"service_id": 999}, admin)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodDelete, "/admin/forms/"+itoa(id), nil, admin)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp, _ = ta.do(t, http.MethodDelete, "/admin/forms/"+itoa(id), nil, admin)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func orderingInput(serviceID uint) ordering.PlaceOrderInput {
	return ordering.PlaceOrderInput{
		ServiceID:     serviceID,
		PaymentMethod: models.PaymentMethodManual,
		Responses:     map[string]string{"company": "Acme"},
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
