package ordering

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/app/repository"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/clock"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/database"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/formschema"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/notify"
)

type recordingMessenger struct {
	mu       sync.Mutex
	mails    []string
	notices  []string
	adminMsg []string
}

func (r *recordingMessenger) SendTemplatedMessage(slug string, _ notify.Substitutions, recipient, _, _ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mails = append(r.mails, slug+" -> "+recipient)
	return true
}

func (r *recordingMessenger) Notify(_ uint, message, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, message)
}

func (r *recordingMessenger) NotifyAdmins(message, _, _ string, _ notify.Substitutions, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adminMsg = append(r.adminMsg, message)
}

type staticSettings map[string]string

func (s staticSettings) Get(key, def string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

type fixture struct {
	db        *gorm.DB
	repos     *repository.Repositories
	messenger *recordingMessenger
	clock     *clock.FakeClock
	svc       *Service
	user      *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	f := &fixture{
		db:        db,
		repos:     repository.NewRepositories(db),
		messenger: &recordingMessenger{},
		clock:     clock.NewFakeClock(time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)),
	}
	f.svc = NewService(db, f.messenger, staticSettings{models.SettingCurrencyCode: "GBP"}, f.clock)
	f.user = &models.User{Name: "Ada", Email: "ada@example.com", Password: "x", Role: models.ROLE_CLIENT, Status: models.STATUS_ACTIVE}
	require.NoError(t, f.repos.User.Create(f.user))
	return f
}

func (f *fixture) service(t *testing.T, interval, price, lines string) *models.Service {
	t.Helper()
	s := &models.Service{
		Name:            "Audit",
		Price:           decimal.RequireFromString(price),
		BillingInterval: interval,
		Active:          true,
		FormSchema:      formschema.BuildSchemaFromLines(lines),
	}
	require.NoError(t, f.repos.Service.Create(s))
	return s
}

func TestPlaceOneTimeOrder(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, models.IntervalOneTime, "120.00", "Company|company|text|required\nNotes|notes|textarea|")

	p, err := f.svc.PlaceOrder(context.Background(), f.user, PlaceOrderInput{
		ServiceID:     svc.ID,
		PaymentMethod: "Manual",
		Responses:     map[string]string{"company": " Acme ", "legacy": "kept"},
	})
	require.NoError(t, err)
	assert.Nil(t, p.Subscription)
	assert.Equal(t, models.PaymentMethodManual, p.Order.PaymentMethod)
	assert.Equal(t, models.PaymentStatusPending, p.Order.PaymentStatus)
	assert.Equal(t, "Acme", p.Order.Responses()["company"])
	assert.Equal(t, "kept", p.Order.Responses()["legacy"])

	src, err := p.Invoice.Source()
	require.NoError(t, err)
	assert.Equal(t, models.OneTime{OrderID: p.Order.ID}, src)
	assert.True(t, p.Invoice.Total.Equal(decimal.RequireFromString("120")))

	assert.Equal(t, []string{models.TemplateOrderConfirmation + " -> ada@example.com"}, f.messenger.mails)
	assert.Len(t, f.messenger.notices, 1)
	assert.Len(t, f.messenger.adminMsg, 1)
}

func TestPlaceRecurringOrderCreatesSubscription(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, models.IntervalMonthly, "29.99", "")

	p, err := f.svc.PlaceOrder(context.Background(), f.user, PlaceOrderInput{ServiceID: svc.ID, PaymentMethod: models.PaymentMethodStripe})
	require.NoError(t, err)
	require.NotNil(t, p.Subscription)
	assert.Equal(t, 31, p.Subscription.AnchorDay)
	assert.True(t, p.Subscription.NextBillingAt.Equal(time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.SubscriptionStatusActive, p.Subscription.Status)

	src, err := p.Invoice.Source()
	require.NoError(t, err)
	assert.Equal(t, models.Recurring{SubscriptionID: p.Subscription.ID, OrderID: p.Order.ID}, src)

	svc.Price = decimal.RequireFromString("49.99")
	require.NoError(t, f.repos.Service.Update(svc))
	stored, err := f.repos.Order.GetByID(p.Order.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(decimal.RequireFromString("29.99")))
}

func TestPlaceOrderRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, models.IntervalOneTime, "10", "Company|company|text|required\nNotes|notes|textarea|")

	_, err := f.svc.PlaceOrder(context.Background(), f.user, PlaceOrderInput{
		ServiceID:     svc.ID,
		PaymentMethod: "bitcoin",
		Responses:     map[string]string{"company": "   "},
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"payment_method": "Payment method is invalid",
		"company":        "Company is required",
	}, verr.Fields)

	var n int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Empty(t, f.messenger.mails)
}

func TestPlaceOrderRejectsUnavailableService(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, models.IntervalOneTime, "10", "")
	require.NoError(t, f.repos.Service.Delete(svc.ID))

	_, err := f.svc.PlaceOrder(context.Background(), f.user, PlaceOrderInput{ServiceID: svc.ID, PaymentMethod: "manual"})
	assert.ErrorIs(t, err, ErrServiceUnavailable)

	_, err = f.svc.PlaceOrder(context.Background(), f.user, PlaceOrderInput{ServiceID: 999, PaymentMethod: "manual"})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestUpdatePaymentStatus(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, models.IntervalOneTime, "10", "")
	p, err := f.svc.PlaceOrder(context.Background(), f.user, PlaceOrderInput{ServiceID: svc.ID, PaymentMethod: "manual"})
	require.NoError(t, err)
	f.messenger.mails = nil

	f.clock.Advance(time.Hour)
	order, err := f.svc.UpdatePaymentStatus(context.Background(), p.Order.ID, "failed", "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, order.PaymentStatus)
	assert.True(t, order.UpdatedAt.Equal(f.clock.Now()))
	assert.True(t, order.CreatedAt.Equal(p.Order.CreatedAt))

	order, err = f.svc.UpdatePaymentStatus(context.Background(), p.Order.ID, "paid", "bank-42")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "bank-42", order.PaymentReference)

	inv, err := f.repos.Invoice.GetByID(p.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, inv.Status)
	require.NotNil(t, inv.PaidAt)
	assert.Equal(t, []string{models.TemplateInvoicePaymentSuccess + " -> ada@example.com"}, f.messenger.mails)

	_, err = f.svc.UpdatePaymentStatus(context.Background(), p.Order.ID, "failed", "")
	assert.ErrorIs(t, err, ErrTerminalStatus)

	_, err = f.svc.UpdatePaymentStatus(context.Background(), 999, "paid", "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdatePaymentStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, models.IntervalOneTime, "10", "")
	p, err := f.svc.PlaceOrder(context.Background(), f.user, PlaceOrderInput{ServiceID: svc.ID, PaymentMethod: "manual"})
	require.NoError(t, err)

	_, err = f.svc.UpdatePaymentStatus(context.Background(), p.Order.ID, "refunded", "")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestAttachProviderProfiles(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, models.IntervalAnnual, "300", "")
	p, err := f.svc.PlaceOrder(context.Background(), f.user, PlaceOrderInput{ServiceID: svc.ID, PaymentMethod: "stripe"})
	require.NoError(t, err)
	subID := p.Subscription.ID

	require.NoError(t, f.svc.AttachStripeProfile(context.Background(), subID, "cus_1", " pm_1 ", ""))
	sub, err := f.repos.Subscription.GetByID(subID)
	require.NoError(t, err)
	assert.True(t, sub.HasStripeProfile())
	assert.Equal(t, "pm_1", models.Deref(sub.StripePaymentMethodID))
	assert.Nil(t, sub.StripeSubscriptionID)

	require.NoError(t, f.svc.AttachPayPalSubscription(context.Background(), subID, "I-SUB1"))
	sub, err = f.repos.Subscription.GetByID(subID)
	require.NoError(t, err)
	assert.True(t, sub.HasPayPalProfile())

	var verr *ValidationError
	assert.True(t, errors.As(f.svc.AttachStripeProfile(context.Background(), subID, "", " ", ""), &verr))
	assert.True(t, errors.As(f.svc.AttachPayPalSubscription(context.Background(), subID, ""), &verr))
	assert.ErrorIs(t, f.svc.AttachPayPalSubscription(context.Background(), 999, "I-X"), ErrSubscriptionNotFound)
}

func TestAttachStripeProfileRequiresChargeableIdentifiers(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, models.IntervalMonthly, "20", "")
	p, err := f.svc.PlaceOrder(context.Background(), f.user, PlaceOrderInput{ServiceID: svc.ID, PaymentMethod: "stripe"})
	require.NoError(t, err)
	subID := p.Subscription.ID

	tests := []struct {
		name       string
		customer   string
		method     string
		stripeSub  string
		wantFields []string
	}{
		{"subscription id only", "", "", "sub_1", []string{"stripe_customer_id", "stripe_payment_method_id"}},
		{"customer only", "cus_1", "", "", []string{"stripe_payment_method_id"}},
		{"payment method only", "", "pm_1", "sub_1", []string{"stripe_customer_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.AttachStripeProfile(context.Background(), subID, tt.customer, tt.method, tt.stripeSub)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			for _, field := range tt.wantFields {
				assert.Contains(t, verr.Fields, field)
			}
			assert.Len(t, verr.Fields, len(tt.wantFields))

			sub, err := f.repos.Subscription.GetByID(subID)
			require.NoError(t, err)
			assert.Nil(t, sub.StripeSubscriptionID)
			assert.False(t, sub.HasStripeProfile())
		})
	}

	require.NoError(t, f.svc.AttachStripeProfile(context.Background(), subID, "cus_1", "pm_1", "sub_1"))
	sub, err := f.repos.Subscription.GetByID(subID)
	require.NoError(t, err)
	assert.True(t, sub.HasStripeProfile())
	assert.Equal(t, "sub_1", models.Deref(sub.StripeSubscriptionID))
}
