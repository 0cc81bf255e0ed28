package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ServicePortal/app/models"
)

func (e *testEnv) pendingInvoice(t *testing.T, due time.Time) *models.Invoice {
	t.Helper()
	order := &models.Order{
		UserID:          e.user.ID,
		ServiceID:       e.service.ID,
		PaymentMethod:   models.PaymentMethodManual,
		TotalAmount:     e.service.Price,
		BillingInterval: models.IntervalOneTime,
		PaymentStatus:   models.PaymentStatusPending,
	}
	require.NoError(t, e.repos.Order.Create(order))
	inv := models.NewInvoice(models.OneTime{OrderID: order.ID}, e.user.ID, e.service.ID, decimal.RequireFromString("29.99"), due)
	require.NoError(t, e.repos.Invoice.Create(inv))
	return inv
}

func TestSweepMarksStaleInvoiceOverdueOnce(t *testing.T) {
	e := newTestEnv(t)
	inv := e.pendingInvoice(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	jan4 := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	n, err := e.proc.SweepOverdue(context.Background(), jan4)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.repos.Invoice.GetByID(inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusOverdue, got.Status)
	assert.True(t, got.UpdatedAt.Equal(jan4))

	feed, err := e.repos.Notification.ListByUser(e.user.ID, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Contains(t, feed[0].Message, "is overdue")
	require.Len(t, e.transport.sent, 1)
	assert.Contains(t, e.transport.sent[0], "is overdue")

	n, err = e.proc.SweepOverdue(context.Background(), jan4.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	feed, err = e.repos.Notification.ListByUser(e.user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, feed, 1)
}

func TestSweepLeavesRecentAndSettledInvoices(t *testing.T) {
	e := newTestEnv(t)
	now := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	recent := e.pendingInvoice(t, now.Add(-47*time.Hour))
	paid := e.pendingInvoice(t, now.AddDate(0, 0, -10))
	_, err := e.repos.Invoice.MarkPaid(paid.ID, now.AddDate(0, 0, -9))
	require.NoError(t, err)
	boundary := e.pendingInvoice(t, now.Add(-48*time.Hour))

	n, err := e.proc.SweepOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for id, want := range map[uint]string{
		recent.ID:   models.InvoiceStatusPending,
		paid.ID:     models.InvoiceStatusPaid,
		boundary.ID: models.InvoiceStatusOverdue,
	} {
		got, err := e.repos.Invoice.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, "invoice %d", id)
	}
}

func TestRunBillingCycleIsolatesFailures(t *testing.T) {
	e := newTestEnv(t)
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ok := e.subscribe(t, jan1)
	declined := e.subscribe(t, jan1, func(s *models.Subscription) {
		method := "pm_declined"
		s.StripePaymentMethodID = &method
	})
	broken := e.subscribe(t, jan1, func(s *models.Subscription) { s.ServiceID = 9999 })
	future := e.subscribe(t, jan1.AddDate(0, 1, 0))
	stale := e.pendingInvoice(t, jan1.AddDate(0, 0, -5))

	e.proc.providers = NewProviderResolver(e.settings, &decliningProvider{fakeProvider: e.stripe, decline: "pm_declined"}, nil)

	summary, err := e.proc.RunBillingCycle(context.Background(), jan1)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Due)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Charged)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Overdue)
	assert.False(t, summary.Interrupted)

	byID := map[uint]CycleResult{}
	for _, r := range summary.Results {
		byID[r.SubscriptionID] = r
	}
	assert.True(t, byID[ok.ID].Charged)
	assert.NotEmpty(t, byID[declined.ID].Error)
	assert.Contains(t, byID[broken.ID].Error, ErrServiceMissing.Error())
	_, seen := byID[future.ID]
	assert.False(t, seen)

	got, err := e.repos.Invoice.GetByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusOverdue, got.Status)
}

func TestRunBillingCycleHonoursRunLock(t *testing.T) {
	e := newTestEnv(t)
	e.proc.locker = newMiniLocker(t)

	release, ok, err := e.proc.locker.Acquire(context.Background(), runLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = e.proc.RunBillingCycle(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrRunInProgress)

	release()
	summary, err := e.proc.RunBillingCycle(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, summary.Due)
}

func TestRunBillingCycleStopsTakingWorkWhenCancelled(t *testing.T) {
	e := newTestEnv(t)
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := e.subscribe(t, jan1)
	second := e.subscribe(t, jan1)
	stale := e.pendingInvoice(t, jan1.AddDate(0, 0, -5))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.proc.providers = NewProviderResolver(e.settings, &cancellingProvider{fakeProvider: e.stripe, cancel: cancel}, nil)

	summary, err := e.proc.RunBillingCycle(ctx, jan1)
	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Charged)
	assert.Equal(t, 1, e.stripe.callCount())

	assert.True(t, e.reload(t, first.ID).NextBillingAt.Equal(jan1.AddDate(0, 1, 0)))
	assert.True(t, e.reload(t, second.ID).NextBillingAt.Equal(jan1))

	got, err := e.repos.Invoice.GetByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPending, got.Status)
}

// cancellingProvider requests shutdown while the first charge is in flight.
type cancellingProvider struct {
	*fakeProvider
	cancel context.CancelFunc
}

func (c *cancellingProvider) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	c.cancel()
	return c.fakeProvider.Charge(ctx, req)
}

type decliningProvider struct {
	*fakeProvider
	decline string
}

func (d *decliningProvider) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.PaymentMethod == d.decline {
		return ChargeResult{}, errors.New("card_declined")
	}
	return d.fakeProvider.Charge(ctx, req)
}
