package billing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/clock"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/metrics"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/notify"
)

const invoicesLink = "dashboard#invoices"

// Messenger is the part of notify.Messenger the processor uses.
type Messenger interface {
	SendTemplatedMessage(slug string, subs notify.Substitutions, recipient, fallbackSubject, fallbackBody string) bool
	Notify(userID uint, message, link string)
}

type Config struct {
	// FailureThreshold consecutive failed charges pause a subscription.
	FailureThreshold int
	// OverdueAfter is how long a pending invoice may stay past due_at.
	OverdueAfter  time.Duration
	Workers       int
	LockTTL       time.Duration
	ChargeTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		OverdueAfter:     48 * time.Hour,
		Workers:          4,
		LockTTL:          30 * time.Minute,
		ChargeTimeout:    30 * time.Second,
	}
}

// Processor runs subscription cycles and the overdue sweep.
type Processor struct {
	store     Store
	providers ProviderResolver
	messenger Messenger
	settings  SettingsSource
	locker    Locker
	clock     clock.Clock
	cfg       Config
}

// NewProcessor wires a processor. locker may be nil for single-process use.
func NewProcessor(store Store, providers ProviderResolver, messenger Messenger, settings SettingsSource, locker Locker, clk clock.Clock, cfg Config) *Processor {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.OverdueAfter <= 0 {
		cfg.OverdueAfter = def.OverdueAfter
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = def.LockTTL
	}
	if cfg.ChargeTimeout <= 0 {
		cfg.ChargeTimeout = def.ChargeTimeout
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Processor{
		store:     store,
		providers: providers,
		messenger: messenger,
		settings:  settings,
		locker:    locker,
		clock:     clk,
		cfg:       cfg,
	}
}

// cycleOutcome carries the decisions of one cycle from its transactions to
// the notifier.
type cycleOutcome struct {
	skipped   bool
	created   bool
	settled   bool
	manual    bool
	charged   bool
	paused    bool
	sub       *models.Subscription
	invoice   *models.Invoice
	service   *models.Service
	user      *models.User
	next      time.Time
	route     Route
	attempt   *models.PaymentAttempt
	chargeErr error
}

// ProcessSubscriptionCycle bills one subscription if it is due, or always when
// force is set. A subscription that is not due is skipped without touching
// the database. Provider failures are reported in the result; the returned
// error is reserved for data problems.
//
// The cycle commits its invoice and an initiated payment attempt before the
// provider is called, and records the outcome in a second transaction. A
// charge whose outcome could not be stored is replayed by the next run with
// the same idempotency key against the same invoice.
func (p *Processor) ProcessSubscriptionCycle(ctx context.Context, sub models.Subscription, now time.Time, force bool) (CycleResult, error) {
	res := CycleResult{SubscriptionID: sub.ID}

	if !force && !isDue(&sub, now) {
		res.Skipped = true
		metrics.BillingCycles.WithLabelValues("skipped").Inc()
		return res, nil
	}
	if force && sub.IsCancelled() {
		return res, ErrSubscriptionCancelled
	}

	if p.locker != nil {
		release, ok, err := p.locker.Acquire(ctx, fmt.Sprintf(subscriptionLockKey, sub.ID), p.cfg.LockTTL)
		if err != nil {
			return res, err
		}
		if !ok {
			return res, ErrCycleInProgress
		}
		defer release()
	}

	currency := p.settings.Get(models.SettingCurrencyCode, "GBP")

	out, err := p.openCycle(ctx, sub.ID, now, force, currency)
	if err != nil {
		metrics.BillingCycles.WithLabelValues("error").Inc()
		log.Errorf("[Billing] subscription %d: cycle aborted: %v", sub.ID, err)
		return res, err
	}
	if out.skipped {
		res.Skipped = true
		metrics.BillingCycles.WithLabelValues("skipped").Inc()
		return res, nil
	}

	if out.attempt != nil {
		chargeCtx, cancel := context.WithTimeout(ctx, p.cfg.ChargeTimeout)
		charge, chargeErr := out.route.Provider.Charge(chargeCtx, ChargeRequest{
			Customer:       out.route.Customer,
			PaymentMethod:  out.route.PaymentMethod,
			Amount:         out.invoice.Total,
			Currency:       currency,
			Description:    fmt.Sprintf("Invoice #%d: %s", out.invoice.ID, out.service.Name),
			IdempotencyKey: out.attempt.IdempotencyKey,
		})
		cancel()

		if err := p.closeCycle(context.WithoutCancel(ctx), &out, charge, chargeErr, now); err != nil {
			metrics.BillingCycles.WithLabelValues("error").Inc()
			if chargeErr == nil {
				log.Errorf("[Billing] subscription %d: charge %q via %s went through but was not recorded (attempt %d stays initiated): %v",
					sub.ID, charge.Reference, out.route.Provider.Name(), out.attempt.ID, err)
			} else {
				log.Errorf("[Billing] subscription %d: failed charge via %s was not recorded: %v", sub.ID, out.route.Provider.Name(), err)
			}
			res.InvoiceID = out.invoice.ID
			return res, err
		}
	}

	res.InvoiceID = out.invoice.ID
	res.Charged = out.charged
	res.Settled = out.settled
	res.Manual = out.manual
	res.Paused = out.paused

	switch {
	case out.charged:
		metrics.BillingCycles.WithLabelValues("charged").Inc()
		log.Infof("[Billing] subscription %d: invoice %d paid via %s", sub.ID, out.invoice.ID, out.route.Provider.Name())
		p.notifyPaid(out, currency)
	case out.settled:
		metrics.BillingCycles.WithLabelValues("settled").Inc()
		log.Infof("[Billing] subscription %d: invoice %d settled without a charge", sub.ID, out.invoice.ID)
		if out.created {
			p.notifyPaid(out, currency)
		}
	case out.manual:
		metrics.BillingCycles.WithLabelValues("manual").Inc()
		log.Infof("[Billing] subscription %d: invoice %d left pending for manual settlement", sub.ID, out.invoice.ID)
		if out.created {
			p.notifyManual(out, currency)
		}
	default:
		res.Error = out.chargeErr.Error()
		metrics.BillingCycles.WithLabelValues("failed").Inc()
		log.Warnf("[Billing] subscription %d: charge for invoice %d via %s failed: %v", sub.ID, out.invoice.ID, out.route.Provider.Name(), out.chargeErr)
		if out.paused {
			log.Warnf("[Billing] subscription %d paused after %d consecutive failures", sub.ID, p.cfg.FailureThreshold)
		}
		p.notifyFailed(out, currency)
	}
	return res, nil
}

// openCycle locks the subscription, finds or raises the invoice of the current
// period and decides how it gets settled. When a provider has to be called it
// commits an initiated attempt carrying the idempotency key.
func (p *Processor) openCycle(ctx context.Context, id uint, now time.Time, force bool, currency string) (cycleOutcome, error) {
	var out cycleOutcome
	err := p.store.Transaction(ctx, func(tx Store) error {
		out = cycleOutcome{}
		locked, err := tx.LockSubscription(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("subscription %d: %w", id, ErrSubscriptionMissing)
			}
			return err
		}
		if locked.IsCancelled() {
			if force {
				return ErrSubscriptionCancelled
			}
			out.skipped = true
			return nil
		}
		if !force && !isDue(locked, now) {
			out.skipped = true
			return nil
		}

		service, err := tx.GetService(ctx, locked.ServiceID)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("service %d: %w", locked.ServiceID, ErrServiceMissing)
			}
			return err
		}
		user, err := tx.GetUser(ctx, locked.UserID)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("user %d: %w", locked.UserID, ErrUserMissing)
			}
			return err
		}
		next, err := NextBillingDate(locked.NextBillingAt, locked.BillingInterval, locked.AnchorDay)
		if err != nil {
			return fmt.Errorf("subscription %d: %w", locked.ID, err)
		}

		period := locked.NextBillingAt
		inv, err := tx.FindCycleInvoice(ctx, locked.ID, period)
		if err != nil {
			return fmt.Errorf("find cycle invoice: %w", err)
		}
		if inv == nil {
			inv = models.NewInvoice(models.Recurring{SubscriptionID: locked.ID, OrderID: locked.OrderID}, locked.UserID, locked.ServiceID, service.Price, now)
			inv.PeriodStart = &period
			if err := tx.CreateInvoice(ctx, inv); err != nil {
				return fmt.Errorf("create invoice: %w", err)
			}
			out.created = true
		}
		out.sub, out.invoice, out.service, out.user, out.next = locked, inv, service, user, next

		// Nothing left to collect: the period was settled outside the
		// cycle, or the service is free.
		if !isOpen(inv.Status) || !inv.Total.IsPositive() {
			if isOpen(inv.Status) {
				if _, err := tx.MarkInvoicePaid(ctx, inv.ID, now); err != nil {
					return fmt.Errorf("mark invoice paid: %w", err)
				}
				paidAt := now
				inv.Status = models.InvoiceStatusPaid
				inv.PaidAt = &paidAt
			}
			if err := advance(ctx, tx, locked.ID, next, now); err != nil {
				return err
			}
			out.settled = true
			return nil
		}

		route, ok := p.providers.Resolve(locked)
		if !ok {
			out.manual = true
			return nil
		}
		attempt := &models.PaymentAttempt{
			InvoiceID:      inv.ID,
			Provider:       route.Provider.Name(),
			IdempotencyKey: cycleKey(locked),
			Amount:         inv.Total,
			Currency:       currency,
			Status:         models.AttemptStatusInitiated,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.CreateAttempt(ctx, attempt); err != nil {
			return fmt.Errorf("record attempt: %w", err)
		}
		out.route, out.attempt = route, attempt
		return nil
	})
	return out, err
}

// closeCycle stores the provider outcome: the attempt is finished, and a
// success pays the invoice and advances the schedule from the period it
// billed. A schedule that moved on meanwhile is left alone.
func (p *Processor) closeCycle(ctx context.Context, out *cycleOutcome, charge ChargeResult, chargeErr error, now time.Time) error {
	return p.store.Transaction(ctx, func(tx Store) error {
		locked, err := tx.LockSubscription(ctx, out.sub.ID)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("subscription %d: %w", out.sub.ID, ErrSubscriptionMissing)
			}
			return err
		}

		if chargeErr != nil {
			if err := tx.FinishAttempt(ctx, out.attempt.ID, models.AttemptStatusFailed, charge.Reference, chargeErr.Error(), now); err != nil {
				return fmt.Errorf("finish attempt: %w", err)
			}
			failures := locked.FailureCount + 1
			fields := map[string]interface{}{"failure_count": failures}
			paused := failures >= p.cfg.FailureThreshold && locked.Status == models.SubscriptionStatusActive
			if paused {
				fields["status"] = models.SubscriptionStatusPaused
			}
			if err := tx.UpdateSubscription(ctx, locked.ID, fields, now); err != nil {
				return err
			}
			out.chargeErr, out.paused = chargeErr, paused
			return nil
		}

		if err := tx.FinishAttempt(ctx, out.attempt.ID, models.AttemptStatusSucceeded, charge.Reference, "", now); err != nil {
			return fmt.Errorf("finish attempt: %w", err)
		}
		if _, err := tx.MarkInvoicePaid(ctx, out.invoice.ID, now); err != nil {
			return fmt.Errorf("mark invoice paid: %w", err)
		}
		if locked.NextBillingAt.Equal(out.sub.NextBillingAt) {
			if err := advance(ctx, tx, locked.ID, out.next, now); err != nil {
				return err
			}
		} else {
			log.Warnf("[Billing] subscription %d: schedule moved to %s during the charge, not advancing", locked.ID, locked.NextBillingAt.Format(time.RFC3339))
		}
		paidAt := now
		out.invoice.Status = models.InvoiceStatusPaid
		out.invoice.PaidAt = &paidAt
		out.charged = true
		return nil
	})
}

func advance(ctx context.Context, tx Store, id uint, next, now time.Time) error {
	return tx.UpdateSubscription(ctx, id, map[string]interface{}{
		"next_billing_at": next,
		"failure_count":   0,
		"status":          models.SubscriptionStatusActive,
	}, now)
}

// TestSubscriptionCycle force-runs one subscription for the admin test charge.
func (p *Processor) TestSubscriptionCycle(ctx context.Context, subscriptionID uint) (CycleResult, error) {
	sub, err := p.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		if isNotFound(err) {
			return CycleResult{SubscriptionID: subscriptionID}, ErrSubscriptionMissing
		}
		return CycleResult{SubscriptionID: subscriptionID}, err
	}
	return p.ProcessSubscriptionCycle(ctx, *sub, p.clock.Now(), true)
}

func isDue(sub *models.Subscription, now time.Time) bool {
	return sub.Status == models.SubscriptionStatusActive && !sub.NextBillingAt.After(now)
}

func isOpen(status string) bool {
	for _, s := range models.OpenInvoiceStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// cycleKey identifies one charge attempt for a billing period. A retry after
// a recorded failure gets a new key; a replay of an unrecorded charge reuses
// the old one.
func cycleKey(sub *models.Subscription) string {
	name := fmt.Sprintf("subscription:%d:%d:%d", sub.ID, sub.NextBillingAt.UTC().Unix(), sub.FailureCount)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func (p *Processor) substitutions(out cycleOutcome, currency string) notify.Substitutions {
	return notify.Substitutions{
		notify.Name:     out.user.Name,
		notify.Invoice:  strconv.FormatUint(uint64(out.invoice.ID), 10),
		notify.Service:  out.service.Name,
		notify.Amount:   out.invoice.Total.StringFixed(2),
		notify.Currency: currency,
		notify.DueDate:  out.invoice.DueAt.Format("2006-01-02"),
		notify.Company:  p.settings.Get(models.SettingCompanyName, ""),
		notify.Link:     invoicesLink,
	}
}

func (p *Processor) notifyPaid(out cycleOutcome, currency string) {
	subject := fmt.Sprintf("Payment received for invoice #%d", out.invoice.ID)
	body := fmt.Sprintf("Hi %s,\n\nWe've recorded your payment of %s %s for invoice #%d covering %s.",
		out.user.Name, currency, out.invoice.Total.StringFixed(2), out.invoice.ID, out.service.Name)
	p.messenger.SendTemplatedMessage(models.TemplateInvoicePaymentSuccess, p.substitutions(out, currency), out.user.Email, subject, body)
	p.messenger.Notify(out.user.ID, fmt.Sprintf("Invoice #%d for %s has been paid", out.invoice.ID, out.service.Name), invoicesLink)
}

func (p *Processor) notifyManual(out cycleOutcome, currency string) {
	subs := p.substitutions(out, currency)
	subs[notify.ClientName] = out.user.Name
	subs[notify.ServiceName] = out.service.Name
	subs[notify.PaymentStatus] = "due"
	subject := fmt.Sprintf("Payment reminder for %s", out.service.Name)
	body := fmt.Sprintf("Hi %s,\n\nInvoice #%d for %s (%s %s) is due. Please complete the payment.",
		out.user.Name, out.invoice.ID, out.service.Name, currency, out.invoice.Total.StringFixed(2))
	p.messenger.SendTemplatedMessage(models.TemplatePaymentReminder, subs, out.user.Email, subject, body)
	p.messenger.Notify(out.user.ID, fmt.Sprintf("Invoice #%d for %s is awaiting payment", out.invoice.ID, out.service.Name), invoicesLink)
}

func (p *Processor) notifyFailed(out cycleOutcome, currency string) {
	subject := fmt.Sprintf("We could not collect payment for invoice #%d", out.invoice.ID)
	body := fmt.Sprintf("Hi %s,\n\nThe automatic payment for invoice #%d covering %s did not go through.",
		out.user.Name, out.invoice.ID, out.service.Name)
	p.messenger.SendTemplatedMessage(models.TemplatePaymentFailed, p.substitutions(out, currency), out.user.Email, subject, body)
	p.messenger.Notify(out.user.ID, fmt.Sprintf("Payment for invoice #%d failed", out.invoice.ID), invoicesLink)
}
