package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/metrics"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/notify"
)

// SweepOverdue moves pending invoices whose due date is more than OverdueAfter
// in the past to overdue and notifies their owners. Each invoice changes state
// at most once; a repeated sweep finds nothing left to do.
func (p *Processor) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-p.cfg.OverdueAfter)
	invoices, err := p.store.ListStaleInvoices(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale invoices: %w", err)
	}

	var (
		swept int
		errs  []error
	)
	for i := range invoices {
		inv := invoices[i]
		moved, err := p.store.MarkInvoiceOverdue(ctx, inv.ID, now)
		if err != nil {
			log.Errorf("[Billing] invoice %d: mark overdue: %v", inv.ID, err)
			errs = append(errs, fmt.Errorf("invoice %d: %w", inv.ID, err))
			continue
		}
		if !moved {
			continue
		}
		swept++
		metrics.InvoicesOverdue.Inc()
		inv.Status = models.InvoiceStatusOverdue
		p.notifyOverdue(ctx, &inv)
	}

	if swept > 0 {
		log.Infof("[Billing] overdue sweep: %d invoice(s) marked overdue", swept)
	}
	return swept, errors.Join(errs...)
}

func (p *Processor) notifyOverdue(ctx context.Context, inv *models.Invoice) {
	user, err := p.store.GetUser(ctx, inv.UserID)
	if err != nil {
		log.Errorf("[Billing] invoice %d: load user %d for overdue notice: %v", inv.ID, inv.UserID, err)
		return
	}
	serviceName := "your service"
	if svc, err := p.store.GetService(ctx, inv.ServiceID); err == nil {
		serviceName = svc.Name
	} else {
		log.Warnf("[Billing] invoice %d: load service %d: %v", inv.ID, inv.ServiceID, err)
	}

	currency := p.settings.Get(models.SettingCurrencyCode, "GBP")
	subs := notify.Substitutions{
		notify.Name:     user.Name,
		notify.Invoice:  strconv.FormatUint(uint64(inv.ID), 10),
		notify.Service:  serviceName,
		notify.Amount:   inv.Total.StringFixed(2),
		notify.Currency: currency,
		notify.DueDate:  inv.DueAt.Format("2006-01-02"),
		notify.Company:  p.settings.Get(models.SettingCompanyName, ""),
		notify.Link:     invoicesLink,
	}
	subject := fmt.Sprintf("Invoice #%d is overdue", inv.ID)
	body := fmt.Sprintf("Hi %s,\n\nInvoice #%d for %s is overdue. Please arrange payment at your earliest convenience.", user.Name, inv.ID, serviceName)

	p.messenger.SendTemplatedMessage(models.TemplateInvoiceOverdue, subs, user.Email, subject, body)
	p.messenger.Notify(user.ID, fmt.Sprintf("Invoice #%d for %s is overdue", inv.ID, serviceName), invoicesLink)
}
