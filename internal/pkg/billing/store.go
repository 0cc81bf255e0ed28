package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store provides DB operations used by the billing processor. Methods called on
// the Store handed to a Transaction callback run inside that transaction.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error

	GetSubscription(ctx context.Context, id uint) (*models.Subscription, error)
	LockSubscription(ctx context.Context, id uint) (*models.Subscription, error)
	ListDueSubscriptions(ctx context.Context, now time.Time) ([]models.Subscription, error)
	UpdateSubscription(ctx context.Context, id uint, fields map[string]interface{}, now time.Time) error

	GetService(ctx context.Context, id uint) (*models.Service, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)

	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	FindCycleInvoice(ctx context.Context, subscriptionID uint, periodStart time.Time) (*models.Invoice, error)
	MarkInvoicePaid(ctx context.Context, id uint, now time.Time) (bool, error)
	ListStaleInvoices(ctx context.Context, cutoff time.Time) ([]models.Invoice, error)
	MarkInvoiceOverdue(ctx context.Context, id uint, now time.Time) (bool, error)

	CreateAttempt(ctx context.Context, attempt *models.PaymentAttempt) error
	FinishAttempt(ctx context.Context, id uint, status, reference, errMsg string, now time.Time) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a billing store backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// LockSubscription re-reads the row with FOR UPDATE. SQLite serializes writers
// at the database level and has no row locks, so the clause is skipped there.
func (s *gormStore) LockSubscription(ctx context.Context, id uint) (*models.Subscription, error) {
	q := s.db.WithContext(ctx)
	if s.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var sub models.Subscription
	if err := q.First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) ListDueSubscriptions(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Where("status = ? AND next_billing_at <= ?", models.SubscriptionStatusActive, now).
		Order("next_billing_at ASC, id ASC").
		Find(&subs).Error
	return subs, err
}

func (s *gormStore) UpdateSubscription(ctx context.Context, id uint, fields map[string]interface{}, now time.Time) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["updated_at"] = now
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update subscription %d: %w", id, ErrSubscriptionMissing)
	}
	return nil
}

// GetService includes soft-deleted services so existing subscriptions keep billing.
func (s *gormStore) GetService(ctx context.Context, id uint) (*models.Service, error) {
	var svc models.Service
	if err := s.db.WithContext(ctx).Unscoped().First(&svc, id).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (s *gormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Unscoped().First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	return s.db.WithContext(ctx).Create(invoice).Error
}

// FindCycleInvoice returns the invoice raised for one billing period of a
// subscription, or nil when none exists yet.
func (s *gormStore) FindCycleInvoice(ctx context.Context, subscriptionID uint, periodStart time.Time) (*models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("subscription_id = ? AND period_start = ?", subscriptionID, periodStart).
		Order("id ASC").
		Limit(1).
		Find(&invoices).Error
	if err != nil || len(invoices) == 0 {
		return nil, err
	}
	return &invoices[0], nil
}

func (s *gormStore) MarkInvoicePaid(ctx context.Context, id uint, now time.Time) (bool, error) {
	return s.transitionInvoice(ctx, id, models.OpenInvoiceStatuses, map[string]interface{}{
		"status":     models.InvoiceStatusPaid,
		"paid_at":    now,
		"updated_at": now,
	})
}

func (s *gormStore) ListStaleInvoices(ctx context.Context, cutoff time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("status = ? AND due_at <= ?", models.InvoiceStatusPending, cutoff).
		Order("due_at ASC, id ASC").
		Find(&invoices).Error
	return invoices, err
}

// MarkInvoiceOverdue only moves pending invoices, so a second sweep is a no-op.
func (s *gormStore) MarkInvoiceOverdue(ctx context.Context, id uint, now time.Time) (bool, error) {
	return s.transitionInvoice(ctx, id, []string{models.InvoiceStatusPending}, map[string]interface{}{
		"status":     models.InvoiceStatusOverdue,
		"updated_at": now,
	})
}

func (s *gormStore) transitionInvoice(ctx context.Context, id uint, from []string, updates map[string]interface{}) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) CreateAttempt(ctx context.Context, attempt *models.PaymentAttempt) error {
	return s.db.WithContext(ctx).Create(attempt).Error
}

// FinishAttempt records the outcome of an initiated attempt. A finished
// attempt is never rewritten.
func (s *gormStore) FinishAttempt(ctx context.Context, id uint, status, reference, errMsg string, now time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptStatusInitiated).
		Updates(map[string]interface{}{
			"status":     status,
			"reference":  reference,
			"error":      errMsg,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payment attempt %d: %w", id, ErrAttemptFinished)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
