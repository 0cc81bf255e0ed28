package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	InvoiceStatusPending  = "pending"
	InvoiceStatusPaid     = "paid"
	InvoiceStatusOverdue  = "overdue"
	InvoiceStatusRefunded = "refunded"
)

var ErrInvoiceSourceMissing = errors.New("invoice has neither a subscription nor an order")

// InvoiceSource says what an invoice bills: a one-time order or one cycle of
// a recurring subscription.
type InvoiceSource interface {
	isInvoiceSource()
}

type OneTime struct {
	OrderID uint
}

type Recurring struct {
	SubscriptionID uint
	OrderID        uint
}

func (OneTime) isInvoiceSource()   {}
func (Recurring) isInvoiceSource() {}

type Invoice struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	SubscriptionID *uint           `gorm:"index" json:"subscription_id,omitempty"`
	OrderID        *uint           `gorm:"index" json:"order_id,omitempty"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	ServiceID      uint            `gorm:"not null;index" json:"service_id"`
	Total          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Status         string          `gorm:"type:varchar(16);not null;index:idx_invoices_status_due,priority:1" json:"status"`
	DueAt          time.Time       `gorm:"not null;index:idx_invoices_status_due,priority:2" json:"due_at"`
	// PeriodStart is the next_billing_at a subscription invoice was raised
	// for. Runs that retry the same cycle reuse the invoice.
	PeriodStart *time.Time `gorm:"index" json:"period_start,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewInvoice builds a pending invoice for the given source. Timestamps are
// taken from now so callers with a fixed clock get stable rows.
func NewInvoice(src InvoiceSource, userID, serviceID uint, total decimal.Decimal, now time.Time) *Invoice {
	inv := &Invoice{
		UserID:    userID,
		ServiceID: serviceID,
		Total:     total,
		Status:    InvoiceStatusPending,
		DueAt:     now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch s := src.(type) {
	case OneTime:
		inv.OrderID = uintPtr(s.OrderID)
	case Recurring:
		inv.SubscriptionID = uintPtr(s.SubscriptionID)
		inv.OrderID = uintPtr(s.OrderID)
	}
	return inv
}

// Source reconstructs the tagged source from the stored foreign keys.
func (i *Invoice) Source() (InvoiceSource, error) {
	switch {
	case i.SubscriptionID != nil:
		src := Recurring{SubscriptionID: *i.SubscriptionID}
		if i.OrderID != nil {
			src.OrderID = *i.OrderID
		}
		return src, nil
	case i.OrderID != nil:
		return OneTime{OrderID: *i.OrderID}, nil
	default:
		return nil, ErrInvoiceSourceMissing
	}
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.SubscriptionID == nil && i.OrderID == nil {
		return ErrInvoiceSourceMissing
	}
	return nil
}

// CanTransitionInvoice reports whether an invoice may move between states.
// Paid and refunded never go back to an open state.
func CanTransitionInvoice(from, to string) bool {
	switch from {
	case InvoiceStatusPending:
		return to == InvoiceStatusPaid || to == InvoiceStatusOverdue
	case InvoiceStatusOverdue:
		return to == InvoiceStatusPaid
	case InvoiceStatusPaid:
		return to == InvoiceStatusRefunded
	default:
		return false
	}
}

// OpenInvoiceStatuses are the states that still expect a payment.
var OpenInvoiceStatuses = []string{InvoiceStatusPending, InvoiceStatusOverdue}

func uintPtr(v uint) *uint {
	if v == 0 {
		return nil
	}
	return &v
}
