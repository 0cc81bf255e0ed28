package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

const (
	PaymentMethodStripe = "stripe"
	PaymentMethodPayPal = "paypal"
	PaymentMethodManual = "manual"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// Order snapshots the service price and interval at creation. TotalAmount and
// BillingInterval are never rewritten afterwards.
type Order struct {
	ID               uint                                   `gorm:"primaryKey" json:"id"`
	UserID           uint                                   `gorm:"not null;index" json:"user_id"`
	ServiceID        uint                                   `gorm:"not null;index" json:"service_id"`
	PaymentMethod    string                                 `gorm:"type:varchar(32);not null" json:"payment_method"`
	TotalAmount      decimal.Decimal                        `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	BillingInterval  string                                 `gorm:"type:varchar(16);not null" json:"billing_interval"`
	FormData         datatypes.JSONType[map[string]string] `json:"form_data"`
	PaymentStatus    string                                 `gorm:"type:varchar(16);not null;index" json:"payment_status"`
	PaymentReference string                                 `gorm:"type:varchar(191);default:''" json:"payment_reference"`
	CreatedAt        time.Time                              `json:"created_at"`
	UpdatedAt        time.Time                              `json:"updated_at"`
}

// Responses returns the stored intake form answers.
func (o *Order) Responses() map[string]string {
	if data := o.FormData.Data(); data != nil {
		return data
	}
	return map[string]string{}
}

// CanTransitionOrder reports whether an order payment status may move from
// one state to another. Paid is terminal.
func CanTransitionOrder(from, to string) bool {
	switch from {
	case PaymentStatusPending:
		return to == PaymentStatusPaid || to == PaymentStatusFailed
	case PaymentStatusFailed:
		return to == PaymentStatusPaid || to == PaymentStatusPending
	default:
		return false
	}
}
