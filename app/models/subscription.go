package models

import (
	"strings"
	"time"
)

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusPaused    = "paused"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription is the recurring half of a monthly or annual order. The billing
// processor owns NextBillingAt, Status and FailureCount.
type Subscription struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	OrderID               uint      `gorm:"not null;index" json:"order_id"`
	UserID                uint      `gorm:"not null;index" json:"user_id"`
	ServiceID             uint      `gorm:"not null;index" json:"service_id"`
	BillingInterval       string    `gorm:"type:varchar(16);not null" json:"billing_interval"`
	NextBillingAt         time.Time `gorm:"not null;index:idx_subscriptions_status_next,priority:2" json:"next_billing_at"`
	AnchorDay             int       `gorm:"not null;default:0" json:"anchor_day"`
	Status                string    `gorm:"type:varchar(16);not null;index:idx_subscriptions_status_next,priority:1" json:"status"`
	FailureCount          int       `gorm:"not null;default:0" json:"failure_count"`
	StripeCustomerID      *string   `gorm:"type:varchar(191)" json:"stripe_customer_id,omitempty"`
	StripePaymentMethodID *string   `gorm:"type:varchar(191)" json:"stripe_payment_method_id,omitempty"`
	StripeSubscriptionID  *string   `gorm:"type:varchar(191)" json:"stripe_subscription_id,omitempty"`
	PayPalSubscriptionID  *string   `gorm:"column:paypal_subscription_id;type:varchar(191)" json:"paypal_subscription_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// HasStripeProfile reports whether Stripe can charge off-session: it needs
// both a customer and a saved payment method.
func (s *Subscription) HasStripeProfile() bool {
	return present(s.StripeCustomerID) && present(s.StripePaymentMethodID)
}

func (s *Subscription) HasPayPalProfile() bool {
	return present(s.PayPalSubscriptionID)
}

func (s *Subscription) IsCancelled() bool {
	return s.Status == SubscriptionStatusCancelled
}

func present(v *string) bool {
	return v != nil && strings.TrimSpace(*v) != ""
}

// Deref returns the value of an optional identifier or "".
func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
