package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AttemptStatusInitiated = "initiated"
	AttemptStatusSucceeded = "succeeded"
	AttemptStatusFailed    = "failed"
)

const (
	ProviderStripe = "stripe"
	ProviderPayPal = "paypal"
)

// PaymentAttempt records one charge against an invoice. It is written as
// initiated before the provider is called and finished exactly once, so an
// attempt left initiated marks a charge whose outcome was never stored.
type PaymentAttempt struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	InvoiceID      uint            `gorm:"not null;index" json:"invoice_id"`
	Provider       string          `gorm:"type:varchar(20);not null" json:"provider"`
	IdempotencyKey string          `gorm:"type:varchar(64);index" json:"idempotency_key"`
	Reference      string          `gorm:"type:varchar(191);default:''" json:"reference"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency       string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status         string          `gorm:"type:varchar(16);not null" json:"status"`
	Error          string          `gorm:"type:text" json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
