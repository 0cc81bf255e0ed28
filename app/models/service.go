package models

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	IntervalOneTime = "one_time"
	IntervalMonthly = "monthly"
	IntervalAnnual  = "annual"
)

var ErrNegativePrice = errors.New("price must not be negative")

// Service is a catalogue entry clients can order. FormSchema holds the
// serialized intake form; it is parsed lazily so a broken schema never
// blocks reads.
type Service struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"type:varchar(191);not null" json:"name" validate:"required,min=1,max=191"`
	Description     string          `gorm:"type:text" json:"description" validate:"max=5000"`
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	BillingInterval string          `gorm:"type:varchar(16);not null" json:"billing_interval" validate:"oneof=one_time monthly annual"`
	Active          bool            `gorm:"not null" json:"active"`
	FormSchema      string          `gorm:"type:text" json:"form_schema"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (s *Service) Validate() error {
	if s.Price.IsNegative() {
		return ErrNegativePrice
	}
	return validator.New().Struct(s)
}

// IsRecurring reports whether orders for this service create a subscription.
func (s *Service) IsRecurring() bool {
	return IsRecurringInterval(s.BillingInterval)
}

func IsRecurringInterval(interval string) bool {
	return interval == IntervalMonthly || interval == IntervalAnnual
}
