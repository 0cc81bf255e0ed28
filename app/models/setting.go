package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	SettingCompanyName        = "company_name"
	SettingSupportEmail       = "support_email"
	SettingCurrencyCode       = "currency_code"
	SettingPortalURL          = "portal_url"
	SettingStripeEnabled      = "stripe_enabled"
	SettingStripeSecretKey    = "stripe_secret_key"
	SettingStripeAPIBase      = "stripe_api_base"
	SettingPayPalEnabled      = "paypal_enabled"
	SettingPayPalClientID     = "paypal_client_id"
	SettingPayPalClientSecret = "paypal_client_secret"
	SettingPayPalMode         = "paypal_mode"
)

// Setting represents a system setting
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:191;not null;uniqueIndex" json:"key" validate:"required,min=1,max=191"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required,oneof=string boolean secret"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Setting) Validate() error {
	return validator.New().Struct(s)
}

// DefaultSettings are the values used until an administrator overrides them.
var DefaultSettings = map[string]string{
	SettingCompanyName:        "Service Portal",
	SettingSupportEmail:       "support@example.com",
	SettingCurrencyCode:       "GBP",
	SettingPortalURL:          "http://localhost:4000",
	SettingStripeEnabled:      "false",
	SettingStripeSecretKey:    "",
	SettingStripeAPIBase:      "https://api.stripe.com",
	SettingPayPalEnabled:      "false",
	SettingPayPalClientID:     "",
	SettingPayPalClientSecret: "",
	SettingPayPalMode:         "sandbox",
}

// SettingType returns the storage type recorded for a key.
func SettingType(key string) string {
	switch key {
	case SettingStripeEnabled, SettingPayPalEnabled:
		return "boolean"
	case SettingStripeSecretKey, SettingPayPalClientSecret:
		return "secret"
	default:
		return "string"
	}
}
