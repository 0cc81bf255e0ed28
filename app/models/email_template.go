package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	TemplateOrderNewAdmin         = "order_new_admin"
	TemplateOrderConfirmation     = "order_confirmation_client"
	TemplateInvoicePaymentSuccess = "invoice_payment_success"
	TemplateInvoiceOverdue        = "invoice_overdue"
	TemplatePaymentFailed         = "payment_failed"
	TemplatePaymentReminder       = "payment_reminder"
	TemplateTicketNewAdmin        = "ticket_new_admin"
	TemplateTicketReplyClient     = "ticket_reply_client"
	TemplateInviteClient          = "invite_client"
)

// EmailTemplate is a subject/body pair addressed by slug. Bodies carry
// {{placeholder}} tokens.
type EmailTemplate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"slug" validate:"required,max=100"`
	Name      string    `gorm:"type:varchar(191);not null" json:"name" validate:"required,max=191"`
	Subject   string    `gorm:"type:varchar(255);not null" json:"subject" validate:"required,max=255"`
	Body      string    `gorm:"type:text;not null" json:"body" validate:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *EmailTemplate) Validate() error {
	return validator.New().Struct(t)
}

// DefaultEmailTemplates are inserted at startup when their slug is missing.
var DefaultEmailTemplates = []EmailTemplate{
	{
		Slug:    TemplateOrderNewAdmin,
		Name:    "New order notification (admin)",
		Subject: "New order from {{client_name}}",
		Body:    "A new order for {{service_name}} has been placed by {{client_name}}. Total: {{currency}} {{total_amount}}.",
	},
	{
		Slug:    TemplateOrderConfirmation,
		Name:    "Order confirmation (client)",
		Subject: "We received your order for {{service_name}}",
		Body:    "Hi {{client_name}},\n\nThanks for ordering {{service_name}}. We will review it and get back to you shortly.\n\n{{company}}",
	},
	{
		Slug:    TemplateInvoicePaymentSuccess,
		Name:    "Payment received",
		Subject: "Payment received for invoice #{{invoice}}",
		Body:    "Hi {{name}},\n\nWe've recorded your payment of {{currency}} {{amount}} for invoice #{{invoice}} covering {{service}}.\n\n{{company}}",
	},
	{
		Slug:    TemplateInvoiceOverdue,
		Name:    "Invoice overdue",
		Subject: "Invoice #{{invoice}} is overdue",
		Body:    "Hi {{name}},\n\nInvoice #{{invoice}} for {{service}} is overdue. Please arrange payment at your earliest convenience.\n\n{{company}}",
	},
	{
		Slug:    TemplatePaymentFailed,
		Name:    "Payment failed",
		Subject: "We could not collect payment for invoice #{{invoice}}",
		Body:    "Hi {{name}},\n\nThe automatic payment for invoice #{{invoice}} covering {{service}} did not go through. We will retry on the next billing run.\n\n{{company}}",
	},
	{
		Slug:    TemplatePaymentReminder,
		Name:    "Payment reminder",
		Subject: "Payment reminder for {{service_name}}",
		Body:    "Hi {{client_name}},\n\nThis is a friendly reminder that payment for {{service_name}} is {{payment_status}}. Please complete the payment.",
	},
	{
		Slug:    TemplateTicketNewAdmin,
		Name:    "New ticket (admin)",
		Subject: "Support request from {{client_name}}",
		Body:    "A new support ticket \"{{subject}}\" was opened by {{client_name}}.",
	},
	{
		Slug:    TemplateTicketReplyClient,
		Name:    "Ticket reply (client)",
		Subject: "New reply to \"{{subject}}\"",
		Body:    "Hi {{client_name}},\n\nWe have responded to your ticket \"{{subject}}\". Log in to view the message.",
	},
	{
		Slug:    TemplateInviteClient,
		Name:    "Client invitation",
		Subject: "You have been invited to the client portal",
		Body:    "Hi {{client_name}},\n\nWe created an account for you. Use the following password to sign in: {{password}}\n\nPortal URL: {{portal_url}}",
	},
}
