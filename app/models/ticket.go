package models

import (
	"time"
)

const (
	TicketStatusOpen           = "open"
	TicketStatusAwaitingClient = "awaiting_client"
	TicketStatusResolved       = "resolved"
	TicketStatusClosed         = "closed"
)

// TicketStatuses lists the states an admin reply may set.
var TicketStatuses = []string{TicketStatusOpen, TicketStatusAwaitingClient, TicketStatusResolved, TicketStatusClosed}

// Ticket is a support thread opened by a client. Messages are loaded only by
// the detail lookup.
type Ticket struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;index" json:"user_id"`
	Subject   string          `gorm:"type:varchar(191);not null" json:"subject"`
	Status    string          `gorm:"type:varchar(20);not null;index" json:"status"`
	Messages  []TicketMessage `gorm:"foreignKey:TicketID" json:"messages,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type TicketMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TicketID  uint      `gorm:"not null;index" json:"ticket_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	IsStaff   bool      `gorm:"not null;default:false" json:"is_staff"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func IsTicketStatus(status string) bool {
	for _, s := range TicketStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (t *Ticket) IsClosed() bool {
	return t.Status == TicketStatusClosed
}
