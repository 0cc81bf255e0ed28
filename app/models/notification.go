package models

import (
	"time"
)

// Notification is an in-app feed entry. Only ReadAt changes after insert.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Link      *string    `gorm:"type:varchar(255)" json:"link,omitempty"`
	ReadAt    *time.Time `gorm:"index:idx_notifications_user_read,priority:2" json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
