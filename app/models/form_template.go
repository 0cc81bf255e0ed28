package models

import (
	"time"
)

// FormTemplate is a reusable intake form. Schema holds the same serialized
// field list as Service.FormSchema.
type FormTemplate struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(191);not null" json:"name" validate:"required,min=1,max=191"`
	Description string    `gorm:"type:text" json:"description" validate:"max=5000"`
	Schema      string    `gorm:"type:text;not null" json:"schema"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
