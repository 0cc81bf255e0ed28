package repository

import (
	"time"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"gorm.io/gorm"
)

type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository creates a new ticket repository instance
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

// Create inserts the ticket together with its initial messages
func (r *ticketRepository) Create(ticket *models.Ticket) error {
	return r.db.Create(ticket).Error
}

func (r *ticketRepository) AddMessage(msg *models.TicketMessage) error {
	return r.db.Create(msg).Error
}

// GetByID loads a ticket with its thread, oldest message first
func (r *ticketRepository) GetByID(id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC").Order("id ASC")
	}).First(&ticket, id).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListByUser returns the user's tickets, most recently active first
func (r *ticketRepository) ListByUser(userID uint, search string) ([]models.Ticket, error) {
	var list []models.Ticket
	q := r.db.Where("user_id = ?", userID)
	if search != "" {
		q = q.Where("subject LIKE ?", "%"+search+"%")
	}
	err := q.Order("updated_at DESC").Order("id DESC").Find(&list).Error
	return list, err
}

// List returns every ticket, optionally filtered by status and subject
func (r *ticketRepository) List(status, search string) ([]models.Ticket, error) {
	var list []models.Ticket
	q := r.db.Model(&models.Ticket{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if search != "" {
		q = q.Where("subject LIKE ?", "%"+search+"%")
	}
	err := q.Order("updated_at DESC").Order("id DESC").Find(&list).Error
	return list, err
}

func (r *ticketRepository) UpdateStatus(id uint, status string, now time.Time) error {
	res := r.db.Model(&models.Ticket{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
