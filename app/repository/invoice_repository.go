package repository

import (
	"time"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"gorm.io/gorm"
)

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository instance
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(invoice *models.Invoice) error {
	return r.db.Create(invoice).Error
}

func (r *invoiceRepository) GetByID(id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) ListByUser(userID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Where("user_id = ?", userID).Order("due_at DESC").Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) ListOpenByOrder(orderID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Where("order_id = ? AND status IN ?", orderID, models.OpenInvoiceStatuses).
		Order("id ASC").
		Find(&invoices).Error
	return invoices, err
}

// MarkPaid settles an open invoice. It reports false when the invoice was
// already settled or refunded.
func (r *invoiceRepository) MarkPaid(id uint, now time.Time) (bool, error) {
	res := r.db.Model(&models.Invoice{}).
		Where("id = ? AND status IN ?", id, models.OpenInvoiceStatuses).
		Updates(map[string]interface{}{
			"status":     models.InvoiceStatusPaid,
			"paid_at":    now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
