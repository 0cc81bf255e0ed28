package repository

import (
	"time"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListByUser(userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

// UpdatePaymentStatus moves an order to status only while it is still in one
// of the from states. Price and interval snapshots are never part of the update.
func (r *orderRepository) UpdatePaymentStatus(id uint, from []string, status, reference string, now time.Time) (bool, error) {
	updates := map[string]interface{}{
		"payment_status": status,
		"updated_at":     now,
	}
	if reference != "" {
		updates["payment_reference"] = reference
	}
	res := r.db.Model(&models.Order{}).
		Where("id = ? AND payment_status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
