package repository

import (
	"time"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"gorm.io/gorm"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByUser(userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&subs).Error
	return subs, err
}

// List returns subscriptions newest first, optionally filtered by status.
func (r *subscriptionRepository) List(status string) ([]models.Subscription, error) {
	var subs []models.Subscription
	q := r.db.Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&subs).Error
	return subs, err
}

// UpdateFields applies a partial update and stamps updated_at.
func (r *subscriptionRepository) UpdateFields(id uint, fields map[string]interface{}, now time.Time) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["updated_at"] = now
	res := r.db.Model(&models.Subscription{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
