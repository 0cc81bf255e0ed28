package repository

import (
	"github.com/ManuelReschke/ServicePortal/app/models"
	"gorm.io/gorm"
)

type serviceRepository struct {
	db *gorm.DB
}

// NewServiceRepository creates a new service repository instance
func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) Create(service *models.Service) error {
	return r.db.Create(service).Error
}

func (r *serviceRepository) Update(service *models.Service) error {
	return r.db.Save(service).Error
}

func (r *serviceRepository) GetByID(id uint) (*models.Service, error) {
	var service models.Service
	if err := r.db.First(&service, id).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *serviceRepository) GetByIDUnscoped(id uint) (*models.Service, error) {
	var service models.Service
	if err := r.db.Unscoped().First(&service, id).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *serviceRepository) ListActive() ([]models.Service, error) {
	var services []models.Service
	err := r.db.Where("active = ?", true).Order("name ASC").Find(&services).Error
	return services, err
}

// Delete soft-deletes the service and takes it off sale in one statement.
func (r *serviceRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Service{}).Where("id = ?", id).Update("active", false).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Service{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
