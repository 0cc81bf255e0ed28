package repository

import (
	"github.com/ManuelReschke/ServicePortal/app/models"
	"gorm.io/gorm"
)

type formTemplateRepository struct {
	db *gorm.DB
}

// NewFormTemplateRepository creates a new form template repository instance
func NewFormTemplateRepository(db *gorm.DB) FormTemplateRepository {
	return &formTemplateRepository{db: db}
}

// Save inserts a new template or overwrites an existing one
func (r *formTemplateRepository) Save(tpl *models.FormTemplate) error {
	return r.db.Save(tpl).Error
}

func (r *formTemplateRepository) GetByID(id uint) (*models.FormTemplate, error) {
	var tpl models.FormTemplate
	if err := r.db.First(&tpl, id).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// List returns the newest templates first
func (r *formTemplateRepository) List() ([]models.FormTemplate, error) {
	var list []models.FormTemplate
	err := r.db.Order("created_at DESC").Order("id DESC").Find(&list).Error
	return list, err
}

func (r *formTemplateRepository) Delete(id uint) error {
	res := r.db.Delete(&models.FormTemplate{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
