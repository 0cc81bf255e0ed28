package repository

import (
	"github.com/ManuelReschke/ServicePortal/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new email template repository instance
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) GetBySlug(slug string) (*models.EmailTemplate, error) {
	var tpl models.EmailTemplate
	if err := r.db.Where("slug = ?", slug).First(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *templateRepository) List() ([]models.EmailTemplate, error) {
	var list []models.EmailTemplate
	err := r.db.Order("slug ASC").Find(&list).Error
	return list, err
}

func (r *templateRepository) Save(tpl *models.EmailTemplate) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	return r.db.Save(tpl).Error
}

// EnsureDefaults inserts templates whose slug is not stored yet
func (r *templateRepository) EnsureDefaults(defaults []models.EmailTemplate) error {
	for _, d := range defaults {
		tpl := d
		err := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&tpl).Error
		if err != nil {
			return err
		}
	}
	return nil
}
