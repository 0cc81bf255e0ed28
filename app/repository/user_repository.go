package repository

import (
	"github.com/ManuelReschke/ServicePortal/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListAdmins returns every active administrator
func (r *userRepository) ListAdmins() ([]models.User, error) {
	var users []models.User
	err := r.db.Where("role = ? AND status = ?", models.ROLE_ADMIN, models.STATUS_ACTIVE).
		Order("id ASC").
		Find(&users).Error
	return users, err
}

// ListClients returns client accounts, newest first
func (r *userRepository) ListClients() ([]models.User, error) {
	var users []models.User
	err := r.db.Where("role = ?", models.ROLE_CLIENT).
		Order("created_at DESC").
		Order("id DESC").
		Find(&users).Error
	return users, err
}
