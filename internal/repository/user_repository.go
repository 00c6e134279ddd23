package repository

import (
	"errors"
	"fmt"

	"github.com/advisorconnect/advisorconnect/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the data access methods for advisor accounts.
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
}

// GormUserRepository is the GORM-backed implementation of UserRepository.
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates and returns a new GormUserRepository.
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// CreateUser inserts a new user record.
func (r *GormUserRepository) CreateUser(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail fetches a user by their unique email address.
// Returns gorm.ErrRecordNotFound when no such user exists.
func (r *GormUserRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
	return &user, nil
}
