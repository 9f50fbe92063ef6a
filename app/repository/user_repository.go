package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/oggatonama/oggatonama/app/models"
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

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email. Emails are stored lowercased, so the
// lookup lowercases too and stays case-insensitive.
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByNID retrieves a user by their national id number
func (r *userRepository) GetByNID(nid string) (*models.User, error) {
	var user models.User
	err := r.db.Where("nid_number = ?", strings.TrimSpace(nid)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateProfile merges only the supplied profile fields and returns the
// refreshed record.
func (r *userRepository) UpdateProfile(id uint, fields ProfileUpdate) (*models.User, error) {
	updates := map[string]interface{}{}
	if fields.FullName != nil {
		updates["full_name"] = *fields.FullName
	}
	if fields.ContactNumber != nil {
		updates["contact_number"] = *fields.ContactNumber
	}
	if fields.PhotoURL != nil {
		updates["photo_url"] = *fields.PhotoURL
	}

	if len(updates) > 0 {
		if err := r.db.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return r.GetByID(id)
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
