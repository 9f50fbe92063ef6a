package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/oggatonama/oggatonama/app/models"
)

// carbonRepository implements the CarbonRepository interface
type carbonRepository struct {
	db *gorm.DB
}

// NewCarbonRepository creates a new carbon emission repository instance
func NewCarbonRepository(db *gorm.DB) CarbonRepository {
	return &carbonRepository{db: db}
}

// Create persists one emission record
func (r *carbonRepository) Create(record *models.CarbonEmission) error {
	return r.db.Create(record).Error
}

// ListSince returns all records newer than the given instant, oldest first
func (r *carbonRepository) ListSince(since time.Time) ([]models.CarbonEmission, error) {
	var records []models.CarbonEmission
	err := r.db.
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}
