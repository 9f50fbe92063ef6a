package repository

import (
	"time"

	"github.com/oggatonama/oggatonama/app/models"
)

// ProfileUpdate carries the partial profile fields a user may change. Nil
// means "leave unchanged". Email, password and NID never travel this path.
type ProfileUpdate struct {
	FullName      *string
	ContactNumber *string
	PhotoURL      *string
}

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByNID(nid string) (*models.User, error)
	Update(user *models.User) error
	UpdateProfile(id uint, fields ProfileUpdate) (*models.User, error)
	Count() (int64, error)
}

// ReportRepository defines the interface for report storage and the claim
// workflow transitions. RequestClaim and Resolve are the only mutators of
// report status and the claim list; both apply their transition as a
// conditional update so racing requests cannot lose writes.
type ReportRepository interface {
	Create(report *models.Report) error
	GetByUUID(uuid string) (*models.Report, error)
	List() ([]models.Report, error)
	RequestClaim(reportID uint, claimantName string) error
	Resolve(reportID uint) error
	Count() (int64, error)
}

// CarbonRepository stores and reads per-request emission records
type CarbonRepository interface {
	Create(record *models.CarbonEmission) error
	ListSince(since time.Time) ([]models.CarbonEmission, error)
}
