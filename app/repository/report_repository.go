package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggatonama/oggatonama/app/models"
)

// ErrStaleState is returned when a conditional transition matched zero rows:
// the report changed state (or vanished) between the caller's read and the
// write. Callers re-read to find out which.
var ErrStaleState = errors.New("report state changed concurrently")

// reportRepository implements the ReportRepository interface
type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository instance
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// Create persists a new report record
func (r *reportRepository) Create(report *models.Report) error {
	return r.db.Create(report).Error
}

// GetByUUID retrieves an active report by its public id, claim list in
// insertion order. Resolved reports are soft-deleted and therefore absent.
func (r *reportRepository) GetByUUID(uuid string) (*models.Report, error) {
	var report models.Report
	err := r.db.
		Preload("ClaimRequests", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("uuid = ?", uuid).
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns all active reports, newest first
func (r *reportRepository) List() ([]models.Report, error) {
	var reports []models.Report
	err := r.db.
		Preload("ClaimRequests", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Order("created_at DESC").
		Find(&reports).Error
	return reports, err
}

// RequestClaim queues claimantName on the report and moves an unclaimed
// report to pending. Both writes are conditional, so the operation is
// idempotent per claimant and safe against a concurrent identical request:
// the unique (report_id, claimant_name) key absorbs duplicate inserts and
// the status update only fires from the unclaimed state.
func (r *reportRepository) RequestClaim(reportID uint, claimantName string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Report{}).Where("id = ?", reportID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			// raced with an approval, or never existed
			return gorm.ErrRecordNotFound
		}

		claim := models.ClaimRequest{ReportID: reportID, ClaimantName: claimantName}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&claim).Error; err != nil {
			return err
		}

		return tx.Model(&models.Report{}).
			Where("id = ? AND status = ?", reportID, models.StatusUnclaimed).
			Update("status", models.StatusPending).Error
	})
}

// Resolve terminates a pending report: marks it resolved and removes it from
// the active set (soft delete). The status guard makes the whole transition
// a compare-and-set; zero matched rows means the caller's view was stale.
func (r *reportRepository) Resolve(reportID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Report{}).
			Where("id = ? AND status = ?", reportID, models.StatusPending).
			Update("status", models.StatusResolved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleState
		}
		return tx.Delete(&models.Report{}, reportID).Error
	})
}

// Count returns the number of active reports
func (r *reportRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Report{}).Count(&count).Error
	return count, err
}
