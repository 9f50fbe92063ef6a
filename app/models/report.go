package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportStatus is the lifecycle state of a report. Transitions only move
// forward: unclaimed -> pending -> resolved. Resolved is terminal and is
// realized as removal from the active set (soft delete).
type ReportStatus string

const (
	StatusUnclaimed ReportStatus = "unclaimed"
	StatusPending   ReportStatus = "pending"
	StatusResolved  ReportStatus = "resolved"
)

// CanTransitionTo reports whether next is a legal forward transition.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	switch s {
	case StatusUnclaimed:
		return next == StatusPending
	case StatusPending:
		return next == StatusPending || next == StatusResolved
	default:
		return false
	}
}

// Report describes one found-person sighting. Descriptive and provenance
// fields are immutable after creation; Status and ClaimRequests are owned
// exclusively by the claim workflow.
type Report struct {
	ID              uint           `gorm:"primaryKey" json:"-"`
	UUID            string         `gorm:"uniqueIndex;type:varchar(36)" json:"id"`
	Division        string         `gorm:"type:varchar(100)" json:"division"`
	District        string         `gorm:"type:varchar(100)" json:"district"`
	LocationDetail  string         `gorm:"type:varchar(255)" json:"locationDetail"`
	Age             int            `gorm:"not null" json:"age"`
	Gender          string         `gorm:"type:varchar(50)" json:"gender"`
	Height          string         `gorm:"type:varchar(50)" json:"height"`
	Clothing        string         `gorm:"type:text" json:"clothing"`
	PhotoURL        string         `gorm:"type:varchar(255)" json:"photo"`
	ThumbnailURL    string         `gorm:"type:varchar(255)" json:"thumbnail,omitempty"`
	ReporterName    string         `gorm:"type:varchar(150);index" json:"reporterName"`
	ReporterContact string         `gorm:"type:varchar(30)" json:"reporterContact"`
	Status          ReportStatus   `gorm:"type:varchar(20);default:'unclaimed'" json:"status"`
	ClaimRequests   []ClaimRequest `gorm:"foreignKey:ReportID" json:"-"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"-"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// NewReport builds a report in its initial state with a fresh public id.
func NewReport(division, district, locationDetail string, age int, gender, height, clothing, photoURL, reporterName, reporterContact string) *Report {
	return &Report{
		UUID:            uuid.New().String(),
		Division:        division,
		District:        district,
		LocationDetail:  locationDetail,
		Age:             age,
		Gender:          gender,
		Height:          height,
		Clothing:        clothing,
		PhotoURL:        photoURL,
		ReporterName:    reporterName,
		ReporterContact: reporterContact,
		Status:          StatusUnclaimed,
	}
}

// ClaimantNames returns the claim list in insertion order.
func (r *Report) ClaimantNames() []string {
	names := make([]string, 0, len(r.ClaimRequests))
	for _, cr := range r.ClaimRequests {
		names = append(names, cr.ClaimantName)
	}
	return names
}

// HasClaimant reports whether name already queued a claim.
func (r *Report) HasClaimant(name string) bool {
	for _, cr := range r.ClaimRequests {
		if cr.ClaimantName == name {
			return true
		}
	}
	return false
}

// IsReporter matches the approver against the stored reporter identity.
// Matching is by denormalized display name; see the data-model notes.
func (r *Report) IsReporter(name string) bool {
	return r.ReporterName == name
}
