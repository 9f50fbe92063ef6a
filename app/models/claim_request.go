package models

import "time"

// ClaimRequest is one queued claimant on a report. The composite unique
// index makes repeat claims by the same name a no-op at the storage layer;
// insertion order is preserved by the auto-increment id.
type ClaimRequest struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	ReportID     uint      `gorm:"uniqueIndex:idx_report_claimant;not null" json:"-"`
	ClaimantName string    `gorm:"uniqueIndex:idx_report_claimant;type:varchar(150);not null" json:"claimantName"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
