package models

import "time"

// CarbonEmission is one per-request emission estimate captured by the
// carbon-tracking middleware.
type CarbonEmission struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Endpoint         string    `gorm:"type:varchar(255);index" json:"endpoint"`
	Method           string    `gorm:"type:varchar(10)" json:"method"`
	BytesTransferred int64     `gorm:"column:bytes_transferred" json:"bytesTransferred"`
	CO2Grams         float64   `gorm:"column:co2_grams" json:"co2Emissions"`
	EnergyJoules     float64   `gorm:"column:energy_joules" json:"energyConsumed"`
	ResponseTimeMS   int64     `gorm:"column:response_time_ms" json:"responseTime"`
	UserAgent        string    `gorm:"type:varchar(255)" json:"userAgent"`
	IPAddress        string    `gorm:"type:varchar(45)" json:"ipAddress"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}
