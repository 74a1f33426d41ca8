package scans

import (
	"time"

	"gorm.io/datatypes"
)

// ScanResult is the outcome of one site within one scan. (scan_id, site_id) is unique.
type ScanResult struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	ScanID       uint            `gorm:"column:scan_id;not null;uniqueIndex:idx_scan_result_scan_site,priority:1" json:"scan_id"`
	SiteID       int64           `gorm:"column:site_id;not null;uniqueIndex:idx_scan_result_scan_site,priority:2" json:"site_id"`
	Status       ResultStatus    `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	Data         *datatypes.JSON `gorm:"column:data" json:"data,omitempty"`
	ErrorMessage *string         `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (ScanResult) TableName() string { return "scan_result" }

// NewCompletedResult builds a successful site outcome; error_message stays nil.
func NewCompletedResult(scanID uint, siteID int64, data []byte, now time.Time) *ScanResult {
	if len(data) == 0 {
		data = []byte("null")
	}
	payload := datatypes.JSON(data)
	return &ScanResult{
		ScanID:    scanID,
		SiteID:    siteID,
		Status:    ResultStatusCompleted,
		Data:      &payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewFailedResult builds a failed site outcome; data stays nil.
func NewFailedResult(scanID uint, siteID int64, message string, now time.Time) *ScanResult {
	return &ScanResult{
		ScanID:       scanID,
		SiteID:       siteID,
		Status:       ResultStatusFailed,
		ErrorMessage: &message,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
