package scans

import (
	"fmt"
	"time"
)

// Scan is one crawl job for a datasheet.
type Scan struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"column:name;not null;index" json:"name"`
	Description *string    `gorm:"column:description" json:"description,omitempty"`
	Status      ScanStatus `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	WorkflowID  *string    `gorm:"column:workflow_id;index" json:"workflow_id,omitempty"`
	LastError   *string    `gorm:"column:last_error" json:"last_error,omitempty"`
	DatasheetID *uint      `gorm:"column:datasheet_id;index" json:"datasheet_id,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	Results []ScanResult `gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Scan) TableName() string { return "scan" }

// TransitionTo moves the scan to next, keeping completed_at set exactly when the
// status is COMPLETED or PARTIAL. That invariant wins over leaving completed_at
// untouched on a FAILED completion, so a retried FAILED callback clears it.
func (s *Scan) TransitionTo(next ScanStatus, now time.Time) error {
	if !s.Status.CanTransition(next) {
		return fmt.Errorf("scan %d: %s -> %s: %w", s.ID, s.Status, next, ErrInvalidTransition)
	}
	s.Status = next
	s.UpdatedAt = now
	if next.IsCompletion() {
		t := now
		s.CompletedAt = &t
	} else {
		s.CompletedAt = nil
	}
	return nil
}

// MarkStarted records the engine's acknowledgement.
func (s *Scan) MarkStarted(workflowID string, now time.Time) error {
	if workflowID == "" {
		return fmt.Errorf("scan %d: empty workflow id", s.ID)
	}
	if err := s.TransitionTo(ScanStatusStarted, now); err != nil {
		return err
	}
	s.WorkflowID = &workflowID
	s.LastError = nil
	return nil
}

// MarkFailed forces FAILED; it is always reachable from PENDING and STARTED.
func (s *Scan) MarkFailed(reason string, now time.Time) error {
	if err := s.TransitionTo(ScanStatusFailed, now); err != nil {
		return err
	}
	if reason != "" {
		s.LastError = &reason
	}
	return nil
}

// WorkflowCorrelationID is the engine id for the scan; it only depends on the row id.
func WorkflowCorrelationID(scanID uint) string {
	return fmt.Sprintf("scan-%d", scanID)
}
