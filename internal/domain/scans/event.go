package scans

import "time"

// StatusEvent is broadcast whenever a scan's status is persisted.
type StatusEvent struct {
	ScanID      uint       `json:"scan_id"`
	Status      ScanStatus `json:"status"`
	WorkflowID  string     `json:"workflow_id,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	At          time.Time  `json:"at"`
}

func (s *Scan) StatusEvent() StatusEvent {
	ev := StatusEvent{
		ScanID:      s.ID,
		Status:      s.Status,
		CompletedAt: s.CompletedAt,
		At:          s.UpdatedAt,
	}
	if s.WorkflowID != nil {
		ev.WorkflowID = *s.WorkflowID
	}
	return ev
}
