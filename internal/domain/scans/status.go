package scans

import (
	"fmt"
	"strings"
)

// ScanStatus is the lifecycle state of a Scan.
type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "PENDING"
	ScanStatusStarted   ScanStatus = "STARTED"
	ScanStatusFailed    ScanStatus = "FAILED"
	ScanStatusCompleted ScanStatus = "COMPLETED"
	ScanStatusPartial   ScanStatus = "PARTIAL"
)

var allScanStatuses = []ScanStatus{
	ScanStatusPending,
	ScanStatusStarted,
	ScanStatusFailed,
	ScanStatusCompleted,
	ScanStatusPartial,
}

func AllScanStatuses() []ScanStatus {
	return append([]ScanStatus(nil), allScanStatuses...)
}

// ParseScanStatus accepts any casing of a known status.
func ParseScanStatus(raw string) (ScanStatus, error) {
	v := ScanStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, s := range allScanStatuses {
		if v == s {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown scan status %q", raw)
}

func (s ScanStatus) String() string { return string(s) }

func (s ScanStatus) Valid() bool {
	_, err := ParseScanStatus(string(s))
	return err == nil
}

// IsTerminal reports whether no further engine activity is expected.
func (s ScanStatus) IsTerminal() bool {
	switch s {
	case ScanStatusFailed, ScanStatusCompleted, ScanStatusPartial:
		return true
	default:
		return false
	}
}

// IsCompletion reports whether the status records a (possibly partial) successful outcome.
func (s ScanStatus) IsCompletion() bool {
	return s == ScanStatusCompleted || s == ScanStatusPartial
}

// CanTransition: nothing moves into PENDING, STARTED is only reachable from
// PENDING, and any state may move to a terminal one so retried callbacks converge.
func (s ScanStatus) CanTransition(to ScanStatus) bool {
	if !s.Valid() || !to.Valid() {
		return false
	}
	if to == ScanStatusStarted {
		return s == ScanStatusPending
	}
	return to.IsTerminal()
}

// ResultStatus is the outcome of one site within a scan.
type ResultStatus string

const (
	ResultStatusCompleted ResultStatus = "COMPLETED"
	ResultStatusFailed    ResultStatus = "FAILED"
)
