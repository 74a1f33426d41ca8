package services

import (
	"errors"
	"fmt"

	types "github.com/yungbote/crawler-api/internal/domain"
	domainscans "github.com/yungbote/crawler-api/internal/domain/scans"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrWorkflowConnection = errors.New("workflow engine unreachable")
	ErrWorkflowStart      = errors.New("workflow start rejected")
	ErrReconciliation     = errors.New("scan reconciliation failed")
	ErrNoWorkflow         = errors.New("scan has no workflow")
	ErrWorkflowQuery      = errors.New("workflow query failed")
	ErrInvalidTransition  = domainscans.ErrInvalidTransition
)

// NotFoundError names the missing entity ("scan", "datasheet").
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFound(entity string, id uint) error {
	return &NotFoundError{Entity: entity, ID: id}
}

type StartFailureKind string

const (
	StartFailureConnection StartFailureKind = "connection_failure"
	StartFailureRejected   StartFailureKind = "start_failure"
	StartFailureUnexpected StartFailureKind = "unexpected_failure"
)

// ScanStartError is returned by Create after the scan row has been durably
// marked FAILED. Scan is that persisted row.
type ScanStartError struct {
	Kind StartFailureKind
	Scan *types.Scan
	Err  error
}

func (e *ScanStartError) Error() string {
	switch e.Kind {
	case StartFailureConnection:
		return fmt.Sprintf("failed to connect to workflow engine: %v", e.Err)
	case StartFailureRejected:
		return fmt.Sprintf("failed to start workflow: %v", e.Err)
	default:
		return fmt.Sprintf("failed to start crawl workflow: %v", e.Err)
	}
}

func (e *ScanStartError) Unwrap() []error {
	switch e.Kind {
	case StartFailureConnection:
		return []error{ErrWorkflowConnection, e.Err}
	case StartFailureRejected:
		return []error{ErrWorkflowStart, e.Err}
	default:
		return []error{e.Err}
	}
}
