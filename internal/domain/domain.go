package domain

import "github.com/yungbote/crawler-api/internal/domain/scans"

type (
	Scan             = scans.Scan
	ScanStatus       = scans.ScanStatus
	ScanResult       = scans.ScanResult
	ResultStatus     = scans.ResultStatus
	Datasheet        = scans.Datasheet
	DatasheetAddress = scans.DatasheetAddress
	CrawlTarget      = scans.CrawlTarget
)

var (
	AllScanStatuses = scans.AllScanStatuses
	ParseScanStatus = scans.ParseScanStatus
)

const (
	ScanStatusPending   = scans.ScanStatusPending
	ScanStatusStarted   = scans.ScanStatusStarted
	ScanStatusFailed    = scans.ScanStatusFailed
	ScanStatusCompleted = scans.ScanStatusCompleted
	ScanStatusPartial   = scans.ScanStatusPartial

	ResultStatusCompleted = scans.ResultStatusCompleted
	ResultStatusFailed    = scans.ResultStatusFailed
)
