package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/crawler-api/internal/data/repos/scans"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

type ScanRepo = scans.ScanRepo
type ScanResultRepo = scans.ScanResultRepo
type DatasheetRepo = scans.DatasheetRepo

type ScanFilter = scans.ScanFilter

const (
	DefaultListLimit = scans.DefaultListLimit
	MaxListLimit     = scans.MaxListLimit
)

func NewScanRepo(db *gorm.DB, baseLog *logger.Logger) ScanRepo {
	return scans.NewScanRepo(db, baseLog)
}
func NewScanResultRepo(db *gorm.DB, baseLog *logger.Logger) ScanResultRepo {
	return scans.NewScanResultRepo(db, baseLog)
}
func NewDatasheetRepo(db *gorm.DB, baseLog *logger.Logger) DatasheetRepo {
	return scans.NewDatasheetRepo(db, baseLog)
}
