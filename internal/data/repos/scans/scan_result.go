package scans

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/crawler-api/internal/domain"
	"github.com/yungbote/crawler-api/internal/platform/dbctx"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

type ScanResultRepo interface {
	// Upsert inserts the row or overwrites the existing (scan_id, site_id) row in a
	// single statement; the unique index arbitrates concurrent writers.
	Upsert(dbc dbctx.Context, result *types.ScanResult) error
	GetByScanAndSite(dbc dbctx.Context, scanID uint, siteID int64) (*types.ScanResult, error)
	ListByScan(dbc dbctx.Context, scanID uint) ([]*types.ScanResult, error)
	CountByScan(dbc dbctx.Context, scanID uint) (int64, error)
	DeleteByScan(dbc dbctx.Context, scanID uint) (int64, error)
}

type scanResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScanResultRepo(db *gorm.DB, baseLog *logger.Logger) ScanResultRepo {
	return &scanResultRepo{
		db:  db,
		log: baseLog.With("repo", "ScanResultRepo"),
	}
}

func (r *scanResultRepo) Upsert(dbc dbctx.Context, result *types.ScanResult) error {
	if result == nil || result.ScanID == 0 {
		return errors.New("scan result missing scan id")
	}
	now := time.Now().UTC()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	if result.UpdatedAt.IsZero() {
		result.UpdatedAt = now
	}
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scan_id"}, {Name: "site_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "data", "error_message", "updated_at"}),
		}).
		Create(result).Error
}

func (r *scanResultRepo) GetByScanAndSite(dbc dbctx.Context, scanID uint, siteID int64) (*types.ScanResult, error) {
	var out types.ScanResult
	err := dbc.Conn(r.db).
		Where("scan_id = ? AND site_id = ?", scanID, siteID).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, nil
	}
	return &out, nil
}

func (r *scanResultRepo) ListByScan(dbc dbctx.Context, scanID uint) ([]*types.ScanResult, error) {
	out := []*types.ScanResult{}
	if scanID == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("scan_id = ?", scanID).
		Order("site_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scanResultRepo) CountByScan(dbc dbctx.Context, scanID uint) (int64, error) {
	var n int64
	err := dbc.Conn(r.db).Model(&types.ScanResult{}).Where("scan_id = ?", scanID).Count(&n).Error
	return n, err
}

func (r *scanResultRepo) DeleteByScan(dbc dbctx.Context, scanID uint) (int64, error) {
	res := dbc.Conn(r.db).Where("scan_id = ?", scanID).Delete(&types.ScanResult{})
	return res.RowsAffected, res.Error
}
