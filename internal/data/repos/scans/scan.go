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

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type ScanFilter struct {
	Status *types.ScanStatus
	Skip   int
	Limit  int
}

type ScanRepo interface {
	Create(dbc dbctx.Context, scan *types.Scan) error
	GetByID(dbc dbctx.Context, id uint) (*types.Scan, error)
	// GetByIDForUpdate row-locks the scan for the rest of the transaction where the
	// dialect supports it.
	GetByIDForUpdate(dbc dbctx.Context, id uint) (*types.Scan, error)
	Save(dbc dbctx.Context, scan *types.Scan) error
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uint) error
	List(dbc dbctx.Context, filter ScanFilter) ([]*types.Scan, error)
}

type scanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScanRepo(db *gorm.DB, baseLog *logger.Logger) ScanRepo {
	return &scanRepo{
		db:  db,
		log: baseLog.With("repo", "ScanRepo"),
	}
}

func (r *scanRepo) Create(dbc dbctx.Context, scan *types.Scan) error {
	if scan == nil {
		return errors.New("scan is nil")
	}
	return dbc.Conn(r.db).Create(scan).Error
}

func (r *scanRepo) GetByID(dbc dbctx.Context, id uint) (*types.Scan, error) {
	return r.get(dbc.Conn(r.db), id)
}

func (r *scanRepo) GetByIDForUpdate(dbc dbctx.Context, id uint) (*types.Scan, error) {
	return r.get(dbc.Conn(r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *scanRepo) get(q *gorm.DB, id uint) (*types.Scan, error) {
	if id == 0 {
		return nil, nil
	}
	var scan types.Scan
	err := q.Where("id = ?", id).Limit(1).Find(&scan).Error
	if err != nil {
		return nil, err
	}
	if scan.ID == 0 {
		return nil, nil
	}
	return &scan, nil
}

func (r *scanRepo) Save(dbc dbctx.Context, scan *types.Scan) error {
	if scan == nil || scan.ID == 0 {
		return errors.New("scan has no id")
	}
	return dbc.Conn(r.db).Omit(clause.Associations).Save(scan).Error
}

func (r *scanRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	if id == 0 {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).
		Model(&types.Scan{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *scanRepo) Delete(dbc dbctx.Context, id uint) error {
	if id == 0 {
		return nil
	}
	return dbc.Conn(r.db).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("scan_id = ?", id).Delete(&types.ScanResult{}).Error; err != nil {
			return err
		}
		return txx.Where("id = ?", id).Delete(&types.Scan{}).Error
	})
}

func (r *scanRepo) List(dbc dbctx.Context, filter ScanFilter) ([]*types.Scan, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	q := dbc.Conn(r.db).Model(&types.Scan{})
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	out := []*types.Scan{}
	if err := q.Order("id ASC").Offset(skip).Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
