package scans

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/yungbote/crawler-api/internal/domain"
	"github.com/yungbote/crawler-api/internal/platform/dbctx"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

type DatasheetRepo interface {
	Create(dbc dbctx.Context, ds *types.Datasheet) error
	GetByID(dbc dbctx.Context, id uint) (*types.Datasheet, error)
}

type datasheetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasheetRepo(db *gorm.DB, baseLog *logger.Logger) DatasheetRepo {
	return &datasheetRepo{
		db:  db,
		log: baseLog.With("repo", "DatasheetRepo"),
	}
}

func (r *datasheetRepo) Create(dbc dbctx.Context, ds *types.Datasheet) error {
	if ds == nil {
		return errors.New("datasheet is nil")
	}
	return dbc.Conn(r.db).Create(ds).Error
}

func (r *datasheetRepo) GetByID(dbc dbctx.Context, id uint) (*types.Datasheet, error) {
	if id == 0 {
		return nil, nil
	}
	var ds types.Datasheet
	err := dbc.Conn(r.db).
		Preload("Addresses", func(q *gorm.DB) *gorm.DB { return q.Order("id ASC") }).
		Where("id = ?", id).
		Limit(1).
		Find(&ds).Error
	if err != nil {
		return nil, err
	}
	if ds.ID == 0 {
		return nil, nil
	}
	return &ds, nil
}
