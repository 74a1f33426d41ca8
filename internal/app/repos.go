package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/crawler-api/internal/data/repos"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

type Repos struct {
	Scan       repos.ScanRepo
	ScanResult repos.ScanResultRepo
	Datasheet  repos.DatasheetRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Scan:       repos.NewScanRepo(db, log),
		ScanResult: repos.NewScanResultRepo(db, log),
		Datasheet:  repos.NewDatasheetRepo(db, log),
	}
}
