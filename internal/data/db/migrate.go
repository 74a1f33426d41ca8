package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/crawler-api/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// Person records (read by scans)
		&types.Datasheet{},
		&types.DatasheetAddress{},

		// Scan lifecycle
		&types.Scan{},
		&types.ScanResult{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Running auto migrations")
	return AutoMigrateAll(s.db)
}
