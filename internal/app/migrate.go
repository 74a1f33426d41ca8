package app

import (
	"fmt"

	"github.com/yungbote/crawler-api/internal/data/db"
	"github.com/yungbote/crawler-api/internal/platform/envutil"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

// Migrate applies the schema and exits; it needs only the database settings.
func Migrate() error {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	cfg, err := LoadConfig(log)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := db.Open(cfg.DB, log)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.AutoMigrateAll(); err != nil {
		return fmt.Errorf("database automigrate: %w", err)
	}
	log.Info("Schema is up to date", "driver", cfg.DB.Driver)
	return nil
}
