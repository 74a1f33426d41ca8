package app

import (
	"context"

	"gorm.io/gorm"

	apphttp "github.com/yungbote/crawler-api/internal/http"
	httpH "github.com/yungbote/crawler-api/internal/http/handlers"
	"github.com/yungbote/crawler-api/internal/observability"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

type Handlers struct {
	Health *httpH.HealthHandler
	Scan   *httpH.ScanHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, clients Clients, svcs Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(readinessChecks(db, clients)),
		Scan:   httpH.NewScanHandler(svcs.Scan, svcs.Reconciler),
	}
}

func wireServer(cfg Config, log *logger.Logger, handlers Handlers, metrics *observability.Metrics) *apphttp.Server {
	return apphttp.NewServer(cfg.HTTPAddr, apphttp.RouterConfig{
		Log:           log,
		ServiceName:   cfg.ServiceName,
		CORSOrigins:   cfg.CORSOrigins,
		Metrics:       metrics,
		ScanHandler:   handlers.Scan,
		HealthHandler: handlers.Health,
	})
}

// Temporal is not probed; it is dialed lazily on the first scan start.
func readinessChecks(db *gorm.DB, clients Clients) map[string]httpH.ReadinessCheck {
	checks := map[string]httpH.ReadinessCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if clients.ScanBus != nil {
		checks["redis"] = clients.ScanBus.Ping
	}
	return checks
}
