package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/crawler-api/internal/platform/logger"
	"github.com/yungbote/crawler-api/internal/services"
)

type Services struct {
	Notifier   services.ScanNotifier
	Scan       services.ScanService
	Reconciler services.ScanReconciler
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) Services {
	log.Info("Wiring services...")

	var publisher services.ScanEventPublisher
	if clients.ScanBus != nil {
		publisher = clients.ScanBus
	}
	notifier := services.NewScanNotifier(publisher, log)

	scanService := services.NewScanService(
		db,
		log,
		reposet.Scan,
		reposet.Datasheet,
		clients.Workflows,
		notifier,
		services.ScanWorkflowConfig{
			WorkflowName:  cfg.Temporal.WorkflowName,
			TaskQueue:     cfg.Temporal.TaskQueue,
			ProgressQuery: cfg.Temporal.ProgressQuery,
		},
	)
	reconciler := services.NewScanReconciler(db, log, reposet.Scan, reposet.ScanResult, notifier)

	return Services{
		Notifier:   notifier,
		Scan:       scanService,
		Reconciler: reconciler,
	}
}
