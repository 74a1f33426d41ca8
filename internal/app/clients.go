package app

import (
	"fmt"

	redisclient "github.com/yungbote/crawler-api/internal/clients/redis"
	"github.com/yungbote/crawler-api/internal/platform/logger"
	"github.com/yungbote/crawler-api/internal/temporalx"
)

type Clients struct {
	// ScanBus is nil when REDIS_ADDR is unset.
	ScanBus   redisclient.ScanBus
	Workflows *temporalx.WorkflowClient
}

func wireClients(cfg Config, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var bus redisclient.ScanBus
	if cfg.Redis.Enabled() {
		b, err := redisclient.NewScanBus(cfg.Redis, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis scan bus: %w", err)
		}
		bus = b
	}

	// Temporal (dialed on first use)
	workflows := temporalx.NewWorkflowClient(cfg.Temporal, log)

	return Clients{
		ScanBus:   bus,
		Workflows: workflows,
	}, nil
}

func (c Clients) Close() {
	if c.Workflows != nil {
		c.Workflows.Close()
	}
	if c.ScanBus != nil {
		_ = c.ScanBus.Close()
	}
}
