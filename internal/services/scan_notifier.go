package services

import (
	"context"

	types "github.com/yungbote/crawler-api/internal/domain"
	domainscans "github.com/yungbote/crawler-api/internal/domain/scans"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

type ScanNotifier interface {
	ScanStatusChanged(ctx context.Context, scan *types.Scan)
}

type ScanEventPublisher interface {
	Publish(ctx context.Context, ev domainscans.StatusEvent) error
}

type scanNotifier struct {
	bus ScanEventPublisher
	log *logger.Logger
}

// NewScanNotifier publishes best-effort: a failed publish is logged and never
// fails the operation that changed the scan. A nil bus yields a no-op notifier.
func NewScanNotifier(bus ScanEventPublisher, baseLog *logger.Logger) ScanNotifier {
	return &scanNotifier{bus: bus, log: baseLog.With("service", "ScanNotifier")}
}

func (n *scanNotifier) ScanStatusChanged(ctx context.Context, scan *types.Scan) {
	if n == nil || n.bus == nil || scan == nil {
		return
	}
	ev := scan.StatusEvent()
	if err := n.bus.Publish(context.WithoutCancel(ctx), ev); err != nil {
		n.log.Warn("Scan event publish failed", "scan_id", ev.ScanID, "status", ev.Status, "error", err)
	}
}
