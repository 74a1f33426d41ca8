package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/crawler-api/internal/domain"
	"github.com/yungbote/crawler-api/internal/platform/envutil"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *GaugeVec

	scanStarts      *CounterVec
	scanCompletions *CounterVec
	resultRows      *CounterVec
	skippedKeys     *CounterVec
	workflowCalls   *HistogramVec
	scansByStatus   *GaugeVec

	pgStats   *GaugeVec
	redisUp   *GaugeVec
	redisPing *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current is nil when metrics are disabled; every method tolerates a nil receiver.
func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	d := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("crawler_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"crawler_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGaugeVec("crawler_api_inflight_requests", "In-flight API requests.", nil),

		scanStarts:      NewCounterVec("crawler_scan_starts_total", "Scan creations by start outcome.", []string{"outcome"}),
		scanCompletions: NewCounterVec("crawler_scan_completions_total", "Applied completion reports by final status.", []string{"final_status"}),
		resultRows:      NewCounterVec("crawler_scan_result_upserts_total", "Per-site result rows written by status.", []string{"status"}),
		skippedKeys:     NewCounterVec("crawler_scan_skipped_site_keys_total", "Completion report keys dropped as non-numeric.", nil),
		workflowCalls: NewHistogramVec(
			"crawler_workflow_call_duration_seconds",
			"Workflow engine call latency by operation/status.",
			[]string{"op", "status"},
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		scansByStatus: NewGaugeVec("crawler_scans", "Scans by current status.", []string{"status"}),

		pgStats:   NewGaugeVec("crawler_db_pool", "database/sql pool stats.", []string{"stat"}),
		redisUp:   NewGaugeVec("crawler_redis_up", "1 when the last Redis ping succeeded.", nil),
		redisPing: NewGaugeVec("crawler_redis_ping_seconds", "Last Redis ping latency.", nil),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.scanStarts, m.scanCompletions, m.resultRows, m.skippedKeys,
		m.workflowCalls, m.scansByStatus,
		m.pgStats, m.redisUp, m.redisPing,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

// ObserveScanStart records "started" or a start failure kind.
func (m *Metrics) ObserveScanStart(outcome string) {
	if m == nil {
		return
	}
	m.scanStarts.Inc(outcome)
}

func (m *Metrics) ObserveScanCompletion(finalStatus string, completed, failed, skipped int) {
	if m == nil {
		return
	}
	m.scanCompletions.Inc(finalStatus)
	m.resultRows.Add(float64(completed), string(types.ResultStatusCompleted))
	m.resultRows.Add(float64(failed), string(types.ResultStatusFailed))
	m.skippedKeys.Add(float64(skipped))
}

func (m *Metrics) ObserveWorkflowCall(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.workflowCalls.Observe(dur.Seconds(), op, status)
}

// Pinger reports whether a dependency answers; a nil Pinger is skipped.
type Pinger func(ctx context.Context) error

// StartCollectors refreshes the scan status, pool and Redis gauges on the
// scrape interval until ctx ends.
func (m *Metrics) StartCollectors(ctx context.Context, log *logger.Logger, db *gorm.DB, redisPing Pinger) {
	if m == nil || db == nil {
		return
	}
	if log != nil {
		log = log.With("component", "metrics")
	}
	go every(ctx, scrapeInterval(), func(ctx context.Context) {
		if err := m.CollectScanStatuses(ctx, db); err != nil && log != nil {
			log.Warn("Scan status collection failed", "error", err)
		}
		if err := m.collectPool(db); err != nil && log != nil {
			log.Warn("DB pool stats unavailable", "error", err)
		}
		if redisPing != nil {
			if err := m.collectRedis(ctx, redisPing); err != nil && log != nil {
				log.Warn("Redis ping failed", "error", err)
			}
		}
	})
}

func every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// CollectScanStatuses sets crawler_scans from one grouped count; statuses with
// no rows are reported as zero.
func (m *Metrics) CollectScanStatuses(ctx context.Context, db *gorm.DB) error {
	if m == nil || db == nil {
		return nil
	}
	var counts []struct {
		Status types.ScanStatus
		N      int64
	}
	err := db.WithContext(ctx).
		Model(&types.Scan{}).
		Select("status, count(*) AS n").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return err
	}
	byStatus := make(map[types.ScanStatus]int64, len(counts))
	for _, c := range counts {
		byStatus[c.Status] = c.N
	}
	for _, st := range types.AllScanStatuses() {
		m.scansByStatus.Set(float64(byStatus[st]), string(st))
	}
	return nil
}

func (m *Metrics) collectPool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	st := sqlDB.Stats()
	for stat, v := range map[string]float64{
		"open_connections":      float64(st.OpenConnections),
		"in_use":                float64(st.InUse),
		"idle":                  float64(st.Idle),
		"wait_count":            float64(st.WaitCount),
		"wait_duration_seconds": st.WaitDuration.Seconds(),
	} {
		m.pgStats.Set(v, stat)
	}
	return nil
}

func (m *Metrics) collectRedis(ctx context.Context, ping Pinger) error {
	start := time.Now()
	if err := ping(ctx); err != nil {
		m.redisUp.Set(0)
		return err
	}
	m.redisUp.Set(1)
	m.redisPing.Set(time.Since(start).Seconds())
	return nil
}
