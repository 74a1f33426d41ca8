package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/crawler-api/internal/http/handlers"
	httpMW "github.com/yungbote/crawler-api/internal/http/middleware"
	"github.com/yungbote/crawler-api/internal/observability"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	ScanHandler   *httpH.ScanHandler
	HealthHandler *httpH.HealthHandler
}

var probePaths = []string{"/healthcheck", "/readyz", "/metrics"}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log, probePaths...))
	r.Use(httpMW.Metrics(cfg.Metrics, probePaths...))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	if cfg.ScanHandler != nil {
		scans := r.Group("/scans")
		{
			scans.POST("/", cfg.ScanHandler.CreateScan)
			scans.GET("/", cfg.ScanHandler.ListScans)
			scans.GET("/:id", cfg.ScanHandler.GetScan)
			scans.GET("/:id/results", cfg.ScanHandler.ListScanResults)
			scans.GET("/:id/progress", cfg.ScanHandler.GetScanProgress)
		}

		// Called by the crawl workflow, not by dashboard clients.
		internal := r.Group("/internal")
		{
			internal.POST("/scans/:id/complete", cfg.ScanHandler.CompleteScan)
		}
	}

	return r
}
