package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/crawler-api/internal/platform/ctxutil"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

// RequestLogger emits one line per request; the level follows the status class.
// Health and metrics probes are only logged when they fail.
func RequestLogger(log *logger.Logger, quietPaths ...string) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "http")
	quiet := make(map[string]bool, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if quiet[c.Request.URL.Path] && status < 400 {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		kv := append([]interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}, ctxutil.LogFields(c.Request.Context())...)
		if id := c.Param("id"); id != "" {
			kv = append(kv, "scan_id", id)
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			kv = append(kv, "error", errs.String())
		}

		switch {
		case status >= 500:
			log.Error("Request failed", kv...)
		case status >= 400:
			log.Warn("Request rejected", kv...)
		default:
			log.Info("Request served", kv...)
		}
	}
}
