package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/crawler-api/internal/platform/ctxutil"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"

	maxInboundIDLen = 128
)

// AttachTraceContext stamps every request with a trace id and a request id.
// Inbound ids are honored when they look sane; the trace id otherwise comes from
// the active span, and a fresh uuid is the last resort.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := ctxutil.RequestMeta{
			RequestID: inboundID(c.GetHeader(HeaderRequestID)),
			TraceID:   inboundID(c.GetHeader(HeaderTraceID)),
		}
		if meta.RequestID == "" {
			meta.RequestID = uuid.NewString()
		}
		if meta.TraceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				meta.TraceID = sc.TraceID().String()
			} else {
				meta.TraceID = uuid.NewString()
			}
		}

		c.Request = c.Request.WithContext(ctxutil.WithRequestMeta(c.Request.Context(), meta))
		c.Set("trace_id", meta.TraceID)
		c.Set("request_id", meta.RequestID)
		h := c.Writer.Header()
		h.Set(HeaderTraceID, meta.TraceID)
		h.Set(HeaderRequestID, meta.RequestID)
		c.Next()
	}
}

func inboundID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxInboundIDLen {
		return ""
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return id
}
