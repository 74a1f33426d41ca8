package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/crawler-api/internal/platform/envutil"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

const tracerName = "github.com/yungbote/crawler-api"

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	Version     string
	SampleRatio float64
	// Exporter is "otlp" or "stdout". Empty picks otlp when Endpoint is set.
	Exporter string
	Endpoint string
	Insecure bool
	Headers  map[string]string
}

func LoadTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:     envutil.Bool("OTEL_ENABLED", false),
		SampleRatio: clampRatio(envutil.Float("OTEL_SAMPLER_RATIO", 0.1)),
		Exporter:    strings.ToLower(envutil.String("OTEL_TRACES_EXPORTER", "")),
		Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		Headers:     parseOTLPHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
	}
}

// InitTracing installs the global tracer provider and W3C propagators. When
// tracing is disabled the global no-op provider stays and shutdown does nothing.
func InitTracing(ctx context.Context, log *logger.Logger, cfg TracingConfig) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "crawler-api"
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.Version),
		attribute.String("deployment.environment", cfg.Environment),
	))
	if err != nil {
		return noop, fmt.Errorf("otel resource: %w", err)
	}
	exporter, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return noop, fmt.Errorf("otel exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if log != nil {
		log.Info("Tracing enabled", "service", cfg.ServiceName, "exporter", exporterKind(cfg), "ratio", cfg.SampleRatio)
	}
	return tp.Shutdown, nil
}

func exporterKind(cfg TracingConfig) string {
	if cfg.Exporter != "" {
		return cfg.Exporter
	}
	if cfg.Endpoint != "" {
		return "otlp"
	}
	return "stdout"
}

func newSpanExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch kind := exporterKind(cfg); kind {
	case "otlp":
		var opts []otlptracehttp.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		return otlptracehttp.New(ctx, opts...)
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown OTEL_TRACES_EXPORTER %q", kind)
	}
}

// StartSpan opens a span on the process tracer. Pair it with EndSpan.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func clampRatio(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// parseOTLPHeaders reads "k1=v1,k2=v2"; malformed pairs are dropped.
func parseOTLPHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(part, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if ok && key != "" && val != "" {
			headers[key] = val
		}
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}
