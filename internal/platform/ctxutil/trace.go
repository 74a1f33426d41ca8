package ctxutil

import "context"

type requestMetaKey struct{}

// RequestMeta identifies the inbound request a context belongs to.
type RequestMeta struct {
	TraceID   string
	RequestID string
}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(Default(ctx), requestMetaKey{}, meta)
}

func RequestMetaFrom(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta, ok
}

// LogFields returns trace_id/request_id key-value pairs for logger.With.
func LogFields(ctx context.Context) []interface{} {
	meta, ok := RequestMetaFrom(ctx)
	if !ok {
		return nil
	}
	var kv []interface{}
	if meta.TraceID != "" {
		kv = append(kv, "trace_id", meta.TraceID)
	}
	if meta.RequestID != "" {
		kv = append(kv, "request_id", meta.RequestID)
	}
	return kv
}

// Default returns ctx, or context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
