package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yungbote/crawler-api/internal/platform/envutil"
)

// Logger is a key/value logger over zap's SugaredLogger. Values under person or
// credential keys are redacted before they reach the sink. Its method set also
// satisfies the Temporal SDK logger interface.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
	redact        *redactor
}

// New builds a logger for mode: "prod"/"production" emits JSON at info, "test"
// keeps warnings and above, anything else is the development console encoder.
// LOG_LEVEL overrides the level of any mode.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	level := zapcore.DebugLevel
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		level = zapcore.InfoLevel
	case "test":
		cfg = zap.NewDevelopmentConfig()
		level = zapcore.WarnLevel
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	if raw := envutil.String("LOG_LEVEL", ""); raw != "" {
		parsed, err := zapcore.ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		level = parsed
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{
		SugaredLogger: z.Sugar(),
		redact: newRedactor(
			envutil.Bool("LOG_REDACTION_ENABLED", true),
			envutil.String("LOG_HASH_SALT", ""),
		),
	}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), redact: newRedactor(true, "")}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, l.redact.kvs(keysAndValues)...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, l.redact.kvs(keysAndValues)...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, l.redact.kvs(keysAndValues)...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, l.redact.kvs(keysAndValues)...)
}

func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, l.redact.kvs(keysAndValues)...)
}

// With returns a child logger carrying the given fields on every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(l.redact.kvs(keysAndValues)...),
		redact:        l.redact,
	}
}

// Datasheets are person records: names, street addresses and contact channels
// never reach the sink in clear text. Client addresses are hashed so requests
// from one caller still correlate.
var (
	redactedKeys = []string{
		"first_name", "firstname",
		"middle_name", "middlename",
		"last_name", "lastname",
		"street", "zip",
		"phone", "email",
		"password", "secret", "token", "authorization", "api_key",
	}
	hashedKeys = []string{"remote_ip", "client_ip"}
)

type redactor struct {
	enabled bool
	salt    string
}

func newRedactor(enabled bool, salt string) *redactor {
	return &redactor{enabled: enabled, salt: salt}
}

func (r *redactor) kvs(kv []interface{}) []interface{} {
	if r == nil || !r.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key := stringify(kv[i])
		out = append(out, key, r.value(normalizeKey(key), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func (r *redactor) value(key string, val interface{}) interface{} {
	switch {
	case key == "":
		return val
	case matchesAny(key, redactedKeys):
		return "[REDACTED]"
	case matchesAny(key, hashedKeys):
		return r.hash(val)
	}
	if nested, ok := val.(map[string]interface{}); ok {
		out := make(map[string]interface{}, len(nested))
		for k, v := range nested {
			out[k] = r.value(normalizeKey(k), v)
		}
		return out
	}
	return val
}

func (r *redactor) hash(val interface{}) string {
	raw := stringify(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

func matchesAny(key string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
