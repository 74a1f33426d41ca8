package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	redisclient "github.com/yungbote/crawler-api/internal/clients/redis"
	"github.com/yungbote/crawler-api/internal/data/db"
	"github.com/yungbote/crawler-api/internal/observability"
	"github.com/yungbote/crawler-api/internal/platform/envutil"
	"github.com/yungbote/crawler-api/internal/platform/logger"
	"github.com/yungbote/crawler-api/internal/temporalx"
)

type Config struct {
	Env         string
	LogMode     string
	ServiceName string
	Version     string

	HTTPAddr        string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	MetricsAddr     string
	AutoMigrate     bool
	// ConnectOnStart warms the workflow connection in the background at boot.
	ConnectOnStart bool

	DB       db.Config
	Temporal temporalx.Config
	Redis    redisclient.Config
	Tracing  observability.TracingConfig
}

// fileConfig is the optional YAML overlay read from CRAWLER_CONFIG_PATH. Values
// in it replace defaults; an explicitly set env var still wins.
type fileConfig struct {
	HTTP struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"http"`
	Temporal struct {
		Address       string `yaml:"address"`
		Namespace     string `yaml:"namespace"`
		TaskQueue     string `yaml:"task_queue"`
		WorkflowName  string `yaml:"workflow_name"`
		ProgressQuery string `yaml:"progress_query"`
	} `yaml:"temporal"`
	Redis struct {
		Addr    string `yaml:"addr"`
		Channel string `yaml:"channel"`
	} `yaml:"redis"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Env:             envutil.String("APP_ENV", "development"),
		LogMode:         envutil.String("LOG_MODE", "development"),
		ServiceName:     envutil.String("SERVICE_NAME", "crawler-api"),
		Version:         envutil.String("SERVICE_VERSION", "dev"),
		HTTPAddr:        ":" + envutil.String("PORT", "8000"),
		CORSOrigins:     splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		ShutdownTimeout: envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 15),
		MetricsAddr:     envutil.String("METRICS_ADDR", ""),
		AutoMigrate:     envutil.Bool("DB_AUTO_MIGRATE", true),
		ConnectOnStart:  envutil.Bool("TEMPORAL_CONNECT_ON_START", false),
		DB:              db.LoadConfig(),
		Temporal:        temporalx.LoadConfig(),
		Redis:           redisclient.LoadConfig(),
		Tracing:         observability.LoadTracingConfig(),
	}

	path := envutil.String("CRAWLER_CONFIG_PATH", "")
	if path == "" {
		return cfg, nil
	}
	fc, err := readFileConfig(path)
	if err != nil {
		return Config{}, err
	}
	applyFileConfig(&cfg, fc)
	if log != nil {
		log.Info("Loaded config overlay", "path", path)
	}
	return cfg, nil
}

func readFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	overlay(&cfg.HTTPAddr, "PORT", fc.HTTP.Addr)
	if len(fc.HTTP.CORSOrigins) > 0 && !envSet("CORS_ALLOWED_ORIGINS") {
		cfg.CORSOrigins = fc.HTTP.CORSOrigins
	}

	overlay(&cfg.Temporal.Address, "TEMPORAL_ADDRESS", fc.Temporal.Address)
	overlay(&cfg.Temporal.Namespace, "TEMPORAL_NAMESPACE", fc.Temporal.Namespace)
	overlay(&cfg.Temporal.TaskQueue, "TEMPORAL_TASK_QUEUE", fc.Temporal.TaskQueue)
	overlay(&cfg.Temporal.WorkflowName, "TEMPORAL_CRAWL_WORKFLOW", fc.Temporal.WorkflowName)
	overlay(&cfg.Temporal.ProgressQuery, "TEMPORAL_CRAWL_PROGRESS_QUERY", fc.Temporal.ProgressQuery)

	overlay(&cfg.Redis.Addr, "REDIS_ADDR", fc.Redis.Addr)
	overlay(&cfg.Redis.Channel, "REDIS_SCAN_CHANNEL", fc.Redis.Channel)
}

func overlay(dst *string, envKey, val string) {
	val = strings.TrimSpace(val)
	if val == "" || envSet(envKey) {
		return
	}
	*dst = val
}

func envSet(key string) bool {
	return strings.TrimSpace(os.Getenv(key)) != ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
