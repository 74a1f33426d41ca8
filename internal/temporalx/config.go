package temporalx

import (
	"time"

	"github.com/yungbote/crawler-api/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string
	// WorkflowName is the workflow type registered by the crawl workers.
	WorkflowName string
	// ProgressQuery is the query handler exposing per-site crawl progress.
	ProgressQuery string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	DialTimeout     time.Duration
	DialMaxWait     time.Duration
	DialBackoff     time.Duration
	DialBackoffMax  time.Duration
	AutoRegisterNS  bool
	NSRetentionDays int
}

func LoadConfig() Config {
	return Config{
		Address:       envutil.String("TEMPORAL_ADDRESS", "localhost:7233"),
		Namespace:     envutil.String("TEMPORAL_NAMESPACE", "default"),
		TaskQueue:     envutil.String("TEMPORAL_TASK_QUEUE", "crawler-queue"),
		WorkflowName:  envutil.String("TEMPORAL_CRAWL_WORKFLOW", "crawlWorkflow"),
		ProgressQuery: envutil.String("TEMPORAL_CRAWL_PROGRESS_QUERY", "getCrawlStatus"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		DialTimeout:     envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5),
		DialMaxWait:     envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 10),
		DialBackoff:     envutil.Millis("TEMPORAL_DIAL_BACKOFF_MS", 250),
		DialBackoffMax:  envutil.Millis("TEMPORAL_DIAL_BACKOFF_MAX_MS", 2000),
		AutoRegisterNS:  envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		NSRetentionDays: envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7),
	}
}

func (c Config) tlsEnabled() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
