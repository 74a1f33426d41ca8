package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainscans "github.com/yungbote/crawler-api/internal/domain/scans"
	"github.com/yungbote/crawler-api/internal/platform/envutil"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

const DefaultScanChannel = "scan-events"

type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func LoadConfig() Config {
	return Config{
		Addr:     strings.TrimSpace(envutil.String("REDIS_ADDR", "")),
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
		Channel:  strings.TrimSpace(envutil.String("REDIS_SCAN_CHANNEL", DefaultScanChannel)),
	}
}

func (c Config) Enabled() bool { return c.Addr != "" }

// ScanBus fans scan status changes out to other processes over Redis pub/sub.
type ScanBus interface {
	Publish(ctx context.Context, ev domainscans.StatusEvent) error
	Ping(ctx context.Context) error
	Close() error
}

type scanBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewScanBus(cfg Config, log *logger.Logger) (ScanBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultScanChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &scanBus{
		log:     log.With("service", "RedisScanBus"),
		rdb:     rdb,
		channel: cfg.Channel,
	}, nil
}

func (b *scanBus) Publish(ctx context.Context, ev domainscans.StatusEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis scan bus not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Ping checks the connection; used by the readiness probe.
func (b *scanBus) Ping(ctx context.Context) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis scan bus not initialized")
	}
	return b.rdb.Ping(ctx).Err()
}

func (b *scanBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
