package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/crawler-api/internal/data/db"
	apphttp "github.com/yungbote/crawler-api/internal/http"
	"github.com/yungbote/crawler-api/internal/observability"
	"github.com/yungbote/crawler-api/internal/platform/envutil"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Server   *apphttp.Server
	Metrics  *observability.Metrics

	store        *db.Service
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	tracing := cfg.Tracing
	tracing.ServiceName, tracing.Environment, tracing.Version = cfg.ServiceName, cfg.Env, cfg.Version
	otelShutdown, err := observability.InitTracing(ctx, log, tracing)
	if err != nil {
		log.Warn("Tracing disabled", "error", err)
	}
	metrics := observability.Init(log)

	store, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := store.AutoMigrateAll(); err != nil {
			_ = store.Close()
			log.Sync()
			return nil, fmt.Errorf("database automigrate: %w", err)
		}
	}
	theDB := store.DB()

	clients, err := wireClients(cfg, log)
	if err != nil {
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients)
	handlerset := wireHandlers(log, theDB, clients, serviceset)
	server := wireServer(cfg, log, handlerset, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Server:       server,
		Metrics:      metrics,
		store:        store,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is canceled, then drains in-flight requests within
// the shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.Metrics != nil {
		var redisPing observability.Pinger
		if a.Clients.ScanBus != nil {
			redisPing = a.Clients.ScanBus.Ping
		}
		a.Metrics.StartCollectors(gctx, a.Log, a.DB, redisPing)
		a.Metrics.StartServer(gctx, a.Log, a.Cfg.MetricsAddr)
	}

	if a.Cfg.ConnectOnStart && a.Clients.Workflows != nil {
		g.Go(func() error {
			if _, err := a.Clients.Workflows.Connect(gctx); err != nil && gctx.Err() == nil {
				a.Log.Warn("Workflow engine not reachable at startup; will dial on first scan", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Server.Addr())
		if err := a.Server.Run(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	if a.Cfg.ShutdownTimeout <= 0 {
		return 15 * time.Second
	}
	return a.Cfg.ShutdownTimeout
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.Log != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
