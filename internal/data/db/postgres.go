package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/crawler-api/internal/platform/envutil"
	"github.com/yungbote/crawler-api/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string
	// DSN wins over the discrete Postgres fields when set.
	DSN string

	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns int
	MaxIdleConns int
}

func LoadConfig() Config {
	return Config{
		Driver:       strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres)),
		DSN:          envutil.String("DATABASE_URL", ""),
		Host:         envutil.String("POSTGRES_HOST", "localhost"),
		Port:         envutil.String("POSTGRES_PORT", "5432"),
		User:         envutil.String("POSTGRES_USER", "postgres"),
		Password:     envutil.String("POSTGRES_PASSWORD", ""),
		Name:         envutil.String("POSTGRES_NAME", "crawler"),
		SSLMode:      envutil.String("POSTGRES_SSLMODE", "disable"),
		MaxOpenConns: envutil.Int("DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns: envutil.Int("DB_MAX_IDLE_CONNS", 5),
	}
}

func (c Config) postgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to the configured store. SQLite is meant for local runs and tests.
func Open(cfg Config, logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DBService", "driver", cfg.Driver)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres, "":
		dialector = postgres.Open(cfg.postgresDSN())
	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file:crawler.db?_foreign_keys=on"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent requests.
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}

	serviceLog.Info("Connected to database")
	return &Service{db: db, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
