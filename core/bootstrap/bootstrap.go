package bootstrap

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/goldbot/core/config"
	coredatabase "github.com/m3rciful/goldbot/core/database"
	"github.com/m3rciful/goldbot/core/logger"
)

// Options control the bootstrap pipeline. Nil hooks fall back to the core implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit   func(*coreconfig.Config) error
	Connect      func(coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate      func(coreconfig.DatabaseConfig) error
	ConnectRedis func(coreconfig.RedisConfig) (*redis.Client, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// DB is nil unless records live in Postgres; Redis is nil unless sessions live in Redis.
type Result struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

// Close releases every opened connection.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger and the storage backends selected in cfg.Storage.
func Run(opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if cfg.Storage.Records == coreconfig.BackendPostgres {
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		res.DB = db

		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(cfg.Database); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	if cfg.Storage.Sessions == coreconfig.BackendRedis {
		connectRedis := opts.ConnectRedis
		if connectRedis == nil {
			connectRedis = coredatabase.ConnectRedis
		}
		client, err := connectRedis(cfg.Storage.Redis)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
		}
		res.Redis = client
	}
	return res, nil
}
