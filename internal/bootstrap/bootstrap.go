package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/GooferByte/wellness-rewards/internal/catalog"
	"github.com/GooferByte/wellness-rewards/internal/config"
	"github.com/GooferByte/wellness-rewards/internal/metrics"
	"github.com/GooferByte/wellness-rewards/internal/repository"
	"github.com/GooferByte/wellness-rewards/internal/repository/memory"
	"github.com/GooferByte/wellness-rewards/internal/repository/postgres"
	"github.com/GooferByte/wellness-rewards/internal/repository/redis"
	"github.com/GooferByte/wellness-rewards/internal/repository/sqlite"
	"github.com/GooferByte/wellness-rewards/internal/service"
	"github.com/sirupsen/logrus"
)

// OpenStore connects the store adapter selected by cfg.StoreDriver. The
// returned close func releases the connection.
func OpenStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (repository.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("using in-memory store. Data will reset on restart.")
		return memory.New(), noop, nil
	case config.DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, nil, fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("path", cfg.SQLitePath).Info("opened sqlite store")
		return s, s.Close, nil
	case config.DriverPostgres:
		if cfg.DBURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		db, err := sql.Open("postgres", cfg.DBURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("postgres ping failed: %w", err)
		}
		repo := postgres.New(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("connected to postgres")
		return repo, db.Close, nil
	case config.DriverRedis:
		s, err := redis.New(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Timeout:  cfg.RedisTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		log.WithField("addr", cfg.RedisAddr).Info("connected to redis")
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// Rewards returns the reward catalog from REWARD_CATALOG_FILE, or the bundled one.
func Rewards(cfg config.Config) (*catalog.RewardCatalog, error) {
	if cfg.RewardCatalogFile == "" {
		return catalog.DefaultRewards(), nil
	}
	return catalog.LoadRewards(cfg.RewardCatalogFile)
}

// Engine opens the store and the reward engine in one step. Close the engine
// before calling the returned close func.
func Engine(ctx context.Context, cfg config.Config, log *logrus.Logger, rec *metrics.Recorder) (*service.Engine, func() error, error) {
	rewards, err := Rewards(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	engine, err := service.Open(ctx, store, log, service.Config{
		Key:     cfg.StoreKey,
		Rewards: rewards,
		Metrics: rec,
	})
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	return engine, closeStore, nil
}
