// Package app opens the connections and builds the service shared by the
// server and scheduler commands.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/cache"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/notify"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/service"
)

// OpenDatabase connects with the configured driver and applies the schema
// when DATABASE_AUTO_MIGRATE is set.
func OpenDatabase(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Database.Driver, err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		log.WithField("driver", cfg.Database.Driver).Info("database schema applied")
	}

	return db, nil
}

// OpenRedis returns nil when no redis server is configured or it cannot be
// reached; the service then reads loans straight from the database.
func OpenRedis(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) *redis.Client {
	var opts *redis.Options
	switch {
	case cfg.Redis.URL != "":
		parsed, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.WithError(err).Warn("invalid REDIS_URL, running without cache")
			return nil
		}
		opts = parsed
	case cfg.Redis.Host != "":
		opts = &redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
	default:
		return nil
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).WithField("addr", opts.Addr).Warn("redis unreachable, running without cache")
		client.Close()
		return nil
	}
	return client
}

// NewLendingService wires the service over db, caching snapshots in rdb when
// it is not nil.
func NewLendingService(cfg *config.Config, db *sqlx.DB, rdb *redis.Client, log logrus.FieldLogger) *service.LendingService {
	var snapshots service.SnapshotCache
	if rdb != nil {
		snapshots = cache.NewRedisSnapshotCache(rdb, cfg.Lending.SnapshotCacheTTL)
	}

	return service.NewLendingService(
		repository.NewStore(db),
		snapshots,
		notify.NewLogNotifier(log),
		cfg,
		log,
	)
}
