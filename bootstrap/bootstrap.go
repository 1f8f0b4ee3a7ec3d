// Package bootstrap opens the store selected by configuration and hands back
// the repositories together with their health checks and teardown.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calmatevibes-api/config"
	"calmatevibes-api/database"
	"calmatevibes-api/handlers"
	"calmatevibes-api/middleware"
	"calmatevibes-api/repository"

	"github.com/rs/zerolog/log"
)

type Backend struct {
	Stores  repository.Stores
	Checks  map[string]handlers.Check
	Limiter middleware.Limiter

	closers []func(context.Context) error
}

// Close releases every connection opened by Open, last opened first.
func (b *Backend) Close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	b := &Backend{Checks: map[string]handlers.Check{}}

	switch cfg.StoreDriver {
	case config.DriverMongo:
		m, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoName)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, m.Disconnect)
		if err := repository.EnsureMongoIndexes(ctx, m.DB); err != nil {
			_ = b.Close(ctx)
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		b.Stores = repository.NewMongoStores(m.DB)
		b.Checks["db"] = m.Ping

	case config.DriverPostgres:
		db, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return database.ClosePostgres(db) })
		if err := repository.MigrateGorm(db); err != nil {
			_ = b.Close(ctx)
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		b.Stores = repository.NewGormStores(db)
		b.Checks["db"] = func(ctx context.Context) error { return database.PingPostgres(ctx, db) }

	case config.DriverMemory:
		log.Warn().Msg("using the in-memory store, data is lost on restart")
		b.Stores = repository.NewMemoryStores()

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	b.Limiter = middleware.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			// the API still works without a shared limiter
			log.Warn().Err(err).Msg("redis unavailable, rate limiting per instance")
		} else {
			b.closers = append(b.closers, func(context.Context) error { return rdb.Close() })
			b.Limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitPerMinute, time.Minute)
			b.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}
	return b, nil
}
