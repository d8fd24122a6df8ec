package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-rpc/internal/app"
	"github.com/odyssey-erp/odyssey-rpc/internal/module"
	"github.com/odyssey-erp/odyssey-rpc/internal/platform/broker"
	"github.com/odyssey-erp/odyssey-rpc/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-rpc/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rpc/internal/settings"
)

func defaultSteps() Steps {
	return Steps{
		InitLogging:   initLogging,
		BuildRegistry: buildRegistry,
		LoadSettings:  loadSettings,
	}
}

func initLogging(ctx context.Context, cfg *app.Config) (*slog.Logger, error) {
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)
	return logger, nil
}

// openStores connects PostgreSQL, applies every module's migrations, and
// attaches the cache and event producers. An unreachable cache degrades to
// per-call misses instead of failing the bootstrap.
func (c *Context) openStores(ctx context.Context, cfg *app.Config, logger *slog.Logger, manifests []module.Manifest) (Stores, error) {
	pool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		return Stores{}, err
	}
	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, cfg.PGDSN, module.Migrations(manifests...)...); err != nil {
			pool.Close()
			return Stores{}, err
		}
	}

	stores := Stores{Pool: pool, Cache: cache.NewDisabledStore()}
	closers := []func(){pool.Close}
	if cfg.CacheEnabled {
		opts := cache.ClientOptions{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
		client, err := cache.New(ctx, opts)
		if err != nil {
			logger.Warn("cache unavailable at startup, continuing without it until it answers", slog.Any("error", err))
			client = cache.NewClient(opts)
		}
		var observer cache.Observer
		if c.metrics != nil {
			observer = c.metrics
		}
		stores.Cache = cache.NewStore(client, logger, observer)
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		})
	}

	stores.RBACEvents = broker.NewProducer(logger, cfg.KafkaBrokers, cfg.KafkaRBACTopic)
	stores.SecurityEvents = broker.NewProducer(logger, cfg.KafkaBrokers, cfg.KafkaSecurityTopic)
	closers = append(closers, stores.RBACEvents.Close, stores.SecurityEvents.Close)

	stores.Close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return stores, nil
}

func buildRegistry(ctx context.Context, deps module.Deps, manifests []module.Manifest) (*module.Registry, error) {
	return module.NewRegistry(deps, manifests...)
}

func loadSettings(ctx context.Context, stores Stores) (*settings.Settings, error) {
	if stores.Pool == nil {
		return nil, fmt.Errorf("no primary store")
	}
	return settings.Load(ctx, stores.Pool)
}
