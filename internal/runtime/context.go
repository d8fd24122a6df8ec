// Package runtime owns the process-wide bootstrap of shared singletons: the
// logger, the primary store, the permission cache, the model registry and
// runtime settings.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-rpc/internal/app"
	"github.com/odyssey-erp/odyssey-rpc/internal/module"
	"github.com/odyssey-erp/odyssey-rpc/internal/modules"
	"github.com/odyssey-erp/odyssey-rpc/internal/observability"
	"github.com/odyssey-erp/odyssey-rpc/internal/platform/broker"
	"github.com/odyssey-erp/odyssey-rpc/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-rpc/internal/rbac"
	"github.com/odyssey-erp/odyssey-rpc/internal/settings"
	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// ErrNotInitialized is the panic value of accessors used before bootstrap.
var ErrNotInitialized = errors.New("runtime: accessed before EnsureInitialized succeeded")

// Stores are the external connections opened in the second bootstrap step.
type Stores struct {
	Pool           *pgxpool.Pool
	Cache          *cache.Store
	RBACEvents     *broker.Producer
	SecurityEvents *broker.Producer
	// Close releases everything above. May be nil.
	Close func()
}

// Steps are the ordered bootstrap stages. A nil field keeps the default.
type Steps struct {
	InitLogging   func(ctx context.Context, cfg *app.Config) (*slog.Logger, error)
	OpenStores    func(ctx context.Context, cfg *app.Config, logger *slog.Logger, manifests []module.Manifest) (Stores, error)
	BuildRegistry func(ctx context.Context, deps module.Deps, manifests []module.Manifest) (*module.Registry, error)
	LoadSettings  func(ctx context.Context, stores Stores) (*settings.Settings, error)
}

// Option customises a Context.
type Option func(*Context)

// WithSteps overrides individual bootstrap steps.
func WithSteps(s Steps) Option {
	return func(c *Context) {
		if s.InitLogging != nil {
			c.steps.InitLogging = s.InitLogging
		}
		if s.OpenStores != nil {
			c.steps.OpenStores = s.OpenStores
		}
		if s.BuildRegistry != nil {
			c.steps.BuildRegistry = s.BuildRegistry
		}
		if s.LoadSettings != nil {
			c.steps.LoadSettings = s.LoadSettings
		}
	}
}

// WithManifests replaces the compiled-in module list.
func WithManifests(manifests ...module.Manifest) Option {
	return func(c *Context) { c.manifests = manifests }
}

// WithMetrics wires cache observations into metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Context) { c.metrics = m }
}

type state struct {
	logger      *slog.Logger
	stores      Stores
	permissions *rbac.Service
	registry    *module.Registry
	settings    *settings.Settings
	security    *shared.SecurityLog
}

// Context lazily bootstraps the shared singletons exactly once. Concurrent
// callers during bootstrap wait for the same attempt; a failed attempt is
// forgotten so the next caller starts over.
type Context struct {
	cfg       *app.Config
	steps     Steps
	manifests []module.Manifest
	metrics   *observability.Metrics

	group    singleflight.Group
	ready    atomic.Bool
	attempts atomic.Int64
	mu       sync.RWMutex
	state    *state
}

// New returns an uninitialised Context.
func New(cfg *app.Config, opts ...Option) *Context {
	if cfg == nil {
		cfg = &app.Config{}
	}
	c := &Context{cfg: cfg, steps: defaultSteps(), manifests: modules.All()}
	c.steps.OpenStores = c.openStores
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureInitialized runs the bootstrap if it has not completed yet. It returns
// early if ctx ends while waiting; the bootstrap itself keeps running.
func (c *Context) EnsureInitialized(ctx context.Context) error {
	if c.ready.Load() {
		return nil
	}
	ch := c.group.DoChan("bootstrap", func() (any, error) {
		if c.ready.Load() {
			return nil, nil
		}
		return nil, c.bootstrap(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (c *Context) bootstrap(ctx context.Context) (err error) {
	c.attempts.Add(1)

	logger, err := c.steps.InitLogging(ctx, c.cfg)
	if err != nil {
		return fmt.Errorf("runtime: init logging: %w", err)
	}
	stores, err := c.steps.OpenStores(ctx, c.cfg, logger, c.manifests)
	if err != nil {
		return fmt.Errorf("runtime: open stores: %w", err)
	}
	defer func() {
		if err != nil && stores.Close != nil {
			stores.Close()
		}
	}()
	if stores.Cache == nil {
		stores.Cache = cache.NewDisabledStore()
	}

	security := shared.NewSecurityLog(logger, stores.SecurityEvents)
	rbacOpts := []rbac.Option{rbac.WithLogger(logger), rbac.WithEventPublisher(stores.RBACEvents)}
	if len(c.cfg.AdminRoleCodes) > 0 {
		rbacOpts = append(rbacOpts, rbac.WithAdminCodes(c.cfg.AdminRoleCodes...))
	}
	var audit shared.AuditRecorder
	if stores.Pool != nil {
		audit = shared.NewAuditLogger(stores.Pool)
		rbacOpts = append(rbacOpts, rbac.WithAuditRecorder(audit))
	}
	permissions := rbac.NewService(rbac.NewRepository(stores.Pool), stores.Cache, rbacOpts...)

	registry, err := c.steps.BuildRegistry(ctx, module.Deps{
		Pool:        stores.Pool,
		Cache:       stores.Cache,
		Logger:      logger,
		Permissions: permissions,
		Audit:       audit,
		Events:      stores.RBACEvents,
	}, c.manifests)
	if err != nil {
		return fmt.Errorf("runtime: build registry: %w", err)
	}

	loaded, err := c.steps.LoadSettings(ctx, stores)
	if err != nil {
		return fmt.Errorf("runtime: load settings: %w", err)
	}

	c.mu.Lock()
	c.state = &state{
		logger:      logger,
		stores:      stores,
		permissions: permissions,
		registry:    registry,
		settings:    loaded,
		security:    security,
	}
	c.mu.Unlock()
	c.ready.Store(true)

	logger.Info("runtime ready",
		slog.Int("models", registry.Len()),
		slog.Bool("cache", stores.Cache.Enabled()),
		slog.Int("settings", len(loaded.Keys())),
	)
	return nil
}

// Ready reports whether bootstrap has completed.
func (c *Context) Ready() bool {
	return c.ready.Load()
}

// Attempts reports how many bootstrap sequences have started.
func (c *Context) Attempts() int64 {
	return c.attempts.Load()
}

// Config returns the static configuration.
func (c *Context) Config() *app.Config {
	return c.cfg
}

func (c *Context) mustState() *state {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == nil {
		panic(ErrNotInitialized)
	}
	return c.state
}

// Pool returns the primary store pool.
func (c *Context) Pool() *pgxpool.Pool { return c.mustState().stores.Pool }

// Models returns the model registry.
func (c *Context) Models() *module.Registry { return c.mustState().registry }

// Settings returns the runtime settings snapshot.
func (c *Context) Settings() *settings.Settings { return c.mustState().settings }

// Permissions returns the permission resolution engine.
func (c *Context) Permissions() *rbac.Service { return c.mustState().permissions }

// Cache returns the cache store.
func (c *Context) Cache() *cache.Store { return c.mustState().stores.Cache }

// Logger returns the bootstrap logger.
func (c *Context) Logger() *slog.Logger { return c.mustState().logger }

// Security returns the security event log.
func (c *Context) Security() *shared.SecurityLog { return c.mustState().security }

// MaxBatch returns the batch cap: the rpc.max_batch setting once loaded,
// otherwise the configured default.
func (c *Context) MaxBatch(ctx context.Context) int {
	if !c.ready.Load() {
		return c.cfg.RPCMaxBatch
	}
	return c.Settings().Int(settings.KeyRPCMaxBatch, c.cfg.RPCMaxBatch)
}

// Close releases the stores opened by bootstrap.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != nil && c.state.stores.Close != nil {
		c.state.stores.Close()
	}
}
