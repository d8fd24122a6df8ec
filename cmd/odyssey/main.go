package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/odyssey-erp/odyssey-rpc/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-rpc/internal/app"
	"github.com/odyssey-erp/odyssey-rpc/internal/module"
	"github.com/odyssey-erp/odyssey-rpc/internal/modules"
	"github.com/odyssey-erp/odyssey-rpc/internal/observability"
	"github.com/odyssey-erp/odyssey-rpc/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rpc/internal/rbac"
	"github.com/odyssey-erp/odyssey-rpc/internal/rpc"
	"github.com/odyssey-erp/odyssey-rpc/internal/runtime"
	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()
	rt := runtime.Default(cfg, runtime.WithMetrics(metrics))
	defer rt.Close()

	if len(os.Args) > 1 && os.Args[1] == "rbac" {
		code := runRBAC(ctx, rt, cfg, os.Args[2:])
		rt.Close()
		os.Exit(code)
	}

	// A failed bootstrap is retried by the first request that needs it.
	if err := rt.EnsureInitialized(ctx); err != nil {
		logger.Warn("runtime bootstrap deferred", slog.Any("error", err))
	}

	security := shared.NewSecurityLog(logger, rt.SecurityPublisher())
	dispatcher := rpc.NewDispatcher(rpc.Options{
		Backend:  rt.RPCBackend(),
		Logger:   logger,
		Security: security,
		Observer: metrics,
		MaxBatch: rt.MaxBatch,
	})
	guard := rbac.Middleware{Service: rt.Authorizer(), Logger: logger, Security: security}

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		Metrics:     metrics,
		RPC:         rpc.NewHTTPHandler(dispatcher, false, cfg.RPCMaxBodyBytes),
		PublicRPC:   rpc.NewHTTPHandler(dispatcher, true, cfg.RPCMaxBodyBytes),
		Ready:       rt.Ready,
		Permissions: rbac.NewPermissionsHandler(logger, rt.PermissionService, guard),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func runRBAC(ctx context.Context, rt *runtime.Context, cfg *app.Config, args []string) int {
	load := func(ctx context.Context) (cli.PermissionAdmin, error) {
		svc, err := rt.PermissionService(ctx)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
	migrate := func(ctx context.Context) error {
		return db.Migrate(ctx, cfg.PGDSN, module.Migrations(modules.All()...)...)
	}
	ops, err := cli.NewRBACOpsCLI(load, migrate)
	if err != nil {
		slog.Default().Error("rbac cli", slog.Any("error", err))
		return 1
	}
	return ops.Run(ctx, args, os.Stdout, os.Stderr)
}
