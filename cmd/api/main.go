package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bizhub-backend/api"
	"github.com/angelmondragon/bizhub-backend/api/controllers"
	"github.com/angelmondragon/bizhub-backend/api/middleware"
	"github.com/angelmondragon/bizhub-backend/api/routes"
	"github.com/angelmondragon/bizhub-backend/internal/audit"
	"github.com/angelmondragon/bizhub-backend/internal/auth"
	"github.com/angelmondragon/bizhub-backend/internal/authz"
	"github.com/angelmondragon/bizhub-backend/internal/categories"
	product "github.com/angelmondragon/bizhub-backend/internal/products"
	"github.com/angelmondragon/bizhub-backend/internal/refreshtokens"
	"github.com/angelmondragon/bizhub-backend/internal/roles"
	"github.com/angelmondragon/bizhub-backend/internal/users"
	"github.com/angelmondragon/bizhub-backend/pkg/config"
	"github.com/angelmondragon/bizhub-backend/pkg/db"
	"github.com/angelmondragon/bizhub-backend/pkg/instance"
	"github.com/angelmondragon/bizhub-backend/pkg/logger"
	"github.com/angelmondragon/bizhub-backend/pkg/metrics"
	"github.com/angelmondragon/bizhub-backend/pkg/migrate"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
	"github.com/angelmondragon/bizhub-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	auditWriter, err := audit.NewWriter(audit.WriterParams{
		Repo:       audit.NewRepository(conn),
		Logger:     logg,
		BufferSize: cfg.Audit.BufferSize,
	})
	exitOnError(logg, "failed to create audit writer", err)

	authMetrics := metrics.NewAuthMetrics(prometheus.DefaultRegisterer)

	usersRepo := users.NewRepository(conn)
	rolesRepo := roles.NewRepository(conn)
	categoriesRepo := categories.NewRepository(conn)

	resolver, err := authz.NewResolver(authz.ResolverParams{
		Source:   rolesRepo,
		Cache:    redisClient,
		CacheTTL: cfg.Authz.ScopeCacheTTL,
		Logger:   logg,
	})
	exitOnError(logg, "failed to create scope resolver", err)

	tokensRepo := refreshtokens.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		Users:          usersRepo,
		Tokens:         tokensRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Metrics:        authMetrics,
		Audit:          auditWriter,
		Logger:         logg,
	})
	exitOnError(logg, "failed to create auth service", err)

	usersService, err := users.NewService(users.ServiceParams{
		Repo:           usersRepo,
		Roles:          rolesRepo,
		Resolver:       resolver,
		Sessions:       authService,
		Counter:        tokensRepo,
		PasswordConfig: cfg.Password,
		Audit:          auditWriter,
	})
	exitOnError(logg, "failed to create users service", err)

	rolesService, err := roles.NewService(roles.ServiceParams{
		Repo:     rolesRepo,
		Users:    usersRepo,
		Resolver: resolver,
		Audit:    auditWriter,
	})
	exitOnError(logg, "failed to create roles service", err)

	categoriesService, err := categories.NewService(categoriesRepo, dbClient, auditWriter)
	exitOnError(logg, "failed to create categories service", err)

	productsService, err := product.NewService(product.NewRepository(conn), dbClient, categoriesRepo, auditWriter)
	exitOnError(logg, "failed to create products service", err)

	auditService, err := audit.NewService(audit.NewRepository(conn))
	exitOnError(logg, "failed to create audit service", err)

	guard, err := middleware.NewScopeGuard(middleware.ScopeGuardParams{
		Resolver: resolver,
		Audit:    auditWriter,
		Metrics:  authMetrics,
		Logger:   logg,
	})
	exitOnError(logg, "failed to create scope guard", err)

	fields, err := pagination.NewRegistry(
		product.FieldMapping,
		categories.FieldMapping,
		users.FieldMapping,
		roles.FieldMapping,
		audit.FieldMapping,
	)
	exitOnError(logg, "failed to build field registry", err)

	trustedProxies, err := cfg.App.TrustedProxyPrefixes()
	exitOnError(logg, "invalid trusted proxies", err)

	handler := routes.NewRouter(routes.RouterParams{
		Config:      cfg,
		Logger:      logg,
		RateLimiter: redisClient,
		ScopeGuard:  guard,
		Fields:      fields,
		Readiness: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Services: routes.Services{
			Auth:       authService,
			Users:      usersService,
			Products:   productsService,
			Categories: categoriesService,
			Roles:      rolesService,
			Audit:      auditService,
		},
		TrustedProxies: trustedProxies,
	})

	server := api.NewServer(cfg.App, handler)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     server.Addr,
		"instance": instance.ID(),
	})

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-signalCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)

	var errs error
	errs = multierr.Append(errs, server.Shutdown(shutdownCtx))
	errs = multierr.Append(errs, auditWriter.Close(shutdownCtx))
	errs = multierr.Append(errs, redisClient.Close())
	errs = multierr.Append(errs, dbClient.Close())
	cancel()
	if errs != nil {
		logg.Error(ctx, "error during shutdown", errs)
		exitCode = 1
	}

	logg.Info(ctx, "api server stopped")
	os.Exit(exitCode)
}

func exitOnError(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
