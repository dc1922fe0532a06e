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

	"github.com/hibiken/asynq"

	"github.com/skillforge/user-service/cmd/userservice/cli"
	"github.com/skillforge/user-service/internal/app"
	"github.com/skillforge/user-service/internal/auth"
	"github.com/skillforge/user-service/internal/instructors"
	"github.com/skillforge/user-service/internal/observability"
	"github.com/skillforge/user-service/internal/platform/cache"
	"github.com/skillforge/user-service/internal/platform/db"
	"github.com/skillforge/user-service/internal/rbac"
	"github.com/skillforge/user-service/internal/reviews"
	"github.com/skillforge/user-service/internal/roles"
	"github.com/skillforge/user-service/internal/users"
	"github.com/skillforge/user-service/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
		defer func() {
			if err := jobsCLI.Close(); err != nil {
				logger.Warn("jobs cli close", slog.Any("error", err))
			}
		}()
		if err := jobsCLI.Run(ctx, os.Args[2:], os.Stdout); err != nil {
			logger.Error("jobs cli", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MinConns: cfg.PGMinConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTLeeway)
	if err != nil {
		logger.Error("init token verifier", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts, cfg.StatsUniqueWindow)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	usersService := users.NewService(users.NewRepository(pool))
	roleCache := roles.NewCache(cache.NewStore(redisClient, "usersvc"), cfg.RoleCacheTTL, logger)
	rolesService := roles.NewService(roles.NewRepository(pool), usersService, roleCache, logger)
	instructorsService := instructors.NewService(instructors.NewRepository(pool), usersService, logger)
	reviewsService := reviews.NewService(reviews.NewRepository(pool), instructorsService, jobClient, logger)

	rbacMiddleware := rbac.Middleware{Resolver: rolesService, Logger: logger}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		Authenticate:       auth.Middleware(verifier, logger),
		RolesHandler:       roles.NewHandler(logger, rolesService, rbacMiddleware),
		UsersHandler:       users.NewHandler(logger, usersService, rbacMiddleware),
		InstructorsHandler: instructors.NewHandler(logger, instructorsService, rbacMiddleware),
		ReviewsHandler:     reviews.NewHandler(logger, reviewsService, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		HealthChecks: map[string]app.HealthCheck{
			"postgres": pool.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
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
