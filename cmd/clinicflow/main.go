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

	"github.com/clinicflow/clinicflow/internal/app"
	"github.com/clinicflow/clinicflow/internal/audit"
	"github.com/clinicflow/clinicflow/internal/authz"
	"github.com/clinicflow/clinicflow/internal/journey"
	"github.com/clinicflow/clinicflow/internal/observability"
	"github.com/clinicflow/clinicflow/internal/platform/cache"
	"github.com/clinicflow/clinicflow/internal/platform/db"
	"github.com/clinicflow/clinicflow/internal/shared"
	"github.com/clinicflow/clinicflow/jobs"
	"github.com/clinicflow/clinicflow/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	pool, err := db.New(ctx, db.Config{
		DSN:            cfg.PGDSN,
		MaxConns:       cfg.PGMaxConns,
		ConnectTimeout: cfg.PGConnTimeout,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable, staff board served from storage", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	journeyMetrics := observability.NewJourneyMetrics(metrics.Registerer())

	repo := journey.NewRepository(pool)
	gate := authz.NewGate()
	projection := journey.NewActiveProjection(repo, redisClient, cfg.ProjectionTTL, logger)
	auditor := shared.NewAuditLogger(pool)

	service := journey.NewService(repo, gate, logger,
		journey.WithNotifier(jobsClient),
		journey.WithAuditor(auditor),
		journey.WithMetrics(journeyMetrics),
		journey.WithProjection(projection),
	)
	handler := journey.NewHandler(logger, service, projection, gate, cfg.PollInterval)

	reportClient := report.NewClient(cfg.GotenbergURL)
	pingCtx, cancelPing := context.WithTimeout(ctx, 3*time.Second)
	if err := reportClient.Ping(pingCtx); err != nil {
		logger.Warn("gotenberg unavailable, pdf receipts degraded", slog.Any("error", err))
	} else {
		logger.Info("gotenberg reachable", slog.String("url", cfg.GotenbergURL))
	}
	cancelPing()
	reportHandler := report.NewHandler(reportClient, service, logger)
	auditHandler := audit.NewHandler(logger, audit.NewService(audit.NewRepository(pool)))

	router := app.NewRouter(app.RouterConfig{
		Middleware: app.MiddlewareConfig{
			Logger:  logger,
			Config:  cfg,
			Metrics: metrics,
		},
		JourneyHandler: handler,
		AuditHandler:   auditHandler,
		ReportHandler:  reportHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", slog.Any("error", err))
	}
}
