package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/erpnext-gateway/internal/app"
	"github.com/odyssey-erp/erpnext-gateway/internal/auth"
	"github.com/odyssey-erp/erpnext-gateway/internal/dashboard"
	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
	"github.com/odyssey-erp/erpnext-gateway/internal/observability"
	"github.com/odyssey-erp/erpnext-gateway/internal/payments"
	"github.com/odyssey-erp/erpnext-gateway/internal/platform/cache"
	"github.com/odyssey-erp/erpnext-gateway/internal/procurement"
	"github.com/odyssey-erp/erpnext-gateway/internal/quotations"
	"github.com/odyssey-erp/erpnext-gateway/internal/shared"
	"github.com/odyssey-erp/erpnext-gateway/jobs"
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

	var redisClient *redis.Client
	if cfg.UsesRedis() {
		redisClient, err = cache.New(ctx, cfg.RedisOptions())
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	var sessionStore erp.SessionStore = erp.NewMemoryStore()
	if cfg.SessionBackend == app.SessionBackendRedis {
		sessionStore = erp.NewRedisStore(redisClient, cfg.SessionSecret, cfg.SessionTTL)
	}

	metrics := observability.NewMetrics()
	erpClient := erp.NewClient(erp.Config{BaseURL: cfg.ERPBaseURL, Timeout: cfg.ERPTimeout}, sessionStore, logger)
	erpClient.SetObserver(metrics)

	var idempotency payments.IdempotencyPort
	if redisClient != nil {
		idempotency = shared.NewIdempotencyStore(redisClient, cfg.IdempotencyRetention)
	}

	authService := auth.NewService(erpClient)
	quotationService := quotations.NewService(erpClient, logger)
	procurementService := procurement.NewService(erpClient, logger)
	paymentService := payments.NewService(erpClient, logger)
	dashboardService := dashboard.NewService(quotationService, procurementService)

	var jobHandler *jobs.Handler
	if cfg.JobsEnabled {
		redisOpt := cfg.RedisOptions().AsynqOpt()
		inspector := asynq.NewInspector(redisOpt)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobClient := jobs.NewClient(redisOpt)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, jobClient, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        auth.NewHandler(logger, authService),
		QuotationsHandler:  quotations.NewHandler(logger, quotationService),
		ProcurementHandler: procurement.NewHandler(logger, procurementService),
		PaymentsHandler:    payments.NewHandler(logger, paymentService, idempotency),
		DashboardHandler:   dashboard.NewHandler(logger, dashboardService),
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("erp", cfg.ERPBaseURL),
			slog.String("session_backend", cfg.SessionBackend),
			slog.Bool("jobs", cfg.JobsEnabled),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
