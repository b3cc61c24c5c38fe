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

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/erpnext-gateway/internal/app"
	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
	"github.com/odyssey-erp/erpnext-gateway/internal/observability"
	"github.com/odyssey-erp/erpnext-gateway/internal/platform/cache"
	"github.com/odyssey-erp/erpnext-gateway/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	if cfg.SessionBackend != app.SessionBackendRedis {
		logger.Error("worker needs SESSION_BACKEND=redis to reach the gateway's ERP session")
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
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
	store := erp.NewRedisStore(redisClient, cfg.SessionSecret, cfg.SessionTTL)
	erpClient := erp.NewClient(erp.Config{BaseURL: cfg.ERPBaseURL, Timeout: cfg.ERPTimeout}, store, logger)
	erpClient.SetObserver(metrics)

	submitJob := jobs.NewSubmitJob(erpClient, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.RedisOptions().AsynqOpt(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskERPSubmit, Handler: submitJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	opsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           app.NewWorkerRouter(metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting worker", slog.String("redis", cfg.RedisAddr), slog.Int("concurrency", cfg.WorkerConcurrency))
		return worker.Run(groupCtx)
	})
	group.Go(func() error {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return opsServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
