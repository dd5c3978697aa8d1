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

	"github.com/kirillkom/nctb-tutor/internal/bootstrap"
	"github.com/kirillkom/nctb-tutor/internal/config"
	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/observability/logging"
	"github.com/kirillkom/nctb-tutor/internal/observability/metrics"
)

const (
	metricsService = "worker"
	jobTimeout     = 10 * time.Minute
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("nctb-worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Hooks{
		OnStateChange: func(state domain.ServiceState) {
			logger.Info("rag_state_changed", "state", state.String())
		},
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("shutdown_close_failed", "error", err)
		}
	}()
	if app.Queue == nil {
		reason := "NATS_URL is not set"
		if !bootstrap.SharedStores(cfg) {
			reason = "stores are process-local; set POSTGRES_DSN and VECTOR_BACKEND=qdrant"
		}
		logger.Error("worker_requires_queue", "reason", reason)
		os.Exit(1)
	}
	app.Warmup(ctx)

	m := metrics.NewWorkerMetrics(metricsService)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeIngestJobs(ctx, func(handlerCtx context.Context, job domain.IngestJob) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()

		m.StartJob()
		if !job.EnqueuedAt.IsZero() {
			m.ObserveQueueLag(metricsService, time.Since(job.EnqueuedAt))
		}
		started := time.Now()
		res, err := app.Gateway.ProcessJob(processCtx, job)
		chunks := 0
		if res != nil {
			chunks = res.ChunksCount
		}
		m.FinishJob(metricsService, time.Since(started), chunks, err)
		if err != nil {
			return err
		}
		logger.Info("ingest_job_done",
			"job_id", job.ID,
			"class_level", res.ClassLevel,
			"subject", res.Subject,
			"chunks", res.ChunksCount,
			"duplicate", res.Duplicate,
		)
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
	}
}
