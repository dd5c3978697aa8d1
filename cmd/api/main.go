package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/nctb-tutor/internal/adapters/http"
	"github.com/kirillkom/nctb-tutor/internal/bootstrap"
	"github.com/kirillkom/nctb-tutor/internal/config"
	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/observability/logging"
	"github.com/kirillkom/nctb-tutor/internal/observability/metrics"
)

const metricsService = "api"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("nctb-api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewHTTPServerMetrics(metricsService)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Hooks{
		OnStateChange: func(state domain.ServiceState) {
			m.SetAvailabilityState(metricsService, state.String())
		},
		OnTokenUsage: func(operation, model string, promptTokens, completionTokens int) {
			m.RecordTokenUsage(metricsService, operation, model, promptTokens, completionTokens)
		},
		OnQuizFallback: func() {
			m.RecordQuizFallback(metricsService)
		},
		OnBreakerState: func(operation, _, to string) {
			m.ObserveBreakerState(metricsService, operation, to)
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
	app.Warmup(ctx)

	server := &http.Server{
		Handler:           httpadapter.NewRouter(cfg, app.Gateway, app.Curriculum, m).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		logger.Error("api_listen_failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "max_connections", cfg.APIMaxConnections)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_error", "error", err)
	}
}
