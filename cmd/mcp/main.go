package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/nctb-tutor/internal/adapters/mcp"
	"github.com/kirillkom/nctb-tutor/internal/bootstrap"
	"github.com/kirillkom/nctb-tutor/internal/config"
	"github.com/kirillkom/nctb-tutor/internal/observability/logging"
)

// stdout carries the MCP stream, so logs go to stderr.
func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "nctb-mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Hooks{})
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

	tools := mcpadapter.NewTools(app.Gateway, app.Curriculum, cfg.RAGTopK)
	logger.Info("mcp_stdio_serving")
	if err := server.ServeStdio(tools.NewServer()); err != nil {
		logger.Error("mcp_server_error", "error", err)
	}
}
