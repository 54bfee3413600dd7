package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/reviewregistry/internal/app"
	"github.com/utafrali/reviewregistry/internal/config"
	"github.com/utafrali/reviewregistry/pkg/logger"
)

func main() {
	// Load configuration from .env (if present) and environment variables.
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(config.ServiceName, cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting review registry",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("token_oracle", cfg.TokenOracle),
		slog.String("business_oracle", cfg.BusinessOracle),
		slog.String("fee_ledger", cfg.FeeLedger),
	)

	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Run the application. This blocks until shutdown.
	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("review registry stopped")
}
