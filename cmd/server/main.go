package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/playfield/internal/api"
	"github.com/mcoot/playfield/internal/api/middleware"
	"github.com/mcoot/playfield/internal/config"
	"github.com/mcoot/playfield/internal/factory"
	"github.com/mcoot/playfield/internal/logging"
	pgstorage "github.com/mcoot/playfield/internal/storage/postgres"
	redisstorage "github.com/mcoot/playfield/internal/storage/redis"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup happens before exit
func run() int {
	// Bootstrap logger until configuration is loaded
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	envCfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return 1
	}

	logger, logCloser, err := logging.New(logging.Config{Level: envCfg.LogLevel, File: envCfg.LogFile}, os.Stdout)
	if err != nil {
		slog.Error("failed to set up logging", slog.String("error", err.Error()))
		return 1
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(logger)

	// Build factory config from environment
	cfg := factory.Config{
		Logger:      logger,
		StorageType: envCfg.StorageType,
		RateLimit: middleware.RateLimitConfig{
			PerSecond: envCfg.WriteRateLimit,
			Burst:     envCfg.WriteRateBurst,
		},
	}

	switch cfg.StorageType {
	case factory.StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = envCfg.RedisURL
		cfg.RedisConfig = &redisCfg
	case factory.StorageTypePostgres:
		pgCfg := pgstorage.DefaultConfig()
		pgCfg.URL = envCfg.DatabaseURL
		pgCfg.AutoMigrate = envCfg.AutoMigrate
		cfg.PostgresConfig = &pgCfg
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create application factory
	app, err := factory.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return 1
	}
	app.Start()
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Addr = envCfg.Addr
	server := api.NewServer(app.Handler(), serverConfig, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", app.StorageType),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			return 1
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}
