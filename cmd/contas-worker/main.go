package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"contas/internal/amqp"
	"contas/internal/config"
	applog "contas/internal/log"
	"contas/internal/services"
	"contas/internal/storage"
	"contas/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting contas-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The event consumer is optional; the extension loop alone keeps
	// open-ended series topped up.
	var consumer worker.EventConsumer
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event consumption", "error", err)
		} else {
			defer amqpClient.Close()
			consumer = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - worker will only extend series")
	}

	extender := services.NewSeriesExtender(repo, int64(cfg.ExtendThreshold))
	seriesWorker := worker.NewSeriesWorker(extender, consumer, cfg.ExtendInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Series worker configured",
		"interval", cfg.ExtendInterval,
		"threshold", cfg.ExtendThreshold,
		"sqlite_db", cfg.SQLiteDBPath)

	if err := seriesWorker.Run(ctx); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
