package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"traty/internal/config"
	"traty/internal/events"
	"traty/internal/log"
)

// traty-worker tails the recorded-expense event stream and writes an audit
// line per event. It is the consuming end of the queue the assistant
// publishes to; heavier downstream jobs (backups, notifications) hang off
// the same stream.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: "traty-worker",
	})
	log.SetDefault(logger)

	logger.Info("Starting traty-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = client.ConsumeExpenseRecorded(ctx, func(msg *events.ExpenseRecordedMessage) error {
		logger.Info("Expense recorded",
			"id", msg.ID,
			"user_id", msg.UserID,
			"amount_kopecks", msg.AmountKopecks,
			"category", msg.Category,
			"recorded_at", msg.RecordedAt)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Shutdown complete")
}
