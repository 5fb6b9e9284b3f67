package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"traty/internal/chat"
	"traty/internal/config"
	"traty/internal/dialog"
	"traty/internal/events"
	"traty/internal/log"
	"traty/internal/stats"
	"traty/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: "traty",
	})
	log.SetDefault(logger)

	logger.Info("Starting traty")

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

	// Event publishing is optional; an empty AMQP URL disables it and the
	// assistant keeps working against the local store alone.
	var publisher dialog.Publisher
	if cfg.AMQPURL != "" {
		eventsClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		publisher = eventsClient
		logger.Info("Event publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Event publishing disabled - no AMQP_URL provided")
	}

	engine := dialog.NewEngine(repo, stats.NewService(repo), publisher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runConsole(ctx, engine, logger.WithComponent("console"))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Console transport failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Shutdown complete")
}

// runConsole is a line-oriented stand-in for a chat transport. Each input
// line is "<userID> <text>"; the reply text and its option rows are printed
// back. A real network transport would feed the engine the same way.
func runConsole(ctx context.Context, engine *dialog.Engine, logger *log.Logger) error {
	type line struct {
		text string
		err  error
	}
	lines := make(chan line)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- line{text: scanner.Text()}
		}
		if err := scanner.Err(); err != nil {
			lines <- line{err: err}
		}
	}()

	fmt.Println("traty console: <userID> <text>, Ctrl-D to exit")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			if l.err != nil {
				return fmt.Errorf("read input: %w", l.err)
			}
			input := strings.TrimSpace(l.text)
			if input == "" {
				continue
			}

			userID, text, err := parseLine(input)
			if err != nil {
				fmt.Println(err)
				continue
			}

			reply, err := engine.Handle(ctx, chat.Incoming{
				UserID:      userID,
				DisplayName: fmt.Sprintf("user%d", userID),
				Text:        text,
			})
			if err != nil {
				logger.ErrorContext(ctx, "Message handling failed", "user_id", userID, "error", err)
			}
			printReply(reply)
		}
	}
}

func parseLine(input string) (int64, string, error) {
	id, rest, found := strings.Cut(input, " ")
	if !found {
		return 0, "", errors.New("expected: <userID> <text>")
	}
	userID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid user ID %q", id)
	}
	return userID, strings.TrimSpace(rest), nil
}

func printReply(reply chat.Reply) {
	fmt.Println(reply.Text)
	for _, row := range reply.Options {
		fmt.Printf("  [%s]\n", strings.Join(row, " | "))
	}
}
