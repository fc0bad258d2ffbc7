package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/danielhkuo/worldprune/cliparse"
	"github.com/danielhkuo/worldprune/db"
	"github.com/danielhkuo/worldprune/handlers"
	"github.com/danielhkuo/worldprune/router"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("Error loading .env", "error", err)
		return handlers.ExitFailure
	}

	if len(args) == 0 || args[0] == "help" {
		router.Usage(os.Stdout)
		return handlers.ExitOK
	}

	// Parse configuration
	cfg, rest, err := cliparse.ParseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			router.Usage(os.Stdout)
			return handlers.ExitOK
		}
		slog.Error("Error parsing flags", "error", err)
		return handlers.ExitFailure
	}

	slog.SetDefault(slog.New(newLogHandler(cfg)))

	// signal.Notify requires the channel to be buffered
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		slog.Warn("interrupt received, cancelling")
		cancel()
	}()

	// Connect to the database
	conn, dialect, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err, "database_type", cfg.DatabaseType)
		return handlers.ExitFailure
	}
	defer conn.Close()

	slog.Debug("database ready", "database_type", dialect.Name(), "batch_size", cfg.BatchSize)

	r := router.NewRouter(conn, dialect, cfg, handlers.StdConsole())
	return r.Dispatch(ctx, rest)
}

func newLogHandler(cfg cliparse.Config) slog.Handler {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.LogFormat) == "json" {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}
