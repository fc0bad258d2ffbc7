// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Command runs one CLI command and returns its exit status
type Command func(ctx context.Context, args []string) int

// WithLogging wraps a command with start and completion logging
func WithLogging(name string, next Command) Command {
	return func(ctx context.Context, args []string) int {
		start := time.Now()

		slog.Debug("command started",
			"command", name,
			"args", args,
		)

		code := next(ctx, args)

		slog.Info("command completed",
			"command", name,
			"exit_code", code,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return code
	}
}

// Stage runs one step of a command and logs how long it took
func Stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()

	attrs := []any{
		"stage", name,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		slog.Debug("stage failed", append(attrs, "error", err)...)
		return err
	}
	slog.Debug("stage completed", attrs...)
	return nil
}
