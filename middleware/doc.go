// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware wraps CLI commands with logging.

# Command Logging

Wrap commands when registering them with the router:

	r.Handle("delete", middleware.WithLogging("delete", deleteHandler.Delete))

Logs command start (name, args) at debug and completion (exit_code,
duration_ms) at info.

# Stage Timing

Time individual steps of a command:

	err := middleware.Stage("resolve", func() error {
		plan, err = res.Resolve(ctx, conn, models.TypeWorld, id)
		return err
	})

Stage durations are logged at debug level.
*/
package middleware
