// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the commands of the worldprune CLI.

# Handler Types

Each handler is a struct with database, config and console dependencies:

  - DeleteHandler: plan, confirm and execute the deletion of a world
  - FallbackHandler: print the manual deletion procedure
  - SchemaHandler: print the schema graph

Handlers are created via constructor functions:

	deleteHandler := handlers.NewDeleteHandler(conn, dialect, cfg, handlers.StdConsole())

Every command has the signature of middleware.Command: it takes the
arguments after the command word and returns the process exit status.

# Delete Flow

	worldprune delete 18 --dry-run   → plan only, nothing is written
	worldprune delete 18             → plan, ask yes/no, execute
	worldprune delete 18 --force     → plan, execute

Confirmation needs a terminal on stdin. Without one, delete refuses to
run unless --force is given.

# Exit Status

	0  success (or dry run)
	1  world not found
	2  execution failed and was rolled back, or bad input
	3  aborted by the operator

# Output

Plans, reports and errors go to Console.Out in the format chosen with
--output. Logs go to stderr through slog.
*/
package handlers
