// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/worldprune/cliparse"
	"github.com/danielhkuo/worldprune/db"
	"github.com/danielhkuo/worldprune/handlers"
	"github.com/danielhkuo/worldprune/middleware"
)

const usage = `Usage: worldprune [global flags] <command> [args]

Commands:
  delete <world_id>    Delete a world and everything that depends on it
      -f, --force        skip the yes/no confirmation
      -n, --dry-run      print the plan, delete nothing
      -o, --output       text (default) or json
  fallback <world_id>  Print the manual deletion SQL for this database
  schema               Print the dependency graph
  help                 Show this help

Global flags:
  -d, --database-url   database URL or SQLite path (DATABASE_URL)
  -t, --database-type  sqlite (default) or postgres (DATABASE_TYPE)
  -c, --config         YAML config file (WORLDPRUNE_CONFIG)
      --log-level      debug, info, warn, error (LOG_LEVEL)
      --log-format     text or json (LOG_FORMAT)
      --batch-size     ids bound per statement (BATCH_SIZE)

Exit status: 0 success, 1 world not found, 2 failed and rolled back, 3 aborted.
`

// Usage writes the command summary
func Usage(w io.Writer) {
	fmt.Fprint(w, usage)
}

// Router maps command words to handlers
type Router struct {
	commands map[string]middleware.Command
	console  handlers.Console
}

func NewRouter(conn *sqlx.DB, dialect db.Dialect, cfg cliparse.Config, console handlers.Console) *Router {
	r := &Router{
		commands: make(map[string]middleware.Command),
		console:  console,
	}

	// Initialize handlers
	deleteHandler := handlers.NewDeleteHandler(conn, dialect, cfg, console)
	fallbackHandler := handlers.NewFallbackHandler(conn, dialect, cfg, console)
	schemaHandler := handlers.NewSchemaHandler(console)

	r.Handle("delete", middleware.WithLogging("delete", deleteHandler.Delete))
	r.Handle("fallback", middleware.WithLogging("fallback", fallbackHandler.Fallback))
	r.Handle("schema", middleware.WithLogging("schema", schemaHandler.Schema))

	r.Handle("help", func(ctx context.Context, args []string) int {
		Usage(console.Out)
		return handlers.ExitOK
	})

	return r
}

// Handle registers cmd under name, replacing any previous command
func (r *Router) Handle(name string, cmd middleware.Command) {
	r.commands[name] = cmd
}

// Dispatch runs the command named by args[0] and returns its exit status
func (r *Router) Dispatch(ctx context.Context, args []string) int {
	if len(args) == 0 {
		Usage(r.console.Err)
		return handlers.ExitFailure
	}

	cmd, ok := r.commands[args[0]]
	if !ok {
		slog.Error("unknown command", "command", args[0])
		fmt.Fprintf(r.console.Err, "unknown command %q\n\n", args[0])
		Usage(r.console.Err)
		return handlers.ExitFailure
	}
	return cmd(ctx, args[1:])
}
