// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router maps worldprune command words to handlers.

# Command Registration

NewRouter creates a Router with every command registered:

	r := router.NewRouter(conn, dialect, cfg, handlers.StdConsole())
	os.Exit(r.Dispatch(ctx, args))

# Commands

	delete <world_id> [-f] [-n] [-o text|json] - Delete a world
	fallback <world_id>                         - Print manual deletion SQL
	schema [-o text|json]                       - Print the dependency graph
	help                                        - Usage

Unknown commands print usage to stderr and exit 2.

# Handler Initialization

The router creates handler instances with dependency injection:

	deleteHandler := handlers.NewDeleteHandler(conn, dialect, cfg, console)
	fallbackHandler := handlers.NewFallbackHandler(conn, dialect, cfg, console)
	schemaHandler := handlers.NewSchemaHandler(console)

Each command is wrapped with middleware.WithLogging.
*/
package router
