// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the worldprune CLI.

worldprune deletes a world and everything that depends on it without
breaking referential integrity, including simulation states that only
name the world in their metadata.

# Running

The tool requires environment variables or CLI flags for configuration:

	DATABASE_URL=/var/lib/worlds.db worldprune delete 18 --dry-run

Or with flags:

	worldprune -t postgres -d "postgres://..." delete 18 --force

A .env file in the working directory is loaded first if present.

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL URL or SQLite path

Optional settings:

  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - WORLDPRUNE_CONFIG (-c): YAML file with the same keys
  - LOG_LEVEL, LOG_FORMAT: slog level and text/json handler on stderr
  - BATCH_SIZE: ids bound per statement (default: 500)

# Architecture

The CLI uses a handler-based architecture with dependency injection:

  - handlers: commands (delete, fallback, schema)
  - router: command dispatch and usage
  - middleware: command logging and stage timing
  - schema: the entity graph
  - resolver: structural dependency walk
  - anomaly: metadata side channel detection
  - executor: transactional deletion with escalating strategies
  - lock: per-root run serialization
  - report: text and JSON output
  - models: plan and report types
  - db: dialects, schema creation and batched queries
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
