// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles global command-line flags and configuration.

# Configuration

ParseFlags returns a Config and the arguments left for the command:

	cfg, rest, err := cliparse.ParseFlags(os.Args[1:])
	// rest == []string{"delete", "18", "--force"}

Parsing stops at the first non-flag argument, so command flags such as
--force are never consumed here.

# Config Fields

  - DatabaseURL: PostgreSQL URL or SQLite path (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - LogLevel: debug, info, warn, error (default: info)
  - LogFormat: text or json (default: text)
  - BatchSize: ids bound per statement (default: 500)

# CLI Flags

	-d, --database-url   Database URL
	-t, --database-type  Database type
	-c, --config         YAML config file
	    --log-level      Log level
	    --log-format     Log format
	    --batch-size     Ids per statement

# Environment Variables

Flags fall back to environment variables:

	DATABASE_URL      → -d
	DATABASE_TYPE     → -t
	WORLDPRUNE_CONFIG → -c
	LOG_LEVEL         → --log-level
	LOG_FORMAT        → --log-format
	BATCH_SIZE        → --batch-size

main loads a .env file into the environment before parsing.

# Config File

A YAML file fills anything still unset after flags and environment:

	database_url: postgres://worlds@db/worlds?sslmode=disable
	database_type: postgres
	log_format: json
	batch_size: 1000

CLI flags take precedence over environment variables, which take
precedence over the file.
*/
package cliparse
