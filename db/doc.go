// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections, schema creation, and the per-database
details of constraint handling.

# Connecting

Open picks a Dialect by name and returns a *sqlx.DB:

	conn, dialect, err := db.Open(ctx, "postgres", "postgres://...")
	conn, dialect, err := db.Open(ctx, "sqlite", "worlds.db")

SQLite paths are rewritten by SQLiteDSN to enable foreign keys and
immediate write transactions, and the pool is limited to one connection.

# Schema Creation

CreateSchema creates the world tables for the dialect:

	if err := db.CreateSchema(ctx, conn, dialect); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

	worlds 1──* scenarios
	scenarios 1──* characters
	scenarios 1──* events
	scenarios 1──* resources
	scenarios 1──* simulation_states

All foreign keys use ON DELETE CASCADE. simulation_states.metadata is a
JSON object whose world_id key may name the owning world directly.

# Queries

Queries are written with ? placeholders and rebound for the driver. Id
lists are expanded with sqlx.In and split by Chunks:

	ids, err := db.SelectIDs(ctx, tx, 500, "SELECT id FROM scenarios WHERE world_id IN (?)", worldIDs)

WithSavepoint wraps an attempt so a rejected statement does not abort the
surrounding transaction (PostgreSQL aborts the whole transaction on any
error otherwise).

# Constraint Relaxation

Dialect.Violation classifies driver errors (lib/pq SQLSTATE 23503 and
23502, modernc SQLITE_CONSTRAINT_FOREIGNKEY and SQLITE_CONSTRAINT_NOTNULL).
Dialect.Relax suspends the violated rule for the rest of a transaction and
returns a Relaxation whose Restore must run before commit:

  - PostgreSQL drops the named constraint (or the NOT NULL rule) and
    re-adds it from pg_get_constraintdef on Restore.
  - SQLite sets PRAGMA defer_foreign_keys and on Restore compares
    PRAGMA foreign_key_check with the snapshot taken before relaxing.

Restore returns ErrRestoreViolation when rows that break the rule remain.
*/
package db
