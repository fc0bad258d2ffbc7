// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package executor deletes a resolved plan inside a single transaction.

# Strategies

Each group of a plan is deleted with the least invasive strategy that
works, escalating only for the rows the previous one could not remove:

  - cascade: delete rows whose foreign key still joins to a live parent
  - direct: delete by primary key, ignoring the structural key
  - relaxed: suspend the rejecting constraint, then delete by primary key

Anomalous rows skip cascade and start at direct.

# Planning under the lock

Execute takes the per-root lock, then resolves the root and detects
anomalies again inside its own transaction. The fresh plan is the one
deleted and reported; when it differs from the plan the caller confirmed
a warning is added to the report. A root deleted in the meantime fails
with the resolver's *ResolutionError and nothing is written.

Every attempt runs under a savepoint, so a rejected statement leaves the
transaction usable for the next strategy.

# Relaxation

PostgreSQL drops the violated constraint and re-adds it from its saved
definition. SQLite defers foreign key checks and compares
PRAGMA foreign_key_check before and after. Relaxed constraints are
restored last first before commit. If a restore finds rows still breaking
the constraint, the run fails and is rolled back, which also undoes the
relaxation.

Once a constraint is relaxed the run no longer honours cancellation; it
either commits with the constraint restored or rolls back.

# Closure

Before commit the executor checks that no planned row survives, that no
structural child references a deleted id, and that no row's metadata
still names the root. Metadata is read with the anomaly detector's
parser, so "018" and 18.0 count as naming world 18 here too.

# Usage

	x := executor.New(schema.Default(), dialect, cfg.BatchSize)
	report, err := x.Execute(ctx, conn, plan)

Failures are *resolver.ResolutionError, *ExecutionError or
*RelaxationError. The last two carry the root id, the type and ids
involved, and a Hint for the operator.
*/
package executor
