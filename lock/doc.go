// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package lock serializes deletion runs that target the same root.

# Keys

Key hashes the root type and id with SHA-256 and keeps the first 8 bytes:

	key := lock.Key(models.TypeWorld, 18)

The key is deterministic, so two operators deleting world 18 contend for
the same lock while runs on different worlds do not.

# Acquiring

Acquire takes a transaction-scoped lock through the dialect and fails
fast with ErrLocked when another run holds it:

	if err := lock.Acquire(ctx, dialect, tx, models.TypeWorld, 18); err != nil {
		return err
	}

PostgreSQL uses pg_try_advisory_xact_lock, released at commit or
rollback. SQLite write transactions are opened with _txlock=immediate, so
the database lock already serializes runs and TryLock always succeeds.
*/
package lock
