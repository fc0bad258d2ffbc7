// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package lock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/worldprune/models"
)

var (
	ErrLocked = errors.New("another deletion run holds the lock")
)

// Locker takes a transaction-scoped advisory lock
type Locker interface {
	TryLock(ctx context.Context, tx *sqlx.Tx, key int64) (bool, error)
}

// Key derives a stable advisory lock key for a root entity.
// Same type and id always produce the same key.
func Key(t models.EntityType, id int64) int64 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("worldprune:%s:%d", t, id)))
	// Take the first 8 bytes, as int64 for pg_advisory_xact_lock
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// Acquire locks the root for the rest of tx. It does not wait: if another
// run holds the lock it returns ErrLocked.
func Acquire(ctx context.Context, l Locker, tx *sqlx.Tx, t models.EntityType, id int64) error {
	ok, err := l.TryLock(ctx, tx, Key(t, id))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %d: %w", t, id, ErrLocked)
	}
	return nil
}
