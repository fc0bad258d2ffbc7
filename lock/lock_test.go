// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package lock

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/worldprune/models"
)

type fakeLocker struct {
	ok   bool
	err  error
	keys []int64
}

func (f *fakeLocker) TryLock(ctx context.Context, tx *sqlx.Tx, key int64) (bool, error) {
	f.keys = append(f.keys, key)
	return f.ok, f.err
}

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		typ  models.EntityType
		id   int64
	}{
		{"world 18", models.TypeWorld, 18},
		{"world 0", models.TypeWorld, 0},
		{"scenario 18", models.TypeScenario, 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Should be deterministic
			if Key(tt.typ, tt.id) != Key(tt.typ, tt.id) {
				t.Error("Key() is not deterministic")
			}

			// Different ids should produce different keys
			if Key(tt.typ, tt.id) == Key(tt.typ, tt.id+1) {
				t.Error("Key() produced same key for different ids")
			}
		})
	}

	if Key(models.TypeWorld, 18) == Key(models.TypeScenario, 18) {
		t.Error("Key() produced same key for different types")
	}
}

func TestAcquire(t *testing.T) {
	t.Run("free", func(t *testing.T) {
		l := &fakeLocker{ok: true}
		if err := Acquire(context.Background(), l, nil, models.TypeWorld, 18); err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if len(l.keys) != 1 || l.keys[0] != Key(models.TypeWorld, 18) {
			t.Errorf("Acquire() used keys %v", l.keys)
		}
	})

	t.Run("held", func(t *testing.T) {
		l := &fakeLocker{ok: false}
		err := Acquire(context.Background(), l, nil, models.TypeWorld, 18)
		if !errors.Is(err, ErrLocked) {
			t.Errorf("Acquire() error = %v, want ErrLocked", err)
		}
	})

	t.Run("driver error", func(t *testing.T) {
		boom := errors.New("boom")
		l := &fakeLocker{err: boom}
		err := Acquire(context.Background(), l, nil, models.TypeWorld, 18)
		if !errors.Is(err, boom) {
			t.Errorf("Acquire() error = %v, want boom", err)
		}
	})
}
