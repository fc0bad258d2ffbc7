// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DefaultBatchSize bounds the number of ids bound in one IN list
const DefaultBatchSize = 500

// Chunks splits ids into slices of at most size elements
func Chunks(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]int64
	for len(ids) > size {
		out = append(out, ids[:size:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

// In expands slice arguments with sqlx.In and rebinds the query for the
// connection's placeholder style.
func In(q sqlx.ExtContext, query string, args ...any) (string, []any, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("failed to expand query: %w", err)
	}
	return q.Rebind(query), args, nil
}

// SelectIDs runs query once per chunk of ids. The query must contain
// exactly one IN (?) bound to the chunk, after any leading args.
func SelectIDs(ctx context.Context, q sqlx.ExtContext, batch int, query string, ids []int64, leading ...any) ([]int64, error) {
	var out []int64
	for _, chunk := range Chunks(ids, batch) {
		args := append(append([]any{}, leading...), chunk)
		bound, bargs, err := In(q, query, args...)
		if err != nil {
			return nil, err
		}
		var got []int64
		if err := sqlx.SelectContext(ctx, q, &got, bound, bargs...); err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	return out, nil
}

// ExecIDs runs a statement once per chunk of ids and sums rows affected.
// The statement must contain exactly one IN (?) bound to the chunk; extra
// args are appended after it.
func ExecIDs(ctx context.Context, q sqlx.ExtContext, batch int, stmt string, ids []int64, trailing ...any) (int64, error) {
	var total int64
	for _, chunk := range Chunks(ids, batch) {
		args := append([]any{chunk}, trailing...)
		bound, bargs, err := In(q, stmt, args...)
		if err != nil {
			return total, err
		}
		res, err := q.ExecContext(ctx, bound, bargs...)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to read rows affected: %w", err)
		}
		total += n
	}
	return total, nil
}

// WithSavepoint runs fn inside a savepoint. A failed fn is rolled back to
// the savepoint so the surrounding transaction stays usable.
func WithSavepoint(ctx context.Context, tx *sqlx.Tx, name string, fn func() error) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	if err := fn(); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint failed: %v)", err, rbErr)
		}
		// ROLLBACK TO keeps the savepoint open
		if _, relErr := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); relErr != nil {
			return fmt.Errorf("%w (release savepoint failed: %v)", err, relErr)
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}
