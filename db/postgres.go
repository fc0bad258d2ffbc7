// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SQLSTATE codes
const (
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
)

// PostgresDialect targets github.com/lib/pq
type PostgresDialect struct{}

func (PostgresDialect) Name() string   { return Postgres }
func (PostgresDialect) Schema() string { return postgresSchema }

// The pattern avoids '?' so Rebind leaves it alone.
func (PostgresDialect) JSONIDPredicate(column, key string) string {
	text := fmt.Sprintf("(%s::jsonb ->> %s)", pq.QuoteIdentifier(column), pq.QuoteLiteral(key))
	return fmt.Sprintf(
		"(CASE jsonb_typeof(%[1]s::jsonb -> %[2]s)"+
			" WHEN 'number' THEN %[3]s::numeric"+
			" WHEN 'string' THEN CASE WHEN %[3]s ~ '^[+-]{0,1}[0-9]+$' THEN %[3]s::numeric END"+
			" END) = ?",
		pq.QuoteIdentifier(column), pq.QuoteLiteral(key), text,
	)
}

func (PostgresDialect) Violation(err error) (*Violation, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil, false
	}
	v := &Violation{
		Schema:     pqErr.Schema,
		Table:      pqErr.Table,
		Column:     pqErr.Column,
		Constraint: pqErr.Constraint,
		Err:        err,
	}
	switch string(pqErr.Code) {
	case pgForeignKeyViolation:
		v.Kind = ForeignKeyViolation
	case pgNotNullViolation:
		v.Kind = NotNullViolation
	default:
		return nil, false
	}
	return v, true
}

// Relax drops the violated constraint (foreign key) or NOT NULL rule for
// the rest of tx. DDL is transactional, so a rollback restores it too.
func (d PostgresDialect) Relax(ctx context.Context, tx *sqlx.Tx, v *Violation) (Relaxation, error) {
	if v.Table == "" {
		return nil, fmt.Errorf("relax %s: driver did not report the table: %w", v.Kind, ErrUnsupported)
	}
	table := qualifiedTable(v.Schema, v.Table)

	switch v.Kind {
	case ForeignKeyViolation:
		if v.Constraint == "" {
			return nil, fmt.Errorf("relax foreign key on %s: driver did not report the constraint: %w", table, ErrUnsupported)
		}
		var def string
		err := tx.QueryRowxContext(ctx, `
			SELECT pg_get_constraintdef(c.oid)
			FROM pg_constraint c
			WHERE c.conname = $1 AND c.conrelid = $2::regclass
		`, v.Constraint, table).Scan(&def)
		if err != nil {
			return nil, fmt.Errorf("failed to read constraint %s: %w", v.Constraint, err)
		}

		_, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
			table, pq.QuoteIdentifier(v.Constraint)))
		if err != nil {
			return nil, fmt.Errorf("failed to drop constraint %s: %w", v.Constraint, err)
		}
		return &pgConstraintRelaxation{table: table, name: v.Constraint, def: def}, nil

	case NotNullViolation:
		if v.Column == "" {
			return nil, fmt.Errorf("relax not null on %s: driver did not report the column: %w", table, ErrUnsupported)
		}
		_, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL",
			table, pq.QuoteIdentifier(v.Column)))
		if err != nil {
			return nil, fmt.Errorf("failed to drop not null on %s.%s: %w", v.Table, v.Column, err)
		}
		return &pgNotNullRelaxation{table: table, column: v.Column}, nil
	}

	return nil, fmt.Errorf("relax %s: %w", v.Kind, ErrUnsupported)
}

func (PostgresDialect) TryLock(ctx context.Context, tx *sqlx.Tx, key int64) (bool, error) {
	var ok bool
	if err := tx.QueryRowxContext(ctx, "SELECT pg_try_advisory_xact_lock($1)", key).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to take advisory lock: %w", err)
	}
	return ok, nil
}

func (PostgresDialect) ManualRelaxSQL() (suspend, restore []string) {
	return []string{"ALTER TABLE simulation_states ALTER COLUMN scenario_id DROP NOT NULL;"},
		[]string{"ALTER TABLE simulation_states ALTER COLUMN scenario_id SET NOT NULL;"}
}

func qualifiedTable(schema, table string) string {
	if schema == "" {
		return pq.QuoteIdentifier(table)
	}
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

type pgConstraintRelaxation struct {
	table string
	name  string
	def   string
}

func (r *pgConstraintRelaxation) Describe() string {
	return fmt.Sprintf("%s %s", r.table, r.name)
}

// Restore re-adds the constraint with its original definition, which
// carries NOT VALID when the constraint was never validated.
func (r *pgConstraintRelaxation) Restore(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s",
		r.table, pq.QuoteIdentifier(r.name), r.def))
	if err != nil {
		if v, ok := (PostgresDialect{}).Violation(err); ok && v.Kind == ForeignKeyViolation {
			return fmt.Errorf("%w: %s: %v", ErrRestoreViolation, r.name, err)
		}
		return fmt.Errorf("failed to restore constraint %s: %w", r.name, err)
	}
	return nil
}

type pgNotNullRelaxation struct {
	table  string
	column string
}

func (r *pgNotNullRelaxation) Describe() string {
	return fmt.Sprintf("%s.%s NOT NULL", r.table, r.column)
}

func (r *pgNotNullRelaxation) Restore(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL",
		r.table, pq.QuoteIdentifier(r.column)))
	if err != nil {
		if v, ok := (PostgresDialect{}).Violation(err); ok && v.Kind == NotNullViolation {
			return fmt.Errorf("%w: %s.%s: %v", ErrRestoreViolation, r.table, r.column, err)
		}
		return fmt.Errorf("failed to restore not null on %s.%s: %w", r.table, r.column, err)
	}
	return nil
}
