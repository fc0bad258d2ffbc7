// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLiteDSN turns a path or URL into a modernc DSN with foreign keys on
// and immediate write transactions.
func SQLiteDSN(url string) string {
	dsn := strings.TrimPrefix(url, "sqlite://")
	if strings.Contains(dsn, "_pragma=foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

// SQLiteDialect targets modernc.org/sqlite
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string   { return SQLite }
func (SQLiteDialect) Schema() string { return sqliteSchema }

func (SQLiteDialect) JSONIDPredicate(column, key string) string {
	v := fmt.Sprintf("json_extract(%s, '$.%s')", column, key)
	digits := fmt.Sprintf("ltrim(%s, '+-')", v)
	return fmt.Sprintf(
		"(CASE WHEN json_valid(%[1]s) THEN CASE json_type(%[1]s, '$.%[2]s')"+
			" WHEN 'integer' THEN %[3]s"+
			" WHEN 'real' THEN %[3]s"+
			" WHEN 'text' THEN CASE WHEN %[4]s <> '' AND %[4]s NOT GLOB '*[^0-9]*' AND length(%[3]s) - length(%[4]s) <= 1"+
			" THEN CAST(%[3]s AS INTEGER) END"+
			" END END) = ?",
		column, key, v, digits,
	)
}

func (SQLiteDialect) Violation(err error) (*Violation, bool) {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil, false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return &Violation{Kind: ForeignKeyViolation, Err: err}, true
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return &Violation{Kind: NotNullViolation, Err: err}, true
	case sqlite3.SQLITE_CONSTRAINT:
		msg := strings.ToUpper(sqliteErr.Error())
		switch {
		case strings.Contains(msg, "FOREIGN KEY"):
			return &Violation{Kind: ForeignKeyViolation, Err: err}, true
		case strings.Contains(msg, "NOT NULL"):
			return &Violation{Kind: NotNullViolation, Err: err}, true
		}
	}
	return nil, false
}

// Relax defers every foreign key check of tx to the end of the
// transaction. SQLite cannot suspend NOT NULL.
func (SQLiteDialect) Relax(ctx context.Context, tx *sqlx.Tx, v *Violation) (Relaxation, error) {
	if v.Kind != ForeignKeyViolation {
		return nil, fmt.Errorf("relax %s: %w", v.Kind, ErrUnsupported)
	}

	baseline, err := foreignKeyViolations(ctx, tx)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "PRAGMA defer_foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to defer foreign keys: %w", err)
	}

	return &sqliteRelaxation{baseline: baseline}, nil
}

func (SQLiteDialect) TryLock(ctx context.Context, tx *sqlx.Tx, key int64) (bool, error) {
	// _txlock=immediate already holds the database write lock
	return true, nil
}

func (SQLiteDialect) ManualRelaxSQL() (suspend, restore []string) {
	return []string{"PRAGMA foreign_keys = OFF;"},
		[]string{"PRAGMA foreign_keys = ON;", "PRAGMA foreign_key_check;"}
}

type fkViolation struct {
	table  string
	rowid  int64
	parent string
}

type sqliteRelaxation struct {
	baseline map[fkViolation]struct{}
}

func (r *sqliteRelaxation) Describe() string {
	return "PRAGMA defer_foreign_keys"
}

// Restore fails with ErrRestoreViolation if the transaction left rows
// that were not violating the constraints before Relax.
func (r *sqliteRelaxation) Restore(ctx context.Context, tx *sqlx.Tx) error {
	current, err := foreignKeyViolations(ctx, tx)
	if err != nil {
		return err
	}

	var added []string
	for v := range current {
		if _, ok := r.baseline[v]; !ok {
			added = append(added, fmt.Sprintf("%s rowid %d -> %s", v.table, v.rowid, v.parent))
		}
	}
	if len(added) > 0 {
		return fmt.Errorf("%w: %s", ErrRestoreViolation, strings.Join(added, ", "))
	}

	if _, err := tx.ExecContext(ctx, "PRAGMA defer_foreign_keys = OFF"); err != nil {
		return fmt.Errorf("failed to restore immediate foreign keys: %w", err)
	}
	return nil
}

func foreignKeyViolations(ctx context.Context, tx *sqlx.Tx) (map[fkViolation]struct{}, error) {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return nil, fmt.Errorf("failed to run foreign_key_check: %w", err)
	}
	defer rows.Close()

	out := make(map[fkViolation]struct{})
	for rows.Next() {
		var (
			v     fkViolation
			rowid sql.NullInt64
			fkid  int64
		)
		if err := rows.Scan(&v.table, &rowid, &v.parent, &fkid); err != nil {
			return nil, fmt.Errorf("failed to scan foreign_key_check: %w", err)
		}
		v.rowid = rowid.Int64
		out[v] = struct{}{}
	}
	return out, rows.Err()
}
