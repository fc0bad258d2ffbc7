// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrUnsupported is returned when a dialect cannot perform an operation
	ErrUnsupported = errors.New("not supported by this database")
	// ErrRestoreViolation is returned by Relaxation.Restore when rows that
	// break the suspended constraint remain in the transaction
	ErrRestoreViolation = errors.New("constraint still violated")
)

// ViolationKind classifies a rejected statement
type ViolationKind int

const (
	ForeignKeyViolation ViolationKind = iota + 1
	NotNullViolation
)

func (k ViolationKind) String() string {
	switch k {
	case ForeignKeyViolation:
		return "foreign key"
	case NotNullViolation:
		return "not null"
	default:
		return "unknown"
	}
}

// Violation describes a constraint that rejected a statement. Table,
// Column, and Constraint are empty when the driver does not report them.
type Violation struct {
	Kind       ViolationKind
	Schema     string
	Table      string
	Column     string
	Constraint string
	Err        error
}

func (v *Violation) Error() string {
	var b strings.Builder
	b.WriteString(v.Kind.String())
	b.WriteString(" violation")
	if v.Table != "" {
		fmt.Fprintf(&b, " on %s", v.Table)
	}
	if v.Column != "" {
		fmt.Fprintf(&b, ".%s", v.Column)
	}
	if v.Constraint != "" {
		fmt.Fprintf(&b, " (%s)", v.Constraint)
	}
	if v.Err != nil {
		fmt.Fprintf(&b, ": %v", v.Err)
	}
	return b.String()
}

func (v *Violation) Unwrap() error { return v.Err }

// Relaxation is a suspended constraint. Restore must be called before the
// transaction commits; a rollback also restores it.
type Relaxation interface {
	// Describe names the suspended constraint for logs and reports
	Describe() string
	Restore(ctx context.Context, tx *sqlx.Tx) error
}

// Dialect hides the differences between the supported databases
type Dialect interface {
	Name() string
	Schema() string

	// JSONIDPredicate returns a boolean expression that compares the
	// integer held under key in the JSON column with a single bind var.
	// Integral numbers (18, 18.0, 1.8e1) and decimal strings ("18", "018",
	// "+18") all match 18.
	JSONIDPredicate(column, key string) string

	// Violation reports whether err is a constraint violation
	Violation(err error) (*Violation, bool)

	// Relax suspends the constraint behind v for the rest of tx
	Relax(ctx context.Context, tx *sqlx.Tx, v *Violation) (Relaxation, error)

	// TryLock takes a transaction-scoped advisory lock. It returns false
	// if another transaction holds it.
	TryLock(ctx context.Context, tx *sqlx.Tx, key int64) (bool, error)

	// ManualRelaxSQL returns the statements an operator runs by hand to
	// suspend and later restore the simulation_states.scenario_id rule.
	ManualRelaxSQL() (suspend, restore []string)
}

// Dialect names
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// ForName returns the dialect registered under name
func ForName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case Postgres, "postgresql", "pg":
		return PostgresDialect{}, nil
	case SQLite, "sqlite3":
		return SQLiteDialect{}, nil
	default:
		return nil, fmt.Errorf("unknown database type %q (use postgres or sqlite)", name)
	}
}

// Open connects to the database and verifies the connection
func Open(ctx context.Context, dbType, url string) (*sqlx.DB, Dialect, error) {
	d, err := ForName(dbType)
	if err != nil {
		return nil, nil, err
	}

	var conn *sqlx.DB
	switch d.Name() {
	case Postgres:
		conn, err = sqlx.Open("postgres", url)
	case SQLite:
		conn, err = sqlx.Open("sqlite", SQLiteDSN(url))
		if err == nil {
			// PRAGMAs are per connection
			conn.SetMaxOpenConns(1)
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}

	return conn, d, nil
}
