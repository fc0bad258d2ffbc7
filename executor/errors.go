// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package executor

import (
	"errors"
	"fmt"

	"github.com/danielhkuo/worldprune/models"
)

var (
	// ErrNotClosed is returned when rows still reference deleted ids
	ErrNotClosed = errors.New("deleted rows are still referenced")
	// ErrRepeatedViolation is returned when relaxing did not clear a violation
	ErrRepeatedViolation = errors.New("constraint rejected the delete again after relaxation")
)

// ExecutionError reports a group that could not be deleted by any
// strategy. The run has been rolled back.
type ExecutionError struct {
	RootID   int64
	Type     models.EntityType
	IDs      []int64
	Strategy models.Strategy
	Err      error
}

func (e *ExecutionError) Error() string {
	if e.Strategy == "" {
		return fmt.Sprintf("delete %s %s: %v", e.Type, formatIDs(e.IDs), e.Err)
	}
	return fmt.Sprintf("delete %s %s failed at %s strategy: %v", e.Type, formatIDs(e.IDs), e.Strategy, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Hint suggests the next escalation to the operator
func (e *ExecutionError) Hint() string {
	if e.Strategy == models.StrategyRelaxed || errors.Is(e.Err, ErrNotClosed) {
		return fmt.Sprintf("rows outside the world graph still reference %s; remove them or follow `worldprune fallback %d`", e.Type, e.RootID)
	}
	return fmt.Sprintf("nothing was deleted; retry, or follow `worldprune fallback %d` to delete by hand", e.RootID)
}

// RelaxationError reports a failure to suspend or restore a constraint.
// The run has been rolled back.
type RelaxationError struct {
	RootID     int64
	Type       models.EntityType
	IDs        []int64
	Constraint string
	Err        error
}

func (e *RelaxationError) Error() string {
	if e.Constraint == "" {
		return fmt.Sprintf("relax constraint for %s %s: %v", e.Type, formatIDs(e.IDs), e.Err)
	}
	return fmt.Sprintf("relax %s for %s %s: %v", e.Constraint, e.Type, formatIDs(e.IDs), e.Err)
}

func (e *RelaxationError) Unwrap() error { return e.Err }

func (e *RelaxationError) Hint() string {
	return fmt.Sprintf("constraint relaxation needs ALTER privilege on the table; run the manual procedure from `worldprune fallback %d` as the schema owner", e.RootID)
}

func formatIDs(ids []int64) string {
	const limit = 10
	if len(ids) <= limit {
		return fmt.Sprint(ids)
	}
	return fmt.Sprintf("%v and %d more", ids[:limit], len(ids)-limit)
}
