// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dustin/go-humanize/english"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/worldprune/anomaly"
	"github.com/danielhkuo/worldprune/db"
	"github.com/danielhkuo/worldprune/lock"
	"github.com/danielhkuo/worldprune/models"
	"github.com/danielhkuo/worldprune/resolver"
	"github.com/danielhkuo/worldprune/schema"
)

const (
	savepointName = "worldprune_attempt"
	// distinct constraints one group may relax before giving up
	maxRelaxations = 8
)

type Executor struct {
	graph    *schema.Graph
	dialect  db.Dialect
	detector *anomaly.Detector
	batch    int
}

func New(graph *schema.Graph, dialect db.Dialect, batchSize int) *Executor {
	if batchSize <= 0 {
		batchSize = db.DefaultBatchSize
	}
	return &Executor{
		graph:    graph,
		dialect:  dialect,
		detector: anomaly.New(graph, batchSize),
		batch:    batchSize,
	}
}

type activeRelaxation struct {
	rel  db.Relaxation
	typ  models.EntityType
	ids  []int64
	desc string
}

// run is the state of one Execute call
type run struct {
	x    *Executor
	id   string
	tx   *sqlx.Tx
	plan *models.Plan

	// caller is the caller's context, base never cancels. ctx is the one
	// statements use: caller until a constraint is relaxed, then base.
	caller context.Context
	base   context.Context
	ctx    context.Context

	active   []activeRelaxation
	restored []models.Relaxation
	counts   map[models.EntityType]map[models.Strategy]int64
}

// Execute deletes the root of plan and everything that depends on it in
// one transaction, groups in plan order. The plan is rebuilt under the
// run lock first, so rows added or removed since plan was made are
// accounted for. It commits only if every group is removed, all relaxed
// constraints are restored, and nothing still references a deleted id.
func (x *Executor) Execute(ctx context.Context, conn *sqlx.DB, plan *models.Plan) (*models.Report, error) {
	started := time.Now()
	base := context.WithoutCancel(ctx)

	r := &run{
		x:      x,
		id:     uuid.NewString(),
		plan:   plan,
		caller: ctx,
		base:   base,
		ctx:    ctx,
		counts: make(map[models.EntityType]map[models.Strategy]int64),
	}
	rootIDs := []int64{plan.RootID}

	// The transaction itself must survive cancellation once relaxed;
	// cancellation before that is checked between steps.
	tx, err := conn.BeginTxx(base, nil)
	if err != nil {
		return nil, r.fail(plan.RootType, rootIDs, "", fmt.Errorf("failed to begin transaction: %w", err))
	}
	r.tx = tx

	slog.Info("run started",
		"run_id", r.id,
		"root_type", plan.RootType,
		"root_id", plan.RootID,
		"rows", plan.TotalRows(),
	)

	committed := false
	defer func() {
		if committed {
			return
		}
		r.abandon()
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback failed", "run_id", r.id, "error", err)
			return
		}
		slog.Info("run rolled back", "run_id", r.id)
	}()

	if err := lock.Acquire(r.ctx, x.dialect, tx, plan.RootType, plan.RootID); err != nil {
		return nil, r.fail(plan.RootType, rootIDs, "", err)
	}

	if err := r.checkCancel(); err != nil {
		return nil, r.fail(plan.RootType, rootIDs, "", err)
	}
	if err := r.refresh(); err != nil {
		return nil, err
	}

	for _, g := range r.plan.Groups {
		if err := r.checkCancel(); err != nil {
			return nil, r.fail(g.Type, g.IDs, "", err)
		}
		if err := r.deleteGroup(g); err != nil {
			return nil, err
		}
	}

	if err := r.restoreAll(); err != nil {
		return nil, err
	}

	if err := r.checkClosure(); err != nil {
		return nil, err
	}

	if err := r.checkCancel(); err != nil {
		return nil, r.fail(plan.RootType, rootIDs, "", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, r.fail(plan.RootType, rootIDs, "", fmt.Errorf("failed to commit: %w", err))
	}
	committed = true

	report := r.report(started)
	slog.Info("run committed",
		"run_id", r.id,
		"root_id", r.plan.RootID,
		"deleted", report.TotalDeleted(),
		"relaxations", len(report.Relaxations),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// refresh rebuilds the plan inside the transaction, under the lock, so
// the run deletes what exists now rather than what existed when the
// operator confirmed. A root that is gone fails with the resolver's
// not-found error.
func (r *run) refresh() error {
	confirmed := r.plan

	fresh, err := resolver.New(r.x.graph, r.x.batch).Resolve(r.ctx, r.tx, confirmed.RootType, confirmed.RootID)
	if err != nil {
		return err
	}
	if _, err := r.x.detector.Detect(r.ctx, r.tx, fresh); err != nil {
		return r.fail(confirmed.RootType, []int64{confirmed.RootID}, "", fmt.Errorf("anomaly detection: %w", err))
	}

	if !samePlan(confirmed, fresh) {
		msg := fmt.Sprintf("plan changed since it was confirmed: %s planned, %s found when the run started",
			english.Plural(confirmed.TotalRows(), "row", ""), english.Plural(fresh.TotalRows(), "row", ""))
		fresh.Warnings = append(fresh.Warnings, msg)
		slog.Warn("plan changed since confirmation",
			"run_id", r.id,
			"root_id", confirmed.RootID,
			"planned", confirmed.TotalRows(),
			"found", fresh.TotalRows(),
		)
	}
	r.plan = fresh
	return nil
}

func samePlan(a, b *models.Plan) bool {
	if len(a.Groups) != len(b.Groups) {
		return false
	}
	for i := range a.Groups {
		ga, gb := a.Groups[i], b.Groups[i]
		if ga.Type != gb.Type || !slices.Equal(ga.IDs, gb.IDs) || !slices.Equal(ga.AnomalyIDs(), gb.AnomalyIDs()) {
			return false
		}
	}
	return true
}

func (r *run) deleteGroup(g models.Group) error {
	if len(g.IDs) > 0 {
		if err := r.deleteClean(g.Type, g.IDs); err != nil {
			return err
		}
	}
	if len(g.Anomalies) > 0 {
		if err := r.deleteAnomalies(g.Type, g.AnomalyIDs()); err != nil {
			return err
		}
	}
	return nil
}

// deleteClean tries the structural path first. Rows the join does not
// reach, or all rows if the constraint rejects it, go to direct delete.
func (r *run) deleteClean(t models.EntityType, ids []int64) error {
	n, err := r.attempt(func() (int64, error) { return r.cascade(t, ids) })
	switch {
	case err == nil:
		r.count(t, models.StrategyCascade, n)
		if n == int64(len(ids)) {
			return nil
		}
		left, err := r.remaining(t, ids)
		if err != nil {
			return r.fail(t, ids, models.StrategyCascade, err)
		}
		if len(left) == 0 {
			return nil
		}
		slog.Info("rows not reachable through structural join",
			"run_id", r.id, "type", t, "rows", len(left))
		ids = left

	case r.isViolation(err):
		slog.Info("cascade delete rejected, falling back to direct delete",
			"run_id", r.id, "type", t, "error", err)

	default:
		return r.fail(t, ids, models.StrategyCascade, err)
	}

	return r.directThenRelaxed(t, ids)
}

// deleteAnomalies removes rows the detector confirmed, under the lock,
// as naming the root. Their structural key is ignored.
func (r *run) deleteAnomalies(t models.EntityType, ids []int64) error {
	return r.directThenRelaxed(t, ids)
}

func (r *run) directThenRelaxed(t models.EntityType, ids []int64) error {
	n, err := r.attempt(func() (int64, error) { return r.direct(t, ids) })
	if err == nil {
		r.count(t, models.StrategyDirect, n)
		r.checkShortfall(t, ids, n, models.StrategyDirect)
		return nil
	}

	v, ok := r.x.dialect.Violation(err)
	if !ok {
		return r.fail(t, ids, models.StrategyDirect, err)
	}

	seen := make(map[string]bool)
	for i := 0; i < maxRelaxations; i++ {
		key := fmt.Sprintf("%s|%s|%s|%s", v.Kind, v.Table, v.Column, v.Constraint)
		if seen[key] {
			return r.fail(t, ids, models.StrategyRelaxed, fmt.Errorf("%w: %v", ErrRepeatedViolation, v))
		}
		seen[key] = true

		if err := r.relax(t, ids, v); err != nil {
			return err
		}

		n, err = r.attempt(func() (int64, error) { return r.direct(t, ids) })
		if err == nil {
			r.count(t, models.StrategyRelaxed, n)
			r.checkShortfall(t, ids, n, models.StrategyRelaxed)
			return nil
		}
		if v, ok = r.x.dialect.Violation(err); !ok {
			return r.fail(t, ids, models.StrategyRelaxed, err)
		}
	}
	return r.fail(t, ids, models.StrategyRelaxed, fmt.Errorf("gave up after %d relaxations: %w", maxRelaxations, v))
}

// relax suspends the constraint behind v. From here on the run no longer
// honours cancellation.
func (r *run) relax(t models.EntityType, ids []int64, v *db.Violation) error {
	slog.Warn("relaxing constraint",
		"run_id", r.id,
		"type", t,
		"rows", len(ids),
		"violation", v.Error(),
	)

	rel, err := r.x.dialect.Relax(r.ctx, r.tx, v)
	if err != nil {
		return &RelaxationError{
			RootID:     r.plan.RootID,
			Type:       t,
			IDs:        ids,
			Constraint: v.Constraint,
			Err:        err,
		}
	}

	r.ctx = r.base
	r.active = append(r.active, activeRelaxation{rel: rel, typ: t, ids: ids, desc: rel.Describe()})

	slog.Warn("constraint relaxed until commit",
		"run_id", r.id,
		"constraint", rel.Describe(),
	)
	return nil
}

// restoreAll restores relaxed constraints, last first
func (r *run) restoreAll() error {
	for len(r.active) > 0 {
		a := r.active[len(r.active)-1]
		if err := a.rel.Restore(r.ctx, r.tx); err != nil {
			if errors.Is(err, db.ErrRestoreViolation) {
				return r.fail(a.typ, a.ids, models.StrategyRelaxed, err)
			}
			return &RelaxationError{
				RootID:     r.plan.RootID,
				Type:       a.typ,
				IDs:        a.ids,
				Constraint: a.desc,
				Err:        fmt.Errorf("failed to restore: %w", err),
			}
		}
		r.active = r.active[:len(r.active)-1]
		r.restored = append(r.restored, models.Relaxation{Type: a.typ, Constraint: a.desc, Restored: true})

		slog.Warn("constraint restored",
			"run_id", r.id,
			"constraint", a.desc,
		)
	}
	return nil
}

// abandon runs on failure paths. Suspended constraints are restored by
// the rollback that follows.
func (r *run) abandon() {
	for _, a := range r.active {
		slog.Warn("constraint restored by rollback",
			"run_id", r.id,
			"constraint", a.desc,
		)
	}
	r.active = nil
}

func (r *run) attempt(fn func() (int64, error)) (int64, error) {
	var n int64
	err := db.WithSavepoint(r.ctx, r.tx, savepointName, func() error {
		var err error
		n, err = fn()
		return err
	})
	return n, err
}

// cascade deletes rows of t whose foreign key still joins to an existing
// parent. The root type has no parent and is deleted by id.
func (r *run) cascade(t models.EntityType, ids []int64) (int64, error) {
	pk := r.x.graph.PrimaryKey(t)
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s IN (?)", t, pk)

	if parent, ok := r.x.graph.StructuralParent(t); ok {
		stmt = fmt.Sprintf(
			"DELETE FROM %[1]s WHERE %[2]s IN (?) AND EXISTS (SELECT 1 FROM %[3]s WHERE %[3]s.%[4]s = %[1]s.%[5]s)",
			t, pk, parent.Parent, r.x.graph.PrimaryKey(parent.Parent), parent.Column,
		)
	}
	return db.ExecIDs(r.ctx, r.tx, r.x.batch, stmt, ids)
}

// direct deletes by id, ignoring the structural key
func (r *run) direct(t models.EntityType, ids []int64) (int64, error) {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s IN (?)", t, r.x.graph.PrimaryKey(t))
	return db.ExecIDs(r.ctx, r.tx, r.x.batch, stmt, ids)
}

// remaining returns the ids of t that still exist
func (r *run) remaining(t models.EntityType, ids []int64) ([]int64, error) {
	pk := r.x.graph.PrimaryKey(t)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (?)", pk, t, pk)
	return db.SelectIDs(r.ctx, r.tx, r.x.batch, query, ids)
}

func (r *run) checkShortfall(t models.EntityType, ids []int64, n int64, s models.Strategy) {
	if n < int64(len(ids)) {
		slog.Warn("fewer rows deleted than planned",
			"run_id", r.id,
			"type", t,
			"strategy", s,
			"planned", len(ids),
			"deleted", n,
		)
	}
}

func (r *run) checkCancel() error {
	if len(r.active) > 0 {
		return nil
	}
	return r.caller.Err()
}

func (r *run) isViolation(err error) bool {
	_, ok := r.x.dialect.Violation(err)
	return ok
}

func (r *run) count(t models.EntityType, s models.Strategy, n int64) {
	if n == 0 {
		return
	}
	m, ok := r.counts[t]
	if !ok {
		m = make(map[models.Strategy]int64)
		r.counts[t] = m
	}
	m[s] += n

	slog.Info("rows deleted",
		"run_id", r.id,
		"type", t,
		"strategy", s,
		"rows", n,
	)
}

func (r *run) fail(t models.EntityType, ids []int64, s models.Strategy, err error) error {
	return &ExecutionError{
		RootID:   r.plan.RootID,
		Type:     t,
		IDs:      ids,
		Strategy: s,
		Err:      err,
	}
}

func (r *run) report(started time.Time) *models.Report {
	rep := &models.Report{
		RunID:       r.id,
		RootType:    r.plan.RootType,
		RootID:      r.plan.RootID,
		Relaxations: r.restored,
		Warnings:    r.plan.Warnings,
		StartedAt:   started,
		Duration:    time.Since(started),
	}
	for _, g := range r.plan.Groups {
		tc := models.TypeCount{
			Type:       g.Type,
			Planned:    g.Total(),
			ByStrategy: make(map[models.Strategy]int64),
		}
		for s, n := range r.counts[g.Type] {
			tc.ByStrategy[s] = n
			tc.Deleted += n
		}
		rep.Counts = append(rep.Counts, tc)
	}
	return rep
}
