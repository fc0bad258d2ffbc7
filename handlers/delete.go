// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dustin/go-humanize/english"
	"github.com/jmoiron/sqlx"
	flag "github.com/spf13/pflag"

	"github.com/danielhkuo/worldprune/anomaly"
	"github.com/danielhkuo/worldprune/cliparse"
	"github.com/danielhkuo/worldprune/db"
	"github.com/danielhkuo/worldprune/executor"
	"github.com/danielhkuo/worldprune/middleware"
	"github.com/danielhkuo/worldprune/models"
	"github.com/danielhkuo/worldprune/report"
	"github.com/danielhkuo/worldprune/resolver"
	"github.com/danielhkuo/worldprune/schema"
)

type DeleteHandler struct {
	db      *sqlx.DB
	dialect db.Dialect
	cfg     cliparse.Config
	graph   *schema.Graph
	console Console
}

func NewDeleteHandler(conn *sqlx.DB, dialect db.Dialect, cfg cliparse.Config, console Console) *DeleteHandler {
	return &DeleteHandler{
		db:      conn,
		dialect: dialect,
		cfg:     cfg,
		graph:   schema.Default(),
		console: console,
	}
}

// Delete handles `delete <world_id> [--force] [--dry-run] [--output text|json]`
func (h *DeleteHandler) Delete(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(h.console.Err)
	force := fs.BoolP("force", "f", false, "Delete without asking for confirmation")
	dryRun := fs.BoolP("dry-run", "n", false, "Print the plan and exit without deleting")
	output := fs.StringP("output", "o", string(report.FormatText), "Output format (text or json)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return usageError(h.console, report.FormatText, "delete: %v", err)
	}

	format, err := report.ParseFormat(*output)
	if err != nil {
		return usageError(h.console, report.FormatText, "delete: %v", err)
	}

	if fs.NArg() != 1 {
		return usageError(h.console, format, "delete: expected exactly one world id, got %d arguments", fs.NArg())
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return usageError(h.console, format, "delete: invalid world id %q", fs.Arg(0))
	}

	plan, err := h.plan(ctx, id)
	if err != nil {
		return fail(h.console, format, err)
	}

	if err := report.Plan(h.console.Out, format, plan, *dryRun); err != nil {
		return fail(h.console, format, err)
	}

	if *dryRun {
		slog.Info("dry run complete", "root_id", id, "rows", plan.TotalRows(), "anomalies", plan.AnomalyCount())
		return ExitOK
	}

	if !*force {
		if !h.console.Interactive {
			fmt.Fprintln(h.console.Err, "Refusing to delete: stdin is not a terminal. Re-run with --force to skip confirmation.")
			slog.Warn("delete aborted", "root_id", id, "reason", "no terminal for confirmation")
			return ExitAborted
		}

		question := fmt.Sprintf("Delete world %d and %s?", id, english.Plural(plan.TotalRows(), "row", ""))
		ok, err := h.console.Confirm(question)
		if err != nil {
			return fail(h.console, format, err)
		}
		if !ok {
			fmt.Fprintln(h.console.Out, "Aborted; nothing was deleted.")
			slog.Info("delete aborted", "root_id", id, "reason", "declined")
			return ExitAborted
		}
	}

	var rep *models.Report
	err = middleware.Stage("execute", func() error {
		var err error
		rep, err = executor.New(h.graph, h.dialect, h.cfg.BatchSize).Execute(ctx, h.db, plan)
		return err
	})
	if err != nil {
		return fail(h.console, format, err)
	}

	if err := report.Result(h.console.Out, format, rep); err != nil {
		slog.Error("failed to write report", "error", err, "run_id", rep.RunID)
	}
	return ExitOK
}

// plan resolves the world and adds anomalies. It never writes.
func (h *DeleteHandler) plan(ctx context.Context, id int64) (*models.Plan, error) {
	var plan *models.Plan
	err := middleware.Stage("resolve", func() error {
		var err error
		plan, err = resolver.New(h.graph, h.cfg.BatchSize).Resolve(ctx, h.db, models.TypeWorld, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = middleware.Stage("detect", func() error {
		warnings, err := anomaly.New(h.graph, h.cfg.BatchSize).Detect(ctx, h.db, plan)
		for _, w := range warnings {
			slog.Warn("anomaly detection warning", "type", w.Type, "id", w.ID, "reason", w.Reason)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("plan ready",
		"root_id", id,
		"rows", plan.TotalRows(),
		"anomalies", plan.AnomalyCount(),
		"warnings", len(plan.Warnings),
	)
	return plan, nil
}
