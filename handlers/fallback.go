// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	flag "github.com/spf13/pflag"

	"github.com/danielhkuo/worldprune/cliparse"
	"github.com/danielhkuo/worldprune/db"
	"github.com/danielhkuo/worldprune/models"
	"github.com/danielhkuo/worldprune/report"
	"github.com/danielhkuo/worldprune/resolver"
	"github.com/danielhkuo/worldprune/schema"
)

type FallbackHandler struct {
	db      *sqlx.DB
	dialect db.Dialect
	cfg     cliparse.Config
	graph   *schema.Graph
	console Console
}

func NewFallbackHandler(conn *sqlx.DB, dialect db.Dialect, cfg cliparse.Config, console Console) *FallbackHandler {
	return &FallbackHandler{
		db:      conn,
		dialect: dialect,
		cfg:     cfg,
		graph:   schema.Default(),
		console: console,
	}
}

// Fallback handles `fallback <world_id>`. It prints the manual procedure
// for the configured database and executes nothing.
func (h *FallbackHandler) Fallback(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("fallback", flag.ContinueOnError)
	fs.SetOutput(h.console.Err)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return usageError(h.console, report.FormatText, "fallback: %v", err)
	}

	if fs.NArg() != 1 {
		return usageError(h.console, report.FormatText, "fallback: expected exactly one world id, got %d arguments", fs.NArg())
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return usageError(h.console, report.FormatText, "fallback: invalid world id %q", fs.Arg(0))
	}

	plan, err := resolver.New(h.graph, h.cfg.BatchSize).Resolve(ctx, h.db, models.TypeWorld, id)
	if err != nil {
		return fail(h.console, report.FormatText, err)
	}

	writeFallback(h.console.Out, h.dialect, h.graph, plan)
	return ExitOK
}

func writeFallback(w io.Writer, d db.Dialect, graph *schema.Graph, plan *models.Plan) {
	suspend, restore := d.ManualRelaxSQL()
	rootLiteral := strconv.FormatInt(plan.RootID, 10)
	// PRAGMA foreign_keys is a no-op inside a transaction
	outside := d.Name() == db.SQLite

	fmt.Fprintf(w, "-- Manual deletion of world %d (%s).\n", plan.RootID, d.Name())
	fmt.Fprintf(w, "-- The structural walk currently finds %d rows.\n\n", plan.TotalRows())

	if outside {
		writeStatements(w, "Suspend enforcement", suspend)
	}
	fmt.Fprintln(w, "BEGIN;")
	fmt.Fprintln(w)
	if !outside {
		writeStatements(w, "Suspend the scenario reference", suspend)
	}

	fmt.Fprintln(w, "-- (a) Simulation states that name the world in metadata")
	for _, e := range graph.MetadataEdges(plan.RootType) {
		pred := strings.Replace(d.JSONIDPredicate(e.Column, e.Path), "?", rootLiteral, 1)
		fmt.Fprintf(w, "DELETE FROM %s WHERE %s;\n", e.Child, pred)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "-- (b) The world; ON DELETE CASCADE removes its scenarios and their children")
	fmt.Fprintf(w, "DELETE FROM %s WHERE %s = %d;\n\n", plan.RootType, graph.PrimaryKey(plan.RootType), plan.RootID)

	if !outside {
		writeStatements(w, "Restore; this fails if any row still breaks the rule", restore)
	}
	fmt.Fprintln(w, "COMMIT;")
	if outside {
		fmt.Fprintln(w)
		writeStatements(w, "Restore, then check that nothing is left dangling", restore)
	}
}

func writeStatements(w io.Writer, title string, stmts []string) {
	fmt.Fprintf(w, "-- (c) %s\n", title)
	for _, s := range stmts {
		fmt.Fprintln(w, s)
	}
	fmt.Fprintln(w)
}
