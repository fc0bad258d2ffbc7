// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/danielhkuo/worldprune/models"
)

// Format selects how results are written
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates an --output value
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// JSON writes v as indented JSON
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to encode JSON output", "error", err)
		return err
	}
	return nil
}

type planOutput struct {
	DryRun    bool `json:"dry_run"`
	TotalRows int  `json:"total_rows"`
	*models.Plan
}

// Plan writes the deletion plan: rows per type in execution order,
// anomalies and warnings.
func Plan(w io.Writer, f Format, plan *models.Plan, dryRun bool) error {
	if f == FormatJSON {
		return JSON(w, planOutput{DryRun: dryRun, TotalRows: plan.TotalRows(), Plan: plan})
	}

	fmt.Fprintf(w, "%s: %s in %s\n\n",
		rootName(plan.RootType, plan.RootID, plan.RootLabel),
		english.Plural(plan.TotalRows(), "row", ""),
		english.Plural(len(plan.Groups), "type", ""),
	)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, g := range plan.Groups {
		note := ""
		if len(g.Anomalies) > 0 {
			note = fmt.Sprintf("(%d anomalous)", len(g.Anomalies))
		}
		fmt.Fprintf(tw, "  %s\t%s\t %s\n", g.Type, humanize.Comma(int64(g.Total())), note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if plan.AnomalyCount() > 0 {
		fmt.Fprintf(w, "\nAnomalies (%s):\n", models.DirectDeleteTag)
		for _, g := range plan.Groups {
			for _, a := range g.Anomalies {
				fmt.Fprintf(w, "  %s %d: %s=%d, %s; metadata names %d\n",
					a.Type, a.ID, a.Column, a.ForeignKey, a.Reason, a.MetadataRootID)
			}
		}
	}

	writeWarnings(w, plan.Warnings)

	if dryRun {
		fmt.Fprintln(w, "\nDry run: nothing was deleted.")
	}
	return nil
}

// Result writes the outcome of a committed run
func Result(w io.Writer, f Format, r *models.Report) error {
	if f == FormatJSON {
		return JSON(w, r)
	}

	fmt.Fprintf(w, "Deleted %s %d: %s in %s (run %s)\n\n",
		strings.TrimSuffix(string(r.RootType), "s"),
		r.RootID,
		english.Plural(int(r.TotalDeleted()), "row", ""),
		r.Duration.Round(time.Millisecond),
		r.RunID,
	)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  TYPE\tDELETED\tSTRATEGIES")
	for _, c := range r.Counts {
		fmt.Fprintf(tw, "  %s\t%s/%s\t%s\n",
			c.Type, humanize.Comma(c.Deleted), humanize.Comma(int64(c.Planned)), strategies(c.ByStrategy))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Relaxations) > 0 {
		fmt.Fprintln(w, "\nConstraints relaxed:")
		for _, rel := range r.Relaxations {
			state := "restored"
			if !rel.Restored {
				state = "NOT restored"
			}
			fmt.Fprintf(w, "  %s for %s (%s)\n", rel.Constraint, rel.Type, state)
		}
	}

	writeWarnings(w, r.Warnings)
	return nil
}

// Error writes a failure with the entity type and ids at fault
func Error(w io.Writer, f Format, resp models.ErrorResponse) error {
	if f == FormatJSON {
		return JSON(w, resp)
	}

	fmt.Fprintf(w, "Error: %s\n", resp.Message)
	if resp.Type != "" {
		fmt.Fprintf(w, "  type: %s\n", resp.Type)
	}
	if len(resp.IDs) > 0 {
		fmt.Fprintf(w, "  ids:  %s\n", joinIDs(resp.IDs))
	}
	if resp.Hint != "" {
		fmt.Fprintf(w, "  hint: %s\n", resp.Hint)
	}
	return nil
}

func writeWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "\nWarnings (%d):\n", len(warnings))
	for _, msg := range warnings {
		fmt.Fprintf(w, "  %s\n", msg)
	}
}

func rootName(t models.EntityType, id int64, label string) string {
	name := fmt.Sprintf("%s %d", strings.TrimSuffix(string(t), "s"), id)
	if label != "" {
		name += fmt.Sprintf(" %q", label)
	}
	return name
}

// strategies lists non-zero counts in escalation order
func strategies(by map[models.Strategy]int64) string {
	var parts []string
	for _, s := range []models.Strategy{models.StrategyCascade, models.StrategyDirect, models.StrategyRelaxed} {
		if n := by[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %s", s, humanize.Comma(n)))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
