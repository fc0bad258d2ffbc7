// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	flag "github.com/spf13/pflag"

	"github.com/danielhkuo/worldprune/models"
	"github.com/danielhkuo/worldprune/report"
	"github.com/danielhkuo/worldprune/schema"
)

type SchemaHandler struct {
	graph   *schema.Graph
	console Console
}

func NewSchemaHandler(console Console) *SchemaHandler {
	return &SchemaHandler{graph: schema.Default(), console: console}
}

type schemaNode struct {
	Type       models.EntityType `json:"type"`
	PrimaryKey string            `json:"primary_key"`
	Depth      int               `json:"depth"`
}

type schemaEdge struct {
	Parent   models.EntityType `json:"parent"`
	Child    models.EntityType `json:"child"`
	Kind     string            `json:"kind"`
	Column   string            `json:"column"`
	Path     string            `json:"path,omitempty"`
	Nullable bool              `json:"nullable"`
	Violable bool              `json:"violable"`
}

type schemaOutput struct {
	Root  models.EntityType `json:"root"`
	Nodes []schemaNode      `json:"nodes"`
	Edges []schemaEdge      `json:"edges"`
}

// Schema handles `schema [--output text|json]`
func (h *SchemaHandler) Schema(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	fs.SetOutput(h.console.Err)
	output := fs.StringP("output", "o", string(report.FormatText), "Output format (text or json)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return usageError(h.console, report.FormatText, "schema: %v", err)
	}
	format, err := report.ParseFormat(*output)
	if err != nil {
		return usageError(h.console, report.FormatText, "schema: %v", err)
	}

	out, err := h.describe(models.TypeWorld)
	if err != nil {
		return fail(h.console, format, err)
	}

	if format == report.FormatJSON {
		if err := report.JSON(h.console.Out, out); err != nil {
			return ExitFailure
		}
		return ExitOK
	}

	tw := tabwriter.NewWriter(h.console.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tKEY\tDEPTH")
	for _, n := range out.Nodes {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", n.Type, n.PrimaryKey, n.Depth)
	}
	tw.Flush()

	fmt.Fprintln(h.console.Out)
	for _, t := range h.graph.Types() {
		for _, e := range h.graph.DependentsOf(t) {
			var flags string
			if e.Violable {
				flags += " [violable]"
			}
			if e.Nullable {
				flags += " [nullable]"
			}
			fmt.Fprintf(h.console.Out, "%-10s %s%s\n", e.Kind, e, flags)
		}
	}
	return ExitOK
}

func (h *SchemaHandler) describe(root models.EntityType) (schemaOutput, error) {
	depths, err := h.graph.Depths(root)
	if err != nil {
		return schemaOutput{}, err
	}

	out := schemaOutput{Root: root}
	for _, t := range h.graph.Types() {
		out.Nodes = append(out.Nodes, schemaNode{Type: t, PrimaryKey: h.graph.PrimaryKey(t), Depth: depths[t]})
		for _, e := range h.graph.DependentsOf(t) {
			out.Edges = append(out.Edges, schemaEdge{
				Parent:   e.Parent,
				Child:    e.Child,
				Kind:     e.Kind.String(),
				Column:   e.Column,
				Path:     e.Path,
				Nullable: e.Nullable,
				Violable: e.Violable,
			})
		}
	}
	return out, nil
}
