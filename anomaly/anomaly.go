// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package anomaly

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/tidwall/gjson"

	"github.com/danielhkuo/worldprune/db"
	"github.com/danielhkuo/worldprune/models"
	"github.com/danielhkuo/worldprune/resolver"
	"github.com/danielhkuo/worldprune/schema"
)

// DetectionWarning is a non-fatal problem found while scanning side
// channels. It is reported but never blocks a run.
type DetectionWarning struct {
	Type   models.EntityType
	ID     int64
	Reason string
}

func (w DetectionWarning) Error() string {
	return fmt.Sprintf("%s %d: %s", w.Type, w.ID, w.Reason)
}

type Detector struct {
	graph *schema.Graph
	batch int
}

func New(graph *schema.Graph, batchSize int) *Detector {
	if batchSize <= 0 {
		batchSize = db.DefaultBatchSize
	}
	return &Detector{graph: graph, batch: batchSize}
}

type candidate struct {
	ID       int64          `db:"id"`
	Parent   sql.NullInt64  `db:"parent_id"`
	Metadata sql.NullString `db:"metadata"`
}

// Detect finds rows that name the plan's root through a metadata edge but
// whose structural foreign key points outside the plan. They are added to
// the plan as anomalies tagged for direct delete. Warnings are also
// appended to plan.Warnings.
func (d *Detector) Detect(ctx context.Context, q sqlx.ExtContext, plan *models.Plan) ([]DetectionWarning, error) {
	var warnings []DetectionWarning

	for _, e := range d.graph.MetadataEdges(plan.RootType) {
		found, warns, err := d.detectEdge(ctx, q, plan, e)
		if err != nil {
			return warnings, err
		}
		warnings = append(warnings, warns...)

		if len(found) == 0 {
			continue
		}
		group, ok := plan.Group(e.Child)
		if !ok {
			plan.Groups = append(plan.Groups, models.Group{
				Type:  e.Child,
				Depth: d.depth(plan.RootType, e),
				IDs:   []int64{},
			})
			group = &plan.Groups[len(plan.Groups)-1]
		}
		group.Anomalies = append(group.Anomalies, found...)

		slog.Warn("anomalous rows found",
			"type", e.Child,
			"count", len(found),
			"edge", e.String(),
			"root_id", plan.RootID,
		)
	}

	resolver.SortGroups(d.graph, plan.Groups)
	for _, w := range warnings {
		plan.Warnings = append(plan.Warnings, w.Error())
	}
	return warnings, nil
}

func (d *Detector) detectEdge(ctx context.Context, q sqlx.ExtContext, plan *models.Plan, e schema.Edge) ([]models.Anomaly, []DetectionWarning, error) {
	parentEdge, hasParent := d.graph.StructuralParent(e.Child)
	fkColumn := "NULL"
	if hasParent {
		fkColumn = parentEdge.Column
	}

	rows, err := d.scan(ctx, q, e, fkColumn)
	if err != nil {
		return nil, nil, err
	}

	planned := models.NewIDSet()
	if g, ok := plan.Group(e.Child); ok {
		planned.Add(g.IDs...)
		planned.Add(g.AnomalyIDs()...)
	}

	var (
		found    []models.Anomaly
		warnings []DetectionWarning
	)
	for _, row := range rows {
		if planned.Has(row.ID) {
			continue
		}

		ref, ok, warn := embeddedID(row.Metadata.String, e.Path)
		if warn != "" {
			warnings = append(warnings, DetectionWarning{Type: e.Child, ID: row.ID, Reason: warn})
			continue
		}
		if !ok || ref != plan.RootID {
			continue
		}

		found = append(found, models.Anomaly{
			Type:           e.Child,
			ID:             row.ID,
			Column:         parentEdge.Column,
			ForeignKey:     row.Parent.Int64,
			MetadataRootID: ref,
			Reason:         models.ReasonMissingParent,
			Tag:            models.DirectDeleteTag,
		})
	}

	if hasParent && len(found) > 0 {
		if err := d.classify(ctx, q, parentEdge, found); err != nil {
			return nil, nil, err
		}
	}

	return found, warnings, nil
}

// References returns the ids of e.Child rows whose metadata names rootID,
// planned or not, using the same parsing rules as Detect. Rows with
// malformed metadata are not references.
func (d *Detector) References(ctx context.Context, q sqlx.ExtContext, e schema.Edge, rootID int64) ([]int64, error) {
	rows, err := d.scan(ctx, q, e, "NULL")
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, row := range rows {
		if ref, ok, _ := embeddedID(row.Metadata.String, e.Path); ok && ref == rootID {
			ids = append(ids, row.ID)
		}
	}
	return ids, nil
}

// scan loads every row of e.Child whose metadata mentions the key. The
// LIKE is a cheap textual prefilter; callers parse the JSON.
func (d *Detector) scan(ctx context.Context, q sqlx.ExtContext, e schema.Edge, fkColumn string) ([]candidate, error) {
	pk := d.graph.PrimaryKey(e.Child)
	query := q.Rebind(fmt.Sprintf(
		"SELECT %s AS id, %s AS parent_id, CAST(%s AS TEXT) AS metadata FROM %s WHERE CAST(%s AS TEXT) LIKE ? ORDER BY %s",
		pk, fkColumn, e.Column, e.Child, e.Column, pk,
	))
	var rows []candidate
	if err := sqlx.SelectContext(ctx, q, &rows, query, `%"`+e.Path+`"%`); err != nil {
		return nil, fmt.Errorf("failed to scan %s.%s: %w", e.Child, e.Column, err)
	}
	return rows, nil
}

// classify marks anomalies whose parent row exists (in another root's
// subgraph) as ReasonParentElsewhere.
func (d *Detector) classify(ctx context.Context, q sqlx.ExtContext, parentEdge schema.Edge, found []models.Anomaly) error {
	fks := models.NewIDSet()
	for _, a := range found {
		fks.Add(a.ForeignKey)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (?)",
		d.graph.PrimaryKey(parentEdge.Parent), parentEdge.Parent, d.graph.PrimaryKey(parentEdge.Parent))
	existing, err := db.SelectIDs(ctx, q, d.batch, query, fks.Sorted())
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", parentEdge.Parent, err)
	}

	exists := models.NewIDSet(existing...)
	for i := range found {
		if exists.Has(found[i].ForeignKey) {
			found[i].Reason = models.ReasonParentElsewhere
		}
	}
	return nil
}

func (d *Detector) depth(root models.EntityType, e schema.Edge) int {
	depths, err := d.graph.Depths(root)
	if err == nil {
		if n, ok := depths[e.Child]; ok {
			return n
		}
	}
	return depths[e.Parent] + 1
}

// embeddedID extracts the id stored under key. Numbers and numeric
// strings are accepted. ok is false when the key is absent; warn is set
// when the document or value is malformed.
func embeddedID(doc, key string) (id int64, ok bool, warn string) {
	if !gjson.Valid(doc) {
		return 0, false, "metadata is not valid JSON"
	}

	v := gjson.Get(doc, key)
	switch v.Type {
	case gjson.Null:
		return 0, false, ""
	case gjson.Number:
		if v.Num != float64(int64(v.Num)) {
			return 0, false, fmt.Sprintf("metadata %s is not an integer: %s", key, v.Raw)
		}
		return v.Int(), true, ""
	case gjson.String:
		n, err := strconv.ParseInt(v.Str, 10, 64)
		if err != nil {
			return 0, false, fmt.Sprintf("metadata %s is not numeric: %q", key, v.Str)
		}
		return n, true, ""
	default:
		return 0, false, fmt.Sprintf("metadata %s has unexpected type %s", key, v.Type)
	}
}
