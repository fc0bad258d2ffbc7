// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package resolver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/worldprune/db"
	"github.com/danielhkuo/worldprune/models"
	"github.com/danielhkuo/worldprune/schema"
)

var (
	ErrRootNotFound = errors.New("root not found")
)

// ResolutionError reports a plan that could not be built. Nothing has
// been modified when it is returned.
type ResolutionError struct {
	Type models.EntityType
	ID   int64
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s %d: %v", e.Type, e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

type Resolver struct {
	graph *schema.Graph
	batch int
}

func New(graph *schema.Graph, batchSize int) *Resolver {
	if batchSize <= 0 {
		batchSize = db.DefaultBatchSize
	}
	return &Resolver{graph: graph, batch: batchSize}
}

// Resolve walks structural edges breadth-first from the root and returns
// the deletion plan, deepest dependents first. It only reads.
func (r *Resolver) Resolve(ctx context.Context, q sqlx.ExtContext, root models.EntityType, id int64) (*models.Plan, error) {
	node, ok := r.graph.Node(root)
	if !ok {
		return nil, &ResolutionError{Type: root, ID: id, Err: schema.ErrUnknownType}
	}

	label, err := r.lookupRoot(ctx, q, node, id)
	if err != nil {
		return nil, &ResolutionError{Type: root, ID: id, Err: err}
	}

	depths, err := r.graph.Depths(root)
	if err != nil {
		return nil, &ResolutionError{Type: root, ID: id, Err: err}
	}

	arena := models.Arena{}
	arena.Set(root).Add(id)

	queue := []models.EntityType{root}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		parentIDs := arena.Set(t).Sorted()
		for _, e := range r.graph.DependentsOf(t) {
			if e.Kind != schema.Structural {
				continue
			}

			query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (?)",
				r.graph.PrimaryKey(e.Child), e.Child, e.Column)
			ids, err := db.SelectIDs(ctx, q, r.batch, query, parentIDs)
			if err != nil {
				return nil, &ResolutionError{Type: root, ID: id, Err: fmt.Errorf("failed to collect %s: %w", e.Child, err)}
			}

			added := arena.Set(e.Child).Add(ids...)
			slog.Debug("resolved dependents",
				"edge", e.String(),
				"parents", len(parentIDs),
				"found", len(ids),
				"new", added,
			)
			if added > 0 {
				queue = append(queue, e.Child)
			}
		}
	}

	plan := &models.Plan{
		RootType:  root,
		RootID:    id,
		RootLabel: label,
	}
	for t, set := range arena {
		if set.Len() == 0 {
			continue
		}
		plan.Groups = append(plan.Groups, models.Group{
			Type:  t,
			Depth: depths[t],
			IDs:   set.Sorted(),
		})
	}
	SortGroups(r.graph, plan.Groups)

	return plan, nil
}

func (r *Resolver) lookupRoot(ctx context.Context, q sqlx.ExtContext, node schema.Node, id int64) (string, error) {
	var (
		found int64
		label sql.NullString
	)

	var err error
	if node.Label != "" {
		query := q.Rebind(fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = ?",
			node.PrimaryKey, node.Label, node.Type, node.PrimaryKey))
		err = q.QueryRowxContext(ctx, query, id).Scan(&found, &label)
	} else {
		query := q.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
			node.PrimaryKey, node.Type, node.PrimaryKey))
		err = q.QueryRowxContext(ctx, query, id).Scan(&found)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrRootNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query root: %w", err)
	}
	return label.String, nil
}

// SortGroups orders groups deepest first. Ties are broken by reverse
// declaration order so plans are deterministic.
func SortGroups(graph *schema.Graph, groups []models.Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Depth != groups[j].Depth {
			return groups[i].Depth > groups[j].Depth
		}
		return graph.Order(groups[i].Type) > graph.Order(groups[j].Type)
	})
}
