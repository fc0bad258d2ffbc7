// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package executor

import (
	"fmt"

	"github.com/danielhkuo/worldprune/db"
	"github.com/danielhkuo/worldprune/schema"
)

// checkClosure verifies, inside the transaction, that every planned row
// is gone and that no in-scope row still points at one of them, either
// through a foreign key or through metadata naming the root.
func (r *run) checkClosure() error {
	for _, g := range r.plan.Groups {
		all := append(append([]int64{}, g.IDs...), g.AnomalyIDs()...)

		left, err := r.remaining(g.Type, all)
		if err != nil {
			return r.fail(g.Type, all, "", fmt.Errorf("closure check: %w", err))
		}
		if len(left) > 0 {
			return r.fail(g.Type, left, "", fmt.Errorf("%w: %d planned rows survived", ErrNotClosed, len(left)))
		}

		for _, e := range r.x.graph.DependentsOf(g.Type) {
			if e.Kind != schema.Structural {
				continue
			}
			query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (?)",
				r.x.graph.PrimaryKey(e.Child), e.Child, e.Column)
			refs, err := db.SelectIDs(r.ctx, r.tx, r.x.batch, query, all)
			if err != nil {
				return r.fail(e.Child, nil, "", fmt.Errorf("closure check: %w", err))
			}
			if len(refs) > 0 {
				return r.fail(e.Child, refs, "", fmt.Errorf("%w: %s", ErrNotClosed, e))
			}
		}
	}

	for _, e := range r.x.graph.MetadataEdges(r.plan.RootType) {
		refs, err := r.x.detector.References(r.ctx, r.tx, e, r.plan.RootID)
		if err != nil {
			return r.fail(e.Child, nil, "", fmt.Errorf("closure check: %w", err))
		}
		if len(refs) > 0 {
			return r.fail(e.Child, refs, "", fmt.Errorf("%w: %s", ErrNotClosed, e))
		}
	}
	return nil
}
