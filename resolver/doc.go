// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package resolver computes which rows depend on a root entity.

Resolve reads the root, then walks the structural edges of the schema
graph breadth-first, collecting child ids in batched IN queries:

	plan, err := resolver.New(schema.Default(), 500).Resolve(ctx, conn, models.TypeWorld, 18)

Each type's ids are kept in a set, so a row reached twice is planned once.
Groups are sorted by depth, deepest first, with ties broken by reverse
declaration order. The resolver never writes.

A missing root returns a *ResolutionError wrapping ErrRootNotFound.
*/
package resolver
