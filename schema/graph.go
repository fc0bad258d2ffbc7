// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package schema

import (
	"errors"
	"fmt"

	"github.com/danielhkuo/worldprune/models"
)

// EdgeKind distinguishes real foreign keys from side-channel references
type EdgeKind int

const (
	// Structural edges are foreign key columns
	Structural EdgeKind = iota
	// Metadata edges are ids embedded in a JSON column
	Metadata
)

func (k EdgeKind) String() string {
	switch k {
	case Structural:
		return "structural"
	case Metadata:
		return "metadata"
	default:
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
}

var (
	ErrUnknownType = errors.New("unknown entity type")
	ErrCycle       = errors.New("structural edges form a cycle")
)

// Node describes one entity type
type Node struct {
	Type       models.EntityType
	PrimaryKey string
	// Label is a human-readable column shown in plans, may be empty
	Label string
}

// Edge points from a parent type to a child type that references it.
type Edge struct {
	Parent models.EntityType
	Child  models.EntityType
	// Column is the foreign key column, or the JSON column for metadata edges
	Column string
	// Path is the JSON key holding the parent id (metadata edges only)
	Path     string
	Nullable bool
	// Violable marks NOT NULL keys whose stored values are known to break
	// the declared invariant
	Violable bool
	Kind     EdgeKind
}

func (e Edge) String() string {
	if e.Kind == Metadata {
		return fmt.Sprintf("%s.%s->>'%s' -> %s", e.Child, e.Column, e.Path, e.Parent)
	}
	return fmt.Sprintf("%s.%s -> %s", e.Child, e.Column, e.Parent)
}

// Graph is an immutable description of entity types and their edges
type Graph struct {
	nodes   []Node
	index   map[models.EntityType]int
	edges   map[models.EntityType][]Edge
	parents map[models.EntityType]Edge
}

// New validates nodes and edges and builds a graph. Every type may have
// at most one structural parent and structural edges must be acyclic.
func New(nodes []Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		nodes:   make([]Node, 0, len(nodes)),
		index:   make(map[models.EntityType]int, len(nodes)),
		edges:   make(map[models.EntityType][]Edge),
		parents: make(map[models.EntityType]Edge),
	}

	for _, n := range nodes {
		if _, dup := g.index[n.Type]; dup {
			return nil, fmt.Errorf("duplicate entity type %q", n.Type)
		}
		if n.PrimaryKey == "" {
			n.PrimaryKey = "id"
		}
		g.index[n.Type] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}

	for _, e := range edges {
		if !g.Has(e.Parent) {
			return nil, fmt.Errorf("edge %s: parent: %w", e, ErrUnknownType)
		}
		if !g.Has(e.Child) {
			return nil, fmt.Errorf("edge %s: child: %w", e, ErrUnknownType)
		}
		if e.Kind == Metadata && e.Path == "" {
			return nil, fmt.Errorf("edge %s: metadata edge needs a path", e)
		}
		if e.Kind == Structural {
			if prev, ok := g.parents[e.Child]; ok {
				return nil, fmt.Errorf("%s has two structural parents (%s, %s)", e.Child, prev.Parent, e.Parent)
			}
			g.parents[e.Child] = e
		}
		g.edges[e.Parent] = append(g.edges[e.Parent], e)
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *Graph) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[models.EntityType]int, len(g.nodes))

	var visit func(t models.EntityType) error
	visit = func(t models.EntityType) error {
		switch state[t] {
		case visiting:
			return fmt.Errorf("%w at %s", ErrCycle, t)
		case done:
			return nil
		}
		state[t] = visiting
		for _, e := range g.edges[t] {
			if e.Kind != Structural {
				continue
			}
			if err := visit(e.Child); err != nil {
				return err
			}
		}
		state[t] = done
		return nil
	}

	for _, n := range g.nodes {
		if err := visit(n.Type); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether t is declared
func (g *Graph) Has(t models.EntityType) bool {
	_, ok := g.index[t]
	return ok
}

// Types returns entity types in declaration order
func (g *Graph) Types() []models.EntityType {
	types := make([]models.EntityType, len(g.nodes))
	for i, n := range g.nodes {
		types[i] = n.Type
	}
	return types
}

// Node returns the node for t
func (g *Graph) Node(t models.EntityType) (Node, bool) {
	i, ok := g.index[t]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// PrimaryKey returns the primary key column of t, or "" if t is unknown
func (g *Graph) PrimaryKey(t models.EntityType) string {
	n, ok := g.Node(t)
	if !ok {
		return ""
	}
	return n.PrimaryKey
}

// Order returns the declaration index of t, or -1
func (g *Graph) Order(t models.EntityType) int {
	i, ok := g.index[t]
	if !ok {
		return -1
	}
	return i
}

// DependentsOf returns the edges leaving t, structural and metadata, in
// declaration order. The slice is a copy.
func (g *Graph) DependentsOf(t models.EntityType) []Edge {
	edges := g.edges[t]
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

// StructuralParent returns the foreign key edge that points at t's parent
func (g *Graph) StructuralParent(t models.EntityType) (Edge, bool) {
	e, ok := g.parents[t]
	return e, ok
}

// MetadataEdges returns every metadata edge whose parent is t
func (g *Graph) MetadataEdges(t models.EntityType) []Edge {
	var out []Edge
	for _, e := range g.edges[t] {
		if e.Kind == Metadata {
			out = append(out, e)
		}
	}
	return out
}

// Depths returns the longest structural path length from root to every
// reachable type. The root has depth 0.
func (g *Graph) Depths(root models.EntityType) (map[models.EntityType]int, error) {
	if !g.Has(root) {
		return nil, fmt.Errorf("%q: %w", root, ErrUnknownType)
	}

	depths := map[models.EntityType]int{root: 0}
	queue := []models.EntityType{root}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for _, e := range g.edges[t] {
			if e.Kind != Structural {
				continue
			}
			d := depths[t] + 1
			if cur, seen := depths[e.Child]; seen && cur >= d {
				continue
			}
			// acyclic, so re-queueing on a longer path terminates
			depths[e.Child] = d
			queue = append(queue, e.Child)
		}
	}
	return depths, nil
}
