// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/worldprune/models"
)

func TestDefaultGraph_Types(t *testing.T) {
	g := Default()

	assert.Equal(t, []models.EntityType{
		models.TypeWorld,
		models.TypeScenario,
		models.TypeCharacter,
		models.TypeEvent,
		models.TypeResource,
		models.TypeSimulationState,
	}, g.Types())

	for _, typ := range g.Types() {
		assert.Equal(t, "id", g.PrimaryKey(typ), "primary key of %s", typ)
	}
	assert.Equal(t, "", g.PrimaryKey("missing"))
}

func TestDefaultGraph_DependentsOf(t *testing.T) {
	g := Default()

	tests := []struct {
		name     string
		parent   models.EntityType
		children []models.EntityType
		columns  []string
	}{
		{
			name:     "worlds",
			parent:   models.TypeWorld,
			children: []models.EntityType{models.TypeScenario, models.TypeSimulationState},
			columns:  []string{"world_id", "metadata"},
		},
		{
			name:   "scenarios",
			parent: models.TypeScenario,
			children: []models.EntityType{
				models.TypeCharacter, models.TypeEvent, models.TypeResource, models.TypeSimulationState,
			},
			columns: []string{"scenario_id", "scenario_id", "scenario_id", "scenario_id"},
		},
		{
			name:   "leaf",
			parent: models.TypeCharacter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edges := g.DependentsOf(tt.parent)
			require.Len(t, edges, len(tt.children))
			for i, e := range edges {
				assert.Equal(t, tt.children[i], e.Child)
				assert.Equal(t, tt.columns[i], e.Column)
				assert.Equal(t, tt.parent, e.Parent)
			}
		})
	}
}

func TestDefaultGraph_SimulationStateEdges(t *testing.T) {
	g := Default()

	parent, ok := g.StructuralParent(models.TypeSimulationState)
	require.True(t, ok)
	assert.Equal(t, models.TypeScenario, parent.Parent)
	assert.False(t, parent.Nullable)
	assert.True(t, parent.Violable)

	meta := g.MetadataEdges(models.TypeWorld)
	require.Len(t, meta, 1)
	assert.Equal(t, models.TypeSimulationState, meta[0].Child)
	assert.Equal(t, MetadataWorldKey, meta[0].Path)
	assert.Equal(t, Metadata, meta[0].Kind)

	_, ok = g.StructuralParent(models.TypeWorld)
	assert.False(t, ok, "root has no structural parent")
}

func TestDependentsOf_ReturnsCopy(t *testing.T) {
	g := Default()

	edges := g.DependentsOf(models.TypeWorld)
	edges[0].Column = "mutated"

	assert.Equal(t, "world_id", g.DependentsOf(models.TypeWorld)[0].Column)
}

func TestDepths(t *testing.T) {
	g := Default()

	depths, err := g.Depths(models.TypeWorld)
	require.NoError(t, err)
	assert.Equal(t, map[models.EntityType]int{
		models.TypeWorld:           0,
		models.TypeScenario:        1,
		models.TypeCharacter:       2,
		models.TypeEvent:           2,
		models.TypeResource:        2,
		models.TypeSimulationState: 2,
	}, depths)

	depths, err = g.Depths(models.TypeScenario)
	require.NoError(t, err)
	assert.NotContains(t, depths, models.TypeWorld)
	assert.Equal(t, 1, depths[models.TypeEvent])

	_, err = g.Depths("nope")
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestDepths_LongestPath(t *testing.T) {
	// a -> b -> c and a -> c: c must sit below b
	g, err := New(
		[]Node{{Type: "a"}, {Type: "b"}, {Type: "c"}, {Type: "d"}},
		[]Edge{
			{Parent: "a", Child: "b", Column: "a_id"},
			{Parent: "b", Child: "c", Column: "b_id"},
			{Parent: "a", Child: "d", Column: "a_id"},
			{Parent: "a", Child: "c", Column: "meta", Path: "a", Kind: Metadata},
		},
	)
	require.NoError(t, err)

	depths, err := g.Depths("a")
	require.NoError(t, err)
	assert.Equal(t, 2, depths["c"])
	assert.Equal(t, 1, depths["d"])
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		edges []Edge
		is    error
	}{
		{
			name:  "unknown child",
			nodes: []Node{{Type: "a"}},
			edges: []Edge{{Parent: "a", Child: "b", Column: "a_id"}},
			is:    ErrUnknownType,
		},
		{
			name:  "cycle",
			nodes: []Node{{Type: "a"}, {Type: "b"}},
			edges: []Edge{
				{Parent: "a", Child: "b", Column: "a_id"},
				{Parent: "b", Child: "a", Column: "b_id"},
			},
			is: ErrCycle,
		},
		{
			name:  "two structural parents",
			nodes: []Node{{Type: "a"}, {Type: "b"}, {Type: "c"}},
			edges: []Edge{
				{Parent: "a", Child: "c", Column: "a_id"},
				{Parent: "b", Child: "c", Column: "b_id"},
			},
		},
		{
			name:  "metadata edge without path",
			nodes: []Node{{Type: "a"}, {Type: "b"}},
			edges: []Edge{{Parent: "a", Child: "b", Column: "meta", Kind: Metadata}},
		},
		{
			name:  "duplicate type",
			nodes: []Node{{Type: "a"}, {Type: "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.nodes, tt.edges)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestEdgeString(t *testing.T) {
	g := Default()
	edges := g.DependentsOf(models.TypeWorld)

	assert.Equal(t, "scenarios.world_id -> worlds", edges[0].String())
	assert.Equal(t, "simulation_states.metadata->>'world_id' -> worlds", edges[1].String())
	assert.Equal(t, "metadata", Metadata.String())
}
