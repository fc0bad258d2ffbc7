// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/worldprune/models"
)

func TestSchema_Text(t *testing.T) {
	console, tc := newTestConsole("", false)
	h := NewSchemaHandler(console)

	require.Equal(t, ExitOK, h.Schema(context.Background(), nil))
	out := tc.out.String()

	assert.Contains(t, out, "scenarios.world_id -> worlds")
	assert.Contains(t, out, "simulation_states.scenario_id -> scenarios [violable]")
	assert.Contains(t, out, "simulation_states.metadata->>'world_id' -> worlds [nullable]")
}

func TestSchema_JSON(t *testing.T) {
	console, tc := newTestConsole("", false)
	h := NewSchemaHandler(console)

	require.Equal(t, ExitOK, h.Schema(context.Background(), []string{"-o", "json"}))

	var got schemaOutput
	require.NoError(t, json.Unmarshal(tc.out.Bytes(), &got))
	assert.Equal(t, models.TypeWorld, got.Root)
	assert.Len(t, got.Nodes, 6)
	assert.Len(t, got.Edges, 6)

	depths := map[models.EntityType]int{}
	for _, n := range got.Nodes {
		depths[n.Type] = n.Depth
	}
	assert.Equal(t, 0, depths[models.TypeWorld])
	assert.Equal(t, 2, depths[models.TypeSimulationState])
}
