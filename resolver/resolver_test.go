// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/worldprune/models"
	"github.com/danielhkuo/worldprune/schema"
	"github.com/danielhkuo/worldprune/testutil"
)

func TestResolveWorld18(t *testing.T) {
	conn, _ := testutil.SetupTestDB(t)
	testutil.SeedWorld18(t, conn)
	before := testutil.CountAll(t, conn)

	plan, err := New(schema.Default(), 2).Resolve(context.Background(), conn, models.TypeWorld, 18)
	require.NoError(t, err)

	assert.Equal(t, "Aldera", plan.RootLabel)
	assert.Equal(t, 6, plan.TotalRows())

	scenarios, ok := plan.Group(models.TypeScenario)
	require.True(t, ok)
	assert.Equal(t, []int64{181, 182}, scenarios.IDs)
	assert.Equal(t, 1, scenarios.Depth)

	characters, ok := plan.Group(models.TypeCharacter)
	require.True(t, ok)
	assert.Equal(t, []int64{1811, 1812, 1821}, characters.IDs)

	// 1899 points at a missing scenario and is not reachable structurally
	_, ok = plan.Group(models.TypeSimulationState)
	assert.False(t, ok)

	// Root last
	last := plan.Groups[len(plan.Groups)-1]
	assert.Equal(t, models.TypeWorld, last.Type)
	assert.Equal(t, []int64{18}, last.IDs)

	// Read only
	assert.Equal(t, before, testutil.CountAll(t, conn))
}

func TestResolveOrdering(t *testing.T) {
	conn, _ := testutil.SetupTestDB(t)

	testutil.CreateTestWorld(t, conn, models.World{ID: 1})
	testutil.AddTestScenario(t, conn, 11, 1)
	testutil.AddTestCharacter(t, conn, 111, 11)
	testutil.AddTestEvent(t, conn, 112, 11)
	testutil.AddTestResource(t, conn, 113, 11)
	testutil.AddTestSimulationState(t, conn, models.SimulationState{ID: 114, ScenarioID: 11})

	plan, err := New(schema.Default(), 500).Resolve(context.Background(), conn, models.TypeWorld, 1)
	require.NoError(t, err)

	var order []models.EntityType
	for _, g := range plan.Groups {
		order = append(order, g.Type)
	}
	assert.Equal(t, []models.EntityType{
		models.TypeSimulationState,
		models.TypeResource,
		models.TypeEvent,
		models.TypeCharacter,
		models.TypeScenario,
		models.TypeWorld,
	}, order)
}

func TestResolveEmptyWorld(t *testing.T) {
	conn, _ := testutil.SetupTestDB(t)
	testutil.CreateTestWorld(t, conn, models.World{ID: 3})

	plan, err := New(schema.Default(), 500).Resolve(context.Background(), conn, models.TypeWorld, 3)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 1)
	assert.Equal(t, 1, plan.TotalRows())
}

func TestResolveNotFound(t *testing.T) {
	conn, _ := testutil.SetupTestDB(t)

	_, err := New(schema.Default(), 500).Resolve(context.Background(), conn, models.TypeWorld, 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRootNotFound))

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, int64(404), resErr.ID)
}

func TestResolveUnknownType(t *testing.T) {
	conn, _ := testutil.SetupTestDB(t)

	_, err := New(schema.Default(), 500).Resolve(context.Background(), conn, models.EntityType("planets"), 1)
	assert.True(t, errors.Is(err, schema.ErrUnknownType))
}

func TestResolveScenarioRoot(t *testing.T) {
	conn, _ := testutil.SetupTestDB(t)
	testutil.SeedWorld18(t, conn)

	plan, err := New(schema.Default(), 500).Resolve(context.Background(), conn, models.TypeScenario, 181)
	require.NoError(t, err)

	characters, ok := plan.Group(models.TypeCharacter)
	require.True(t, ok)
	assert.Equal(t, []int64{1811, 1812}, characters.IDs)
	_, ok = plan.Group(models.TypeWorld)
	assert.False(t, ok)
}
