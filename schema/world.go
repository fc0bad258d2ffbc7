// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package schema

import "github.com/danielhkuo/worldprune/models"

// MetadataWorldKey is the JSON key simulation states use to name their world
const MetadataWorldKey = "world_id"

var defaultGraph = mustNew(worldNodes(), worldEdges())

// Default returns the world graph:
//
//	worlds 1──* scenarios
//	scenarios 1──* characters
//	scenarios 1──* events
//	scenarios 1──* resources
//	scenarios 1──* simulation_states
//	worlds 1┄┄* simulation_states (metadata.world_id)
func Default() *Graph {
	return defaultGraph
}

func worldNodes() []Node {
	return []Node{
		{Type: models.TypeWorld, PrimaryKey: "id", Label: "name"},
		{Type: models.TypeScenario, PrimaryKey: "id", Label: "name"},
		{Type: models.TypeCharacter, PrimaryKey: "id", Label: "name"},
		{Type: models.TypeEvent, PrimaryKey: "id", Label: "title"},
		{Type: models.TypeResource, PrimaryKey: "id", Label: "name"},
		{Type: models.TypeSimulationState, PrimaryKey: "id"},
	}
}

func worldEdges() []Edge {
	return []Edge{
		{Parent: models.TypeWorld, Child: models.TypeScenario, Column: "world_id", Kind: Structural},
		{Parent: models.TypeScenario, Child: models.TypeCharacter, Column: "scenario_id", Kind: Structural},
		{Parent: models.TypeScenario, Child: models.TypeEvent, Column: "scenario_id", Kind: Structural},
		{Parent: models.TypeScenario, Child: models.TypeResource, Column: "scenario_id", Kind: Structural},
		{Parent: models.TypeScenario, Child: models.TypeSimulationState, Column: "scenario_id", Violable: true, Kind: Structural},
		{Parent: models.TypeWorld, Child: models.TypeSimulationState, Column: "metadata", Path: MetadataWorldKey, Nullable: true, Kind: Metadata},
	}
}

func mustNew(nodes []Node, edges []Edge) *Graph {
	g, err := New(nodes, edges)
	if err != nil {
		panic("schema: " + err.Error())
	}
	return g
}
