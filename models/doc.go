// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the domain, plan, and report types shared by the
resolver, the anomaly detector, the executor, and the command handlers.

# Entity Types

Each in-scope table has a constant:

	TypeWorld           = "worlds"
	TypeScenario        = "scenarios"
	TypeCharacter       = "characters"
	TypeEvent           = "events"
	TypeResource        = "resources"
	TypeSimulationState = "simulation_states"

# Plans

A Plan is an ordered list of Groups. Each Group holds the clean ids of
one type (reachable through a structural foreign key) and the Anomalies
of that type (reachable only through the metadata side channel):

	plan.Groups[0] // deepest dependents
	plan.Groups[len(plan.Groups)-1] // the root

Anomalies are tagged DirectDeleteTag ("requires-direct-delete").

# Id Sets

IDSet and Arena collect ids per type while walking the graph. Adding an
id that is already present is a no-op:

	arena := models.Arena{}
	arena.Set(models.TypeScenario).Add(3, 4, 3) // 2 ids

# Reports

A Report holds per-type counts split by Strategy:

	StrategyCascade = "cascade"
	StrategyDirect  = "direct"
	StrategyRelaxed = "relaxed"

plus any constraint Relaxations used during the run.
*/
package models
