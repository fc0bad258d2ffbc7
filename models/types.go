// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// EntityType names an in-scope table
type EntityType string

// Entity type constants
const (
	TypeWorld           EntityType = "worlds"
	TypeScenario        EntityType = "scenarios"
	TypeCharacter       EntityType = "characters"
	TypeEvent           EntityType = "events"
	TypeResource        EntityType = "resources"
	TypeSimulationState EntityType = "simulation_states"
)

// Strategy constants
const (
	StrategyCascade Strategy = "cascade"
	StrategyDirect  Strategy = "direct"
	StrategyRelaxed Strategy = "relaxed"
)

// Strategy is the way a set of rows was removed
type Strategy string

// Anomaly reasons
const (
	ReasonMissingParent   = "missing parent"
	ReasonParentElsewhere = "parent owned elsewhere"
)

// DirectDeleteTag marks anomalous rows in plan output
const DirectDeleteTag = "requires-direct-delete"

// Domain types

type World struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Scenario struct {
	ID      int64  `json:"id"`
	WorldID int64  `json:"world_id"`
	Name    string `json:"name"`
}

// SimulationState carries a JSON metadata blob that may name its
// owning world independently of scenario_id.
type SimulationState struct {
	ID         int64  `json:"id"`
	ScenarioID int64  `json:"scenario_id"`
	Step       int64  `json:"step"`
	Metadata   string `json:"metadata"`
}

// Plan types

// Anomaly is a row owned by the root through a metadata reference while
// its structural foreign key points outside the plan.
type Anomaly struct {
	Type           EntityType `json:"type"`
	ID             int64      `json:"id"`
	Column         string     `json:"column"`
	ForeignKey     int64      `json:"foreign_key"`
	MetadataRootID int64      `json:"metadata_root_id"`
	Reason         string     `json:"reason"`
	Tag            string     `json:"tag"`
}

// Group is one step of a plan: rows of a single type, deleted together.
type Group struct {
	Type      EntityType `json:"type"`
	Depth     int        `json:"depth"`
	IDs       []int64    `json:"ids"`
	Anomalies []Anomaly  `json:"anomalies,omitempty"`
}

// Total counts clean and anomalous rows
func (g Group) Total() int {
	return len(g.IDs) + len(g.Anomalies)
}

// AnomalyIDs returns the ids of anomalous rows in plan order
func (g Group) AnomalyIDs() []int64 {
	ids := make([]int64, 0, len(g.Anomalies))
	for _, a := range g.Anomalies {
		ids = append(ids, a.ID)
	}
	return ids
}

// Plan is an ordered deletion plan. Every group's referencing rows
// appear in an earlier group; the root group is last.
type Plan struct {
	RootType  EntityType `json:"root_type"`
	RootID    int64      `json:"root_id"`
	RootLabel string     `json:"root_label,omitempty"`
	Groups    []Group    `json:"groups"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// Group returns the group for t, if any
func (p *Plan) Group(t EntityType) (*Group, bool) {
	for i := range p.Groups {
		if p.Groups[i].Type == t {
			return &p.Groups[i], true
		}
	}
	return nil, false
}

// TotalRows counts every row the plan would delete
func (p *Plan) TotalRows() int {
	n := 0
	for _, g := range p.Groups {
		n += g.Total()
	}
	return n
}

// AnomalyCount counts rows tagged for direct delete
func (p *Plan) AnomalyCount() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Anomalies)
	}
	return n
}

// Report types

// TypeCount is the number of rows removed for one type, split by strategy
type TypeCount struct {
	Type       EntityType         `json:"type"`
	Planned    int                `json:"planned"`
	Deleted    int64              `json:"deleted"`
	ByStrategy map[Strategy]int64 `json:"by_strategy"`
}

// Relaxation records one temporary constraint suspension
type Relaxation struct {
	Type       EntityType `json:"type"`
	Constraint string     `json:"constraint"`
	Restored   bool       `json:"restored"`
}

// Report summarizes a committed run
type Report struct {
	RunID       string        `json:"run_id"`
	RootType    EntityType    `json:"root_type"`
	RootID      int64         `json:"root_id"`
	Counts      []TypeCount   `json:"counts"`
	Relaxations []Relaxation  `json:"relaxations,omitempty"`
	Warnings    []string      `json:"warnings,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
}

// TotalDeleted sums deleted rows across types
func (r *Report) TotalDeleted() int64 {
	var n int64
	for _, c := range r.Counts {
		n += c.Deleted
	}
	return n
}

// Error response

type ErrorResponse struct {
	Error   string  `json:"error"`
	Message string  `json:"message,omitempty"`
	Type    string  `json:"type,omitempty"`
	IDs     []int64 `json:"ids,omitempty"`
	Hint    string  `json:"hint,omitempty"`
}
