// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/worldprune/models"
)

func world18Plan() *models.Plan {
	return &models.Plan{
		RootType:  models.TypeWorld,
		RootID:    18,
		RootLabel: "Aldera",
		Groups: []models.Group{
			{Type: models.TypeSimulationState, Depth: 2, IDs: []int64{}, Anomalies: []models.Anomaly{{
				Type:           models.TypeSimulationState,
				ID:             1899,
				Column:         "scenario_id",
				ForeignKey:     999,
				MetadataRootID: 18,
				Reason:         models.ReasonMissingParent,
				Tag:            models.DirectDeleteTag,
			}}},
			{Type: models.TypeCharacter, Depth: 2, IDs: []int64{1811, 1812, 1821}},
			{Type: models.TypeScenario, Depth: 1, IDs: []int64{181, 182}},
			{Type: models.TypeWorld, Depth: 0, IDs: []int64{18}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yaml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Plan(&buf, FormatText, world18Plan(), true))

	out := buf.String()
	assert.Contains(t, out, `world 18 "Aldera": 7 rows in 4 types`)
	assert.Contains(t, out, "(1 anomalous)")
	assert.Contains(t, out, "simulation_states 1899: scenario_id=999, missing parent; metadata names 18")
	assert.Contains(t, out, models.DirectDeleteTag)
	assert.Contains(t, out, "Dry run: nothing was deleted.")
}

func TestPlanJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Plan(&buf, FormatJSON, world18Plan(), true))

	var got struct {
		DryRun    bool   `json:"dry_run"`
		TotalRows int    `json:"total_rows"`
		RootID    int64  `json:"root_id"`
		RootLabel string `json:"root_label"`
		Groups    []models.Group
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.True(t, got.DryRun)
	assert.Equal(t, 7, got.TotalRows)
	assert.Equal(t, int64(18), got.RootID)
	require.Len(t, got.Groups, 4)
	assert.Equal(t, int64(1899), got.Groups[0].Anomalies[0].ID)
}

func TestResultText(t *testing.T) {
	rep := &models.Report{
		RunID:    "run-1",
		RootType: models.TypeWorld,
		RootID:   18,
		Counts: []models.TypeCount{
			{Type: models.TypeSimulationState, Planned: 1, Deleted: 1, ByStrategy: map[models.Strategy]int64{models.StrategyRelaxed: 1}},
			{Type: models.TypeCharacter, Planned: 1200, Deleted: 1200, ByStrategy: map[models.Strategy]int64{models.StrategyCascade: 1200}},
		},
		Relaxations: []models.Relaxation{{Type: models.TypeSimulationState, Constraint: "PRAGMA defer_foreign_keys", Restored: true}},
		Duration:    1500 * time.Millisecond,
	}

	var buf bytes.Buffer
	require.NoError(t, Result(&buf, FormatText, rep))

	out := buf.String()
	assert.Contains(t, out, "Deleted world 18: 1201 rows in 1.5s (run run-1)")
	assert.Contains(t, out, "1,200/1,200")
	assert.Contains(t, out, "relaxed 1")
	assert.Contains(t, out, "PRAGMA defer_foreign_keys for simulation_states (restored)")
}

func TestErrorText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Error(&buf, FormatText, models.ErrorResponse{
		Error:   "execution failed",
		Message: "delete simulation_states [1899] failed at relaxed strategy",
		Type:    string(models.TypeSimulationState),
		IDs:     []int64{1899, 1900},
		Hint:    "run worldprune fallback 18",
	}))

	out := buf.String()
	assert.Contains(t, out, "Error: delete simulation_states [1899]")
	assert.Contains(t, out, "type: simulation_states")
	assert.Contains(t, out, "ids:  1899, 1900")
	assert.Contains(t, out, "hint: run worldprune fallback 18")
}

func TestErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Error(&buf, FormatJSON, models.ErrorResponse{Error: "not found", Message: "world 404 not found"}))

	var got models.ErrorResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "not found", got.Error)
}
