// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/worldprune/models"
	"github.com/danielhkuo/worldprune/testutil"
)

type testConsole struct {
	out, err bytes.Buffer
}

func newTestConsole(answer string, interactive bool) (Console, *testConsole) {
	tc := &testConsole{}
	return Console{
		In:          strings.NewReader(answer),
		Out:         &tc.out,
		Err:         &tc.err,
		Interactive: interactive,
	}, tc
}

func TestDelete_DryRun(t *testing.T) {
	conn, dialect := testutil.SetupTestDB(t)
	testutil.SeedWorld18(t, conn)
	before := testutil.CountAll(t, conn)

	console, tc := newTestConsole("", false)
	h := NewDeleteHandler(conn, dialect, testutil.GetTestConfig(), console)

	code := h.Delete(context.Background(), []string{"18", "--dry-run"})
	require.Equal(t, ExitOK, code, tc.out.String())

	out := tc.out.String()
	assert.Contains(t, out, `world 18 "Aldera": 7 rows in 4 types`)
	assert.Contains(t, out, "simulation_states 1899")
	assert.Contains(t, out, "Dry run")
	assert.Equal(t, before, testutil.CountAll(t, conn), "dry run must not write")

	// Same plan on a second dry run
	console2, tc2 := newTestConsole("", false)
	h2 := NewDeleteHandler(conn, dialect, testutil.GetTestConfig(), console2)
	require.Equal(t, ExitOK, h2.Delete(context.Background(), []string{"-n", "18"}))
	assert.Equal(t, out, tc2.out.String())
}

func TestDelete_DryRunJSON(t *testing.T) {
	conn, dialect := testutil.SetupTestDB(t)
	testutil.SeedWorld18(t, conn)

	console, tc := newTestConsole("", false)
	h := NewDeleteHandler(conn, dialect, testutil.GetTestConfig(), console)
	require.Equal(t, ExitOK, h.Delete(context.Background(), []string{"18", "-n", "--output", "json"}))

	var plan models.Plan
	require.NoError(t, json.Unmarshal(tc.out.Bytes(), &plan))

	counts := map[models.EntityType]int{}
	for _, g := range plan.Groups {
		counts[g.Type] = g.Total()
	}
	assert.Equal(t, map[models.EntityType]int{
		models.TypeWorld:           1,
		models.TypeScenario:        2,
		models.TypeCharacter:       3,
		models.TypeSimulationState: 1,
	}, counts)
}

func TestDelete_Force(t *testing.T) {
	conn, dialect := testutil.SetupTestDB(t)
	testutil.SeedWorld18(t, conn)
	before := testutil.CountAll(t, conn)

	console, tc := newTestConsole("", false)
	h := NewDeleteHandler(conn, dialect, testutil.GetTestConfig(), console)

	code := h.Delete(context.Background(), []string{"--force", "18"})
	require.Equal(t, ExitOK, code, tc.out.String())
	assert.Contains(t, tc.out.String(), "Deleted world 18: 7 rows")

	after := testutil.CountAll(t, conn)
	total := 0
	for table, n := range before {
		total += n - after[table]
	}
	assert.Equal(t, 7, total)
	assert.True(t, testutil.RowExists(t, conn, "worlds", 7))
}

func TestDelete_NotFound(t *testing.T) {
	conn, dialect := testutil.SetupTestDB(t)

	console, tc := newTestConsole("", false)
	h := NewDeleteHandler(conn, dialect, testutil.GetTestConfig(), console)

	code := h.Delete(context.Background(), []string{"404", "-f"})
	assert.Equal(t, ExitNotFound, code)
	assert.Contains(t, tc.out.String(), "worlds 404 does not exist")
}

func TestDelete_Confirmation(t *testing.T) {
	testCases := []struct {
		name        string
		answer      string
		interactive bool
		wantCode    int
		wantDeleted bool
	}{
		{"yes", "yes\n", true, ExitOK, true},
		{"y", "Y\n", true, ExitOK, true},
		{"no", "no\n", true, ExitAborted, false},
		{"empty", "\n", true, ExitAborted, false},
		{"eof", "", true, ExitAborted, false},
		{"not a terminal", "yes\n", false, ExitAborted, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn, dialect := testutil.SetupTestDB(t)
			testutil.SeedWorld18(t, conn)

			console, out := newTestConsole(tc.answer, tc.interactive)
			h := NewDeleteHandler(conn, dialect, testutil.GetTestConfig(), console)

			code := h.Delete(context.Background(), []string{"18"})
			assert.Equal(t, tc.wantCode, code, out.out.String())
			assert.Equal(t, !tc.wantDeleted, testutil.RowExists(t, conn, "worlds", 18))
		})
	}
}

func TestDelete_BadArguments(t *testing.T) {
	conn, dialect := testutil.SetupTestDB(t)

	testCases := []struct {
		name string
		args []string
	}{
		{"no id", nil},
		{"two ids", []string{"1", "2"}},
		{"not a number", []string{"eighteen"}},
		{"negative", []string{"--", "-18"}},
		{"bad output", []string{"18", "--output", "xml"}},
		{"unknown flag", []string{"18", "--cascade"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			console, _ := newTestConsole("", false)
			h := NewDeleteHandler(conn, dialect, testutil.GetTestConfig(), console)
			assert.Equal(t, ExitFailure, h.Delete(context.Background(), tc.args))
		})
	}
}

func TestDelete_ExecutionFailure(t *testing.T) {
	conn, dialect := testutil.SetupTestDB(t)

	_, err := conn.Exec(`CREATE TABLE state_pins (id INTEGER PRIMARY KEY, state_id INTEGER REFERENCES simulation_states(id))`)
	require.NoError(t, err)
	testutil.SeedWorld18(t, conn)
	testutil.AddTestSimulationState(t, conn, models.SimulationState{ID: 1801, ScenarioID: 181})
	_, err = conn.Exec(`INSERT INTO state_pins (id, state_id) VALUES (1, 1801)`)
	require.NoError(t, err)
	before := testutil.CountAll(t, conn)

	console, tc := newTestConsole("", false)
	h := NewDeleteHandler(conn, dialect, testutil.GetTestConfig(), console)

	code := h.Delete(context.Background(), []string{"18", "--force"})
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, tc.out.String(), "type: simulation_states")
	assert.Contains(t, tc.out.String(), "worldprune fallback 18")
	assert.Equal(t, before, testutil.CountAll(t, conn))
}

func TestDelete_Cancelled(t *testing.T) {
	conn, dialect := testutil.SetupTestDB(t)
	testutil.SeedWorld18(t, conn)
	before := testutil.CountAll(t, conn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	console, _ := newTestConsole("", false)
	h := NewDeleteHandler(conn, dialect, testutil.GetTestConfig(), console)

	assert.Equal(t, ExitAborted, h.Delete(ctx, []string{"18", "--force"}))
	assert.Equal(t, before, testutil.CountAll(t, conn))
}
