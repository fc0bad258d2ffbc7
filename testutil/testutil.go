// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/worldprune/cliparse"
	"github.com/danielhkuo/worldprune/db"
	"github.com/danielhkuo/worldprune/models"
)

// PostgresURLEnv names the variable that enables PostgreSQL tests
const PostgresURLEnv = "WORLDPRUNE_TEST_POSTGRES_URL"

// AllTables lists every in-scope table, children first
var AllTables = []string{
	"characters", "events", "resources", "simulation_states", "scenarios", "worlds",
}

// SetupTestDB creates a fresh SQLite database file with the full schema
func SetupTestDB(t *testing.T) (*sqlx.DB, db.Dialect) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "worlds.db")
	conn, dialect, err := db.Open(context.Background(), db.SQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(context.Background(), conn, dialect); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn, dialect
}

// SetupPostgresTestDB connects to the database named by
// WORLDPRUNE_TEST_POSTGRES_URL, dropping and recreating the schema. The
// test is skipped when the variable is unset.
func SetupPostgresTestDB(t *testing.T) (*sqlx.DB, db.Dialect) {
	t.Helper()

	url := os.Getenv(PostgresURLEnv)
	if url == "" {
		t.Skipf("%s not set", PostgresURLEnv)
	}

	conn, dialect, err := db.Open(context.Background(), db.Postgres, url)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(`
		DROP TABLE IF EXISTS state_pins CASCADE;
		DROP TABLE IF EXISTS simulation_states CASCADE;
		DROP TABLE IF EXISTS resources CASCADE;
		DROP TABLE IF EXISTS events CASCADE;
		DROP TABLE IF EXISTS characters CASCADE;
		DROP TABLE IF EXISTS scenarios CASCADE;
		DROP TABLE IF EXISTS worlds CASCADE;
	`)
	if err != nil {
		t.Fatalf("Failed to clean database: %v", err)
	}

	if err := db.CreateSchema(context.Background(), conn, dialect); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn, dialect
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		DatabaseURL:  "file:test.db",
		DatabaseType: db.SQLite,
		LogLevel:     "error",
		LogFormat:    "text",
		BatchSize:    2,
	}
}

// CreateTestWorld inserts a world row
func CreateTestWorld(t *testing.T, conn *sqlx.DB, w models.World) {
	t.Helper()

	if w.Name == "" {
		w.Name = fmt.Sprintf("World %d", w.ID)
	}
	mustExec(t, conn, `INSERT INTO worlds (id, name) VALUES (?, ?)`, w.ID, w.Name)
}

// AddTestScenario inserts a scenario belonging to worldID
func AddTestScenario(t *testing.T, conn *sqlx.DB, id, worldID int64) {
	t.Helper()
	mustExec(t, conn, `INSERT INTO scenarios (id, world_id, name) VALUES (?, ?, ?)`,
		id, worldID, fmt.Sprintf("Scenario %d", id))
}

// AddTestCharacter inserts a character belonging to scenarioID
func AddTestCharacter(t *testing.T, conn *sqlx.DB, id, scenarioID int64) {
	t.Helper()
	mustExec(t, conn, `INSERT INTO characters (id, scenario_id, name) VALUES (?, ?, ?)`,
		id, scenarioID, fmt.Sprintf("Character %d", id))
}

// AddTestEvent inserts an event belonging to scenarioID
func AddTestEvent(t *testing.T, conn *sqlx.DB, id, scenarioID int64) {
	t.Helper()
	mustExec(t, conn, `INSERT INTO events (id, scenario_id, title) VALUES (?, ?, ?)`,
		id, scenarioID, fmt.Sprintf("Event %d", id))
}

// AddTestResource inserts a resource belonging to scenarioID
func AddTestResource(t *testing.T, conn *sqlx.DB, id, scenarioID int64) {
	t.Helper()
	mustExec(t, conn, `INSERT INTO resources (id, scenario_id, name, quantity) VALUES (?, ?, ?, 1)`,
		id, scenarioID, fmt.Sprintf("Resource %d", id))
}

// AddTestSimulationState inserts a simulation state with the given metadata
func AddTestSimulationState(t *testing.T, conn *sqlx.DB, s models.SimulationState) {
	t.Helper()

	if s.Metadata == "" {
		s.Metadata = "{}"
	}
	mustExec(t, conn, `INSERT INTO simulation_states (id, scenario_id, step, metadata) VALUES (?, ?, ?, ?)`,
		s.ID, s.ScenarioID, s.Step, s.Metadata)
}

// AddAnomalousSimulationState inserts a simulation state whose
// scenario_id may point at a missing scenario while its metadata names
// worldID. Foreign keys are switched off for the insert.
func AddAnomalousSimulationState(t *testing.T, conn *sqlx.DB, id, scenarioID, worldID int64) {
	t.Helper()

	WithoutForeignKeys(t, conn, func() {
		AddTestSimulationState(t, conn, models.SimulationState{
			ID:         id,
			ScenarioID: scenarioID,
			Metadata:   fmt.Sprintf(`{"world_id": %d, "source": "import"}`, worldID),
		})
	})
}

// WithoutForeignKeys runs fn with SQLite foreign key enforcement off.
// The test pool has a single connection, so the PRAGMA applies to fn.
func WithoutForeignKeys(t *testing.T, conn *sqlx.DB, fn func()) {
	t.Helper()

	mustExec(t, conn, `PRAGMA foreign_keys = OFF`)
	defer mustExec(t, conn, `PRAGMA foreign_keys = ON`)
	fn()
}

// SeedWorld18 builds the reference fixture: world 18 with scenarios 181
// and 182, characters 1811, 1812, 1821, and simulation state 1899 whose
// scenario_id is the missing scenario 999 while its metadata names world
// 18. World 7 with scenario 71 and character 711 is a bystander.
func SeedWorld18(t *testing.T, conn *sqlx.DB) {
	t.Helper()

	CreateTestWorld(t, conn, models.World{ID: 18, Name: "Aldera"})
	AddTestScenario(t, conn, 181, 18)
	AddTestScenario(t, conn, 182, 18)
	AddTestCharacter(t, conn, 1811, 181)
	AddTestCharacter(t, conn, 1812, 181)
	AddTestCharacter(t, conn, 1821, 182)
	AddAnomalousSimulationState(t, conn, 1899, 999, 18)

	CreateTestWorld(t, conn, models.World{ID: 7, Name: "Bystander"})
	AddTestScenario(t, conn, 71, 7)
	AddTestCharacter(t, conn, 711, 71)
}

// CountRows returns the number of rows in table
func CountRows(t *testing.T, conn *sqlx.DB, table string) int {
	t.Helper()

	var n int
	if err := conn.Get(&n, "SELECT COUNT(*) FROM "+table); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// CountAll returns row counts for every in-scope table
func CountAll(t *testing.T, conn *sqlx.DB) map[string]int {
	t.Helper()

	counts := make(map[string]int, len(AllTables))
	for _, table := range AllTables {
		counts[table] = CountRows(t, conn, table)
	}
	return counts
}

// RowExists reports whether table has a row with the given id
func RowExists(t *testing.T, conn *sqlx.DB, table string, id int64) bool {
	t.Helper()

	var n int
	if err := conn.Get(&n, conn.Rebind("SELECT COUNT(*) FROM "+table+" WHERE id = ?"), id); err != nil {
		t.Fatalf("Failed to query %s: %v", table, err)
	}
	return n > 0
}

func mustExec(t *testing.T, conn *sqlx.DB, query string, args ...any) {
	t.Helper()

	if _, err := conn.Exec(conn.Rebind(query), args...); err != nil {
		t.Fatalf("Failed to exec %q: %v", query, err)
	}
}
