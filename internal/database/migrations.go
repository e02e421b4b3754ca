package database

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.0.0"
)

// Migration represents a database schema migration. Up is backend-dependent
// because the two families disagree on identity-column syntax; Down is
// portable.
type Migration struct {
	Version string
	Up      func(Backend) string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

func identityColumn(backend Backend) string {
	if backend == BackendPostgres {
		return "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func migrationV1Up(backend Backend) string {
	pk := identityColumn(backend)
	return fmt.Sprintf(`
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Teams table
CREATE TABLE IF NOT EXISTS teams (
    id %s,
    user_id TEXT NOT NULL,
    component TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_teams_user ON teams(user_id);

-- Sessions table
CREATE TABLE IF NOT EXISTS sessions (
    id %s,
    user_id TEXT NOT NULL,
    team_id INTEGER,
    name TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (team_id) REFERENCES teams(id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_team ON sessions(team_id);

-- Runs table
CREATE TABLE IF NOT EXISTS runs (
    id %s,
    run_uid TEXT NOT NULL UNIQUE,
    session_id INTEGER NOT NULL,
    status TEXT NOT NULL,
    task TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id);
`, pk, pk, pk)
}

const migrationV1Down = `
-- Drop all tables in reverse order of dependencies
DROP TABLE IF EXISTS runs;
DROP TABLE IF EXISTS sessions;
DROP TABLE IF EXISTS teams;
DROP TABLE IF EXISTS schema_version;
`

// createAllTables executes every migration's Up script in order without
// recording versions; bookkeeping is stamped separately by the schema
// manager once creation succeeds.
func createAllTables(ctx context.Context, db *sql.DB, backend Backend) error {
	for _, migration := range AllMigrations {
		if _, err := db.ExecContext(ctx, migration.Up(backend)); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", migration.Version, err)
		}
	}
	return nil
}

// dropAllTables executes every migration's Down script in reverse order
// inside the caller's transaction. Foreign-key toggling around unordered
// drops is the caller's concern since SQLite ignores the pragma mid
// transaction.
func dropAllTables(ctx context.Context, tx *sql.Tx) error {
	for i := len(AllMigrations) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, AllMigrations[i].Down); err != nil {
			return fmt.Errorf("failed to drop schema %s: %w", AllMigrations[i].Version, err)
		}
	}
	return nil
}
