package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
)

// SchemaManager is the migration collaborator the lifecycle coordinator
// consumes. The coordinator only uses this contract; the diffing and
// bookkeeping internals belong to the implementation.
type SchemaManager interface {
	// CheckSchemaStatus reports whether the stored schema lags the current
	// version, with a human-readable detail line.
	CheckSchemaStatus(ctx context.Context) (needsUpgrade bool, details string, err error)

	// InitializeMigrations (re)creates the migration bookkeeping and stamps
	// the schema as current. force discards existing bookkeeping first.
	InitializeMigrations(ctx context.Context, force bool) error

	// EnsureSchemaUpToDate applies all pending migrations in order.
	EnsureSchemaUpToDate(ctx context.Context) error
}

// migrationRunner is the default SchemaManager backed by the ordered
// migration list. It reaches the pool through an accessor rather than a
// captured handle so it observes Reset's connection disposal.
type migrationRunner struct {
	handle  func() *sql.DB
	backend Backend
	baseDir string
	logger  *slog.Logger
}

func newMigrationRunner(handle func() *sql.DB, backend Backend, baseDir string, logger *slog.Logger) *migrationRunner {
	return &migrationRunner{handle: handle, backend: backend, baseDir: baseDir, logger: logger}
}

// currentVersion reads the latest recorded schema version, defaulting to
// 0.0.0 when bookkeeping does not exist yet.
func (r *migrationRunner) currentVersion(ctx context.Context) (*semver.Version, error) {
	db := r.handle()

	exists, err := r.bookkeepingExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return semver.MustParse("0.0.0"), nil
	}

	var versionStr string
	err = db.QueryRowContext(ctx,
		"SELECT version FROM schema_version ORDER BY applied_at DESC, version DESC LIMIT 1").Scan(&versionStr)
	if err == sql.ErrNoRows || (err == nil && versionStr == "") {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	version, err := semver.NewVersion(versionStr)
	if err != nil {
		return nil, fmt.Errorf("invalid current schema version %s: %w", versionStr, err)
	}
	return version, nil
}

func (r *migrationRunner) bookkeepingExists(ctx context.Context) (bool, error) {
	db := r.handle()
	var query string
	switch r.backend {
	case BackendSQLite:
		query = "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'"
	case BackendPostgres:
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema='public' AND table_name='schema_version'"
	default:
		return false, fmt.Errorf("unsupported backend %s", r.backend)
	}
	var name string
	err := db.QueryRowContext(ctx, query).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check schema_version table: %w", err)
	}
	return true, nil
}

func (r *migrationRunner) CheckSchemaStatus(ctx context.Context) (bool, string, error) {
	current, err := r.currentVersion(ctx)
	if err != nil {
		return false, "", err
	}
	target := semver.MustParse(CurrentSchemaVersion)
	if current.LessThan(target) {
		return true, fmt.Sprintf("schema version %s is behind %s", current, target), nil
	}
	return false, fmt.Sprintf("schema version %s is current", current), nil
}

func (r *migrationRunner) InitializeMigrations(ctx context.Context, force bool) error {
	db := r.handle()

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	if force {
		if _, err := db.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
			return fmt.Errorf("failed to reset schema_version table: %w", err)
		}
	}

	// Stamp every known migration as applied; Initialize only calls this
	// after the full schema was created.
	for _, migration := range AllMigrations {
		if err := r.recordVersion(ctx, migration.Version); err != nil {
			return err
		}
	}

	if err := r.writeSnapshot(); err != nil {
		// Snapshots are diagnostic artifacts; a failed write is not a
		// failed initialization.
		r.logger.Warn("failed to write schema snapshot", "error", err)
	}
	return nil
}

func (r *migrationRunner) EnsureSchemaUpToDate(ctx context.Context) error {
	db := r.handle()

	current, err := r.currentVersion(ctx)
	if err != nil {
		return err
	}

	// Run pending migrations in order
	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}
		if !current.LessThan(migrationVersion) {
			continue // Already applied
		}

		r.logger.Info("applying migration", "version", migration.Version)
		if _, err := db.ExecContext(ctx, migration.Up(r.backend)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		if err := r.recordVersion(ctx, migration.Version); err != nil {
			return err
		}
		current = migrationVersion
	}
	return nil
}

// RollbackLastMigration rolls back the most recent migration.
func (r *migrationRunner) RollbackLastMigration(ctx context.Context) error {
	db := r.handle()

	var currentVersion string
	err := db.QueryRowContext(ctx,
		"SELECT version FROM schema_version ORDER BY applied_at DESC, version DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("no migrations to rollback: %w", err)
	}

	var migration *Migration
	for i := range AllMigrations {
		if AllMigrations[i].Version == currentVersion {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", currentVersion)
	}

	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", currentVersion, err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = "+placeholder(r.backend, 1), currentVersion); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", currentVersion, err)
	}
	return nil
}

func (r *migrationRunner) recordVersion(ctx context.Context, version string) error {
	db := r.handle()
	var query string
	switch r.backend {
	case BackendPostgres:
		query = "INSERT INTO schema_version (version) VALUES ($1) ON CONFLICT (version) DO NOTHING"
	default:
		query = "INSERT OR IGNORE INTO schema_version (version) VALUES (?)"
	}
	if _, err := db.ExecContext(ctx, query, version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", version, err)
	}
	return nil
}

// writeSnapshot dumps the current schema DDL under the configured base
// directory so operators can inspect what a fresh install creates.
func (r *migrationRunner) writeSnapshot() error {
	if r.baseDir == "" {
		return nil
	}
	dir := filepath.Join(r.baseDir, "migrations")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("schema_%s.sql", CurrentSchemaVersion))
	var ddl []byte
	for _, migration := range AllMigrations {
		ddl = append(ddl, migration.Up(r.backend)...)
	}
	return os.WriteFile(path, ddl, 0o600)
}
