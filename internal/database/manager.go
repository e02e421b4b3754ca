package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
)

// Manager owns the connection pool for its process lifetime and exposes the
// lifecycle operations (Initialize, Reset, Close) plus the transactional
// CRUD façade. Façade traffic runs concurrently against the shared handle;
// only structural operations are serialized, through the manager's own gate.
type Manager struct {
	backend Backend
	dsn     string
	cfg     Config
	logger  *slog.Logger
	gate    initGate
	schema  SchemaManager

	mu sync.RWMutex
	db *sql.DB
}

// Open constructs a Manager from its configuration. The backend family is
// resolved from the URI exactly once here. No connectivity probe happens:
// a bad URI or unreachable server fails on first use, so a Manager can be
// built before its backend is up.
func Open(cfg Config) (*Manager, error) {
	backend, dsn, err := ParseBackend(cfg.URI)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := openDatabase(backend, dsn, cfg)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		backend: backend,
		dsn:     dsn,
		cfg:     cfg,
		logger:  logger,
		db:      db,
	}
	m.schema = newMigrationRunner(m.handle, backend, cfg.BaseDir, logger)
	return m, nil
}

// handle returns the current pooled handle. Reset swaps the handle while
// disposing connections, so nothing may cache the return value across
// operations.
func (m *Manager) handle() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// Backend reports the backend family resolved at construction.
func (m *Manager) Backend() Backend {
	return m.backend
}

// reopen disposes every pooled connection by replacing the handle with a
// freshly provisioned one. Required before structural drops: an active pool
// can hold cached prepared statements against tables about to vanish.
func (m *Manager) reopen() error {
	db, err := openDatabase(m.backend, m.dsn, m.cfg)
	if err != nil {
		return fmt.Errorf("reprovisioning connection pool: %w", err)
	}
	m.mu.Lock()
	old := m.db
	m.db = db
	m.mu.Unlock()
	if err := old.Close(); err != nil {
		m.logger.Warn("failed to close previous connection pool", "error", err)
	}
	return nil
}

// Initialize brings the schema into existence or up to date. The gate is
// acquired without blocking: a concurrent structural operation makes this
// call fail immediately so deployment tooling retries explicitly instead of
// queueing. autoUpgrade forces a migration pass on an existing schema;
// otherwise drift detection decides. forceInitMigrations rebuilds the
// migration bookkeeping when the schema is created fresh.
func (m *Manager) Initialize(ctx context.Context, autoUpgrade, forceInitMigrations bool) Response {
	if !m.gate.TryAcquire() {
		return failResponse("database initialization already in progress")
	}
	defer m.gate.Release()

	db := m.handle()
	exist, err := tablesExist(ctx, db, m.backend)
	if err != nil {
		m.logger.Error("database initialization failed", "error", err)
		return failResponse(fmt.Sprintf("database initialization failed: %v", err))
	}

	if !exist {
		m.logger.Info("creating database tables")
		if err := createAllTables(ctx, db, m.backend); err != nil {
			m.logger.Error("database initialization failed", "error", err)
			return failResponse(fmt.Sprintf("database initialization failed: %v", err))
		}
		if err := m.schema.InitializeMigrations(ctx, forceInitMigrations); err != nil {
			m.logger.Error("failed to initialize migrations", "error", err)
			return failResponse("failed to initialize migrations")
		}
		return okResponse("database initialized successfully", nil)
	}

	// Handle existing database
	upgrade := autoUpgrade
	if !upgrade {
		needsUpgrade, details, err := m.schema.CheckSchemaStatus(ctx)
		if err != nil {
			m.logger.Error("database initialization failed", "error", err)
			return failResponse(fmt.Sprintf("database initialization failed: %v", err))
		}
		if needsUpgrade {
			m.logger.Info("schema drift detected", "details", details)
		}
		upgrade = needsUpgrade
	}

	if upgrade {
		m.logger.Info("checking database schema")
		if err := m.schema.EnsureSchemaUpToDate(ctx); err != nil {
			m.logger.Error("database upgrade failed", "error", err)
			return failResponse("database upgrade failed")
		}
		return okResponse("database schema is up to date", nil)
	}

	return okResponse("database is ready", nil)
}

// Reset drops every table, optionally recreating them afterwards. Callers
// are expected to quiesce CRUD traffic first; the gate only excludes other
// structural operations. The gate is released before the nested Initialize
// call, guarded by a held flag so the cleanup path never double-releases.
func (m *Manager) Reset(ctx context.Context, recreateTables bool) Response {
	if !m.gate.TryAcquire() {
		m.logger.Warn("database reset already in progress")
		return failResponse("database reset already in progress")
	}
	held := true
	defer func() {
		if held {
			m.gate.Release()
			m.logger.Info("database reset gate released")
		}
	}()

	// Dispose existing connections before mutating structure.
	if err := m.reopen(); err != nil {
		m.logger.Error("error while resetting database", "error", err)
		return failResponse(fmt.Sprintf("error while resetting database: %v", err))
	}
	db := m.handle()

	// SQLite will not change foreign_keys mid-transaction, so the toggle
	// brackets the drop transaction on the shared connection.
	if m.backend == BackendSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=OFF"); err != nil {
			m.logger.Error("error while resetting database", "error", err)
			return failResponse(fmt.Sprintf("error while resetting database: %v", err))
		}
	}

	dropErr := func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // No-op after commit
		if err := dropAllTables(ctx, tx); err != nil {
			return err
		}
		return tx.Commit()
	}()

	if m.backend == BackendSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			m.logger.Warn("failed to re-enable foreign keys", "error", err)
		}
	}

	if dropErr != nil {
		m.logger.Error("error while resetting database", "error", dropErr)
		return failResponse(fmt.Sprintf("error while resetting database: %v", dropErr))
	}
	m.logger.Info("all tables dropped successfully")

	// Release before the nested Initialize; its own acquire would otherwise
	// always observe contention.
	m.gate.Release()
	held = false

	if recreateTables {
		m.logger.Info("recreating tables")
		if res := m.Initialize(ctx, false, true); !res.Status {
			return res
		}
		return okResponse("database reset successfully", nil)
	}
	return okResponse("database tables dropped successfully", nil)
}

// Status reports the backend family and schema state without touching the
// gate; it is a read-only diagnostic.
func (m *Manager) Status(ctx context.Context) Response {
	exist, err := tablesExist(ctx, m.handle(), m.backend)
	if err != nil {
		m.logger.Error("status check failed", "error", err)
		return failResponse(fmt.Sprintf("status check failed: %v", err))
	}
	if !exist {
		return okResponse("database is empty", map[string]any{
			"backend":     m.backend.String(),
			"initialized": false,
		})
	}
	needsUpgrade, details, err := m.schema.CheckSchemaStatus(ctx)
	if err != nil {
		m.logger.Error("status check failed", "error", err)
		return failResponse(fmt.Sprintf("status check failed: %v", err))
	}
	return okResponse(details, map[string]any{
		"backend":       m.backend.String(),
		"initialized":   true,
		"needs_upgrade": needsUpgrade,
	})
}

// Close disposes the connection pool. Release is best-effort: a failure is
// reported, never swallowed. Safe to call repeatedly.
func (m *Manager) Close() error {
	m.logger.Info("closing database connections")
	m.mu.RLock()
	db := m.db
	m.mu.RUnlock()
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}
