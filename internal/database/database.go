package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

// Pool tuning constants.
const (
	// sqliteBusyTimeout is how long SQLite spins on a locked database
	// before surfacing a contention error. Distinct from any pool timeout.
	sqliteBusyTimeout = 15 * time.Second

	// postgresPoolSize bounds the client/server connection pool. There is
	// no overflow: the pool size is the hard ceiling.
	postgresPoolSize = 20

	// connRecycleInterval recycles pooled connections so server-side idle
	// timeouts never hand us a stale connection.
	connRecycleInterval = time.Hour
)

// Config carries the construction parameters of a Manager. Zero values get
// sensible defaults; only URI is required.
type Config struct {
	// URI is the connection URI. The backend family is resolved from it
	// once, at construction.
	URI string

	// BaseDir is an optional directory for migration artifacts (schema
	// snapshots). Empty disables snapshot writing.
	BaseDir string

	// PoolSize overrides the client/server pool size. Ignored for SQLite,
	// which always uses a single shared connection.
	PoolSize int

	// DirtyReads enables PRAGMA read_uncommitted on the embedded backend.
	// Off by default: WAL already gives readers a consistent snapshot, so
	// dirty reads only matter for read-your-own-writes across connections.
	DirtyReads bool

	// Logger receives structured operational logs. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// sqlitePragmas is the tuning sequence applied to the embedded backend.
// WAL plus synchronous=NORMAL trades strict durability for concurrent
// read/write throughput: a power loss can drop the most recent commits but
// never corrupts the database file.
func sqlitePragmas(dirtyReads bool) []string {
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=100000",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA mmap_size=268435456",
		"PRAGMA page_size=8192",
		"PRAGMA wal_autocheckpoint=1000",
		fmt.Sprintf("PRAGMA busy_timeout=%d", sqliteBusyTimeout.Milliseconds()),
	}
	if dirtyReads {
		pragmas = append(pragmas, "PRAGMA read_uncommitted=ON")
	}
	return pragmas
}

// openDatabase builds a pooled handle for the resolved backend. sql.Open is
// lazy: a malformed DSN or unreachable server fails on first use, so a
// Manager can be constructed before its backend is reachable. The SQLite
// pragma pass is the one exception, since it must run against the (local)
// file before any caller traffic.
func openDatabase(backend Backend, dsn string, cfg Config) (*sql.DB, error) {
	switch backend {
	case BackendSQLite:
		db, err := sql.Open(SQLiteDriverName, dsn)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite database: %w", err)
		}
		// One shared physical connection, valid across goroutines and
		// kept for the process lifetime. Transaction boundaries are
		// always explicit on this handle; a leaked transaction would
		// stall everything behind the busy timeout.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)

		for _, pragma := range sqlitePragmas(cfg.DirtyReads) {
			if _, err := db.Exec(pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("applying %s: %w", pragma, err)
			}
		}
		return db, nil

	case BackendPostgres:
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening postgres database: %w", err)
		}
		poolSize := cfg.PoolSize
		if poolSize <= 0 {
			poolSize = postgresPoolSize
		}
		db.SetMaxOpenConns(poolSize)
		db.SetMaxIdleConns(poolSize)
		db.SetConnMaxLifetime(connRecycleInterval)
		db.SetConnMaxIdleTime(30 * time.Minute)
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported backend %s", backend)
	}
}

// tablesExistQuery counts application tables only. Views must not count:
// a schema holding nothing but views is still uninitialized.
func tablesExistQuery(backend Backend) (string, error) {
	switch backend {
	case BackendSQLite:
		return "SELECT count(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'", nil
	case BackendPostgres:
		return "SELECT count(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE'", nil
	default:
		return "", fmt.Errorf("unsupported backend %s", backend)
	}
}

// tablesExist reports whether at least one application table is present.
// This is the bootstrap signal Initialize uses; table shape is owned by the
// schema manager.
func tablesExist(ctx context.Context, db *sql.DB, backend Backend) (bool, error) {
	query, err := tablesExistQuery(backend)
	if err != nil {
		return false, err
	}
	var count int
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return false, fmt.Errorf("inspecting existing schema: %w", err)
	}
	return count > 0, nil
}
