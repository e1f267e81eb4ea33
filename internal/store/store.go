package store

import (
	"context"
	_ "embed"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/offpos/internal/apperr"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial layout without the deduction journal
// 1 - Added stock_movements; sales recorded before v1 are backfilled as applied
const currentSchemaVersion = 1

// Store provides durable storage for products, sales and stock movements.
// Uses SQLite with WAL mode and a single connection.
type Store struct {
	db     *sqlx.DB
	path   string
	refs   int  // guarded by registryMu
	closed bool // guarded by registryMu
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]*Store)
)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically. Failures are
// STORAGE errors.
//
// Open is idempotent: while a handle for the same path is open, the same
// *Store is returned and its reference count incremented. Each Open must be
// paired with a Close.
func Open(path string) (*Store, error) {
	key := registryKey(path)

	registryMu.Lock()
	defer registryMu.Unlock()

	if s, ok := registry[key]; ok {
		s.refs++
		return s, nil
	}

	// _txlock=immediate takes the write lock at BEGIN so read-modify-write
	// transactions never fail on lock upgrade.
	db, err := sqlx.Open("sqlite3", path+"?_txlock=immediate")
	if err != nil {
		return nil, apperr.Storage("open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperr.Storage("connect database", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, apperr.Storage("apply pragmas", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, apperr.Storage("apply schema", err)
	}

	s := &Store{db: db, path: key, refs: 1}
	if key != "" {
		registry[key] = s
	}
	return s, nil
}

// registryKey returns the absolute path used to share handles.
// In-memory databases are never shared.
func registryKey(path string) string {
	if path == "" || path == ":memory:" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// Close releases one reference. The connection is closed when the last
// reference is released; further calls are no-ops.
func (s *Store) Close() error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if s.closed {
		return nil
	}
	s.refs--
	if s.refs > 0 {
		return nil
	}
	if s.path != "" && registry[s.path] == s {
		delete(registry, s.path)
	}
	s.closed = true
	return s.db.Close()
}

// Path returns the absolute database path ("" for in-memory databases).
func (s *Store) Path() string {
	return s.path
}

// SchemaVersion returns the database's user_version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sqlx.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
// Migrations only add; they never drop data.
func runMigrations(db *sqlx.DB) error {
	var version int
	if err := db.Get(&version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 backfills journal rows for sales recorded before the journal
// existed. Their stock was already deducted, so each line is marked applied
// and will not be replayed. No-op on a fresh database.
func migrateToV1(db *sqlx.DB) error {
	_, err := db.Exec(`
		INSERT INTO stock_movements
		(sale_id, line_no, product_id, quantity, stock_before, stock_after, status, created_at)
		SELECT s.id, CAST(j.key AS INTEGER),
		       json_extract(j.value, '$.id'), json_extract(j.value, '$.quantity'),
		       0, 0, 'applied', s.date
		FROM sales s, json_each(s.items) j
		WHERE 1
		ON CONFLICT(sale_id, line_no) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.Get(&value, fmt.Sprintf("PRAGMA %s", name)); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
