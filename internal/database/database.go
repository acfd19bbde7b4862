package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-manager/internal/logging"
	"media-manager/internal/metrics"
)

// Default timeout for database operations.
const defaultTimeout = 5 * time.Second

// Database manages all metadata operations for the media manager.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New creates a new Database instance. dbPath is the full path to the
// database file; the parent directory must exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL mode and busy_timeout prevent "database is locked" errors
	// under concurrent readers.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS folders (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id TEXT REFERENCES folders(id),
		path TEXT NOT NULL,
		is_public INTEGER NOT NULL DEFAULT 0,
		creator_id TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(parent_id);
	CREATE INDEX IF NOT EXISTS idx_folders_path ON folders(path);

	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL UNIQUE,
		original_name TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		url TEXT NOT NULL DEFAULT '',
		folder_id TEXT REFERENCES folders(id),
		uploader_id TEXT NOT NULL,
		width INTEGER,
		height INTEGER,
		processing_status TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_files_folder ON files(folder_id);
	CREATE INDEX IF NOT EXISTS idx_files_name ON files(original_name COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_files_mime ON files(mime_type);
	CREATE INDEX IF NOT EXISTS idx_files_created ON files(created_at);

	CREATE TABLE IF NOT EXISTS file_tags (
		file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		tag TEXT NOT NULL COLLATE NOCASE,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (file_id, tag)
	);

	CREATE INDEX IF NOT EXISTS idx_file_tags_tag ON file_tags(tag);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(pingCtx)
}

// begin starts a write transaction. Mutations that touch multiple rows go
// through here so readers only ever see the tree before or after the change.
func (d *Database) begin(ctx context.Context) (*sql.Tx, time.Time, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	return tx, time.Now(), err
}

// end commits or rolls back a transaction depending on err, recording the
// transaction duration either way.
func (d *Database) end(tx *sql.Tx, start time.Time, err error) error {
	duration := time.Since(start).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// recordQuery records database query metrics.
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics updates database connection metrics.
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}
