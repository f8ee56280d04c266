package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection with thread-safe access. A single
// physical connection is owned here; every write runs under the mutex and
// inside its own transaction, so batch inserts are all-or-nothing.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New creates and initializes a new SQLite database connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scenes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		latitude REAL,
		longitude REAL,
		resolution TEXT,
		camera_id TEXT NOT NULL,
		media_path TEXT NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scene_id INTEGER NOT NULL,
		class_label TEXT NOT NULL,
		confidence REAL NOT NULL,
		x_min REAL NOT NULL,
		y_min REAL NOT NULL,
		x_max REAL NOT NULL,
		y_max REAL NOT NULL,
		class_id INTEGER DEFAULT 0,
		frame_index INTEGER DEFAULT 0,
		FOREIGN KEY (scene_id) REFERENCES scenes(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_scenes_timestamp ON scenes(timestamp);
	CREATE INDEX IF NOT EXISTS idx_scenes_camera ON scenes(camera_id);
	CREATE INDEX IF NOT EXISTS idx_detections_class_label ON detections(class_label);
	CREATE INDEX IF NOT EXISTS idx_detections_scene_id ON detections(scene_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}
