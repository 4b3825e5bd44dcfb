// Package store persists the configured server list in a local SQLite
// database under the Harbor data directory.
package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/harbor-chat/harbor/internal/servers"
)

const lastActiveKey = "last_active_server"

// DB wraps the SQLite database connection.
type DB struct {
	*sql.DB
}

// New creates a new database connection and initializes the schema.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	wrapper := &DB{db}
	if err := wrapper.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return wrapper, nil
}

// initSchema creates the database tables if they don't exist.
func (db *DB) initSchema() error {
	schema := `
	-- User-added servers; predefined servers live in the app config.
	CREATE TABLE IF NOT EXISTS servers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	);

	-- Small key/value state, e.g. the last active server index.
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// SaveServers replaces the stored server list and records which one is
// current. It satisfies servers.Store.
func (db *DB) SaveServers(records []servers.StoredServer, currentIndex int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM servers`); err != nil {
		return fmt.Errorf("failed to clear servers: %w", err)
	}
	for _, rec := range records {
		_, err := tx.Exec(
			`INSERT INTO servers (id, name, url, sort_order) VALUES (?, ?, ?, ?)`,
			rec.ID.String(), rec.Name, rec.URL, rec.Order,
		)
		if err != nil {
			return fmt.Errorf("failed to insert server %s: %w", rec.ID, err)
		}
	}

	_, err = tx.Exec(
		`INSERT INTO app_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		lastActiveKey, strconv.Itoa(currentIndex),
	)
	if err != nil {
		return fmt.Errorf("failed to save last active server: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// LoadServers returns the stored servers in order and the last active
// server index (-1 when none was recorded).
func (db *DB) LoadServers() ([]servers.StoredServer, int, error) {
	rows, err := db.Query(`SELECT id, name, url, sort_order FROM servers ORDER BY sort_order`)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to query servers: %w", err)
	}
	defer rows.Close()

	var records []servers.StoredServer
	for rows.Next() {
		var rec servers.StoredServer
		var id string
		if err := rows.Scan(&id, &rec.Name, &rec.URL, &rec.Order); err != nil {
			return nil, -1, fmt.Errorf("failed to scan server: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, -1, fmt.Errorf("invalid server id %q: %w", id, err)
		}
		rec.ID = parsed
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, -1, fmt.Errorf("failed to read servers: %w", err)
	}

	currentIndex := -1
	var value string
	err = db.QueryRow(`SELECT value FROM app_state WHERE key = ?`, lastActiveKey).Scan(&value)
	switch {
	case err == sql.ErrNoRows:
		// First run.
	case err != nil:
		return nil, -1, fmt.Errorf("failed to read last active server: %w", err)
	default:
		if idx, convErr := strconv.Atoi(value); convErr == nil {
			currentIndex = idx
		}
	}

	return records, currentIndex, nil
}
