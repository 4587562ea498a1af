package progress

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/glebarez/go-sqlite"
)

// openSpool opens the local offline queue, creating it on first use.
// Updates made while the server is unreachable land here and are
// replayed in order by 'coursehub progress sync'. The server merges
// each replayed payload, so late arrival never loses completions.
func openSpool() (*sql.DB, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	configDir := filepath.Join(home, ".coursehub")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(configDir, "spool.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open spool: %w", err)
	}

	create := `
	CREATE TABLE IF NOT EXISTS progress_spool (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		queued_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(create); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init spool: %w", err)
	}

	return db, nil
}

// enqueueUpdate stores a progress payload for later replay
func enqueueUpdate(db *sql.DB, courseID, payload string) error {
	_, err := db.Exec(
		"INSERT INTO progress_spool (course_id, payload) VALUES (?, ?)",
		courseID, payload,
	)
	return err
}

// spoolCount returns the number of queued updates
func spoolCount(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM progress_spool").Scan(&count)
	return count, err
}
