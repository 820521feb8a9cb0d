// Package snapshot provides persistent storage for page snapshots so
// captured state survives session and process restarts.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jmylchreest/webpilot/internal/page"
)

// SQLiteStore persists snapshots keyed by session id.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens or creates the snapshot database at dbPath.
// ":memory:" gives an in-memory store.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	var connStr string
	if dbPath == ":memory:" {
		// In-memory database, shared cache so all connections see one store.
		connStr = "file::memory:?cache=shared&_timeout=5000&_busy_timeout=5000"
	} else {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
		}
		connStr = dbPath + "?_journal=WAL&_timeout=5000&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("SQLite snapshot store initialized", "path", dbPath)
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		session_id TEXT PRIMARY KEY,
		snapshot_json TEXT NOT NULL DEFAULT '{}',
		saved_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_saved_at ON snapshots(saved_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save upserts the snapshot for a session id.
func (s *SQLiteStore) Save(ctx context.Context, sessionID string, snap *page.Snapshot) error {
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `
	INSERT INTO snapshots (session_id, snapshot_json, saved_at)
	VALUES (?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		snapshot_json = excluded.snapshot_json,
		saved_at = excluded.saved_at
	`

	_, err = s.db.ExecContext(ctx, query,
		sessionID,
		string(snapJSON),
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.Debug("snapshot persisted", "session_id", sessionID)
	return nil
}

// Load retrieves the snapshot for a session id, or (nil, nil) when none
// exists.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*page.Snapshot, error) {
	var snapJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT snapshot_json FROM snapshots WHERE session_id = ?", sessionID,
	).Scan(&snapJSON)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap page.Snapshot
	if err := json.Unmarshal([]byte(snapJSON), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes the snapshot for a session id.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	s.logger.Debug("snapshot deleted", "session_id", sessionID)
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
