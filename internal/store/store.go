package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store writes statistics snapshots to a SQLite file for offline analysis.
// The trainer never reads them back.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL DEFAULT '',
			taken_at TEXT NOT NULL DEFAULT (datetime('now')),
			total_correct INTEGER NOT NULL DEFAULT 0,
			total_incorrect INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
			topic TEXT NOT NULL,
			name TEXT NOT NULL,
			expression TEXT NOT NULL DEFAULT '',
			correct INTEGER NOT NULL DEFAULT 0,
			incorrect INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_snapshot ON snapshot_entries(snapshot_id)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_taken ON snapshots(taken_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// WriteSnapshot stores snap and its entries in one transaction and returns
// the snapshot ID (generated when snap.ID is empty).
func (s *Store) WriteSnapshot(ctx context.Context, snap Snapshot) (string, error) {
	id := strings.TrimSpace(snap.ID)
	if id == "" {
		id = uuid.NewString()
	}
	takenAt := snap.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now().UTC()
	}

	var correct, incorrect int
	for _, e := range snap.Entries {
		correct += e.Correct
		incorrect += e.Incorrect
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, source, session_id, taken_at, total_correct, total_incorrect)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, strings.TrimSpace(snap.Source), strings.TrimSpace(snap.SessionID), takenAt.Format(time.RFC3339), correct, incorrect); err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_entries (snapshot_id, topic, name, expression, correct, incorrect)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("prepare snapshot entry: %w", err)
	}
	defer stmt.Close()

	for _, e := range snap.Entries {
		if _, err := stmt.ExecContext(ctx, id, e.Topic, e.Name, e.Expression, e.Correct, e.Incorrect); err != nil {
			return "", fmt.Errorf("insert snapshot entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit snapshot: %w", err)
	}
	log.Printf("[store] wrote snapshot %s: formulas=%d correct=%d incorrect=%d", id, len(snap.Entries), correct, incorrect)
	return id, nil
}

// ListSnapshots returns stored snapshot headers, newest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]SnapshotHeader, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.source, s.session_id, s.taken_at, s.total_correct, s.total_incorrect,
		       (SELECT COUNT(1) FROM snapshot_entries e WHERE e.snapshot_id = s.id)
		FROM snapshots s
		ORDER BY s.taken_at DESC, s.rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	result := make([]SnapshotHeader, 0)
	for rows.Next() {
		var h SnapshotHeader
		if err := rows.Scan(&h.ID, &h.Source, &h.SessionID, &h.TakenAt, &h.TotalCorrect, &h.TotalIncorrect, &h.Formulas); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return result, nil
}

// Entries returns the rows of one snapshot in insertion order.
func (s *Store) Entries(ctx context.Context, snapshotID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT topic, name, expression, correct, incorrect
		FROM snapshot_entries
		WHERE snapshot_id = ?
		ORDER BY id ASC
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	result := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Topic, &e.Name, &e.Expression, &e.Correct, &e.Incorrect); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return result, nil
}
