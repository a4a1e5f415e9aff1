// Package sqlite is the SQLite-backed request log sink.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nixxxo/local-llm/internal/storage"
)

// Store is a SQLite implementation of storage.RequestLogStore.
type Store struct {
	db *sql.DB
}

var _ storage.RequestLogStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS request_logs (
			id TEXT PRIMARY KEY,
			method TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			status INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			client_id TEXT NOT NULL,
			model TEXT,
			filtered INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_request_logs_client ON request_logs(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_request_logs_created ON request_logs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_request_logs_status ON request_logs(status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LogRequest persists one request record.
func (s *Store) LogRequest(ctx context.Context, rec *storage.RequestLog) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO request_logs (id, method, endpoint, status, duration_ms, client_id, model, filtered, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Method, rec.Endpoint, rec.Status, rec.Duration.Milliseconds(),
		rec.ClientID, rec.Model, boolToInt(rec.Filtered), createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert request log: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*storage.RequestLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, method, endpoint, status, duration_ms, client_id, model, filtered, created_at
		 FROM request_logs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query request logs: %w", err)
	}
	defer rows.Close()

	var out []*storage.RequestLog
	for rows.Next() {
		var rec storage.RequestLog
		var durationMs int64
		var filtered int
		if err := rows.Scan(&rec.ID, &rec.Method, &rec.Endpoint, &rec.Status, &durationMs,
			&rec.ClientID, &rec.Model, &filtered, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan request log: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.Filtered = filtered != 0
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
