// Package db persists recorded requests in a SQLite database so they can be
// inspected or verified after the process that captured them has exited.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/httpspy/packages/spy"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// ErrUnsupportedScheme is returned for connection strings that are not SQLite.
var ErrUnsupportedScheme = errors.New("unsupported database scheme")

const schema = `
CREATE TABLE IF NOT EXISTS recorded_requests (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	timestamp  TEXT NOT NULL,
	method     TEXT NOT NULL,
	url        TEXT NOT NULL,
	headers    TEXT NOT NULL,
	body       BLOB
)`

// Store reads and writes recorded requests.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// IsConnectionString reports whether s names a SQLite database rather than a file.
func IsConnectionString(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "sqlite:")
}

// Open opens the database named by connectionString and creates the schema
// when missing.
func Open(ctx context.Context, connectionString string) (*Store, error) {
	dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db:           db,
		queryTimeout: 30 * time.Second,
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save appends requests in order. Requests already stored are skipped.
func (s *Store) Save(ctx context.Context, requests []*spy.RecordedRequest) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO recorded_requests (id, timestamp, method, url, headers, body)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range requests {
		snap := r.Snapshot()
		headers, err := json.Marshal(snap.Header)
		if err != nil {
			return fmt.Errorf("failed to encode headers: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			snap.ID,
			snap.Timestamp.UTC().Format(time.RFC3339Nano),
			snap.Method,
			snap.URL,
			string(headers),
			snap.Body,
		); err != nil {
			return fmt.Errorf("failed to insert recording %s: %w", snap.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Load returns every stored request in the order it was saved.
func (s *Store) Load(ctx context.Context) ([]*spy.RecordedRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, method, url, headers, body
		FROM recorded_requests ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	result := make([]*spy.RecordedRequest, 0)
	for rows.Next() {
		var (
			snap      spy.Snapshot
			timestamp string
			headers   string
		)
		if err := rows.Scan(&snap.ID, &timestamp, &snap.Method, &snap.URL, &headers, &snap.Body); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if snap.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
			return nil, fmt.Errorf("invalid timestamp for recording %s: %w", snap.ID, err)
		}
		if err := json.Unmarshal([]byte(headers), &snap.Header); err != nil {
			return nil, fmt.Errorf("invalid headers for recording %s: %w", snap.ID, err)
		}

		r, err := spy.Restore(snap)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

// Clear deletes every stored request.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recorded_requests`); err != nil {
		return fmt.Errorf("failed to clear recordings: %w", err)
	}
	return nil
}

// parseConnectionString extracts the SQLite DSN.
// Supported formats:
// - sqlite://path/to/db.sqlite
// - sqlite:./test.db
func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)

	if strings.HasPrefix(connStr, "sqlite://") {
		return strings.TrimPrefix(connStr, "sqlite://"), nil
	}
	if strings.HasPrefix(connStr, "sqlite:") {
		return strings.TrimPrefix(connStr, "sqlite:"), nil
	}

	scheme, _, _ := strings.Cut(connStr, ":")
	return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
}
