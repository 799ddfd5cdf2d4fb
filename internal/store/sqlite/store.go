// Package sqlite stores uploaded custom sounds in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed blob persistence.
type Store struct {
	db       *sql.DB
	logger   *slog.Logger
	readOnly bool
}

// Open opens (creating if needed) the blob database at path in WAL mode and
// applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	return open(path, logger, false)
}

// OpenReadOnly opens an existing blob database without touching its schema.
// Writes fail with a sqlite error.
func OpenReadOnly(path string) (*Store, error) {
	return open(path, nil, true)
}

func open(path string, logger *slog.Logger, readOnly bool) (*Store, error) {
	// Pragmas go in the DSN so every pooled connection gets them.
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	if readOnly {
		q.Add("mode", "ro")
	} else {
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
	}
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// Blobs are small and writes rare; one writer avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite %s: %w", path, err)
	}

	if !readOnly {
		if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply blob schema: %w", err)
		}
	}

	if logger != nil {
		logger.Info("Blob store opened", "path", path)
	}

	return &Store{db: db, logger: logger, readOnly: readOnly}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Usage summarizes what the blob table holds.
type Usage struct {
	Count      int
	TotalBytes int64
	LastUpdate time.Time
}

// Usage reports the number of stored sounds and their combined size.
func (s *Store) Usage(ctx context.Context) (Usage, error) {
	var (
		u    Usage
		last sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0), MAX(updated_at) FROM sound_blobs`,
	).Scan(&u.Count, &u.TotalBytes, &last)
	if err != nil {
		return Usage{}, fmt.Errorf("blob usage: %w", err)
	}

	if last.Valid {
		if u.LastUpdate, err = parseTime(last.String); err != nil {
			return Usage{}, fmt.Errorf("blob usage: %w", err)
		}
	}
	return u, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
