// Package history keeps a log of every locator submitted to mpv in a local
// SQLite database so previous items can be listed and replayed.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"mpvrelay/internal/media"
)

const schema = `
CREATE TABLE IF NOT EXISTS plays (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	locator      TEXT    NOT NULL,
	remote       TEXT    NOT NULL DEFAULT '',
	submitted_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS plays_submitted_at ON plays (submitted_at);
`

// Store is the play history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// A single connection serialises writers; sqlite allows only one anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends a submitted locator. A zero SubmittedAt means now.
func (s *Store) Record(ctx context.Context, rec media.PlayRecord) error {
	at := rec.SubmittedAt
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plays (locator, remote, submitted_at) VALUES (?, ?, ?)`,
		string(rec.Locator), rec.Remote, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording play: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]media.PlayRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, locator, remote, submitted_at FROM plays ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []media.PlayRecord
	for rows.Next() {
		var (
			rec     media.PlayRecord
			locator string
			millis  int64
		)
		if err := rows.Scan(&rec.ID, &locator, &rec.Remote, &millis); err != nil {
			return nil, fmt.Errorf("reading history: %w", err)
		}
		rec.Locator = media.Locator(locator)
		rec.SubmittedAt = time.UnixMilli(millis)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	return records, nil
}

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plays`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// FormatForDisplay creates display strings for fzf selection from history records.
func FormatForDisplay(records []media.PlayRecord) []string {
	items := make([]string, 0, len(records))
	for _, r := range records {
		loc := string(r.Locator)
		if loc == "" {
			loc = "(empty)"
		}
		display := fmt.Sprintf("%s  %s", r.SubmittedAt.Format("2006-01-02 15:04"), loc)
		if r.Remote != "" {
			display += fmt.Sprintf(" [%s]", r.Remote)
		}
		items = append(items, display)
	}
	return items
}
