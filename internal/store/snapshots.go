package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Snapshot is the last good raw body of one feed.
type Snapshot struct {
	Kind      string
	Body      []byte
	FetchedAt time.Time
}

func (db *DB) SaveSnapshot(kind string, body []byte, fetchedAt time.Time) error {
	_, err := db.Exec(
		`INSERT INTO snapshots (kind, body, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(kind) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		kind, body, fetchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving %s snapshot: %w", kind, err)
	}
	return nil
}

// GetSnapshot returns nil, nil when no snapshot of kind exists.
func (db *DB) GetSnapshot(kind string) (*Snapshot, error) {
	var s Snapshot
	var fetchedStr string
	err := db.QueryRow("SELECT kind, body, fetched_at FROM snapshots WHERE kind = ?", kind).
		Scan(&s.Kind, &s.Body, &fetchedStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s snapshot: %w", kind, err)
	}
	if t, err := time.Parse(time.RFC3339, fetchedStr); err == nil {
		s.FetchedAt = t
	}
	return &s, nil
}
