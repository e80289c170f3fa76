package wstore

import (
	"context"
	"database/sql"
	"time"
)

// FrontierEntry is a wrestler pending fetch.
type FrontierEntry struct {
	WrestlerID string
	Depth      int
	EnqueuedAt time.Time
}

// UpsertFrontier sets depth to the supplied value and refreshes the enqueue
// timestamp.
func UpsertFrontier(ctx context.Context, db *sql.DB, wrestlerID string, depth int, now time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO crawl_queue (wrestler_id, depth, enqueued_at)
		VALUES (?, ?, ?)
		ON CONFLICT(wrestler_id) DO UPDATE SET
			depth = excluded.depth,
			enqueued_at = excluded.enqueued_at;
	`, wrestlerID, depth, now.Format(time.RFC3339Nano))
	return err
}

// RemoveFrontier removes a wrestler from the frontier table.
func RemoveFrontier(ctx context.Context, db *sql.DB, wrestlerID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM crawl_queue WHERE wrestler_id = ?;`, wrestlerID)
	return err
}

// QueueItems returns all frontier rows ordered by enqueue time ascending,
// filtering out rows whose wrestler key is empty (a migration artifact from
// earlier schema versions).
func QueueItems(ctx context.Context, db *sql.DB) ([]FrontierEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT wrestler_id, depth, enqueued_at
		FROM crawl_queue
		WHERE wrestler_id IS NOT NULL AND wrestler_id != ''
		ORDER BY enqueued_at ASC;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FrontierEntry
	for rows.Next() {
		var (
			id, enqueuedAt string
			depth          int
		)
		if err := rows.Scan(&id, &depth, &enqueuedAt); err != nil {
			return nil, err
		}
		ts, _ := time.Parse(time.RFC3339Nano, enqueuedAt)
		out = append(out, FrontierEntry{WrestlerID: id, Depth: depth, EnqueuedAt: ts})
	}
	return out, rows.Err()
}
