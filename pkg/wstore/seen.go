package wstore

import (
	"context"
	"database/sql"
	"time"
)

// SeenEntry is a wrestler discovered during a crawl.
type SeenEntry struct {
	WrestlerID  string
	Depth       int
	ProcessedAt sql.NullString
}

// RecordSeen inserts or updates a seen entry to min(existing_depth, depth).
func RecordSeen(ctx context.Context, db *sql.DB, wrestlerID string, depth int) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO crawl_seen (wrestler_id, depth, processed_at)
		VALUES (?, ?, NULL)
		ON CONFLICT(wrestler_id) DO UPDATE SET
			depth = MIN(crawl_seen.depth, excluded.depth);
	`, wrestlerID, depth)
	return err
}

// RemoveSeen deletes a seen entry.
func RemoveSeen(ctx context.Context, db *sql.DB, wrestlerID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM crawl_seen WHERE wrestler_id = ?;`, wrestlerID)
	return err
}

// MarkProcessed stamps processed_at to the current wall clock.
func MarkProcessed(ctx context.Context, db *sql.DB, wrestlerID string, now time.Time) error {
	_, err := db.ExecContext(ctx, `
		UPDATE crawl_seen SET processed_at = ? WHERE wrestler_id = ?;
	`, now.Format(time.RFC3339Nano), wrestlerID)
	return err
}

// GetSeen returns nil, nil if no entry exists.
func GetSeen(ctx context.Context, db *sql.DB, wrestlerID string) (*SeenEntry, error) {
	var entry SeenEntry
	entry.WrestlerID = wrestlerID
	err := db.QueryRowContext(ctx, `
		SELECT depth, processed_at FROM crawl_seen WHERE wrestler_id = ?;
	`, wrestlerID).Scan(&entry.Depth, &entry.ProcessedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Unprocessed returns seen entries with processed_at null and depth <= maxDepth.
func Unprocessed(ctx context.Context, db *sql.DB, maxDepth int) ([]SeenEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT wrestler_id, depth, processed_at
		FROM crawl_seen
		WHERE processed_at IS NULL AND depth <= ?
		ORDER BY depth ASC, wrestler_id ASC;
	`, maxDepth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SeenEntry
	for rows.Next() {
		var e SeenEntry
		if err := rows.Scan(&e.WrestlerID, &e.Depth, &e.ProcessedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
