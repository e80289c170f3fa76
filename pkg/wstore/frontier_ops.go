package wstore

import (
	"context"
	"database/sql"
)

// ClearFrontier truncates only crawl_queue, leaving crawler_state and
// crawl_seen intact. Used when the crawl seed changes: the frontier must be
// rebuilt, but prior discoveries in Seen remain valid history.
func ClearFrontier(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DELETE FROM crawl_queue;`)
	return err
}
