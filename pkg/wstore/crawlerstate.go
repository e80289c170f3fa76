package wstore

import (
	"context"
	"database/sql"
	"time"
)

// CrawlerStateRow is the singleton row describing the active crawl
// configuration.
type CrawlerStateRow struct {
	SeedID     string
	DepthLimit int
	UpdatedAt  time.Time
}

// GetCrawlerState returns nil, nil if no state row exists yet.
func GetCrawlerState(ctx context.Context, db *sql.DB) (*CrawlerStateRow, error) {
	var (
		seedID     string
		depthLimit int
		updatedAt  string
	)
	err := db.QueryRowContext(ctx, `
		SELECT seed_id, depth_limit, updated_at FROM crawler_state WHERE id = 1;
	`).Scan(&seedID, &depthLimit, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ts, _ := time.Parse(time.RFC3339, updatedAt)
	return &CrawlerStateRow{SeedID: seedID, DepthLimit: depthLimit, UpdatedAt: ts}, nil
}

// UpsertCrawlerState sets the singleton (seed, depth) and refreshes the
// update timestamp.
func UpsertCrawlerState(ctx context.Context, db *sql.DB, seedID string, depthLimit int, now time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO crawler_state (id, seed_id, depth_limit, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			seed_id = excluded.seed_id,
			depth_limit = excluded.depth_limit,
			updated_at = excluded.updated_at;
	`, seedID, depthLimit, now.Format(time.RFC3339))
	return err
}

// ClearCrawlerState truncates crawler_state, crawl_queue, and crawl_seen in
// one transaction.
func ClearCrawlerState(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM crawler_state;`,
		`DELETE FROM crawl_queue;`,
		`DELETE FROM crawl_seen;`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
