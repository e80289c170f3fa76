package wstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SchemaVersion is the current schema version. Bump and add a version-gated
// migration block in Migrate when the schema changes shape.
const SchemaVersion = 2

// Migrate creates (or upgrades) the store schema in-place. It is safe to
// call on every Open: duplicate-column errors from re-running an ALTER are
// tolerated, matching the teacher's idempotent migration discipline.
func Migrate(ctx context.Context, db *sql.DB) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if db == nil {
		return fmt.Errorf("db is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_version INTEGER NOT NULL
		);`,
		`INSERT INTO schema_meta (id, schema_version)
			VALUES (1, 0)
			ON CONFLICT(id) DO NOTHING;`,

		`CREATE TABLE IF NOT EXISTS teams (
			id INTEGER PRIMARY KEY,
			name TEXT
		);`,

		`CREATE TABLE IF NOT EXISTS wrestlers (
			id TEXT PRIMARY KEY,
			name TEXT,
			team_id TEXT
		);`,

		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			name TEXT,
			date TEXT,
			location TEXT
		);`,

		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			topWrestler_id TEXT,
			bottomWrestler_id TEXT,
			winner_id TEXT,
			weightClass TEXT,
			event_id TEXT,
			date TEXT,
			result TEXT,
			winType TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_weightclass ON matches(weightClass);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_top ON matches(topWrestler_id);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_bottom ON matches(bottomWrestler_id);`,

		`CREATE TABLE IF NOT EXISTS fetched (
			id TEXT PRIMARY KEY,
			date TEXT
		);`,

		`CREATE TABLE IF NOT EXISTS crawler_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			seed_id TEXT,
			depth_limit INTEGER,
			updated_at TEXT
		);`,

		`CREATE TABLE IF NOT EXISTS crawl_queue (
			wrestler_id TEXT PRIMARY KEY,
			depth INTEGER NOT NULL,
			enqueued_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_crawl_queue_enqueued_at ON crawl_queue(enqueued_at);`,

		`CREATE TABLE IF NOT EXISTS crawl_seen (
			wrestler_id TEXT PRIMARY KEY,
			depth INTEGER NOT NULL,
			processed_at TEXT
		);`,

		`CREATE TABLE IF NOT EXISTS ratings (
			wrestler_id TEXT NOT NULL,
			weight_class TEXT NOT NULL,
			rating REAL NOT NULL,
			rd REAL NOT NULL,
			volatility REAL NOT NULL,
			last_updated TEXT,
			PRIMARY KEY(wrestler_id, weight_class)
		);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}

	var current int
	if err := tx.QueryRowContext(ctx, `SELECT schema_version FROM schema_meta WHERE id=1`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	// v2: the matches table historically carried a matchDate column;
	// rename it forward to date and carry the data across.
	if current < 2 {
		hasMatchDate, err := columnExists(ctx, tx, "matches", "matchDate")
		if err != nil {
			return fmt.Errorf("inspect matches columns: %w", err)
		}
		if hasMatchDate {
			if _, err := tx.ExecContext(ctx, `ALTER TABLE matches RENAME COLUMN matchDate TO date;`); err != nil {
				msg := err.Error()
				if !strings.Contains(msg, "duplicate column name") && !strings.Contains(msg, "already exists") {
					return fmt.Errorf("rename matchDate to date: %w", err)
				}
			}
		}
	}

	// The date index is created after the rename so that a legacy matches
	// table already has its date column.
	if _, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_matches_date ON matches(date);`); err != nil {
		return fmt.Errorf("exec schema statement: %w", err)
	}

	if current != SchemaVersion {
		if _, err := tx.ExecContext(ctx, `UPDATE schema_meta SET schema_version=? WHERE id=1`, SchemaVersion); err != nil {
			return fmt.Errorf("update schema_version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func columnExists(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      sql.NullString
			notnull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &primaryKey); err != nil {
			return false, err
		}
		if strings.EqualFold(name, column) {
			return true, nil
		}
	}
	return false, rows.Err()
}
