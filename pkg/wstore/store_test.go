package wstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustParseRFC3339(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func openTestStore(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db))

	var version int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT schema_version FROM schema_meta WHERE id=1`).Scan(&version))
	require.Equal(t, SchemaVersion, version)
}

func TestMigrateRenamesLegacyMatchDateColumn(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("libsql", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// Simulate a pre-migration database that predates the date rename: the
	// matches table has matchDate but not date, and schema_meta is absent.
	_, err = db.ExecContext(ctx, `
		CREATE TABLE matches (
			id TEXT PRIMARY KEY,
			topWrestler_id TEXT,
			bottomWrestler_id TEXT,
			winner_id TEXT,
			weightClass TEXT,
			event_id TEXT,
			matchDate TEXT,
			result TEXT,
			winType TEXT
		);
	`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO matches (id, topWrestler_id, bottomWrestler_id, winner_id, weightClass, matchDate)
		VALUES ('m1', 'a', 'b', 'a', '125', '2020-01-01');
	`)
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, db))

	var date string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT date FROM matches WHERE id = 'm1'`).Scan(&date))
	require.Equal(t, "2020-01-01", date)
}
