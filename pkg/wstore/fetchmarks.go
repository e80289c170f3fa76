package wstore

import (
	"context"
	"database/sql"
	"time"
)

// MarkFetch records that a wrestler's opponent page has been fully fetched.
// Informational only — it does not gate re-fetch within a run.
func MarkFetch(ctx context.Context, db *sql.DB, wrestlerID string, when time.Time) error {
	date := when.Format("2006-01-02")
	_, err := db.ExecContext(ctx, `
		INSERT INTO fetched (id, date)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET date = excluded.date;
	`, wrestlerID, date)
	return err
}

// GetFetchMark returns the empty string, nil if no mark exists.
func GetFetchMark(ctx context.Context, db *sql.DB, wrestlerID string) (string, error) {
	var date string
	err := db.QueryRowContext(ctx, `SELECT date FROM fetched WHERE id = ?;`, wrestlerID).Scan(&date)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return date, err
}
