package wstore

import (
	"context"
	"database/sql"
)

// EventRow is one competition event.
type EventRow struct {
	ID       string
	Name     string
	Date     sql.NullString
	Location sql.NullString
}

// InsertEvent is a no-op if the key already exists.
func InsertEvent(ctx context.Context, db *sql.DB, row EventRow) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO events (id, name, date, location)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING;
	`, row.ID, row.Name, row.Date, row.Location)
	return err
}

// GetEvent returns nil, nil if the row does not exist.
func GetEvent(ctx context.Context, db *sql.DB, id string) (*EventRow, error) {
	var row EventRow
	err := db.QueryRowContext(ctx, `
		SELECT id, name, date, location FROM events WHERE id = ?;
	`, id).Scan(&row.ID, &row.Name, &row.Date, &row.Location)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
