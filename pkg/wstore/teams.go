package wstore

import (
	"context"
	"database/sql"
)

// TeamRow is one team identity.
type TeamRow struct {
	ID   int64
	Name string
}

// InsertTeam is a no-op if the key already exists.
func InsertTeam(ctx context.Context, db *sql.DB, row TeamRow) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO teams (id, name)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING;
	`, row.ID, row.Name)
	return err
}

// GetTeam returns nil, nil if the row does not exist.
func GetTeam(ctx context.Context, db *sql.DB, id int64) (*TeamRow, error) {
	var row TeamRow
	err := db.QueryRowContext(ctx, `
		SELECT id, name FROM teams WHERE id = ?;
	`, id).Scan(&row.ID, &row.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
