package wstore

import (
	"context"
	"database/sql"
)

// WrestlerRow is one wrestler identity.
type WrestlerRow struct {
	ID     string
	Name   string
	TeamID sql.NullString
}

// InsertWrestler is a no-op if the key already exists.
func InsertWrestler(ctx context.Context, db *sql.DB, row WrestlerRow) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO wrestlers (id, name, team_id)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING;
	`, row.ID, row.Name, row.TeamID)
	return err
}

// GetWrestler returns nil, nil if the row does not exist.
func GetWrestler(ctx context.Context, db *sql.DB, id string) (*WrestlerRow, error) {
	var row WrestlerRow
	err := db.QueryRowContext(ctx, `
		SELECT id, name, team_id FROM wrestlers WHERE id = ?;
	`, id).Scan(&row.ID, &row.Name, &row.TeamID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CountWrestlers returns the number of rows in wrestlers.
func CountWrestlers(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wrestlers;`).Scan(&n)
	return n, err
}

// WrestlerNames returns a map of wrestler id to display name, for bulk
// resolution by the rating engine's output builder.
func WrestlerNames(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name FROM wrestlers;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}
