package wstore

import (
	"context"
	"database/sql"
	"fmt"
)

// RatingRow is one (wrestler, weight-class) rating tuple.
type RatingRow struct {
	WrestlerID  string
	WeightClass string
	Rating      float64
	RD          float64
	Volatility  float64
	LastUpdated string
}

// ReplaceRatings deletes all rating rows and bulk-inserts the supplied rows
// in one transaction, mirroring the teacher's delete-then-bulk-insert
// prepared-statement idiom.
func ReplaceRatings(ctx context.Context, db *sql.DB, rows []RatingRow) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ratings;`); err != nil {
		return fmt.Errorf("delete ratings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ratings (wrestler_id, weight_class, rating, rd, volatility, last_updated)
		VALUES (?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("prepare insert ratings: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.WrestlerID, row.WeightClass, row.Rating, row.RD, row.Volatility, row.LastUpdated); err != nil {
			return fmt.Errorf("insert rating row: %w", err)
		}
	}

	return tx.Commit()
}

// LeaderboardRow is a rating joined with the wrestler's display name.
type LeaderboardRow struct {
	WrestlerID  string
	Name        string
	WeightClass string
	Rating      float64
	RD          float64
	Volatility  float64
	LastUpdated string
}

// LoadRatingsWithNames joins ratings with wrestlers, optionally filtering by
// a minimum last_updated calendar date.
func LoadRatingsWithNames(ctx context.Context, db *sql.DB, minLastUpdated string) ([]LeaderboardRow, error) {
	query := `
		SELECT r.wrestler_id, COALESCE(w.name, ''), r.weight_class, r.rating, r.rd, r.volatility, COALESCE(r.last_updated, '')
		FROM ratings r
		LEFT JOIN wrestlers w ON w.id = r.wrestler_id
	`
	args := []any{}
	if minLastUpdated != "" {
		query += ` WHERE r.last_updated IS NOT NULL AND r.last_updated >= ?`
		args = append(args, minLastUpdated)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.WrestlerID, &row.Name, &row.WeightClass, &row.Rating, &row.RD, &row.Volatility, &row.LastUpdated); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
