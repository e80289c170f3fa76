package wstore

import (
	"context"
	"database/sql"
	"time"
)

// MatchRow is one completed bout.
type MatchRow struct {
	ID              string
	TopWrestlerID   string
	BottomWrestlerID string
	WinnerID        string
	WeightClass     string
	EventID         sql.NullString
	Date            sql.NullString
	Result          sql.NullString
	WinType         sql.NullString
}

// InsertMatch is a no-op if the key already exists; existing match rows are
// never overwritten by later observations of the same id.
func InsertMatch(ctx context.Context, db *sql.DB, row MatchRow) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO matches (id, topWrestler_id, bottomWrestler_id, winner_id, weightClass, event_id, date, result, winType)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING;
	`, row.ID, row.TopWrestlerID, row.BottomWrestlerID, row.WinnerID, row.WeightClass, row.EventID, row.Date, row.Result, row.WinType)
	return err
}

// GetMatch returns nil, nil if the row does not exist.
func GetMatch(ctx context.Context, db *sql.DB, id string) (*MatchRow, error) {
	var row MatchRow
	err := db.QueryRowContext(ctx, `
		SELECT id, topWrestler_id, bottomWrestler_id, winner_id, weightClass, event_id, date, result, winType
		FROM matches WHERE id = ?;
	`, id).Scan(&row.ID, &row.TopWrestlerID, &row.BottomWrestlerID, &row.WinnerID, &row.WeightClass, &row.EventID, &row.Date, &row.Result, &row.WinType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CountMatches returns the number of rows in matches.
func CountMatches(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches;`).Scan(&n)
	return n, err
}

// ReplayMatch is a denormalized match row used by the rating engine and
// evaluator: a resolved, time-ordered view over matches filtered by an
// optional date bound.
type ReplayMatch struct {
	ID            string
	WinnerID      string
	LoserID       string
	WeightClass   string
	OccurredAt    time.Time
}

// LoadMatchesForReplay returns matches ordered by occurrence timestamp
// ascending, restricted to the optional [start, end] inclusive calendar
// bounds (zero time means unbounded). Rows with an empty winner,
// participant, weight class or date, a date that does not parse, or a
// winner equal to neither participant are skipped.
func LoadMatchesForReplay(ctx context.Context, db *sql.DB, start, end time.Time) ([]ReplayMatch, error) {
	query := `
		SELECT id, topWrestler_id, bottomWrestler_id, winner_id, weightClass, date
		FROM matches
		WHERE winner_id IS NOT NULL AND winner_id != ''
		  AND topWrestler_id IS NOT NULL AND topWrestler_id != ''
		  AND bottomWrestler_id IS NOT NULL AND bottomWrestler_id != ''
		  AND weightClass IS NOT NULL AND weightClass != ''
		  AND date IS NOT NULL AND date != ''
		ORDER BY date ASC;
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReplayMatch
	for rows.Next() {
		var (
			id, top, bottom, winner, weight, dateStr string
		)
		if err := rows.Scan(&id, &top, &bottom, &winner, &weight, &dateStr); err != nil {
			return nil, err
		}
		occurred, err := time.Parse(time.RFC3339, dateStr)
		if err != nil {
			occurred, err = time.Parse("2006-01-02", dateStr)
			if err != nil {
				continue
			}
		}
		day := occurred.UTC().Truncate(24 * time.Hour)
		if !start.IsZero() && day.Before(start.UTC().Truncate(24*time.Hour)) {
			continue
		}
		if !end.IsZero() && day.After(end.UTC().Truncate(24*time.Hour)) {
			continue
		}

		var loser string
		switch winner {
		case top:
			loser = bottom
		case bottom:
			loser = top
		default:
			continue
		}
		if winner == loser {
			continue
		}

		out = append(out, ReplayMatch{
			ID:          id,
			WinnerID:    winner,
			LoserID:     loser,
			WeightClass: weight,
			OccurredAt:  occurred,
		})
	}
	return out, rows.Err()
}
