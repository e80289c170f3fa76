package wstore

import (
	"context"
	"database/sql"
	"strings"
)

// WrestlerStat aggregates win/loss counts for one wrestler within a
// weight-class/date filter, for the graph exporter's node layer.
type WrestlerStat struct {
	WrestlerID string
	Name       string
	Wins       int
	Losses     int
}

// EdgeStat aggregates a directed winner->loser edge count, for the graph
// exporter's edge layer.
type EdgeStat struct {
	SourceID string
	TargetID string
	Count    int
}

type matchFilter struct {
	where string
	args  []any
}

func buildMatchFilter(weightClasses []string, start, end string) matchFilter {
	var clauses []string
	var args []any

	if len(weightClasses) > 0 {
		placeholders := make([]string, len(weightClasses))
		for i, w := range weightClasses {
			placeholders[i] = "?"
			args = append(args, w)
		}
		clauses = append(clauses, "weightClass IN ("+strings.Join(placeholders, ",")+")")
	}
	if start != "" {
		clauses = append(clauses, "date >= ?")
		args = append(args, start)
	}
	if end != "" {
		clauses = append(clauses, "date <= ?")
		args = append(args, end)
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	return matchFilter{where: where, args: args}
}

// FetchWrestlerStats aggregates wins and losses per wrestler for matches
// matching the filter.
func FetchWrestlerStats(ctx context.Context, db *sql.DB, weightClasses []string, start, end string) ([]WrestlerStat, error) {
	filter := buildMatchFilter(weightClasses, start, end)
	query := `
		SELECT w.id, COALESCE(w.name, ''),
			SUM(CASE WHEN m.winner_id = w.id THEN 1 ELSE 0 END) AS wins,
			SUM(CASE WHEN m.winner_id != w.id THEN 1 ELSE 0 END) AS losses
		FROM wrestlers w
		JOIN matches m ON m.topWrestler_id = w.id OR m.bottomWrestler_id = w.id
	` + filter.where + `
		GROUP BY w.id, w.name;
	`
	rows, err := db.QueryContext(ctx, query, filter.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WrestlerStat
	for rows.Next() {
		var s WrestlerStat
		if err := rows.Scan(&s.WrestlerID, &s.Name, &s.Wins, &s.Losses); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FetchEdgeStats aggregates directed winner->loser counts for matches
// matching the filter.
func FetchEdgeStats(ctx context.Context, db *sql.DB, weightClasses []string, start, end string) ([]EdgeStat, error) {
	filter := buildMatchFilter(weightClasses, start, end)
	query := `
		SELECT
			winner_id,
			CASE WHEN winner_id = topWrestler_id THEN bottomWrestler_id ELSE topWrestler_id END AS loser_id,
			COUNT(*) AS cnt
		FROM matches
	` + filter.where + `
		GROUP BY winner_id, loser_id;
	`
	rows, err := db.QueryContext(ctx, query, filter.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EdgeStat
	for rows.Next() {
		var e EdgeStat
		if err := rows.Scan(&e.SourceID, &e.TargetID, &e.Count); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
