// Package leaderboard ranks persisted ratings within each weight class by a
// conservative score, rating - 2*RD, favoring wrestlers whose rating the
// replay is more certain about.
package leaderboard

import (
	"context"
	"database/sql"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/3leaps/floratings/pkg/wstore"
)

// Entry is one wrestler's ranked position within a weight class.
type Entry struct {
	WrestlerID          string  `json:"wrestler_id"`
	Name                string  `json:"name"`
	Rating              float64 `json:"rating"`
	RD                  float64 `json:"rd"`
	Volatility          float64 `json:"volatility"`
	ConservativeRating  float64 `json:"conservative_rating"`
	LastUpdated         string  `json:"last_updated"`
}

// Payload is the full leaderboard snapshot written to build/leaderboards.json.
type Payload struct {
	GeneratedAt     string             `json:"generated_at"`
	Method          string             `json:"method"`
	LimitPerWeight  int                `json:"limit_per_weight"`
	MinLastUpdated  string             `json:"min_last_updated,omitempty"`
	WeightClasses   map[string][]Entry `json:"weight_classes"`
}

// conservativeScore is rating - 2*RD: a lower-bound estimate that discounts
// a wrestler's rating by twice its uncertainty.
func conservativeScore(rating, rd float64) float64 {
	return rating - 2.0*rd
}

func weightSortKey(weight string) float64 {
	v, err := strconv.ParseFloat(weight, 64)
	if err != nil {
		return math.Inf(1)
	}
	return v
}

// Build ranks the supplied rating rows into per-weight-class leaderboards,
// applying limitPerWeight (0 means unlimited). WeightClasses is a map and
// carries no order; OrderedWeightClasses returns its keys numerically
// ascending with non-numeric labels last.
func Build(rows []wstore.LeaderboardRow, limitPerWeight int, now time.Time, minLastUpdated string) Payload {
	byWeight := make(map[string][]Entry)
	for _, row := range rows {
		if row.WeightClass == "" {
			continue
		}
		byWeight[row.WeightClass] = append(byWeight[row.WeightClass], Entry{
			WrestlerID:         row.WrestlerID,
			Name:               row.Name,
			Rating:             roundTo(row.Rating, 3),
			RD:                 roundTo(row.RD, 3),
			Volatility:         roundTo(row.Volatility, 6),
			ConservativeRating: roundTo(conservativeScore(row.Rating, row.RD), 3),
			LastUpdated:        row.LastUpdated,
		})
	}

	for weight, entries := range byWeight {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].ConservativeRating != entries[j].ConservativeRating {
				return entries[i].ConservativeRating > entries[j].ConservativeRating
			}
			return entries[i].WrestlerID < entries[j].WrestlerID
		})
		if limitPerWeight > 0 && len(entries) > limitPerWeight {
			entries = entries[:limitPerWeight]
		}
		byWeight[weight] = entries
	}

	return Payload{
		GeneratedAt:    now.UTC().Truncate(time.Second).Format(time.RFC3339),
		Method:         "rating - 2 * RD",
		LimitPerWeight: limitPerWeight,
		MinLastUpdated: minLastUpdated,
		WeightClasses:  byWeight,
	}
}

// OrderedWeightClasses returns the payload's weight-class keys sorted
// numeric ascending, non-numeric labels last.
func (p Payload) OrderedWeightClasses() []string {
	keys := make([]string, 0, len(p.WeightClasses))
	for k := range p.WeightClasses {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		vi, vj := weightSortKey(keys[i]), weightSortKey(keys[j])
		if vi != vj {
			return vi < vj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func roundTo(v float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	sign := 1.0
	if v < 0 {
		sign = -1.0
	}
	return float64(int64(v*scale+sign*0.5)) / scale
}

// Run loads the persisted ratings joined with wrestler names, optionally
// filtered by minLastUpdated (a "YYYY-MM-DD" calendar date; empty means
// unfiltered), and builds the ranked leaderboard payload.
func Run(ctx context.Context, db *sql.DB, limitPerWeight int, minLastUpdated string, now time.Time) (Payload, error) {
	rows, err := wstore.LoadRatingsWithNames(ctx, db, minLastUpdated)
	if err != nil {
		return Payload{}, err
	}
	return Build(rows, limitPerWeight, now, minLastUpdated), nil
}
