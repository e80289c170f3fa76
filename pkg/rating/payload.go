package rating

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/3leaps/floratings/pkg/wstore"
)

// WrestlerRating is one wrestler's final state within a weight class,
// ready for JSON serialization.
type WrestlerRating struct {
	WrestlerID        string  `json:"wrestler_id"`
	Name              string  `json:"name"`
	Rating            float64 `json:"rating"`
	RD                float64 `json:"rd"`
	Volatility        float64 `json:"volatility"`
	Matches           int     `json:"matches"`
	LastActivePeriod  string  `json:"last_active_period,omitempty"`
}

// Payload is the full per-tau replay snapshot written to
// build/glicko2_tau-<tau>.json.
type Payload struct {
	Tau           float64                     `json:"tau"`
	GeneratedAt   string                      `json:"generated_at"`
	PeriodStart   string                      `json:"period_start,omitempty"`
	PeriodEnd     string                      `json:"period_end,omitempty"`
	TotalPeriods  int                         `json:"total_periods"`
	WeightClasses map[string][]WrestlerRating `json:"weight_classes"`
}

// BuildPayload renders a Replay into its JSON-ready output, resolving
// wrestler display names and sorting each weight class's wrestlers by rating
// descending. WeightClasses is a map, so encoding/json writes its keys in
// lexical order, not numeric order; OrderedWeightClasses returns the keys
// numerically ascending with non-numeric labels last.
func BuildPayload(r *Replay, names map[string]string, now time.Time) Payload {
	payload := Payload{
		Tau:           r.Tau,
		GeneratedAt:   now.UTC().Truncate(time.Second).Format(time.RFC3339),
		TotalPeriods:  len(r.Periods),
		WeightClasses: make(map[string][]WrestlerRating, len(r.States)),
	}
	if len(r.Periods) > 0 {
		payload.PeriodStart = r.Periods[0].Format("2006-01-02")
		payload.PeriodEnd = r.Periods[len(r.Periods)-1].Format("2006-01-02")
	}

	for weight, wrestlers := range r.States {
		entries := make([]WrestlerRating, 0, len(wrestlers))
		for id, s := range wrestlers {
			entries = append(entries, WrestlerRating{
				WrestlerID:       id,
				Name:             names[id],
				Rating:           roundTo(s.Rating, 3),
				RD:               roundTo(s.RD, 3),
				Volatility:       roundTo(s.Volatility, 6),
				Matches:          s.MatchesPlayed,
				LastActivePeriod: formatLastCompeted(s.LastCompetedPeriod, r.Periods),
			})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Rating != entries[j].Rating {
				return entries[i].Rating > entries[j].Rating
			}
			return entries[i].WrestlerID < entries[j].WrestlerID
		})
		payload.WeightClasses[weight] = entries
	}

	return payload
}

// OrderedWeightClasses returns the payload's weight-class keys sorted the
// same way BuildPayload's caller should write them: numeric ascending, then
// non-numeric lexical. json.Marshal on a map does not preserve this order,
// so callers that need ordered output (e.g. pretty-printing) should use
// this alongside WeightClasses.
func (p Payload) OrderedWeightClasses() []string {
	keys := make([]string, 0, len(p.WeightClasses))
	for k := range p.WeightClasses {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		vi, oki := parseFloatOK(keys[i])
		vj, okj := parseFloatOK(keys[j])
		switch {
		case oki && okj:
			return vi < vj
		case oki:
			return true
		case okj:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

func formatLastCompeted(periodIdx int, periods []time.Time) string {
	if periodIdx < 0 {
		return ""
	}
	return FormatPeriodLabel(periodIdx, periods)
}

func roundTo(v float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	return float64(int64(v*scale+sign(v)*0.5)) / scale
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// Persist converts the payload into rating rows and replaces the ratings
// table wholesale, mapping each wrestler's last_active_period label back to
// a first-of-month calendar date (falling back to the payload's period_end,
// then to now).
func Persist(ctx context.Context, db *sql.DB, payload Payload, now time.Time) error {
	fallback := payload.PeriodEnd
	if fallback == "" {
		fallback = now.UTC().Format("2006-01-02")
	}

	var rows []wstore.RatingRow
	for weight, wrestlers := range payload.WeightClasses {
		for _, w := range wrestlers {
			lastUpdated := PeriodLabelToDate(w.LastActivePeriod)
			if lastUpdated == "" {
				lastUpdated = fallback
			}
			rows = append(rows, wstore.RatingRow{
				WrestlerID:  w.WrestlerID,
				WeightClass: weight,
				Rating:      w.Rating,
				RD:          w.RD,
				Volatility:  w.Volatility,
				LastUpdated: lastUpdated,
			})
		}
	}

	return wstore.ReplaceRatings(ctx, db, rows)
}
