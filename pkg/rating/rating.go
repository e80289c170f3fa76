// Package rating implements a full Glicko-2 replay over the match history
// stored by pkg/wstore, producing per-(wrestler, weight-class) ratings for
// a configurable volatility constraint tau.
package rating

import (
	"context"
	"database/sql"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/3leaps/floratings/pkg/progress"
	"github.com/3leaps/floratings/pkg/wstore"
)

// Fixed Glicko-2 constants shared by the replay engine and evaluator.
const (
	RatingScale       = 173.7178
	DefaultRating     = 1500.0
	DefaultRD         = 350.0
	DefaultVolatility = 0.06
	MaxRD             = 350.0
	DefaultTau        = 0.5
	Epsilon           = 1e-6
)

// State is one wrestler's running Glicko-2 state within a single weight
// class, tracked across the full replay timeline.
type State struct {
	Rating             float64
	RD                 float64
	Volatility         float64
	LastPeriodIndex    int
	LastCompetedPeriod int // -1 means never competed
	MatchesPlayed      int
}

func newState(periodIdx int) *State {
	return &State{
		Rating:             DefaultRating,
		RD:                 DefaultRD,
		Volatility:         DefaultVolatility,
		LastPeriodIndex:    periodIdx,
		LastCompetedPeriod: -1,
	}
}

// snapshot is the {mu, phi, sigma} view of a State used during a single
// period's pairwise update, taken immediately after the inactivity update.
type snapshot struct {
	rating     float64
	rd         float64
	volatility float64
	mu         float64
	phi        float64
}

// applyInactivity inflates RD for elapsed idle periods, per spec: phi <-
// sqrt(phi^2 + delta*sigma^2), clamped to the RD cap.
func applyInactivity(s *State, targetPeriod int) {
	if targetPeriod <= s.LastPeriodIndex {
		return
	}
	delta := float64(targetPeriod - s.LastPeriodIndex)
	phi := s.RD / RatingScale
	sigma := s.Volatility
	phi = math.Sqrt(phi*phi + delta*sigma*sigma)
	s.RD = math.Min(phi*RatingScale, MaxRD)
	s.LastPeriodIndex = targetPeriod
}

func buildSnapshot(s *State) snapshot {
	return snapshot{
		rating:     s.Rating,
		rd:         s.RD,
		volatility: s.Volatility,
		mu:         (s.Rating - DefaultRating) / RatingScale,
		phi:        s.RD / RatingScale,
	}
}

func glickoG(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+(3.0*phi*phi)/(math.Pi*math.Pi))
}

func glickoE(mu, muJ, phiJ float64) float64 {
	return 1.0 / (1.0 + math.Exp(-glickoG(phiJ)*(mu-muJ)))
}

// WinProbability returns the Glicko-2 expected-score of a wrestler rated
// (rating, rd) against an opponent rated (oppRating, oppRD), on the natural
// rating scale rather than the internal mu/phi scale.
func WinProbability(rating, rd, oppRating, oppRD float64) float64 {
	mu := (rating - DefaultRating) / RatingScale
	muOpp := (oppRating - DefaultRating) / RatingScale
	phiOpp := oppRD / RatingScale
	return glickoE(mu, muOpp, phiOpp)
}

// updateVolatility finds sigma' via the Illinois-method root find described
// by the spec: f(x) = (e^x(delta^2 - phi^2 - v - e^x)) / (2(phi^2+v+e^x)^2)
// - (x - ln(sigma^2))/tau^2, bracketed from A = ln(sigma^2).
func updateVolatility(phi, sigma, delta, v, tau float64) float64 {
	a := math.Log(sigma * sigma)

	f := func(x float64) float64 {
		expX := math.Exp(x)
		numerator := expX * (delta*delta - phi*phi - v - expX)
		denominator := 2.0 * math.Pow(phi*phi+v+expX, 2)
		return (numerator / denominator) - ((x - a) / (tau * tau))
	}

	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 {
			k++
		}
		B = a - k*tau
	}

	fA := f(A)
	fB := f(B)

	for math.Abs(B-A) > Epsilon {
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if fC*fB < 0 {
			A = B
			fA = fB
		} else {
			fA = fA / 2.0
		}
		B = C
		fB = fC
	}

	return math.Exp(A / 2.0)
}

// updatePlayer computes the Glicko-2 single-period update for one wrestler
// given their pre-period snapshot, their (opponentID, score) pairings, and
// the pre-period snapshots of every opponent in this period.
func updatePlayer(self snapshot, pairings []pairing, opponents map[string]snapshot, tau float64) (rating, rd, volatility float64) {
	if len(pairings) == 0 {
		return self.rating, self.rd, self.volatility
	}

	mu := self.mu
	phi := self.phi
	sigma := self.volatility

	vInv := 0.0
	deltaSum := 0.0
	for _, p := range pairings {
		opp := opponents[p.opponentID]
		g := glickoG(opp.phi)
		e := glickoE(mu, opp.mu, opp.phi)
		vInv += g * g * e * (1.0 - e)
		deltaSum += g * (p.score - e)
	}

	if vInv == 0 {
		return self.rating, self.rd, self.volatility
	}

	v := 1.0 / vInv
	delta := v * deltaSum
	newSigma := updateVolatility(phi, sigma, delta, v, tau)
	phiStar := math.Sqrt(phi*phi + newSigma*newSigma)
	phiPrime := 1.0 / math.Sqrt((1.0/(phiStar*phiStar))+(1.0/v))
	muPrime := mu + phiPrime*phiPrime*deltaSum

	rating = muPrime*RatingScale + DefaultRating
	rd = math.Min(phiPrime*RatingScale, MaxRD)
	volatility = newSigma
	return rating, rd, volatility
}

type pairing struct {
	opponentID string
	score      float64
}

var weightTokenRegexp = regexp.MustCompile(`\d+(?:\.\d+)?|\.\d+`)

// NormalizeWeightLabel extracts the first numeric token from a free-form
// weight-class label, preserving fractional form while stripping leading
// zeros (a leading '.' is re-prefixed with '0'). Returns "", false if no
// token at least two characters long exists.
func NormalizeWeightLabel(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	for _, token := range weightTokenRegexp.FindAllString(raw, -1) {
		if len(token) < 2 {
			continue
		}
		if strings.Contains(token, ".") {
			cleaned := strings.TrimLeft(token, "0")
			if strings.HasPrefix(cleaned, ".") {
				cleaned = "0" + cleaned
			}
			if cleaned == "" {
				cleaned = "0"
			}
			return cleaned, true
		}
		n, err := strconv.Atoi(token)
		if err != nil {
			continue
		}
		return strconv.Itoa(n), true
	}
	return "", false
}

func monthFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func addMonth(t time.Time) time.Time {
	return t.AddDate(0, 1, 0)
}

type preparedMatch struct {
	winnerID string
	loserID  string
}

// Replay runs the full Glicko-2 replay over matches for one tau and returns
// the final per-weight-class states plus the period timeline used.
type Replay struct {
	Tau       float64
	Periods   []time.Time
	States    map[string]map[string]*State // weight class -> wrestler ID -> state
}

// RunReplay loads matches bounded by [start, end] (zero means unbounded),
// buckets them into monthly periods, and replays them against tau. Progress
// is reported to sink after each period (sink may be nil).
func RunReplay(ctx context.Context, db *sql.DB, tau float64, start, end time.Time, sink progress.Sink) (*Replay, error) {
	rawMatches, err := wstore.LoadMatchesForReplay(ctx, db, start, end)
	if err != nil {
		return nil, err
	}
	return ReplayMatches(ctx, rawMatches, tau, sink)
}

// ReplayMatches runs the replay loop over an already-loaded, already-filtered
// slice of matches, with no database access of its own. It underlies
// RunReplay and lets callers that need to replay a partition of match
// history in memory (the evaluator's training cutoff, for instance) reuse
// the exact same period-bucketing and update logic.
func ReplayMatches(ctx context.Context, rawMatches []wstore.ReplayMatch, tau float64, sink progress.Sink) (*Replay, error) {
	var earliest, latest time.Time
	for _, m := range rawMatches {
		if _, ok := NormalizeWeightLabel(m.WeightClass); !ok {
			continue
		}
		period := monthFloor(m.OccurredAt)
		if earliest.IsZero() || period.Before(earliest) {
			earliest = period
		}
		if latest.IsZero() || period.After(latest) {
			latest = period
		}
	}

	var periods []time.Time
	periodIndex := make(map[time.Time]int)
	if !earliest.IsZero() {
		for cur := earliest; !cur.After(latest); cur = addMonth(cur) {
			periodIndex[cur] = len(periods)
			periods = append(periods, cur)
		}
	}

	// Re-bucket now that the period index is known (periodIdx couldn't be
	// resolved until the full timeline was built above).
	grouped := make(map[int]map[string][]preparedMatch)
	for _, m := range rawMatches {
		weight, ok := NormalizeWeightLabel(m.WeightClass)
		if !ok {
			continue
		}
		idx := periodIndex[monthFloor(m.OccurredAt)]
		byWeight, ok := grouped[idx]
		if !ok {
			byWeight = make(map[string][]preparedMatch)
			grouped[idx] = byWeight
		}
		byWeight[weight] = append(byWeight[weight], preparedMatch{winnerID: m.WinnerID, loserID: m.LoserID})
	}

	states := make(map[string]map[string]*State)
	totalPeriods := len(periods)

	for periodIdx := 0; periodIdx < totalPeriods; periodIdx++ {
		weightGroups, ok := grouped[periodIdx]
		if !ok {
			continue
		}
		for weightClass, matches := range weightGroups {
			weightStates, ok := states[weightClass]
			if !ok {
				weightStates = make(map[string]*State)
				states[weightClass] = weightStates
			}

			perPlayer := make(map[string][]pairing)
			for _, m := range matches {
				if _, ok := weightStates[m.winnerID]; !ok {
					weightStates[m.winnerID] = newState(periodIdx)
				}
				if _, ok := weightStates[m.loserID]; !ok {
					weightStates[m.loserID] = newState(periodIdx)
				}
				perPlayer[m.winnerID] = append(perPlayer[m.winnerID], pairing{opponentID: m.loserID, score: 1.0})
				perPlayer[m.loserID] = append(perPlayer[m.loserID], pairing{opponentID: m.winnerID, score: 0.0})
			}

			snapshots := make(map[string]snapshot, len(perPlayer))
			for wrestlerID := range perPlayer {
				s := weightStates[wrestlerID]
				applyInactivity(s, periodIdx)
				snapshots[wrestlerID] = buildSnapshot(s)
			}

			type update struct {
				rating, rd, volatility float64
			}
			updates := make(map[string]update, len(perPlayer))
			for wrestlerID, pairings := range perPlayer {
				r, rd, vol := updatePlayer(snapshots[wrestlerID], pairings, snapshots, tau)
				updates[wrestlerID] = update{rating: r, rd: rd, volatility: vol}
			}

			for wrestlerID, u := range updates {
				s := weightStates[wrestlerID]
				s.Rating = u.rating
				s.RD = u.rd
				s.Volatility = u.volatility
				s.LastPeriodIndex = periodIdx
				s.LastCompetedPeriod = periodIdx
				s.MatchesPlayed += len(perPlayer[wrestlerID])
			}
		}

		if sink != nil {
			label := ""
			if periodIdx < len(periods) {
				label = periods[periodIdx].Format("2006-01")
			}
			_ = sink.WriteReplayProgress(ctx, &progress.ReplayProgressRecord{
				Tau:          tau,
				PeriodIndex:  periodIdx,
				TotalPeriods: totalPeriods,
				PeriodLabel:  label,
			})
		}
	}

	finalIdx := totalPeriods - 1
	if finalIdx >= 0 {
		for _, weightStates := range states {
			for _, s := range weightStates {
				applyInactivity(s, finalIdx)
			}
		}
	}

	return &Replay{Tau: tau, Periods: periods, States: states}, nil
}

// FormatPeriodLabel converts a period index into its "YYYY-MM" label, or
// "" if the index is out of range.
func FormatPeriodLabel(periodIdx int, periods []time.Time) string {
	if periodIdx < 0 || periodIdx >= len(periods) {
		return ""
	}
	return periods[periodIdx].Format("2006-01")
}

// PeriodLabelToDate converts a "YYYY-MM" label to a first-of-month
// "YYYY-MM-DD" calendar date string, or "" if the label is malformed.
func PeriodLabelToDate(label string) string {
	if label == "" {
		return ""
	}
	parts := strings.SplitN(label, "-", 2)
	if len(parts) != 2 {
		return ""
	}
	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return ""
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// WeightEntries returns the sorted (numeric ascending, non-numeric last)
// list of weight-class keys tracked by this replay.
func (r *Replay) WeightEntries() []string {
	keys := make([]string, 0, len(r.States))
	for k := range r.States {
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

func parseFloatOK(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
