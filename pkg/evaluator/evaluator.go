// Package evaluator measures how well a Glicko-2 replay predicts held-out
// match results: a training cutoff is replayed to produce a rating snapshot,
// then that snapshot's win probabilities are scored against matches that
// occurred after an evaluation start.
package evaluator

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/3leaps/floratings/pkg/rating"
	"github.com/3leaps/floratings/pkg/wstore"
)

// clampEpsilon bounds predicted win probabilities away from 0 and 1 so that
// log loss never diverges on a confident miss. This is deliberately a
// tighter bound than rating.Epsilon, which governs volatility root-finding
// convergence rather than probability scoring.
const clampEpsilon = 1e-12

// Partition splits a match set into a training slice (used to build rating
// states) and an evaluation slice (used to score those states), by
// timestamp.
type Partition struct {
	Train []wstore.ReplayMatch
	Eval  []wstore.ReplayMatch
}

// PartitionMatches splits matches into train/eval slices around trainEnd and
// evalStart. A match belongs to train if it occurred at or before trainEnd,
// and to eval if it occurred at or after evalStart and, when evalEnd is
// non-zero, at or before evalEnd. Matches in the gap between trainEnd and
// evalStart (exclusive of both) belong to neither.
func PartitionMatches(matches []wstore.ReplayMatch, trainEnd, evalStart, evalEnd time.Time) Partition {
	var p Partition
	for _, m := range matches {
		if !m.OccurredAt.After(trainEnd) {
			p.Train = append(p.Train, m)
		}
		if !m.OccurredAt.Before(evalStart) && (evalEnd.IsZero() || !m.OccurredAt.After(evalEnd)) {
			p.Eval = append(p.Eval, m)
		}
	}
	return p
}

// EnsureEvalStart returns evalStart unchanged if it is non-zero, after
// checking it falls strictly after trainEnd. If evalStart is zero, it
// defaults to one second past trainEnd, mirroring the common case of
// evaluating on whatever comes immediately after the training cutoff.
func EnsureEvalStart(trainEnd, evalStart time.Time) (time.Time, error) {
	if evalStart.IsZero() {
		return trainEnd.Add(time.Second), nil
	}
	if !evalStart.After(trainEnd) {
		return time.Time{}, errEvalStartNotAfterTrainEnd
	}
	return evalStart, nil
}

var errEvalStartNotAfterTrainEnd = evalStartErr("eval-start must be strictly after train-end")

type evalStartErr string

func (e evalStartErr) Error() string { return string(e) }

// BuildStates replays only the training partition against tau and returns
// the resulting per-weight-class rating snapshot, reusing the rating
// package's core replay loop over an in-memory slice so the evaluator never
// re-queries the store with a second date filter.
func BuildStates(ctx context.Context, trainMatches []wstore.ReplayMatch, tau float64) (*rating.Replay, error) {
	return rating.ReplayMatches(ctx, trainMatches, tau, nil)
}

// GetState returns the (rating, rd) pair for a wrestler within a weight
// class, defaulting to a fresh Glicko-2 state if the replay never observed
// them (an unrated newcomer facing the training-period field).
func GetState(replay *rating.Replay, weightClass, wrestlerID string) (ratingValue, rd float64) {
	if replay != nil {
		if byWrestler, ok := replay.States[weightClass]; ok {
			if s, ok := byWrestler[wrestlerID]; ok {
				return s.Rating, s.RD
			}
		}
	}
	return rating.DefaultRating, rating.DefaultRD
}

func clampProbability(p float64) float64 {
	return math.Min(1-clampEpsilon, math.Max(clampEpsilon, p))
}

// MatchScore is one evaluation match's predicted-versus-actual outcome.
type MatchScore struct {
	MatchID     string
	Probability float64
	LogLoss     float64
	Brier       float64
	Correct     bool
}

// ScoreMatch computes the winner's predicted win probability from the
// training snapshot and the corresponding log-loss/Brier/accuracy terms.
// The actual outcome is always a win for WinnerID, so the target label is 1.
func ScoreMatch(replay *rating.Replay, m wstore.ReplayMatch) MatchScore {
	weight, ok := rating.NormalizeWeightLabel(m.WeightClass)
	if !ok {
		return MatchScore{MatchID: m.ID}
	}

	winnerRating, winnerRD := GetState(replay, weight, m.WinnerID)
	loserRating, loserRD := GetState(replay, weight, m.LoserID)

	p := clampProbability(rating.WinProbability(winnerRating, winnerRD, loserRating, loserRD))
	return MatchScore{
		MatchID:     m.ID,
		Probability: p,
		LogLoss:     -math.Log(p),
		Brier:       (1 - p) * (1 - p),
		Correct:     p >= 0.5,
	}
}

// Result is the aggregate evaluation outcome for one tau.
type Result struct {
	Tau      float64 `json:"tau"`
	Matches  int     `json:"matches"`
	LogLoss  float64 `json:"log_loss"`
	Brier    float64 `json:"brier"`
	Accuracy float64 `json:"accuracy"`
}

// EvaluateMatches replays the training partition, scores every evaluation
// match against that snapshot, and returns the mean log-loss, mean Brier
// score, and accuracy over matches whose weight class normalizes. Matches
// with an unrecognized weight class are skipped entirely, matching the
// training replay's own exclusion rule.
func EvaluateMatches(ctx context.Context, p Partition, tau float64) (Result, error) {
	replay, err := BuildStates(ctx, p.Train, tau)
	if err != nil {
		return Result{}, err
	}

	var logLossSum, brierSum float64
	var correct, scored int
	for _, m := range p.Eval {
		if _, ok := rating.NormalizeWeightLabel(m.WeightClass); !ok {
			continue
		}
		s := ScoreMatch(replay, m)
		logLossSum += s.LogLoss
		brierSum += s.Brier
		if s.Correct {
			correct++
		}
		scored++
	}

	result := Result{Tau: tau, Matches: scored}
	if scored > 0 {
		result.LogLoss = logLossSum / float64(scored)
		result.Brier = brierSum / float64(scored)
		result.Accuracy = float64(correct) / float64(scored)
	}
	return result, nil
}

// Summary is the full multi-tau evaluation payload written to disk.
type Summary struct {
	GeneratedAt string   `json:"generated_at"`
	TrainEnd    string   `json:"train_end"`
	EvalStart   string   `json:"eval_start"`
	EvalEnd     string   `json:"eval_end,omitempty"`
	Taus        []float64 `json:"taus"`
	Results     []Result `json:"results"`
}

// Run loads the full match history bounded by [startDate, endDate], splits
// it around trainEnd/evalStart/evalEnd, and evaluates every tau in taus
// against that single partition.
func Run(ctx context.Context, db *sql.DB, taus []float64, startDate, endDate, trainEnd, evalStart, evalEnd time.Time, now time.Time) (Summary, error) {
	matches, err := wstore.LoadMatchesForReplay(ctx, db, startDate, endDate)
	if err != nil {
		return Summary{}, err
	}

	resolvedEvalStart, err := EnsureEvalStart(trainEnd, evalStart)
	if err != nil {
		return Summary{}, err
	}

	partition := PartitionMatches(matches, trainEnd, resolvedEvalStart, evalEnd)

	summary := Summary{
		GeneratedAt: now.UTC().Truncate(time.Second).Format(time.RFC3339),
		TrainEnd:    trainEnd.UTC().Format(time.RFC3339),
		EvalStart:   resolvedEvalStart.UTC().Format(time.RFC3339),
		Taus:        taus,
	}
	if !evalEnd.IsZero() {
		summary.EvalEnd = evalEnd.UTC().Format(time.RFC3339)
	}

	for _, tau := range taus {
		result, err := EvaluateMatches(ctx, partition, tau)
		if err != nil {
			return Summary{}, err
		}
		summary.Results = append(summary.Results, result)
	}

	return summary, nil
}
