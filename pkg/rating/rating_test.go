package rating

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/floratings/pkg/wstore"
)

func TestNormalizeWeightLabel(t *testing.T) {
	cases := []struct {
		in       string
		want     string
		wantOK   bool
	}{
		{"125", "125", true},
		{"126.5 lbs", "126.5", true},
		{"Women's 130", "130", true},
		{"0106", "106", true},
		{".5", "0.5", true}, // a leading '.' is re-prefixed with '0'
		{"HWT", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeWeightLabel(tc.in)
		assert.Equal(t, tc.wantOK, ok, "input %q", tc.in)
		if tc.wantOK {
			assert.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}

func TestGlickoGAndEMatchKnownValues(t *testing.T) {
	// phi = 0 reduces g(phi) to 1.
	assert.InDelta(t, 1.0, glickoG(0), 1e-9)

	// Equal ratings and RD=0 opponent gives E = 0.5.
	assert.InDelta(t, 0.5, glickoE(0, 0, 0), 1e-9)
}

func TestUpdateVolatilityConverges(t *testing.T) {
	// A single upset win against an evenly-matched, confident opponent.
	phi := DefaultRD / RatingScale
	sigma := DefaultVolatility
	v := 1.0 / (glickoG(phi) * glickoG(phi) * 0.5 * 0.5)
	delta := v * glickoG(phi) * (1.0 - 0.5)

	got := updateVolatility(phi, sigma, delta, v, DefaultTau)
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 1.0)
}

func TestRunReplayRatesAWinnerAboveALoser(t *testing.T) {
	ctx := context.Background()
	db, err := wstore.Open(ctx, wstore.Config{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, wstore.InsertWrestler(ctx, db, wstore.WrestlerRow{ID: "W", Name: "Winner"}))
	require.NoError(t, wstore.InsertWrestler(ctx, db, wstore.WrestlerRow{ID: "L", Name: "Loser"}))
	require.NoError(t, wstore.InsertMatch(ctx, db, wstore.MatchRow{
		ID: "m-1", TopWrestlerID: "W", BottomWrestlerID: "L", WinnerID: "W",
		WeightClass: "125", Date: nullString("2022-03-10T00:00:00Z"),
	}))

	replay, err := RunReplay(ctx, db, DefaultTau, time.Time{}, time.Time{}, nil)
	require.NoError(t, err)
	require.Len(t, replay.Periods, 1)

	weightStates, ok := replay.States["125"]
	require.True(t, ok)

	winner := weightStates["W"]
	loser := weightStates["L"]
	require.NotNil(t, winner)
	require.NotNil(t, loser)

	assert.Greater(t, winner.Rating, DefaultRating)
	assert.Less(t, loser.Rating, DefaultRating)
	assert.Equal(t, 1, winner.MatchesPlayed)
	assert.Equal(t, 1, loser.MatchesPlayed)
}

func TestRunReplayAppliesInactivityToIdleWrestlers(t *testing.T) {
	ctx := context.Background()
	db, err := wstore.Open(ctx, wstore.Config{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, wstore.InsertWrestler(ctx, db, wstore.WrestlerRow{ID: "W", Name: "Winner"}))
	require.NoError(t, wstore.InsertWrestler(ctx, db, wstore.WrestlerRow{ID: "L", Name: "Loser"}))
	require.NoError(t, wstore.InsertWrestler(ctx, db, wstore.WrestlerRow{ID: "X", Name: "Idle"}))
	require.NoError(t, wstore.InsertWrestler(ctx, db, wstore.WrestlerRow{ID: "Y", Name: "AlsoIdle"}))

	require.NoError(t, wstore.InsertMatch(ctx, db, wstore.MatchRow{
		ID: "m-early", TopWrestlerID: "X", BottomWrestlerID: "Y", WinnerID: "X",
		WeightClass: "125", Date: nullString("2022-01-10T00:00:00Z"),
	}))
	require.NoError(t, wstore.InsertMatch(ctx, db, wstore.MatchRow{
		ID: "m-late", TopWrestlerID: "W", BottomWrestlerID: "L", WinnerID: "W",
		WeightClass: "125", Date: nullString("2022-06-10T00:00:00Z"),
	}))

	replay, err := RunReplay(ctx, db, DefaultTau, time.Time{}, time.Time{}, nil)
	require.NoError(t, err)

	weightStates := replay.States["125"]
	idle := weightStates["X"]
	require.NotNil(t, idle)
	active := weightStates["W"]
	require.NotNil(t, active)
	assert.Greater(t, idle.RD, active.RD, "X's single-match history matches W's, so only five idle months separate their RDs")
}

func TestBuildPayloadSortsWeightClassesNumerically(t *testing.T) {
	ctx := context.Background()
	db, err := wstore.Open(ctx, wstore.Config{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	for _, wc := range []string{"133", "HWT", "106"} {
		require.NoError(t, wstore.InsertWrestler(ctx, db, wstore.WrestlerRow{ID: "A-" + wc, Name: "A"}))
		require.NoError(t, wstore.InsertWrestler(ctx, db, wstore.WrestlerRow{ID: "B-" + wc, Name: "B"}))
		require.NoError(t, wstore.InsertMatch(ctx, db, wstore.MatchRow{
			ID: "m-" + wc, TopWrestlerID: "A-" + wc, BottomWrestlerID: "B-" + wc, WinnerID: "A-" + wc,
			WeightClass: wc, Date: nullString("2022-03-10T00:00:00Z"),
		}))
	}

	replay, err := RunReplay(ctx, db, DefaultTau, time.Time{}, time.Time{}, nil)
	require.NoError(t, err)

	names, err := wstore.WrestlerNames(ctx, db)
	require.NoError(t, err)

	payload := BuildPayload(replay, names, time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"106", "133", "HWT"}, payload.OrderedWeightClasses())
}

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }
