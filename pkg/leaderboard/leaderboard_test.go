package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/floratings/pkg/wstore"
)

func TestBuildRanksByConservativeScoreDescending(t *testing.T) {
	rows := []wstore.LeaderboardRow{
		{WrestlerID: "low-rd", Name: "Low RD", WeightClass: "125", Rating: 1600, RD: 50, LastUpdated: "2022-06-01"},
		{WrestlerID: "high-rd", Name: "High RD", WeightClass: "125", Rating: 1650, RD: 200, LastUpdated: "2022-06-01"},
	}

	payload := Build(rows, 0, time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC), "")

	entries := payload.WeightClasses["125"]
	require.Len(t, entries, 2)
	assert.Equal(t, "low-rd", entries[0].WrestlerID, "a tighter RD should outrank a higher raw rating with looser RD")
	assert.InDelta(t, 1500, entries[0].ConservativeRating, 0.001)
	assert.InDelta(t, 1250, entries[1].ConservativeRating, 0.001)
}

func TestBuildTruncatesToLimitPerWeight(t *testing.T) {
	rows := []wstore.LeaderboardRow{
		{WrestlerID: "a", WeightClass: "125", Rating: 1700, RD: 50},
		{WrestlerID: "b", WeightClass: "125", Rating: 1600, RD: 50},
		{WrestlerID: "c", WeightClass: "125", Rating: 1500, RD: 50},
	}

	payload := Build(rows, 2, time.Now().UTC(), "")
	assert.Len(t, payload.WeightClasses["125"], 2)
}

func TestOrderedWeightClassesSortsNumericAscendingNonNumericLast(t *testing.T) {
	rows := []wstore.LeaderboardRow{
		{WrestlerID: "a", WeightClass: "HWT", Rating: 1500, RD: 100},
		{WrestlerID: "b", WeightClass: "133", Rating: 1500, RD: 100},
		{WrestlerID: "c", WeightClass: "106", Rating: 1500, RD: 100},
	}

	payload := Build(rows, 0, time.Now().UTC(), "")
	assert.Equal(t, []string{"106", "133", "HWT"}, payload.OrderedWeightClasses())
}

func TestRunFiltersByMinLastUpdated(t *testing.T) {
	ctx := context.Background()
	db, err := wstore.Open(ctx, wstore.Config{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, wstore.InsertWrestler(ctx, db, wstore.WrestlerRow{ID: "fresh", Name: "Fresh"}))
	require.NoError(t, wstore.InsertWrestler(ctx, db, wstore.WrestlerRow{ID: "stale", Name: "Stale"}))
	require.NoError(t, wstore.ReplaceRatings(ctx, db, []wstore.RatingRow{
		{WrestlerID: "fresh", WeightClass: "125", Rating: 1600, RD: 80, LastUpdated: "2022-06-01"},
		{WrestlerID: "stale", WeightClass: "125", Rating: 1550, RD: 90, LastUpdated: "2021-01-01"},
	}))

	payload, err := Run(ctx, db, 0, "2022-01-01", time.Now().UTC())
	require.NoError(t, err)

	entries := payload.WeightClasses["125"]
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].WrestlerID)
}
