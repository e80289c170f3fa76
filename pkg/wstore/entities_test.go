package wstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertWrestlerIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	require.NoError(t, InsertWrestler(ctx, db, WrestlerRow{ID: "w1", Name: "Alice"}))
	require.NoError(t, InsertWrestler(ctx, db, WrestlerRow{ID: "w1", Name: "Alice Renamed"}))

	row, err := GetWrestler(ctx, db, "w1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Alice", row.Name)
}

func TestGetWrestlerMissing(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	row, err := GetWrestler(ctx, db, "nope")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestInsertMatchNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	require.NoError(t, InsertMatch(ctx, db, MatchRow{ID: "m1", TopWrestlerID: "a", BottomWrestlerID: "b", WinnerID: "a", WeightClass: "125"}))
	require.NoError(t, InsertMatch(ctx, db, MatchRow{ID: "m1", TopWrestlerID: "a", BottomWrestlerID: "b", WinnerID: "b", WeightClass: "125"}))

	row, err := GetMatch(ctx, db, "m1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "a", row.WinnerID)
}

func TestReplaceRatingsDeletesThenInserts(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	require.NoError(t, ReplaceRatings(ctx, db, []RatingRow{
		{WrestlerID: "w1", WeightClass: "125", Rating: 1500, RD: 350, Volatility: 0.06, LastUpdated: "2020-01-01"},
	}))
	require.NoError(t, ReplaceRatings(ctx, db, []RatingRow{
		{WrestlerID: "w2", WeightClass: "125", Rating: 1600, RD: 300, Volatility: 0.06, LastUpdated: "2020-02-01"},
	}))

	rows, err := LoadRatingsWithNames(ctx, db, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "w2", rows[0].WrestlerID)
}

func TestFrontierAndSeenLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	now := mustParseRFC3339(t, "2020-01-01T00:00:00Z")

	require.NoError(t, UpsertFrontier(ctx, db, "s", 0, now))
	require.NoError(t, RecordSeen(ctx, db, "s", 5))
	require.NoError(t, RecordSeen(ctx, db, "s", 0))

	seen, err := GetSeen(ctx, db, "s")
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, 0, seen.Depth, "depth must be kept at the minimum observed value")

	items, err := QueueItems(ctx, db)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "s", items[0].WrestlerID)

	require.NoError(t, RemoveFrontier(ctx, db, "s"))
	items, err = QueueItems(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClearCrawlerStateTruncatesAllThree(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	now := mustParseRFC3339(t, "2020-01-01T00:00:00Z")

	require.NoError(t, UpsertCrawlerState(ctx, db, "s", 3, now))
	require.NoError(t, UpsertFrontier(ctx, db, "s", 0, now))
	require.NoError(t, RecordSeen(ctx, db, "s", 0))

	require.NoError(t, ClearCrawlerState(ctx, db))

	state, err := GetCrawlerState(ctx, db)
	require.NoError(t, err)
	assert.Nil(t, state)

	items, err := QueueItems(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, items)

	seen, err := GetSeen(ctx, db, "s")
	require.NoError(t, err)
	assert.Nil(t, seen)
}
