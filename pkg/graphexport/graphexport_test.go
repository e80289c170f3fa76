package graphexport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/floratings/pkg/wstore"
)

func TestWinPctToColorIsRedAtZeroAndGreenAtOne(t *testing.T) {
	assert.Equal(t, "#ff0000", winPctToColor(0))
	assert.Equal(t, "#00ff00", winPctToColor(1))
}

func TestCalculateSizeCollapsesToMidpointWhenMatchCountsAreFlat(t *testing.T) {
	got := calculateSize(5, 5, 5, minNodeSize, maxNodeSize)
	assert.InDelta(t, (minNodeSize+maxNodeSize)/2, got, 1e-9)
}

func TestCalculateSizeScalesLinearlyAcrossRange(t *testing.T) {
	lo := calculateSize(0, 0, 10, minNodeSize, maxNodeSize)
	hi := calculateSize(10, 0, 10, minNodeSize, maxNodeSize)
	mid := calculateSize(5, 0, 10, minNodeSize, maxNodeSize)

	assert.InDelta(t, minNodeSize, lo, 1e-9)
	assert.InDelta(t, maxNodeSize, hi, 1e-9)
	assert.InDelta(t, (minNodeSize+maxNodeSize)/2, mid, 1e-9)
}

func TestCircularLayoutPlacesAllNodesOnUnitCircle(t *testing.T) {
	positions := CircularLayout{}.Positions([]string{"a", "b", "c", "d"}, nil)
	require.Len(t, positions, 4)
	for id, pos := range positions {
		dist := pos[0]*pos[0] + pos[1]*pos[1]
		assert.InDelta(t, 1.0, dist, 1e-9, "node %s should sit on the unit circle", id)
	}
}

func TestBuildSkipsEdgesWithAnEmptyEndpoint(t *testing.T) {
	stats := []wstore.WrestlerStat{{WrestlerID: "a", Name: "A", Wins: 1, Losses: 0}}
	edges := []wstore.EdgeStat{{SourceID: "", TargetID: "a", Count: 1}}

	g := Build(stats, edges, nil)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
}

func TestBuildAssignsPerfectWinnerTheGreenEnd(t *testing.T) {
	stats := []wstore.WrestlerStat{
		{WrestlerID: "a", Name: "Always Wins", Wins: 5, Losses: 0},
		{WrestlerID: "b", Name: "Always Loses", Wins: 0, Losses: 5},
	}
	edges := []wstore.EdgeStat{{SourceID: "a", TargetID: "b", Count: 5}}

	g := Build(stats, edges, nil)
	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "a>b", g.Edges[0].Key)

	byID := map[string]Node{}
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}
	assert.Equal(t, "#00ff00", byID["a"].Attributes.Color)
	assert.Equal(t, "#ff0000", byID["b"].Attributes.Color)
}

func TestRunFetchesStatsAndEdgesConcurrently(t *testing.T) {
	ctx := context.Background()
	db, err := wstore.Open(ctx, wstore.Config{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, wstore.InsertWrestler(ctx, db, wstore.WrestlerRow{ID: "a", Name: "A"}))
	require.NoError(t, wstore.InsertWrestler(ctx, db, wstore.WrestlerRow{ID: "b", Name: "B"}))
	require.NoError(t, wstore.InsertMatch(ctx, db, wstore.MatchRow{
		ID: "m-1", TopWrestlerID: "a", BottomWrestlerID: "b", WinnerID: "a", WeightClass: "125",
	}))

	g, err := Run(ctx, db, Filter{}, nil)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
}
