// Package graphexport renders the persisted match history into a node/edge
// graph document, colored by win percentage and sized by total matches
// played, suitable for force-directed graph viewers.
package graphexport

import (
	"context"
	"database/sql"
	"math"

	"github.com/sourcegraph/conc/pool"

	"github.com/3leaps/floratings/pkg/wstore"
)

// NodeAttributes mirrors the exported graph viewer's expected node shape.
type NodeAttributes struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
	Size  float64 `json:"size"`
	Wins  int     `json:"wins"`
	Losses int    `json:"losses"`
}

// Node is one wrestler rendered into the graph.
type Node struct {
	ID         string         `json:"id"`
	Attributes NodeAttributes `json:"attributes"`
}

// EdgeAttributes mirrors the exported graph viewer's expected edge shape.
type EdgeAttributes struct {
	Type string `json:"type"`
}

// Edge is one winner->loser aggregate edge rendered into the graph.
type Edge struct {
	Key        string         `json:"key"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Attributes EdgeAttributes `json:"attributes"`
}

// Graph is the full exported document written to graph.json.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Layout positions every node ID on a 2D plane. Callers that need a
// force-directed layout can implement this over an external library; the
// package ships only the deterministic circular default so exports remain
// reproducible without one.
type Layout interface {
	Positions(nodeIDs []string, edges []wstore.EdgeStat) map[string][2]float64
}

// CircularLayout places nodes evenly around a unit circle in the order
// given; it does not sort them. It has no awareness of edges.
type CircularLayout struct{}

// Positions implements Layout.
func (CircularLayout) Positions(nodeIDs []string, _ []wstore.EdgeStat) map[string][2]float64 {
	out := make(map[string][2]float64, len(nodeIDs))
	n := len(nodeIDs)
	if n == 0 {
		return out
	}
	for i, id := range nodeIDs {
		theta := 2 * math.Pi * float64(i) / float64(n)
		out[id] = [2]float64{math.Cos(theta), math.Sin(theta)}
	}
	return out
}

// winPctToColor maps a win percentage in [0,1] to a red-to-green hex color
// by sweeping hue from 0 (red) to 120 degrees (green) at full saturation
// and value.
func winPctToColor(winPct float64) string {
	hue := winPct * 120
	h := hue / 60
	c := 1.0
	x := c * (1 - math.Abs(math.Mod(h, 2)-1))

	var r, g, b float64
	switch {
	case h < 1:
		r, g, b = c, x, 0
	case h < 2:
		r, g, b = x, c, 0
	case h < 3:
		r, g, b = 0, c, x
	case h < 4:
		r, g, b = 0, x, c
	case h < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return hexColor(int(r*255), int(g*255), int(b*255))
}

func hexColor(r, g, b int) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 7)
	out[0] = '#'
	for i, v := range []int{r, g, b} {
		out[1+i*2] = hexDigits[(v>>4)&0xf]
		out[2+i*2] = hexDigits[v&0xf]
	}
	return string(out)
}

// calculateSize scales a wrestler's match count linearly between minSize and
// maxSize across the observed [min, max] range of match counts. A flat
// distribution (every wrestler played the same number of matches) collapses
// to the midpoint.
func calculateSize(matches, minMatches, maxMatches int, minSize, maxSize float64) float64 {
	if maxMatches == minMatches {
		return (minSize + maxSize) / 2
	}
	normalized := float64(matches-minMatches) / float64(maxMatches-minMatches)
	return minSize + normalized*(maxSize-minSize)
}

const (
	minNodeSize = 2.0
	maxNodeSize = 15.0
)

// Filter narrows the exported match history.
type Filter struct {
	WeightClasses []string
	Start         string
	End           string
}

// Build assembles the graph document from pre-fetched stats and edges using
// the supplied layout.
func Build(stats []wstore.WrestlerStat, edges []wstore.EdgeStat, layout Layout) Graph {
	if layout == nil {
		layout = CircularLayout{}
	}

	ids := make([]string, 0, len(stats))
	matchesByID := make(map[string]int, len(stats))
	for _, s := range stats {
		ids = append(ids, s.WrestlerID)
		matchesByID[s.WrestlerID] = s.Wins + s.Losses
	}

	minMatches, maxMatches := 1, 1
	if len(matchesByID) > 0 {
		first := true
		for _, m := range matchesByID {
			if first {
				minMatches, maxMatches = m, m
				first = false
				continue
			}
			if m < minMatches {
				minMatches = m
			}
			if m > maxMatches {
				maxMatches = m
			}
		}
	}

	positions := layout.Positions(ids, edges)

	nodes := make([]Node, 0, len(stats))
	for _, s := range stats {
		total := s.Wins + s.Losses
		winPct := 0.0
		if total > 0 {
			winPct = float64(s.Wins) / float64(total)
		}
		pos := positions[s.WrestlerID]
		nodes = append(nodes, Node{
			ID: s.WrestlerID,
			Attributes: NodeAttributes{
				Label:  s.Name,
				X:      pos[0],
				Y:      pos[1],
				Color:  winPctToColor(winPct),
				Size:   calculateSize(total, minMatches, maxMatches, minNodeSize, maxNodeSize),
				Wins:   s.Wins,
				Losses: s.Losses,
			},
		})
	}

	graphEdges := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.SourceID == "" || e.TargetID == "" {
			continue
		}
		graphEdges = append(graphEdges, Edge{
			Key:        e.SourceID + ">" + e.TargetID,
			Source:     e.SourceID,
			Target:     e.TargetID,
			Attributes: EdgeAttributes{Type: "arrow"},
		})
	}

	return Graph{Nodes: nodes, Edges: graphEdges}
}

// Run fetches wrestler stats and match edges for the filter concurrently,
// mirroring the exporter's parallel two-query fetch, then builds the graph
// document using the supplied layout (nil selects CircularLayout).
func Run(ctx context.Context, db *sql.DB, filter Filter, layout Layout) (Graph, error) {
	p := pool.NewWithResults[any]().WithErrors().WithContext(ctx)

	var stats []wstore.WrestlerStat
	var edges []wstore.EdgeStat

	p.Go(func(ctx context.Context) (any, error) {
		s, err := wstore.FetchWrestlerStats(ctx, db, filter.WeightClasses, filter.Start, filter.End)
		stats = s
		return nil, err
	})
	p.Go(func(ctx context.Context) (any, error) {
		e, err := wstore.FetchEdgeStats(ctx, db, filter.WeightClasses, filter.Start, filter.End)
		edges = e
		return nil, err
	})

	if _, err := p.Wait(); err != nil {
		return Graph{}, err
	}

	return Build(stats, edges, layout), nil
}
