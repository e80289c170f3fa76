// Package crawler implements the resumable breadth-first walk over the
// wrestler opponent graph, using the Store as both frontier and memory.
//
// The core is single-threaded and synchronous (no goroutine fan-out): every
// HTTP fetch and every Store operation blocks the crawl loop, mirroring the
// resource model that replaces the teacher's concurrent listing pipeline
// with a sequential one for this domain.
package crawler

import (
	"container/list"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/3leaps/floratings/pkg/fetcher"
	"github.com/3leaps/floratings/pkg/ingest"
	"github.com/3leaps/floratings/pkg/progress"
	"github.com/3leaps/floratings/pkg/wstore"
)

// DefaultSeed is the fixed seed identity used when the operator does not
// supply one.
const DefaultSeed = "064ad7f4-8d16-4dd2-94b1-1dd1c45c3832"

// Config configures one crawl invocation.
type Config struct {
	Seed       string
	DepthLimit int
	Reset      bool

	// WeightClasses, if non-empty, restricts ingested matches.
	WeightClasses []string

	// StartDate/EndDate bound ingested match occurrence dates (zero means
	// unbounded).
	StartDate, EndDate time.Time

	// RateLimit paces outbound Fetcher requests (requests/sec). Zero means
	// unlimited.
	RateLimit float64
}

// DefaultConfig returns the crawler's baseline configuration.
func DefaultConfig() Config {
	return Config{
		Seed:       DefaultSeed,
		DepthLimit: 3,
	}
}

// Summary contains aggregate statistics from a completed crawl.
type Summary struct {
	SeedID          string
	DepthLimit      int
	Processed       int
	SeenCount       int
	MatchesIngested int
	MatchesSkipped  int
	Duration        time.Duration
}

type frontierItem struct {
	WrestlerID string
	Depth      int
}

// Crawler drives the Fetcher and Match Ingestor against the Store.
type Crawler struct {
	db      *sql.DB
	fetcher *fetcher.Fetcher
	sink    progress.Sink
}

// New constructs a Crawler.
func New(db *sql.DB, f *fetcher.Fetcher, sink progress.Sink) *Crawler {
	if sink == nil {
		sink = progress.NoopSink{}
	}
	return &Crawler{db: db, fetcher: f, sink: sink}
}

// Run executes the resumable BFS described by cfg and returns aggregate
// statistics. Any fetch error aborts the crawl immediately; Store state up
// to that point remains committed, so a subsequent invocation with the same
// seed resumes where the frontier left off.
func (c *Crawler) Run(ctx context.Context, cfg Config) (Summary, error) {
	start := time.Now()

	if cfg.Seed == "" {
		return Summary{}, fmt.Errorf("seed is required")
	}
	if cfg.DepthLimit <= 0 {
		return Summary{}, fmt.Errorf("depth limit must be positive")
	}

	if cfg.Reset {
		if err := wstore.ClearCrawlerState(ctx, c.db); err != nil {
			return Summary{}, fmt.Errorf("reset crawler state: %w", err)
		}
	}

	existing, err := wstore.GetCrawlerState(ctx, c.db)
	if err != nil {
		return Summary{}, fmt.Errorf("load crawler state: %w", err)
	}

	previousDepth := 0
	seedChanged := false
	if existing != nil {
		previousDepth = existing.DepthLimit
		seedChanged = existing.SeedID != cfg.Seed
	}
	depthUpgraded := cfg.DepthLimit > previousDepth

	now := time.Now()
	if err := wstore.UpsertCrawlerState(ctx, c.db, cfg.Seed, cfg.DepthLimit, now); err != nil {
		return Summary{}, fmt.Errorf("upsert crawler state: %w", err)
	}

	if seedChanged {
		if err := wstore.ClearFrontier(ctx, c.db); err != nil {
			return Summary{}, fmt.Errorf("clear frontier: %w", err)
		}
	}

	deque := list.New()
	if !seedChanged {
		frontierRows, err := wstore.QueueItems(ctx, c.db)
		if err != nil {
			return Summary{}, fmt.Errorf("load frontier: %w", err)
		}
		for _, row := range frontierRows {
			deque.PushBack(frontierItem{WrestlerID: row.WrestlerID, Depth: row.Depth})
		}
	}

	seen := make(map[string]int)
	processed := make(map[string]struct{})
	if err := loadAllSeen(ctx, c.db, seen, processed); err != nil {
		return Summary{}, fmt.Errorf("load seen entries: %w", err)
	}

	// Seed-first invariant: on a cold start or a seed change there is no
	// trustworthy prior state for the seed, so it is evicted from
	// Seen/Processed/frontier and reinserted at depth 0 at the front of the
	// deque. On an unchanged resume the seed's position is a historical
	// fact already satisfied by a prior run; re-evicting it here would force
	// a Fetcher call on every invocation and break the zero-refetch
	// resumability guarantee, so we only ensure it is present in Seen.
	coldStart := existing == nil
	if coldStart || seedChanged {
		removeFromDeque(deque, cfg.Seed)
		delete(seen, cfg.Seed)
		delete(processed, cfg.Seed)
		if err := wstore.RemoveFrontier(ctx, c.db, cfg.Seed); err != nil {
			return Summary{}, fmt.Errorf("remove seed from frontier: %w", err)
		}
		if err := wstore.RemoveSeen(ctx, c.db, cfg.Seed); err != nil {
			return Summary{}, fmt.Errorf("remove seed from seen: %w", err)
		}
		deque.PushFront(frontierItem{WrestlerID: cfg.Seed, Depth: 0})
		seen[cfg.Seed] = 0
		if err := wstore.RecordSeen(ctx, c.db, cfg.Seed, 0); err != nil {
			return Summary{}, fmt.Errorf("persist seed seen: %w", err)
		}
		if err := wstore.UpsertFrontier(ctx, c.db, cfg.Seed, 0, now); err != nil {
			return Summary{}, fmt.Errorf("persist seed frontier: %w", err)
		}
	} else if _, ok := seen[cfg.Seed]; !ok {
		seen[cfg.Seed] = 0
		if err := wstore.RecordSeen(ctx, c.db, cfg.Seed, 0); err != nil {
			return Summary{}, fmt.Errorf("persist seed seen: %w", err)
		}
	}

	if depthUpgraded {
		candidates, err := wstore.Unprocessed(ctx, c.db, cfg.DepthLimit)
		if err != nil {
			return Summary{}, fmt.Errorf("load depth-upgrade candidates: %w", err)
		}
		var toEnqueue []frontierItem
		for _, row := range candidates {
			if row.WrestlerID == cfg.Seed {
				continue
			}
			if row.Depth < previousDepth {
				continue
			}
			if _, isProcessed := processed[row.WrestlerID]; isProcessed {
				continue
			}
			if inDeque(deque, row.WrestlerID) {
				continue
			}
			toEnqueue = append(toEnqueue, frontierItem{WrestlerID: row.WrestlerID, Depth: row.Depth})
		}
		// Push onto the front in reverse enumeration order so popping the
		// deque preserves the original enumeration order.
		for i := len(toEnqueue) - 1; i >= 0; i-- {
			item := toEnqueue[i]
			deque.PushFront(item)
			if err := wstore.UpsertFrontier(ctx, c.db, item.WrestlerID, item.Depth, now); err != nil {
				return Summary{}, fmt.Errorf("enqueue depth-upgrade candidate: %w", err)
			}
		}
	}

	if deque.Len() == 0 {
		replenish, err := wstore.Unprocessed(ctx, c.db, cfg.DepthLimit)
		if err != nil {
			return Summary{}, fmt.Errorf("load replenishment candidates: %w", err)
		}
		for _, row := range replenish {
			deque.PushBack(frontierItem{WrestlerID: row.WrestlerID, Depth: row.Depth})
			if err := wstore.UpsertFrontier(ctx, c.db, row.WrestlerID, row.Depth, now); err != nil {
				return Summary{}, fmt.Errorf("replenish frontier: %w", err)
			}
		}
		if deque.Len() == 0 {
			deque.PushBack(frontierItem{WrestlerID: cfg.Seed, Depth: 0})
			if err := wstore.UpsertFrontier(ctx, c.db, cfg.Seed, 0, now); err != nil {
				return Summary{}, fmt.Errorf("re-seed empty frontier: %w", err)
			}
		}
	}

	weightClasses := ingest.NormalizeWeightClassSet(cfg.WeightClasses)

	summary := Summary{SeedID: cfg.Seed, DepthLimit: cfg.DepthLimit}

	for deque.Len() > 0 {
		front := deque.Front()
		item := front.Value.(frontierItem)

		last60, _ := c.fetcher.Tracker().Counts(time.Now())
		_ = c.sink.WriteCrawlProgress(ctx, &progress.CrawlProgressRecord{
			Depth:      item.Depth,
			QueueSize:  deque.Len(),
			Processed:  summary.Processed,
			SeenCount:  len(seen),
			Last60Reqs: last60,
		})

		_, isProcessed := processed[item.WrestlerID]
		if item.Depth >= cfg.DepthLimit || isProcessed {
			deque.Remove(front)
			if err := wstore.RemoveFrontier(ctx, c.db, item.WrestlerID); err != nil {
				return Summary{}, fmt.Errorf("remove frontier row: %w", err)
			}
			continue
		}

		opponents := make(map[string]struct{})
		for page, err := range c.fetcher.Pages(ctx, item.WrestlerID, nil, nil) {
			if err != nil {
				return Summary{}, fmt.Errorf("fetch wrestler %s: %w", item.WrestlerID, err)
			}
			pageOpponents, stats, err := ingest.Page(ctx, c.db, page, ingest.Options{
				ThisID:        item.WrestlerID,
				WeightClasses: weightClasses,
				StartDate:     cfg.StartDate,
				EndDate:       cfg.EndDate,
				Now:           now,
			})
			if err != nil {
				return Summary{}, fmt.Errorf("ingest page for %s: %w", item.WrestlerID, err)
			}
			for o := range pageOpponents {
				opponents[o] = struct{}{}
			}
			summary.MatchesIngested += stats.Ingested
			summary.MatchesSkipped += stats.Bye + stats.UnresolvedWrestler + stats.MissingWeight + stats.WeightFiltered + stats.DateFiltered
		}

		processed[item.WrestlerID] = struct{}{}
		if err := wstore.MarkProcessed(ctx, c.db, item.WrestlerID, time.Now()); err != nil {
			return Summary{}, fmt.Errorf("mark processed: %w", err)
		}
		summary.Processed++

		for o := range opponents {
			if _, ok := seen[o]; ok {
				continue
			}
			nextDepth := item.Depth + 1
			seen[o] = nextDepth
			if err := wstore.RecordSeen(ctx, c.db, o, nextDepth); err != nil {
				return Summary{}, fmt.Errorf("record seen: %w", err)
			}
			if nextDepth <= cfg.DepthLimit {
				deque.PushBack(frontierItem{WrestlerID: o, Depth: nextDepth})
				if err := wstore.UpsertFrontier(ctx, c.db, o, nextDepth, time.Now()); err != nil {
					return Summary{}, fmt.Errorf("enqueue opponent: %w", err)
				}
			}
		}

		deque.Remove(front)
		if err := wstore.RemoveFrontier(ctx, c.db, item.WrestlerID); err != nil {
			return Summary{}, fmt.Errorf("remove frontier row: %w", err)
		}
	}

	summary.SeenCount = len(seen)
	summary.Duration = time.Since(start)

	_ = c.sink.WriteCrawlSummary(ctx, &progress.CrawlSummaryRecord{
		SeedID:          summary.SeedID,
		DepthLimit:      summary.DepthLimit,
		Processed:       summary.Processed,
		SeenCount:       summary.SeenCount,
		MatchesIngested: summary.MatchesIngested,
		MatchesSkipped:  summary.MatchesSkipped,
		Duration:        summary.Duration,
		DurationHuman:   summary.Duration.String(),
	})

	return summary, nil
}

func removeFromDeque(deque *list.List, wrestlerID string) {
	for e := deque.Front(); e != nil; {
		next := e.Next()
		if e.Value.(frontierItem).WrestlerID == wrestlerID {
			deque.Remove(e)
		}
		e = next
	}
}

func inDeque(deque *list.List, wrestlerID string) bool {
	for e := deque.Front(); e != nil; e = e.Next() {
		if e.Value.(frontierItem).WrestlerID == wrestlerID {
			return true
		}
	}
	return false
}

func loadAllSeen(ctx context.Context, db *sql.DB, seen map[string]int, processed map[string]struct{}) error {
	rows, err := db.QueryContext(ctx, `SELECT wrestler_id, depth, processed_at FROM crawl_seen;`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          string
			depth       int
			processedAt sql.NullString
		)
		if err := rows.Scan(&id, &depth, &processedAt); err != nil {
			return err
		}
		seen[id] = depth
		if processedAt.Valid {
			processed[id] = struct{}{}
		}
	}
	return rows.Err()
}
