// Package progress provides JSONL output for long-running crawl and
// rating-replay operations.
//
// Output is structured as typed record envelopes containing progress
// updates and final summaries. Each line is a self-contained JSON object
// that can be parsed independently.
package progress

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants follow the pattern floratings.<type>.v<version>.
const (
	TypeCrawlProgress = "floratings.crawl_progress.v1"
	TypeCrawlSummary  = "floratings.crawl_summary.v1"
	TypeReplayProgress = "floratings.replay_progress.v1"
	TypeReplaySummary  = "floratings.replay_summary.v1"
)

// Record is the envelope for all JSONL output.
type Record struct {
	Type  string          `json:"type"`
	TS    time.Time       `json:"ts"`
	JobID string          `json:"job_id"`
	Data  json.RawMessage `json:"data"`
}

// CrawlProgressRecord reports the crawler's state: current depth, queue
// size, processed count, and request rate — the Go equivalent of the
// Python original's rich.progress task fields.
type CrawlProgressRecord struct {
	Depth      int `json:"depth"`
	QueueSize  int `json:"queue_size"`
	Processed  int `json:"processed"`
	SeenCount  int `json:"seen_count"`
	Last60Reqs int `json:"requests_last_60s"`
}

// CrawlSummaryRecord reports final crawl statistics.
type CrawlSummaryRecord struct {
	SeedID         string        `json:"seed_id"`
	DepthLimit     int           `json:"depth_limit"`
	Processed      int           `json:"processed"`
	SeenCount      int           `json:"seen_count"`
	MatchesIngested int          `json:"matches_ingested"`
	MatchesSkipped int           `json:"matches_skipped"`
	Duration       time.Duration `json:"duration_ns"`
	DurationHuman  string        `json:"duration"`
}

// ReplayProgressRecord reports Glicko-2 replay advancement.
type ReplayProgressRecord struct {
	Tau           float64 `json:"tau"`
	PeriodIndex   int     `json:"period_index"`
	TotalPeriods  int     `json:"total_periods"`
	PeriodLabel   string  `json:"period_label"`
}

// ReplaySummaryRecord reports final replay statistics.
type ReplaySummaryRecord struct {
	Tau           float64       `json:"tau"`
	TotalPeriods  int           `json:"total_periods"`
	WeightClasses int           `json:"weight_classes"`
	Duration      time.Duration `json:"duration_ns"`
	DurationHuman string        `json:"duration"`
}

// ErrWriterClosed is returned when writing to a closed Sink.
var ErrWriterClosed = errors.New("progress: writer is closed")

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return "progress: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
