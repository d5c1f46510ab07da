// Package analyze drives the per-stream analysis pipeline: classification,
// size aggregation, bounded fan-out over all discovered streams, and the
// deterministic ranking of the completed results.
package analyze

import (
	"context"
	"time"
)

// Status is the activity classification of a data stream.
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusNewShort     Status = "NEW/SHORT"
	StatusStagnant     Status = "STAGNANT"
	StatusEmptyUnknown Status = "EMPTY/UNKNOWN"
)

// Result is the completed analysis of one data stream. Immutable once
// produced; consumed exactly once by the aggregation step.
type Result struct {
	Name              string  `json:"name"`
	Status            Status  `json:"status"`
	SizeBytes         int64   `json:"size_bytes"`
	AgeDays           float64 `json:"age_days"`
	LastSeenDays      float64 `json:"last_seen_days"`
	IngestBytesPerDay float64 `json:"ingest_bytes_per_day"`
}

// Outcome tags the completion of one analysis task. Exactly one of Result,
// SkipReason, or Err is set, so the collector can tell a clean skip from an
// unexpected failure.
type Outcome struct {
	Stream     string
	Result     *Result
	SkipReason string
	Err        error
}

// Client is the cluster surface the pipeline needs. *esclient.Client
// satisfies it; tests substitute fakes.
type Client interface {
	ListDataStreams(ctx context.Context) ([]string, error)
	FetchTimeRange(ctx context.Context, stream string) (oldest, newest time.Time, err error)
	ListBackingIndices(ctx context.Context, stream string) ([]string, error)
	FetchIndexSize(ctx context.Context, index string) (float64, error)
	RestoredName(index string) string
	RestoredIndexExists(ctx context.Context, index string) (bool, error)
}
