package analyze

import (
	"context"
	"time"

	"github.com/gftdcojp/streamlens/internal/config"
	"go.uber.org/zap"
)

const hoursPerDay = 24

// Analyzer produces one Outcome per data stream. All analyses within a run
// share the same reference instant so relative comparisons stay consistent.
type Analyzer struct {
	client Client
	cfg    config.AnalysisConfig
	policy string
	now    time.Time
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer bound to a fixed "now" snapshot.
func NewAnalyzer(client Client, cfg config.AnalysisConfig, now time.Time, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		client: client,
		cfg:    cfg,
		policy: cfg.ZeroSizePolicy,
		now:    now.UTC(),
		logger: logger,
	}
}

// Analyze runs the full procedure for one stream. Per-stream failures never
// escape as errors: anything unrecoverable degrades to a skip so a single
// stream cannot abort the run.
func (a *Analyzer) Analyze(ctx context.Context, stream string) Outcome {
	oldest, newest, err := a.client.FetchTimeRange(ctx, stream)
	if err != nil {
		a.logger.Debug("time range unavailable", zap.String("stream", stream), zap.Error(err))
		return Outcome{Stream: stream, SkipReason: "time range unavailable"}
	}

	ageDays := newest.Sub(oldest).Hours() / hoursPerDay
	if ageDays <= 0 {
		return Outcome{Stream: stream, SkipReason: "non-positive age"}
	}

	lastSeenDays := a.now.Sub(newest).Hours() / hoursPerDay
	if lastSeenDays < 0 {
		// Clock skew between the cluster and this host.
		lastSeenDays = 0
	}

	status := Classify(ageDays, lastSeenDays, a.cfg)

	indices, err := a.client.ListBackingIndices(ctx, stream)
	if err != nil {
		a.logger.Debug("backing indices unavailable", zap.String("stream", stream), zap.Error(err))
		return Outcome{Stream: stream, SkipReason: "backing indices unavailable"}
	}

	totalBytes := a.sumSizes(ctx, stream, indices)
	if totalBytes <= 0 {
		if a.policy == config.ZeroSizeReportUnknown {
			return Outcome{Stream: stream, Result: &Result{
				Name:         stream,
				Status:       StatusEmptyUnknown,
				AgeDays:      ageDays,
				LastSeenDays: lastSeenDays,
			}}
		}
		return Outcome{Stream: stream, SkipReason: "zero total size"}
	}

	var rate float64
	if status != StatusStagnant {
		rate = totalBytes / ageDays
	}

	return Outcome{Stream: stream, Result: &Result{
		Name:              stream,
		Status:            status,
		SizeBytes:         int64(totalBytes),
		AgeDays:           ageDays,
		LastSeenDays:      lastSeenDays,
		IngestBytesPerDay: rate,
	}}
}

// sumSizes totals the stored size of the stream's backing indices plus any
// partially-restored shadow copies. Per-index failures contribute zero; only
// the stream-level calls above can skip the stream.
func (a *Analyzer) sumSizes(ctx context.Context, stream string, indices []string) float64 {
	var total float64
	for _, index := range indices {
		size, err := a.client.FetchIndexSize(ctx, index)
		if err != nil {
			a.logger.Warn("index size lookup failed, counting as zero",
				zap.String("stream", stream),
				zap.String("index", index),
				zap.Error(err),
			)
		} else {
			total += size
		}

		exists, err := a.client.RestoredIndexExists(ctx, index)
		if err != nil {
			a.logger.Debug("restored index probe failed",
				zap.String("stream", stream),
				zap.String("index", index),
				zap.Error(err),
			)
			continue
		}
		if !exists {
			continue
		}

		restored := a.client.RestoredName(index)
		size, err = a.client.FetchIndexSize(ctx, restored)
		if err != nil {
			a.logger.Warn("restored index size lookup failed, counting as zero",
				zap.String("stream", stream),
				zap.String("index", restored),
				zap.Error(err),
			)
			continue
		}
		total += size
	}
	return total
}
