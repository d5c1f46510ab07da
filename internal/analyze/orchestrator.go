package analyze

import (
	"context"
	"fmt"
	"time"

	"github.com/gftdcojp/streamlens/internal/config"
	"github.com/gftdcojp/streamlens/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunStats counts task completions by kind for the operator-facing summary.
type RunStats struct {
	Total    int `json:"total"`
	Analyzed int `json:"analyzed"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Orchestrator discovers all data streams and fans the analyzer out across a
// bounded worker pool, collecting completions as they arrive.
type Orchestrator struct {
	client Client
	cfg    config.AnalysisConfig
	logger *zap.Logger
	clock  func() time.Time
}

// NewOrchestrator creates an orchestrator. Worker count, retry policy, and
// classification thresholds all come from cfg.
func NewOrchestrator(client Client, cfg config.AnalysisConfig, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		client: client,
		cfg:    cfg,
		logger: logger,
		clock:  time.Now,
	}
}

// Run performs one full analysis pass. Only discovery failures are returned
// as errors; every per-stream failure is absorbed into RunStats. Results
// arrive in completion order, not submission order.
func (o *Orchestrator) Run(ctx context.Context) ([]Result, RunStats, error) {
	start := o.clock()

	streams, err := o.client.ListDataStreams(ctx)
	if err != nil {
		return nil, RunStats{}, fmt.Errorf("discovering data streams: %w", err)
	}

	stats := RunStats{Total: len(streams)}
	metrics.StreamsDiscovered.Set(float64(len(streams)))
	o.logger.Info("discovered data streams",
		zap.Int("count", len(streams)),
		zap.Int("max_workers", o.cfg.MaxWorkers),
	)

	if len(streams) == 0 {
		return nil, stats, nil
	}

	analyzer := NewAnalyzer(o.client, o.cfg, start, o.logger)

	outcomes := make(chan Outcome)
	done := make(chan struct{})
	var results []Result

	go func() {
		defer close(done)
		completed := 0
		for out := range outcomes {
			completed++
			progress := zap.String("progress", fmt.Sprintf("%d/%d", completed, stats.Total))
			switch {
			case out.Err != nil:
				stats.Failed++
				metrics.StreamsCompleted.WithLabelValues("error").Inc()
				o.logger.Error("stream analysis failed",
					zap.String("stream", out.Stream), progress, zap.Error(out.Err))
			case out.Result != nil:
				stats.Analyzed++
				results = append(results, *out.Result)
				metrics.StreamsCompleted.WithLabelValues("ok").Inc()
				o.logger.Info("stream analyzed",
					zap.String("stream", out.Stream), progress,
					zap.String("status", string(out.Result.Status)))
			default:
				stats.Skipped++
				metrics.StreamsCompleted.WithLabelValues("skipped").Inc()
				o.logger.Info("stream skipped",
					zap.String("stream", out.Stream), progress,
					zap.String("reason", out.SkipReason))
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxWorkers)

	for _, stream := range streams {
		if ctx.Err() != nil {
			break
		}
		stream := stream
		g.Go(func() error {
			outcomes <- o.analyzeSafe(ctx, analyzer, stream)
			return nil
		})
	}

	g.Wait()
	close(outcomes)
	<-done

	metrics.RunDuration.Set(o.clock().Sub(start).Seconds())

	if err := ctx.Err(); err != nil {
		return results, stats, err
	}
	return results, stats, nil
}

// analyzeSafe converts a panicking task into an Error outcome so one stream
// can never take down its siblings.
func (o *Orchestrator) analyzeSafe(ctx context.Context, analyzer *Analyzer, stream string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Stream: stream, Err: fmt.Errorf("analysis panicked: %v", r)}
		}
	}()
	return analyzer.Analyze(ctx, stream)
}
