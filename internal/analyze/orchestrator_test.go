package analyze

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestRunAnalyzesAllStreams(t *testing.T) {
	c := fakeFleet(20)
	o := NewOrchestrator(c, testCfg(), zap.NewNop())

	results, stats, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 20 || stats.Analyzed != 20 || stats.Skipped != 0 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(results) != 20 {
		t.Fatalf("expected 20 results, got %d", len(results))
	}

	seen := map[string]bool{}
	for _, r := range results {
		seen[r.Name] = true
	}
	if len(seen) != 20 {
		t.Errorf("duplicate or missing results: %d unique names", len(seen))
	}
}

func TestRunRespectsWorkerBound(t *testing.T) {
	c := fakeFleet(30)
	cfg := testCfg()
	cfg.MaxWorkers = 4
	o := NewOrchestrator(c, cfg, zap.NewNop())

	if _, _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.maxInFlight > 4 {
		t.Errorf("worker bound violated: %d concurrent analyses", c.maxInFlight)
	}
	if c.maxInFlight < 2 {
		t.Errorf("expected parallel execution, saw max %d in flight", c.maxInFlight)
	}
}

func TestRunIsolatesTaskFailures(t *testing.T) {
	c := fakeFleet(10)
	c.panicOn = "logs-003"
	o := NewOrchestrator(c, testCfg(), zap.NewNop())

	results, stats, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", stats.Failed)
	}
	if stats.Analyzed != 9 || len(results) != 9 {
		t.Errorf("sibling tasks must complete: %+v, %d results", stats, len(results))
	}
	for _, r := range results {
		if r.Name == "logs-003" {
			t.Error("failed stream must not appear in results")
		}
	}
}

func TestRunMixedOutcomes(t *testing.T) {
	c := fakeFleet(6)
	c.rangeErr = map[string]error{"logs-001": errBackend}
	c.sizes[".ds-logs-004-000001"] = 0
	o := NewOrchestrator(c, testCfg(), zap.NewNop())

	results, stats, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Skipped != 2 {
		t.Errorf("expected 2 skips (range failure + zero size), got %d", stats.Skipped)
	}
	if stats.Analyzed != 4 || len(results) != 4 {
		t.Errorf("unexpected stats: %+v, %d results", stats, len(results))
	}
}

func TestRunEmptyDiscovery(t *testing.T) {
	c := &fakeClient{}
	o := NewOrchestrator(c, testCfg(), zap.NewNop())

	results, stats, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 || stats.Total != 0 {
		t.Errorf("expected empty run, got %+v", stats)
	}
}

func TestRunDiscoveryFailureIsFatal(t *testing.T) {
	c := &fakeClient{streamsErr: errBackend}
	o := NewOrchestrator(c, testCfg(), zap.NewNop())

	_, _, err := o.Run(context.Background())
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected discovery error, got %v", err)
	}
}

func TestRunStopsAdmissionOnCancel(t *testing.T) {
	c := fakeFleet(50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(c, testCfg(), zap.NewNop())
	_, _, err := o.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
