package analyze

import (
	"sort"

	"github.com/gftdcojp/streamlens/internal/config"
	"github.com/gftdcojp/streamlens/internal/metrics"
)

// Summary totals the reported result set.
type Summary struct {
	TotalSizeBytes          int64   `json:"total_size_bytes"`
	ActiveIngestBytesPerDay float64 `json:"active_ingest_bytes_per_day"`
	Reported                int     `json:"reported"`
}

// Aggregate filters and ranks the completed results and computes the run
// summary. Ranking is by ingestion rate descending with stagnant and
// empty/unknown entries ordered last; ties break by name so the report is
// deterministic. When include_stagnant is off, stagnant entries are dropped
// entirely.
func Aggregate(results []Result, cfg config.AnalysisConfig) ([]Result, Summary) {
	ranked := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Status == StatusStagnant && !cfg.IncludeStagnant {
			continue
		}
		ranked = append(ranked, r)
	}

	sort.Slice(ranked, func(i, j int) bool {
		ti, tj := tail(ranked[i].Status), tail(ranked[j].Status)
		if ti != tj {
			return !ti
		}
		if ranked[i].IngestBytesPerDay != ranked[j].IngestBytesPerDay {
			return ranked[i].IngestBytesPerDay > ranked[j].IngestBytesPerDay
		}
		return ranked[i].Name < ranked[j].Name
	})

	var summary Summary
	summary.Reported = len(ranked)
	for _, r := range ranked {
		summary.TotalSizeBytes += r.SizeBytes
		if r.Status == StatusActive {
			summary.ActiveIngestBytesPerDay += r.IngestBytesPerDay
		}
	}

	metrics.ReportedSizeBytes.Set(float64(summary.TotalSizeBytes))
	metrics.ActiveIngestRate.Set(summary.ActiveIngestBytesPerDay)

	return ranked, summary
}

// tail reports whether a status belongs at the bottom of the ranking,
// outside rate-based ordering.
func tail(s Status) bool {
	return s == StatusStagnant || s == StatusEmptyUnknown
}
