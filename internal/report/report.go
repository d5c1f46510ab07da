// Package report renders the ranked analysis into the operator-facing table
// and the JSON document consumed by the export and notify sinks.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/gftdcojp/streamlens/internal/analyze"
)

// Report is one complete run: the ranked results plus run-level totals.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	ClusterURL  string           `json:"cluster_url"`
	Results     []analyze.Result `json:"results"`
	Summary     analyze.Summary  `json:"summary"`
	Stats       analyze.RunStats `json:"stats"`
}

// New assembles a report from the aggregation output.
func New(clusterURL string, generatedAt time.Time, results []analyze.Result,
	summary analyze.Summary, stats analyze.RunStats) Report {
	return Report{
		GeneratedAt: generatedAt.UTC(),
		ClusterURL:  clusterURL,
		Results:     results,
		Summary:     summary,
		Stats:       stats,
	}
}

// JSON renders the report for the export and notify sinks.
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// WriteTable renders the ranked table and summary footer.
func (r Report) WriteTable(out io.Writer) error {
	fmt.Fprintln(out, "=== DATA STREAM ACTIVITY ANALYSIS ===")

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATA STREAM\tSTATUS\tSTREAM SIZE\tRETENTION\tLAST DATA\tINGEST/DAY")
	for _, res := range r.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f d\t%s\t%s\n",
			res.Name,
			res.Status,
			FormatSize(float64(res.SizeBytes)),
			res.AgeDays,
			FormatLastSeen(res.LastSeenDays),
			FormatSize(res.IngestBytesPerDay),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "TOTAL STORE SIZE                 : %s\n", FormatSize(float64(r.Summary.TotalSizeBytes)))
	fmt.Fprintf(out, "ESTIMATED ACTIVE INGESTION PER DAY: %s\n", FormatSize(r.Summary.ActiveIngestBytesPerDay))
	fmt.Fprintf(out, "DATA STREAMS REPORTED            : %d\n", r.Summary.Reported)
	fmt.Fprintf(out, "SKIPPED / FAILED                 : %d / %d (of %d discovered)\n",
		r.Stats.Skipped, r.Stats.Failed, r.Stats.Total)
	return nil
}

const (
	mib = 1024 * 1024
	gib = 1024 * mib
)

// FormatSize renders a byte count as GB when at least one gibibyte,
// otherwise as MB, matching the report's two-decimal convention.
func FormatSize(bytes float64) string {
	if bytes >= gib {
		return fmt.Sprintf("%.2f GB", bytes/gib)
	}
	return fmt.Sprintf("%.2f MB", bytes/mib)
}

// FormatLastSeen renders write recency: anything under a day reads "Now".
func FormatLastSeen(days float64) string {
	if days < 1 {
		return "Now"
	}
	return fmt.Sprintf("%dd ago", int(days))
}
