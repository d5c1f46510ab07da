package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gftdcojp/streamlens/internal/analyze"
)

func TestFormatSize(t *testing.T) {
	cases := []struct {
		bytes float64
		want  string
	}{
		{2 * gib, "2.00 GB"},
		{1.5 * gib, "1.50 GB"},
		{512 * mib, "512.00 MB"},
		{gib - 1, "1024.00 MB"},
		{0, "0.00 MB"},
	}
	for _, tc := range cases {
		if got := FormatSize(tc.bytes); got != tc.want {
			t.Errorf("FormatSize(%v) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}

func TestFormatLastSeen(t *testing.T) {
	if got := FormatLastSeen(0.5); got != "Now" {
		t.Errorf("expected Now, got %q", got)
	}
	if got := FormatLastSeen(14.7); got != "14d ago" {
		t.Errorf("expected 14d ago, got %q", got)
	}
}

func sampleReport() Report {
	return New("https://es.internal:9200",
		time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC),
		[]analyze.Result{
			{Name: "logs-app", Status: analyze.StatusActive, SizeBytes: 2 * gib,
				AgeDays: 2, LastSeenDays: 0.5, IngestBytesPerDay: gib},
			{Name: "logs-batch", Status: analyze.StatusNewShort, SizeBytes: 100 * mib,
				AgeDays: 0.8, LastSeenDays: 0.1, IngestBytesPerDay: 125 * mib},
		},
		analyze.Summary{TotalSizeBytes: 2*gib + 100*mib, ActiveIngestBytesPerDay: gib, Reported: 2},
		analyze.RunStats{Total: 5, Analyzed: 2, Skipped: 2, Failed: 1},
	)
}

func TestWriteTable(t *testing.T) {
	var sb strings.Builder
	if err := sampleReport().WriteTable(&sb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"DATA STREAM",
		"logs-app",
		"ACTIVE",
		"2.00 GB",
		"Now",
		"logs-batch",
		"NEW/SHORT",
		"ESTIMATED ACTIVE INGESTION PER DAY: 1.00 GB",
		"DATA STREAMS REPORTED",
		"2 / 1 (of 5 discovered)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}

	// Ranked order preserved in rendering.
	if strings.Index(out, "logs-app") > strings.Index(out, "logs-batch") {
		t.Error("table rows out of order")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := sampleReport().JSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if len(decoded.Results) != 2 || decoded.Results[0].Name != "logs-app" {
		t.Errorf("unexpected decoded results: %+v", decoded.Results)
	}
	if decoded.Summary.Reported != 2 {
		t.Errorf("summary lost in round trip: %+v", decoded.Summary)
	}
	if decoded.Stats.Failed != 1 {
		t.Errorf("stats lost in round trip: %+v", decoded.Stats)
	}
}
