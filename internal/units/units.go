// Package units converts the human-readable size descriptors and timestamps
// returned by the cluster APIs into canonical numeric forms.
package units

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var sizeRe = regexp.MustCompile(`^([\d.]+)([a-z]+)$`)

var sizeMultipliers = map[string]float64{
	"b":  1,
	"kb": 1024,
	"mb": 1024 * 1024,
	"gb": 1024 * 1024 * 1024,
	"tb": 1024 * 1024 * 1024 * 1024,
}

// ParseSize converts a size descriptor like "512mb" or "2.5gb" into bytes.
// Binary (1024-based) multipliers. Empty, zero, malformed, or unknown-unit
// inputs all yield 0; the caller treats an unresolvable size as absent.
func ParseSize(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "0b" {
		return 0
	}

	m := sizeRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}

	return value * sizeMultipliers[m[2]]
}

// Timestamps before 1970 or after 2100 show up in practice when a document
// carries a garbage write-time field; they would poison the age math.
const (
	minPlausibleYear = 1970
	maxPlausibleYear = 2100
)

// ParseTimestamp parses an ISO-8601 timestamp ("Z" suffix or numeric offset)
// into a UTC instant. Returns false for unparseable values and for values
// whose calendar year falls outside [1970, 2100].
func ParseTimestamp(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}

	t = t.UTC()
	if y := t.Year(); y < minPlausibleYear || y > maxPlausibleYear {
		return time.Time{}, false
	}
	return t, true
}
