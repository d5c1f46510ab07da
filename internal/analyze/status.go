package analyze

import "github.com/gftdcojp/streamlens/internal/config"

// Classify maps a stream's age and write recency to an activity status.
// Recency dominates: a stream nobody has written to for longer than the
// stagnation threshold is STAGNANT no matter how old it is.
func Classify(ageDays, lastSeenDays float64, cfg config.AnalysisConfig) Status {
	if lastSeenDays > cfg.StagnantAfterDays {
		return StatusStagnant
	}
	if ageDays < cfg.NewStreamDays {
		return StatusNewShort
	}
	return StatusActive
}
