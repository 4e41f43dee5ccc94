package freshness

import "time"

// Level buckets the age of scan data for status reporting, independent of
// the git-level State classification.
type Level string

const (
	LevelFresh     Level = "fresh"
	LevelStale     Level = "stale"
	LevelVeryStale Level = "very-stale"
	LevelExpired   Level = "expired"
	LevelUnknown   Level = "unknown"
)

// Thresholds defines when scan data is considered stale.
type Thresholds struct {
	FreshMaxHours    int
	StaleMaxDays     int
	VeryStaleMaxDays int
}

// DefaultThresholds matches the defaults written into the config file.
func DefaultThresholds() Thresholds {
	return Thresholds{FreshMaxHours: 24, StaleMaxDays: 7, VeryStaleMaxDays: 30}
}

// Check buckets lastScan by age.
func (t Thresholds) Check(lastScan time.Time) Level {
	if lastScan.IsZero() {
		return LevelUnknown
	}
	age := time.Since(lastScan)
	switch {
	case age < time.Duration(t.FreshMaxHours)*time.Hour:
		return LevelFresh
	case age < time.Duration(t.StaleMaxDays)*24*time.Hour:
		return LevelStale
	case age < time.Duration(t.VeryStaleMaxDays)*24*time.Hour:
		return LevelVeryStale
	default:
		return LevelExpired
	}
}

// NeedsRefresh reports whether data at this level should be rescanned.
func (l Level) NeedsRefresh() bool { return l != LevelFresh }
