package manifest

// RiskLevel is the five-point severity classification derived from
// vulnerability, license, and secrets findings.
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskOrder = map[RiskLevel]int{
	RiskNone:     0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// Rank returns the severity ordering of the level; unknown levels rank as
// none.
func (r RiskLevel) Rank() int { return riskOrder[r] }

// MaxRisk returns the more severe of two levels. Folding rules use it so a
// later rule can only escalate, never de-escalate.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// RiskFromCounts applies the threshold-based, severity-ordered
// classification shared with the report renderers: critical wins outright,
// then high, then medium when more than five medium findings exist, low for
// one to five medium findings, and none otherwise.
func RiskFromCounts(critical, high, medium, low int) RiskLevel {
	switch {
	case critical > 0:
		return RiskCritical
	case high > 0:
		return RiskHigh
	case medium > 5:
		return RiskMedium
	case medium > 0:
		return RiskLow
	default:
		return RiskNone
	}
}
