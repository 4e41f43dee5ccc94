package manifest

import (
	"encoding/json"
)

// AnalyzerSummary is the typed view of one analyzer's summary object. The
// orchestrator treats analyzer output as opaque JSON with one contractual
// guarantee: well-known numeric fields, when present, fold into the
// cross-analyzer summary. Absent fields are zero.
type AnalyzerSummary struct {
	// Vulnerability-style analyzers.
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`

	// Dependency extraction.
	TotalDependencies  int `json:"total_dependencies"`
	DirectDependencies int `json:"direct_dependencies"`

	// License analyzer.
	LicenseViolations int    `json:"license_violations"`
	LicenseStatus     string `json:"license_status"`

	// Code-security analyzer.
	PotentialSecrets int `json:"potential_secrets"`

	// Package-health analyzer.
	Abandoned int `json:"abandoned"`
}

// ParseSummary decodes an analyzer summary best-effort. Malformed or absent
// JSON yields the zero value: an analyzer that wrote garbage contributes
// nothing to the fold rather than crashing the run.
func ParseSummary(raw json.RawMessage) AnalyzerSummary {
	var s AnalyzerSummary
	if len(raw) == 0 {
		return s
	}
	_ = json.Unmarshal(raw, &s)
	return s
}

// Fold composes the cross-analyzer summary from every analyzer record. The
// rules are a fixed, ordered set of overrides where later rules can only
// escalate risk:
//
//  1. vulnerability counts feed the threshold classification
//  2. license violations escalate to at least high
//  3. secrets found escalate to critical
//
// Because each rule goes through MaxRisk, the result is the
// maximum-severity signal present regardless of analyzer order.
func Fold(records map[string]*Record) Summary {
	out := Summary{RiskLevel: RiskNone, LicenseStatus: "unknown"}

	var critical, high, medium, low int
	for _, rec := range records {
		s := ParseSummary(rec.Summary)

		critical += s.Critical
		high += s.High
		medium += s.Medium
		low += s.Low

		out.TotalDependencies += s.TotalDependencies
		out.DirectDependencies += s.DirectDependencies
		out.AbandonedPackages += s.Abandoned
		out.TotalSecurityFindings += s.PotentialSecrets

		if s.LicenseViolations > 0 {
			out.RiskLevel = MaxRisk(out.RiskLevel, RiskHigh)
			out.LicenseStatus = "violations"
		} else if s.LicenseStatus != "" && out.LicenseStatus != "violations" {
			out.LicenseStatus = s.LicenseStatus
		}
		if s.PotentialSecrets > 0 {
			out.RiskLevel = MaxRisk(out.RiskLevel, RiskCritical)
		}
	}

	out.TotalVulnerabilities = critical + high + medium + low
	out.RiskLevel = MaxRisk(out.RiskLevel, RiskFromCounts(critical, high, medium, low))
	return out
}
