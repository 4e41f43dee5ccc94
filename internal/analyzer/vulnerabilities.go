package analyzer

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/phantomsec/gibson/internal/osv"
)

const vulnerabilitiesVersion = "1.0.0"

// Vulnerabilities cross-references declared dependencies against OSV.dev.
// Only pinned versions are queried; range constraints cannot be resolved
// without a lockfile and are skipped. Query failures for individual
// packages degrade the run to partial rather than failing it.
type Vulnerabilities struct {
	client *osv.Client
	logger zerolog.Logger
}

func NewVulnerabilities(client *osv.Client, logger zerolog.Logger) *Vulnerabilities {
	return &Vulnerabilities{
		client: client,
		logger: logger.With().Str("component", "vuln-analyzer").Logger(),
	}
}

func (v *Vulnerabilities) Name() string    { return "vulnerabilities" }
func (v *Vulnerabilities) Version() string { return vulnerabilitiesVersion }

type vulnFinding struct {
	Package   string `json:"package"`
	Version   string `json:"version"`
	Ecosystem string `json:"ecosystem"`
	ID        string `json:"id"`
	Severity  string `json:"severity"`
	Summary   string `json:"summary,omitempty"`
}

type vulnSummary struct {
	Critical        int `json:"critical"`
	High            int `json:"high"`
	Medium          int `json:"medium"`
	Low             int `json:"low"`
	Total           int `json:"total"`
	PackagesQueried int `json:"packages_queried"`
	PackagesSkipped int `json:"packages_skipped"`
}

func (v *Vulnerabilities) Run(ctx context.Context, req Request) (Report, error) {
	deps, err := ParseDependencies(req.RepoPath)
	if err != nil {
		return Report{}, err
	}

	findings := []vulnFinding{}
	summary := vulnSummary{}
	partial := false

	for _, dep := range deps {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		if dep.Version == "" || v.client == nil {
			summary.PackagesSkipped++
			continue
		}

		vulns, err := v.client.Query(ctx, dep.Ecosystem, dep.Name, dep.Version)
		if err != nil {
			v.logger.Warn().Err(err).
				Str("package", dep.Name).
				Str("ecosystem", dep.Ecosystem).
				Msg("osv query failed")
			partial = true
			summary.PackagesSkipped++
			continue
		}
		summary.PackagesQueried++

		for _, vuln := range vulns {
			findings = append(findings, vulnFinding{
				Package:   dep.Name,
				Version:   dep.Version,
				Ecosystem: dep.Ecosystem,
				ID:        vuln.ID,
				Severity:  vuln.Severity,
				Summary:   vuln.Summary,
			})
			switch vuln.Severity {
			case "critical":
				summary.Critical++
			case "high":
				summary.High++
			case "low":
				summary.Low++
			default:
				// medium and unknown both count as medium.
				summary.Medium++
			}
			summary.Total++
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Package != findings[j].Package {
			return findings[i].Package < findings[j].Package
		}
		return findings[i].ID < findings[j].ID
	})

	raw, err := writeOutput(req, v.Name(), v.Version(), summary, findings)
	if err != nil {
		return Report{}, err
	}
	return Report{Partial: partial, Summary: raw}, nil
}
