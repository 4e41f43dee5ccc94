package analyzer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const licensesVersion = "1.0.0"

// defaultDeniedLicenses are strong-copyleft identifiers that most
// downstream consumption policies flag for review.
var defaultDeniedLicenses = []string{"AGPL-3.0", "SSPL-1.0"}

// Licenses identifies the repository's declared license and checks it
// against a denied list. Identification uses the package.json license
// field when present, then keyword matching over LICENSE files.
type Licenses struct {
	denied map[string]bool
}

func NewLicenses(denied []string) *Licenses {
	if denied == nil {
		denied = defaultDeniedLicenses
	}
	set := make(map[string]bool, len(denied))
	for _, d := range denied {
		set[strings.ToUpper(d)] = true
	}
	return &Licenses{denied: set}
}

func (l *Licenses) Name() string    { return "licenses" }
func (l *Licenses) Version() string { return licensesVersion }

type licenseFinding struct {
	License string `json:"license"`
	Source  string `json:"source"`
	Denied  bool   `json:"denied"`
}

type licensesSummary struct {
	Licenses          []string `json:"licenses"`
	LicenseStatus     string   `json:"license_status"`
	LicenseViolations int      `json:"license_violations"`
}

// licenseKeywords maps distinctive license-text phrases to SPDX ids.
// Ordered so more specific texts match before generic ones.
var licenseKeywords = []struct {
	Phrase string
	SPDX   string
}{
	{"GNU AFFERO GENERAL PUBLIC LICENSE", "AGPL-3.0"},
	{"GNU LESSER GENERAL PUBLIC LICENSE", "LGPL-3.0"},
	{"GNU GENERAL PUBLIC LICENSE", "GPL-3.0"},
	{"SERVER SIDE PUBLIC LICENSE", "SSPL-1.0"},
	{"MOZILLA PUBLIC LICENSE", "MPL-2.0"},
	{"APACHE LICENSE", "Apache-2.0"},
	{"MIT LICENSE", "MIT"},
	{"PERMISSION IS HEREBY GRANTED, FREE OF CHARGE", "MIT"},
	{"REDISTRIBUTION AND USE IN SOURCE AND BINARY FORMS", "BSD-3-Clause"},
	{"THE UNLICENSE", "Unlicense"},
	{"ISC LICENSE", "ISC"},
}

var licenseFilenames = []string{
	"LICENSE", "LICENSE.md", "LICENSE.txt", "LICENCE", "LICENCE.md",
	"COPYING", "COPYING.md", "UNLICENSE",
}

func (l *Licenses) Run(ctx context.Context, req Request) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	seen := map[string]licenseFinding{}

	if spdx := packageJSONLicense(req.RepoPath); spdx != "" {
		seen[spdx] = licenseFinding{License: spdx, Source: "package.json", Denied: l.denied[strings.ToUpper(spdx)]}
	}
	for _, name := range licenseFilenames {
		data, err := os.ReadFile(filepath.Join(req.RepoPath, name))
		if err != nil {
			continue
		}
		if spdx := classifyLicenseText(string(data)); spdx != "" {
			if _, dup := seen[spdx]; !dup {
				seen[spdx] = licenseFinding{License: spdx, Source: name, Denied: l.denied[strings.ToUpper(spdx)]}
			}
		}
	}

	findings := make([]licenseFinding, 0, len(seen))
	for _, f := range seen {
		findings = append(findings, f)
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].License < findings[j].License })

	summary := licensesSummary{Licenses: []string{}, LicenseStatus: "unknown"}
	for _, f := range findings {
		summary.Licenses = append(summary.Licenses, f.License)
		if f.Denied {
			summary.LicenseViolations++
		}
	}
	switch {
	case summary.LicenseViolations > 0:
		summary.LicenseStatus = "violations"
	case len(findings) > 0:
		summary.LicenseStatus = "clean"
	}

	raw, err := writeOutput(req, l.Name(), l.Version(), summary, findings)
	if err != nil {
		return Report{}, err
	}
	return Report{Summary: raw}, nil
}

func packageJSONLicense(repoPath string) string {
	data, err := os.ReadFile(filepath.Join(repoPath, "package.json"))
	if err != nil {
		return ""
	}
	var pkg struct {
		License string `json:"license"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}
	return strings.TrimSpace(pkg.License)
}

func classifyLicenseText(text string) string {
	upper := strings.ToUpper(text)
	for _, kw := range licenseKeywords {
		if strings.Contains(upper, kw.Phrase) {
			return kw.SPDX
		}
	}
	return ""
}
