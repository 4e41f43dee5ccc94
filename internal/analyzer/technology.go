package analyzer

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/go-enry/go-enry/v2"

	"github.com/phantomsec/gibson/internal/detect"
)

const technologyVersion = "1.0.0"

// Technology surveys the repository's languages, frameworks, and package
// managers. Language attribution comes from enry by filename and
// extension; frameworks and package managers from marker files.
type Technology struct{}

func NewTechnology() *Technology { return &Technology{} }

func (t *Technology) Name() string    { return "technology" }
func (t *Technology) Version() string { return technologyVersion }

type languageStat struct {
	Language   string  `json:"language"`
	FileCount  int     `json:"file_count"`
	Percentage float64 `json:"percentage"`
}

type technologySummary struct {
	TotalFiles      int      `json:"total_files"`
	LanguageCount   int      `json:"language_count"`
	TopLanguage     string   `json:"top_language,omitempty"`
	Frameworks      []string `json:"frameworks"`
	PackageManagers []string `json:"package_managers"`
}

func (t *Technology) Run(ctx context.Context, req Request) (Report, error) {
	counts := make(map[string]int)
	total := 0

	err := filepath.WalkDir(req.RepoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, _ := filepath.Rel(req.RepoPath, path)
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if enry.IsVendor(rel) || enry.IsDocumentation(rel) {
			return nil
		}

		lang, _ := enry.GetLanguageByFilename(d.Name())
		if lang == "" {
			lang, _ = enry.GetLanguageByExtension(d.Name())
		}
		if lang == "" || enry.GetLanguageType(lang) != enry.Programming {
			return nil
		}
		counts[lang]++
		total++
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	stats := make([]languageStat, 0, len(counts))
	for lang, n := range counts {
		pct := 0.0
		if total > 0 {
			pct = float64(n) / float64(total) * 100
		}
		stats = append(stats, languageStat{Language: lang, FileCount: n, Percentage: pct})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].FileCount != stats[j].FileCount {
			return stats[i].FileCount > stats[j].FileCount
		}
		return stats[i].Language < stats[j].Language
	})

	detected := detect.Detect(req.RepoPath)

	summary := technologySummary{
		TotalFiles:      total,
		LanguageCount:   len(stats),
		Frameworks:      detected.Frameworks,
		PackageManagers: detected.PackageManagers,
	}
	if len(stats) > 0 {
		summary.TopLanguage = stats[0].Language
	}

	raw, err := writeOutput(req, t.Name(), t.Version(), summary, stats)
	if err != nil {
		return Report{}, err
	}
	return Report{Summary: raw}, nil
}
