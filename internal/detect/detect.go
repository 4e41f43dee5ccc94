// Package detect identifies a project's languages, frameworks, and package
// managers by the presence of marker files. Detection is a static,
// extensible lookup table, not dynamic content inspection; deeper analysis
// belongs to the technology analyzer.
package detect

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/phantomsec/gibson/internal/project"
)

// marker maps a file present at the repository root to what it implies.
type marker struct {
	languages       []string
	frameworks      []string
	packageManagers []string
}

var markers = map[string]marker{
	"package.json":      {languages: []string{"javascript"}, packageManagers: []string{"npm"}},
	"yarn.lock":         {languages: []string{"javascript"}, packageManagers: []string{"yarn"}},
	"pnpm-lock.yaml":    {languages: []string{"javascript"}, packageManagers: []string{"pnpm"}},
	"tsconfig.json":     {languages: []string{"typescript"}},
	"go.mod":            {languages: []string{"go"}, packageManagers: []string{"go-modules"}},
	"requirements.txt":  {languages: []string{"python"}, packageManagers: []string{"pip"}},
	"pyproject.toml":    {languages: []string{"python"}, packageManagers: []string{"pip"}},
	"Pipfile":           {languages: []string{"python"}, packageManagers: []string{"pipenv"}},
	"setup.py":          {languages: []string{"python"}, packageManagers: []string{"pip"}},
	"Cargo.toml":        {languages: []string{"rust"}, packageManagers: []string{"cargo"}},
	"pom.xml":           {languages: []string{"java"}, packageManagers: []string{"maven"}},
	"build.gradle":      {languages: []string{"java"}, packageManagers: []string{"gradle"}},
	"build.gradle.kts":  {languages: []string{"kotlin"}, packageManagers: []string{"gradle"}},
	"Gemfile":           {languages: []string{"ruby"}, packageManagers: []string{"bundler"}},
	"composer.json":     {languages: []string{"php"}, packageManagers: []string{"composer"}},
	"mix.exs":           {languages: []string{"elixir"}, packageManagers: []string{"hex"}},
	"Package.swift":     {languages: []string{"swift"}, packageManagers: []string{"swiftpm"}},
	"CMakeLists.txt":    {languages: []string{"c++"}},
	"Makefile":          {},
	"Dockerfile":        {frameworks: []string{"docker"}},
	"docker-compose.yml": {frameworks: []string{"docker-compose"}},
	"next.config.js":    {frameworks: []string{"nextjs"}},
	"nuxt.config.js":    {frameworks: []string{"nuxt"}},
	"angular.json":      {frameworks: []string{"angular"}},
	"vue.config.js":     {frameworks: []string{"vue"}},
	"svelte.config.js":  {frameworks: []string{"svelte"}},
	"manage.py":         {frameworks: []string{"django"}},
	"Chart.yaml":        {frameworks: []string{"helm"}},
	"serverless.yml":    {frameworks: []string{"serverless"}},
	"terraform.tf":      {frameworks: []string{"terraform"}},
	"main.tf":           {frameworks: []string{"terraform"}},
	".github":           {frameworks: []string{"github-actions"}},
}

// Detect scans the repository root for marker files and returns
// deduplicated, sorted sets.
func Detect(repoPath string) project.DetectedType {
	languages := map[string]struct{}{}
	frameworks := map[string]struct{}{}
	packageManagers := map[string]struct{}{}

	for name, m := range markers {
		if _, err := os.Stat(filepath.Join(repoPath, name)); err != nil {
			continue
		}
		for _, l := range m.languages {
			languages[l] = struct{}{}
		}
		for _, f := range m.frameworks {
			frameworks[f] = struct{}{}
		}
		for _, p := range m.packageManagers {
			packageManagers[p] = struct{}{}
		}
	}

	return project.DetectedType{
		Languages:       sortedKeys(languages),
		Frameworks:      sortedKeys(frameworks),
		PackageManagers: sortedKeys(packageManagers),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
