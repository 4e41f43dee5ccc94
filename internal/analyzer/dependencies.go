package analyzer

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const dependenciesVersion = "1.0.0"

// Dependency is one declared package from a manifest file.
type Dependency struct {
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	Ecosystem string `json:"ecosystem"`
	Direct    bool   `json:"direct"`
	Dev       bool   `json:"dev,omitempty"`
}

// Dependencies enumerates declared dependencies from the package manifests
// the repository carries: package.json, go.mod, and requirements.txt.
type Dependencies struct{}

func NewDependencies() *Dependencies { return &Dependencies{} }

func (d *Dependencies) Name() string    { return "dependencies" }
func (d *Dependencies) Version() string { return dependenciesVersion }

type dependenciesSummary struct {
	TotalDependencies  int `json:"total_dependencies"`
	DirectDependencies int `json:"direct_dependencies"`
	DevDependencies    int `json:"dev_dependencies"`
}

func (d *Dependencies) Run(ctx context.Context, req Request) (Report, error) {
	deps, err := ParseDependencies(req.RepoPath)
	if err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	summary := dependenciesSummary{TotalDependencies: len(deps)}
	for _, dep := range deps {
		if dep.Direct {
			summary.DirectDependencies++
		}
		if dep.Dev {
			summary.DevDependencies++
		}
	}

	raw, err := writeOutput(req, d.Name(), d.Version(), summary, deps)
	if err != nil {
		return Report{}, err
	}
	return Report{Summary: raw}, nil
}

// ParseDependencies reads every supported manifest at the repository root
// and returns the union, sorted by ecosystem then name. Manifests that are
// absent are skipped; manifests that are present but unreadable fail the
// parse.
func ParseDependencies(repoPath string) ([]Dependency, error) {
	var deps []Dependency

	for _, parse := range []func(string) ([]Dependency, error){
		parsePackageJSON,
		parseGoMod,
		parseRequirementsTxt,
	} {
		parsed, err := parse(repoPath)
		if err != nil {
			return nil, err
		}
		deps = append(deps, parsed...)
	}

	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Ecosystem != deps[j].Ecosystem {
			return deps[i].Ecosystem < deps[j].Ecosystem
		}
		return deps[i].Name < deps[j].Name
	})
	return deps, nil
}

func parsePackageJSON(repoPath string) ([]Dependency, error) {
	data, err := os.ReadFile(filepath.Join(repoPath, "package.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}

	var deps []Dependency
	for name, version := range pkg.Dependencies {
		deps = append(deps, Dependency{Name: name, Version: cleanSemver(version), Ecosystem: "npm", Direct: true})
	}
	for name, version := range pkg.DevDependencies {
		deps = append(deps, Dependency{Name: name, Version: cleanSemver(version), Ecosystem: "npm", Direct: true, Dev: true})
	}
	return deps, nil
}

// cleanSemver strips npm range prefixes so versions are queryable.
func cleanSemver(v string) string {
	return strings.TrimLeft(v, "^~>=< ")
}

func parseGoMod(repoPath string) ([]Dependency, error) {
	f, err := os.Open(filepath.Join(repoPath, "go.mod"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var deps []Dependency
	inBlock := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "require (":
			inBlock = true
			continue
		case inBlock && line == ")":
			inBlock = false
			continue
		case strings.HasPrefix(line, "require "):
			line = strings.TrimPrefix(line, "require ")
		case !inBlock:
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || strings.HasPrefix(fields[0], "//") {
			continue
		}
		deps = append(deps, Dependency{
			Name:      fields[0],
			Version:   strings.TrimPrefix(fields[1], "v"),
			Ecosystem: "Go",
			Direct:    !strings.Contains(line, "// indirect"),
		})
	}
	return deps, scanner.Err()
}

func parseRequirementsTxt(repoPath string) ([]Dependency, error) {
	f, err := os.Open(filepath.Join(repoPath, "requirements.txt"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var deps []Dependency
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if i := strings.IndexAny(line, " ;#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}

		name, version := line, ""
		for _, op := range []string{"==", ">=", "<=", "~=", "!=", ">", "<"} {
			if i := strings.Index(line, op); i >= 0 {
				name = strings.TrimSpace(line[:i])
				if op == "==" {
					version = strings.TrimSpace(line[i+len(op):])
				}
				break
			}
		}
		if i := strings.Index(name, "["); i >= 0 {
			name = name[:i]
		}
		if name == "" {
			continue
		}
		deps = append(deps, Dependency{Name: name, Version: version, Ecosystem: "PyPI", Direct: true})
	}
	return deps, scanner.Err()
}
