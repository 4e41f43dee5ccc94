// Package layout owns the on-disk directory convention and project identity
// derivation. Every other component resolves paths through a Layout instead
// of concatenating strings itself.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	projectsDirName = "projects"
	cacheDirName    = "cache"
	repoDirName     = "repo"
	analysisDirName = "analysis"
	indexFileName   = "index.json"
	configFileName  = "config.yaml"
)

// Layout resolves filesystem paths under the storage root. All methods are
// pure string concatenations; callers create directories explicitly.
type Layout struct {
	Root string
}

// New returns a Layout rooted at root. An empty root falls back to
// ~/.gibson, or .gibson when the home directory cannot be determined.
func New(root string) Layout {
	if root == "" {
		if home, err := os.UserHomeDir(); err == nil {
			root = filepath.Join(home, ".gibson")
		} else {
			root = ".gibson"
		}
	}
	return Layout{Root: root}
}

// ProjectsDir is the parent of all project directories.
func (l Layout) ProjectsDir() string {
	return filepath.Join(l.Root, projectsDirName)
}

// CacheDir holds shared downloaded artifacts (rule packs, feeds).
func (l Layout) CacheDir() string {
	return filepath.Join(l.Root, cacheDirName)
}

// ProjectDir is the root of one project's state.
func (l Layout) ProjectDir(id Identity) string {
	return filepath.Join(l.ProjectsDir(), id.Namespace, id.Name)
}

// RepoDir is where the project's source is cloned or copied.
func (l Layout) RepoDir(id Identity) string {
	return filepath.Join(l.ProjectDir(id), repoDirName)
}

// AnalysisDir holds each analyzer's output JSON and the manifest.
func (l Layout) AnalysisDir(id Identity) string {
	return filepath.Join(l.ProjectDir(id), analysisDirName)
}

// ManifestPath is the per-project analysis manifest document.
func (l Layout) ManifestPath(id Identity) string {
	return filepath.Join(l.AnalysisDir(id), "manifest.json")
}

// MetadataPath is the per-project metadata document.
func (l Layout) MetadataPath(id Identity) string {
	return filepath.Join(l.ProjectDir(id), "project.json")
}

// LockPath is the per-project advisory lock file.
func (l Layout) LockPath(id Identity) string {
	return filepath.Join(l.ProjectDir(id), ".hydrate.lock")
}

// IndexPath is the single cross-project index document.
func (l Layout) IndexPath() string {
	return filepath.Join(l.Root, indexFileName)
}

// ConfigPath is the YAML profile/analyzer configuration file.
func (l Layout) ConfigPath() string {
	return filepath.Join(l.Root, configFileName)
}

// DBPath is the SQLite query index mirrored from the JSON state.
func (l Layout) DBPath() string {
	return filepath.Join(l.Root, "gibson.db")
}

// EnsureInitialized creates the root, projects, and cache directories.
// It is idempotent and safe to call on every invocation. Default index and
// config documents are written by the callers that own those formats only
// when absent.
func (l Layout) EnsureInitialized() error {
	for _, dir := range []string{l.Root, l.ProjectsDir(), l.CacheDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// ListProjectDirs walks the two-level namespace/name structure under the
// projects root and returns the identities found. The filesystem, not the
// index document, is the authority for project existence: a directory left
// behind by a partially completed hydration must still surface here.
func (l Layout) ListProjectDirs() ([]Identity, error) {
	namespaces, err := os.ReadDir(l.ProjectsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading projects dir: %w", err)
	}

	var ids []Identity
	for _, ns := range namespaces {
		if !ns.IsDir() {
			continue
		}
		names, err := os.ReadDir(filepath.Join(l.ProjectsDir(), ns.Name()))
		if err != nil {
			continue
		}
		for _, name := range names {
			if name.IsDir() {
				ids = append(ids, Identity{Namespace: ns.Name(), Name: name.Name()})
			}
		}
	}
	return ids, nil
}
