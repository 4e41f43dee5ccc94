// Package project holds the per-project metadata document written once at
// clone time.
package project

import (
	"fmt"
	"time"

	"github.com/phantomsec/gibson/internal/layout"
)

// SourceType distinguishes cloned GitHub repositories from local copies.
type SourceType string

const (
	SourceGitHub SourceType = "github"
	SourceLocal  SourceType = "local"
)

// DetectedType is the marker-file detection result: deduplicated,
// order-irrelevant sets of strings.
type DetectedType struct {
	Languages       []string `json:"languages"`
	Frameworks      []string `json:"frameworks"`
	PackageManagers []string `json:"package_managers"`
}

// Metadata is the persisted project.json document. It is created once at
// clone time, mutated exactly once after detection, and deleted only with
// the project.
type Metadata struct {
	ID           string       `json:"id"`
	Source       string       `json:"source"`
	SourceType   SourceType   `json:"source_type"`
	ClonedAt     time.Time    `json:"cloned_at"`
	Branch       string       `json:"branch"`
	Commit       string       `json:"commit"`
	RepoPath     string       `json:"repo_path"`
	DetectedType DetectedType `json:"detected_type"`
}

// Write persists the metadata document.
func Write(l layout.Layout, id layout.Identity, m *Metadata) error {
	if err := layout.WriteJSONAtomic(l.MetadataPath(id), m); err != nil {
		return fmt.Errorf("writing project metadata: %w", err)
	}
	return nil
}

// Load reads the metadata document for id.
func Load(l layout.Layout, id layout.Identity) (*Metadata, error) {
	var m Metadata
	if err := layout.ReadJSON(l.MetadataPath(id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}
