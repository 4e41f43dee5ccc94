// Package manifest maintains the per-project analysis manifest: the
// authoritative record of one project's current (or in-progress) scan.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/phantomsec/gibson/internal/layout"
)

// AnalysisStatus is the lifecycle state of one analyzer entry.
type AnalysisStatus string

const (
	StatusRunning  AnalysisStatus = "running"
	StatusComplete AnalysisStatus = "complete"
	StatusFailed   AnalysisStatus = "failed"
	StatusPartial  AnalysisStatus = "partial"
)

// Terminal reports whether the status is a legal final value for an
// analyzer entry.
func (s AnalysisStatus) Terminal() bool {
	switch s {
	case StatusComplete, StatusFailed, StatusPartial:
		return true
	}
	return false
}

// Record is one analyzer's entry in the manifest.
type Record struct {
	Analyzer    string          `json:"analyzer"`
	Version     string          `json:"version"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at"`
	DurationMS  *int64          `json:"duration_ms"`
	Status      AnalysisStatus  `json:"status"`
	OutputFile  string          `json:"output_file"`
	Summary     json.RawMessage `json:"summary"`
}

// Summary is the rolled-up cross-analyzer view.
type Summary struct {
	RiskLevel             RiskLevel `json:"risk_level"`
	TotalDependencies     int       `json:"total_dependencies"`
	DirectDependencies    int       `json:"direct_dependencies"`
	TotalVulnerabilities  int       `json:"total_vulnerabilities"`
	TotalSecurityFindings int       `json:"total_security_findings"`
	LicenseStatus         string    `json:"license_status"`
	AbandonedPackages     int       `json:"abandoned_packages"`
}

// Manifest is the persisted analysis/manifest.json document. Field names
// and nesting are a durable interface consumed by report renderers.
type Manifest struct {
	ProjectID      string             `json:"project_id"`
	ScanID         string             `json:"scan_id"`
	AnalyzedCommit string             `json:"analyzed_commit"`
	Mode           string             `json:"mode"`
	StartedAt      time.Time          `json:"started_at"`
	CompletedAt    *time.Time         `json:"completed_at"`
	Analyses       map[string]*Record `json:"analyses"`
	Summary        Summary            `json:"summary"`
}

// Store reads and mutates one project's manifest. All writers go through
// the store's mutex so a parallel analyzer pool has single-writer
// discipline over the document.
type Store struct {
	layout layout.Layout
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewStore returns a manifest store over the given layout.
func NewStore(l layout.Layout, logger zerolog.Logger) *Store {
	return &Store{
		layout: l,
		logger: logger.With().Str("component", "manifest").Logger(),
	}
}

// Init creates a fresh manifest for a hydration attempt, fully replacing
// any prior document. A forced re-hydration never merges analyzer
// histories in place.
func (s *Store) Init(id layout.Identity, commit, mode string) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &Manifest{
		ProjectID:      id.String(),
		ScanID:         uuid.NewString(),
		AnalyzedCommit: commit,
		Mode:           mode,
		StartedAt:      time.Now().UTC(),
		Analyses:       map[string]*Record{},
		Summary:        Summary{RiskLevel: RiskNone, LicenseStatus: "unknown"},
	}
	if err := os.MkdirAll(s.layout.AnalysisDir(id), 0o755); err != nil {
		return nil, fmt.Errorf("creating analysis dir: %w", err)
	}
	if err := layout.WriteJSONAtomic(s.layout.ManifestPath(id), m); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	return m, nil
}

// Load reads the manifest for id.
func (s *Store) Load(id layout.Identity) (*Manifest, error) {
	var m Manifest
	if err := layout.ReadJSON(s.layout.ManifestPath(id), &m); err != nil {
		return nil, err
	}
	if m.Analyses == nil {
		m.Analyses = map[string]*Record{}
	}
	return &m, nil
}

// mutate applies fn to the manifest under the store lock and persists it.
func (s *Store) mutate(id layout.Identity, fn func(*Manifest) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.Load(id)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}
	if err := fn(m); err != nil {
		return err
	}
	return layout.WriteJSONAtomic(s.layout.ManifestPath(id), m)
}

// RecordStart inserts or resets the analyzer's entry with status running.
// Calling it twice for the same analyzer within one manifest simply resets
// that analyzer's record, which is what retry logic wants.
func (s *Store) RecordStart(id layout.Identity, name, scriptID, version string) error {
	return s.mutate(id, func(m *Manifest) error {
		m.Analyses[name] = &Record{
			Analyzer:   scriptID,
			Version:    version,
			StartedAt:  time.Now().UTC(),
			Status:     StatusRunning,
			OutputFile: name + ".json",
		}
		return nil
	})
}

// RecordComplete finalizes one analyzer's entry. status must be terminal;
// running is not a legal value here. A nil summary leaves the record's
// summary untouched so a caller can finalize status before summary
// extraction completes.
func (s *Store) RecordComplete(id layout.Identity, name string, status AnalysisStatus, duration time.Duration, summary json.RawMessage) error {
	if !status.Terminal() {
		return fmt.Errorf("status %q is not a legal terminal value", status)
	}
	return s.mutate(id, func(m *Manifest) error {
		rec, ok := m.Analyses[name]
		if !ok {
			return fmt.Errorf("analyzer %q was never started", name)
		}
		now := time.Now().UTC()
		ms := duration.Milliseconds()
		rec.CompletedAt = &now
		rec.DurationMS = &ms
		rec.Status = status
		if summary != nil {
			rec.Summary = summary
		}
		return nil
	})
}

// Finalize sets the top-level completed_at. It deliberately does not
// validate that every analyzer succeeded: finalized means the orchestrator
// is done attempting work, and failures surface through the summary's risk
// level and the per-analyzer records.
func (s *Store) Finalize(id layout.Identity) error {
	return s.mutate(id, func(m *Manifest) error {
		now := time.Now().UTC()
		m.CompletedAt = &now
		return nil
	})
}

// UpdateSummary replaces the rolled-up summary object. Called exactly once
// near the end of hydration, after every analyzer has reached a terminal
// state.
func (s *Store) UpdateSummary(id layout.Identity, sum Summary) error {
	return s.mutate(id, func(m *Manifest) error {
		m.Summary = sum
		return nil
	})
}
