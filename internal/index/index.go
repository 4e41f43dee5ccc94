// Package index maintains the single cross-project JSON document recording
// which projects exist and what state they are in. The filesystem remains
// the authority for existence (see List); the index is the authority for
// status and metadata.
package index

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/phantomsec/gibson/internal/layout"
)

// Status is a project lifecycle state.
type Status string

const (
	StatusBootstrapping Status = "bootstrapping"
	StatusReady         Status = "ready"
	StatusFailed        Status = "failed"
)

// Entry is one project's record in the index document.
type Entry struct {
	Source       string     `json:"source"`
	CreatedAt    time.Time  `json:"created_at"`
	LastAnalyzed *time.Time `json:"last_analyzed"`
	Status       Status     `json:"status"`
}

// Document is the persisted index shape. Field names are a durable
// interface consumed by report renderers and external agents.
type Document struct {
	Version  string            `json:"version"`
	Projects map[string]*Entry `json:"projects"`
	Active   string            `json:"active"`
}

// Store mutates the index document with read-modify-write via atomic
// replace. No locking: concurrent writers are last-writer-wins.
type Store struct {
	layout layout.Layout
	logger zerolog.Logger
}

// NewStore returns an index store over the given layout.
func NewStore(l layout.Layout, logger zerolog.Logger) *Store {
	return &Store{
		layout: l,
		logger: logger.With().Str("component", "index").Logger(),
	}
}

// EnsureInitialized writes an empty index document if none exists.
func (s *Store) EnsureInitialized() error {
	if _, err := os.Stat(s.layout.IndexPath()); err == nil {
		return nil
	}
	doc := &Document{Version: "1", Projects: map[string]*Entry{}}
	return layout.WriteJSONAtomic(s.layout.IndexPath(), doc)
}

func (s *Store) load() (*Document, error) {
	var doc Document
	if err := layout.ReadJSON(s.layout.IndexPath(), &doc); err != nil {
		return nil, err
	}
	if doc.Projects == nil {
		doc.Projects = map[string]*Entry{}
	}
	return &doc, nil
}

// Add upserts an entry for id. A prior entry for the same id is overwritten
// entirely, so a re-hydration never merges stale fields.
func (s *Store) Add(id layout.Identity, source string, status Status) error {
	doc, err := s.load()
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	doc.Projects[id.String()] = &Entry{
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Status:    status,
	}
	return layout.WriteJSONAtomic(s.layout.IndexPath(), doc)
}

// UpdateStatus sets the status and refreshes last_analyzed. A missing index
// file is a silent no-op; callers are expected to have initialized first.
func (s *Store) UpdateStatus(id layout.Identity, status Status) error {
	doc, err := s.load()
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug().Str("project", id.String()).Msg("index missing, skipping status update")
			return nil
		}
		return fmt.Errorf("loading index: %w", err)
	}
	entry, ok := doc.Projects[id.String()]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	entry.Status = status
	entry.LastAnalyzed = &now
	return layout.WriteJSONAtomic(s.layout.IndexPath(), doc)
}

// Remove deletes the entry for id. If id was the active pointer, active is
// cleared so it never references a non-existent project.
func (s *Store) Remove(id layout.Identity) error {
	doc, err := s.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("loading index: %w", err)
	}
	delete(doc.Projects, id.String())
	if doc.Active == id.String() {
		doc.Active = ""
	}
	return layout.WriteJSONAtomic(s.layout.IndexPath(), doc)
}

// SetActive points the convenience active pointer at id.
func (s *Store) SetActive(id layout.Identity) error {
	doc, err := s.load()
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	doc.Active = id.String()
	return layout.WriteJSONAtomic(s.layout.IndexPath(), doc)
}

// Active returns the active project id, or "" when unset.
func (s *Store) Active() (string, error) {
	doc, err := s.load()
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("loading index: %w", err)
	}
	return doc.Active, nil
}

// Get returns the entry for id, or nil when absent.
func (s *Store) Get(id layout.Identity) (*Entry, error) {
	doc, err := s.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading index: %w", err)
	}
	return doc.Projects[id.String()], nil
}

// List returns every project for which a two-level directory exists under
// the projects root, independent of index contents. A directory left by a
// partially completed hydration still surfaces here.
func (s *Store) List() ([]layout.Identity, error) {
	return s.layout.ListProjectDirs()
}
