package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Project is one row of the project index view.
type Project struct {
	ID           string
	Namespace    string
	Name         string
	Source       string
	Status       string
	RiskLevel    string
	CreatedAt    int64 // unix ms
	LastAnalyzed int64 // unix ms, 0 = never
}

// SyncProject inserts or updates a project row after a hydration.
func (s *Store) SyncProject(p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().UnixMilli()
	}

	query := `
	INSERT OR REPLACE INTO projects (
		id, namespace, name, source, status, risk_level, created_at, last_analyzed
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		p.ID, p.Namespace, p.Name, p.Source, p.Status, p.RiskLevel,
		p.CreatedAt,
		sql.NullInt64{Int64: p.LastAnalyzed, Valid: p.LastAnalyzed != 0},
	)
	if err != nil {
		return fmt.Errorf("failed to sync project: %w", err)
	}
	return nil
}

// GetProject retrieves a project row by ID, nil if absent.
func (s *Store) GetProject(id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &Project{}
	var lastAnalyzed sql.NullInt64

	query := `
	SELECT id, namespace, name, source, status, risk_level, created_at, last_analyzed
	FROM projects WHERE id = ?
	`

	err := s.db.QueryRow(query, id).Scan(
		&p.ID, &p.Namespace, &p.Name, &p.Source, &p.Status, &p.RiskLevel,
		&p.CreatedAt, &lastAnalyzed,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if lastAnalyzed.Valid {
		p.LastAnalyzed = lastAnalyzed.Int64
	}
	return p, nil
}

// ListProjects returns all project rows, newest first.
func (s *Store) ListProjects() ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT id, namespace, name, source, status, risk_level, created_at, last_analyzed
	FROM projects ORDER BY created_at DESC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p := &Project{}
		var lastAnalyzed sql.NullInt64
		if err := rows.Scan(
			&p.ID, &p.Namespace, &p.Name, &p.Source, &p.Status, &p.RiskLevel,
			&p.CreatedAt, &lastAnalyzed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if lastAnalyzed.Valid {
			p.LastAnalyzed = lastAnalyzed.Int64
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project and, via cascade, its scans.
func (s *Store) DeleteProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// RiskCounts aggregates the managed projects by risk level.
func (s *Store) RiskCounts() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT risk_level, COUNT(*) FROM projects GROUP BY risk_level`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate risk: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("failed to scan risk count: %w", err)
		}
		counts[level] = n
	}
	return counts, rows.Err()
}
