package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	return s.migrateV1()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		namespace TEXT NOT NULL,
		name TEXT NOT NULL,
		source TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'bootstrapping',
		risk_level TEXT NOT NULL DEFAULT 'none',
		created_at INTEGER NOT NULL,
		last_analyzed INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_projects_namespace ON projects(namespace);
	CREATE INDEX IF NOT EXISTS idx_projects_risk ON projects(risk_level);

	CREATE TABLE IF NOT EXISTS scans (
		scan_id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		analyzed_commit TEXT,
		risk_level TEXT NOT NULL DEFAULT 'none',
		analyzers_total INTEGER NOT NULL DEFAULT 0,
		analyzers_failed INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		completed_at INTEGER,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_scans_project ON scans(project_id);
	CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
