package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Scan is one completed (or failed) hydration run.
type Scan struct {
	ScanID          string
	ProjectID       string
	Mode            string
	AnalyzedCommit  string
	RiskLevel       string
	AnalyzersTotal  int
	AnalyzersFailed int
	StartedAt       int64 // unix ms
	CompletedAt     int64 // unix ms, 0 = still running
}

// RecordScan inserts or updates a scan row.
func (s *Store) RecordScan(sc *Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc.StartedAt == 0 {
		sc.StartedAt = time.Now().UnixMilli()
	}

	query := `
	INSERT OR REPLACE INTO scans (
		scan_id, project_id, mode, analyzed_commit, risk_level,
		analyzers_total, analyzers_failed, started_at, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		sc.ScanID, sc.ProjectID, sc.Mode,
		sql.NullString{String: sc.AnalyzedCommit, Valid: sc.AnalyzedCommit != ""},
		sc.RiskLevel, sc.AnalyzersTotal, sc.AnalyzersFailed,
		sc.StartedAt,
		sql.NullInt64{Int64: sc.CompletedAt, Valid: sc.CompletedAt != 0},
	)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	return nil
}

// ScanHistory returns scans for a project, newest first.
func (s *Store) ScanHistory(projectID string, limit int) ([]*Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT scan_id, project_id, mode, analyzed_commit, risk_level,
	       analyzers_total, analyzers_failed, started_at, completed_at
	FROM scans WHERE project_id = ? ORDER BY started_at DESC LIMIT ?
	`

	rows, err := s.db.Query(query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var scans []*Scan
	for rows.Next() {
		sc := &Scan{}
		var commit sql.NullString
		var completedAt sql.NullInt64
		if err := rows.Scan(
			&sc.ScanID, &sc.ProjectID, &sc.Mode, &commit, &sc.RiskLevel,
			&sc.AnalyzersTotal, &sc.AnalyzersFailed, &sc.StartedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if commit.Valid {
			sc.AnalyzedCommit = commit.String
		}
		if completedAt.Valid {
			sc.CompletedAt = completedAt.Int64
		}
		scans = append(scans, sc)
	}
	return scans, rows.Err()
}
