package store

import (
	"fmt"
)

// defaultScanHistory is how many scans per project survive pruning.
const defaultScanHistory = 50

// PruneScans trims each project's scan history to the newest keep rows.
// Current risk state lives on the project row, so old scan rows carry no
// information a report needs.
func (s *Store) PruneScans(keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep <= 0 {
		keep = defaultScanHistory
	}

	query := `
	DELETE FROM scans WHERE scan_id NOT IN (
		SELECT scan_id FROM scans s2
		WHERE s2.project_id = scans.project_id
		ORDER BY s2.started_at DESC LIMIT ?
	)
	`

	if _, err := s.db.Exec(query, keep); err != nil {
		return fmt.Errorf("failed to prune scans: %w", err)
	}
	return nil
}
