package hydrate

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	gerrors "github.com/phantomsec/gibson/internal/errors"
)

// lockStaleAfter is how old a lock may be before a dead holder is assumed
// even when the PID check is inconclusive.
const lockStaleAfter = 2 * time.Hour

// lockDoc is the advisory lock file content. Locks guard concurrent
// hydrations of the same project on one host; a crashed holder is detected
// by PID liveness and age.
type lockDoc struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// acquireLock takes the project lock at path, stealing it from a dead or
// stale holder. Returns ErrProjectLocked when a live holder exists.
func acquireLock(path string) (release func(), err error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			hostname, _ := os.Hostname()
			doc := lockDoc{PID: os.Getpid(), Hostname: hostname, AcquiredAt: time.Now().UTC()}
			enc := json.NewEncoder(f)
			if encErr := enc.Encode(doc); encErr != nil {
				f.Close()
				os.Remove(path)
				return nil, encErr
			}
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
		if !lockIsStale(path) {
			return nil, fmt.Errorf("lock held at %s: %w", path, gerrors.ErrProjectLocked)
		}
		os.Remove(path)
	}
	return nil, fmt.Errorf("lock held at %s: %w", path, gerrors.ErrProjectLocked)
}

// lockIsStale reports whether the existing lock at path belongs to a dead
// process or is older than the staleness horizon. An unreadable lock file
// counts as stale.
func lockIsStale(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	var doc lockDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return true
	}
	if time.Since(doc.AcquiredAt) > lockStaleAfter {
		return true
	}
	if doc.PID <= 0 {
		return true
	}
	// Signal 0 probes liveness without delivering anything.
	proc, err := os.FindProcess(doc.PID)
	if err != nil {
		return true
	}
	return proc.Signal(syscall.Signal(0)) != nil
}
