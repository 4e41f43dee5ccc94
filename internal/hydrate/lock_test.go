package hydrate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/phantomsec/gibson/internal/errors"
)

func TestAcquireLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".hydrate.lock")

	release, err := acquireLock(path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	// a second acquisition by a live process is rejected
	_, err = acquireLock(path)
	require.ErrorIs(t, err, gerrors.ErrProjectLocked)

	release()
	assert.NoFileExists(t, path)

	// reacquirable after release
	release2, err := acquireLock(path)
	require.NoError(t, err)
	release2()
}

func TestAcquireLockStealsDeadHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".hydrate.lock")

	// PID 1 is never signalable by an unprivileged test process, so use an
	// implausible large PID instead.
	doc := lockDoc{PID: 999999999, Hostname: "gone", AcquiredAt: time.Now().UTC()}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	release, err := acquireLock(path)
	require.NoError(t, err)
	release()
}

func TestAcquireLockStealsStaleHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".hydrate.lock")

	doc := lockDoc{PID: os.Getpid(), Hostname: "here", AcquiredAt: time.Now().Add(-3 * time.Hour)}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	release, err := acquireLock(path)
	require.NoError(t, err)
	release()
}

func TestAcquireLockStealsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".hydrate.lock")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	release, err := acquireLock(path)
	require.NoError(t, err)
	release()
}
