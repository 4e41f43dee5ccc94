package index

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phantomsec/gibson/internal/layout"
)

func newTestStore(t *testing.T) (*Store, layout.Layout) {
	t.Helper()
	l := layout.New(t.TempDir())
	require.NoError(t, l.EnsureInitialized())
	s := NewStore(l, zerolog.Nop())
	require.NoError(t, s.EnsureInitialized())
	return s, l
}

func TestAdd_OverwritesPriorEntry(t *testing.T) {
	s, _ := newTestStore(t)
	id := layout.Identity{Namespace: "expressjs", Name: "express"}

	require.NoError(t, s.Add(id, "expressjs/express", StatusBootstrapping))
	require.NoError(t, s.UpdateStatus(id, StatusReady))

	// Re-hydration: Add again resets the entry, including last_analyzed.
	require.NoError(t, s.Add(id, "https://github.com/expressjs/express", StatusBootstrapping))
	entry, err := s.Get(id)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, StatusBootstrapping, entry.Status)
	assert.Equal(t, "https://github.com/expressjs/express", entry.Source)
	assert.Nil(t, entry.LastAnalyzed)
}

func TestUpdateStatus_SetsLastAnalyzed(t *testing.T) {
	s, _ := newTestStore(t)
	id := layout.Identity{Namespace: "local", Name: "myproj"}

	require.NoError(t, s.Add(id, "/tmp/myproj", StatusBootstrapping))
	require.NoError(t, s.UpdateStatus(id, StatusReady))

	entry, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, entry.Status)
	assert.NotNil(t, entry.LastAnalyzed)
}

func TestUpdateStatus_MissingIndexIsNoop(t *testing.T) {
	l := layout.New(t.TempDir())
	s := NewStore(l, zerolog.Nop())
	// No EnsureInitialized: the index file does not exist.
	err := s.UpdateStatus(layout.Identity{Namespace: "a", Name: "b"}, StatusReady)
	assert.NoError(t, err)
}

func TestRemove_ClearsActivePointer(t *testing.T) {
	s, _ := newTestStore(t)
	id := layout.Identity{Namespace: "expressjs", Name: "express"}

	require.NoError(t, s.Add(id, "expressjs/express", StatusReady))
	require.NoError(t, s.SetActive(id))

	active, err := s.Active()
	require.NoError(t, err)
	assert.Equal(t, "expressjs/express", active)

	require.NoError(t, s.Remove(id))
	active, err = s.Active()
	require.NoError(t, err)
	assert.Equal(t, "", active)
}

func TestRemove_OtherActiveSurvives(t *testing.T) {
	s, _ := newTestStore(t)
	a := layout.Identity{Namespace: "expressjs", Name: "express"}
	b := layout.Identity{Namespace: "local", Name: "myproj"}

	require.NoError(t, s.Add(a, "expressjs/express", StatusReady))
	require.NoError(t, s.Add(b, "/tmp/myproj", StatusReady))
	require.NoError(t, s.SetActive(a))
	require.NoError(t, s.Remove(b))

	active, err := s.Active()
	require.NoError(t, err)
	assert.Equal(t, "expressjs/express", active)
}

func TestList_DirectoryIsAuthoritative(t *testing.T) {
	s, l := newTestStore(t)
	a := layout.Identity{Namespace: "expressjs", Name: "express"}

	// Directory exists but the index was never written: must still list.
	require.NoError(t, os.MkdirAll(l.ProjectDir(a), 0o755))

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []layout.Identity{a}, ids)

	// Index entry without a directory must not appear.
	ghost := layout.Identity{Namespace: "ghost", Name: "project"}
	require.NoError(t, s.Add(ghost, "ghost/project", StatusReady))
	ids, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []layout.Identity{a}, ids)
}
