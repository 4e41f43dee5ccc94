package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	l := New("/data/gibson")
	id := Identity{Namespace: "expressjs", Name: "express"}

	assert.Equal(t, "/data/gibson/projects/expressjs/express", l.ProjectDir(id))
	assert.Equal(t, "/data/gibson/projects/expressjs/express/repo", l.RepoDir(id))
	assert.Equal(t, "/data/gibson/projects/expressjs/express/analysis", l.AnalysisDir(id))
	assert.Equal(t, "/data/gibson/projects/expressjs/express/analysis/manifest.json", l.ManifestPath(id))
	assert.Equal(t, "/data/gibson/projects/expressjs/express/project.json", l.MetadataPath(id))
	assert.Equal(t, "/data/gibson/index.json", l.IndexPath())
}

func TestEnsureInitialized_Idempotent(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "gibson"))
	require.NoError(t, l.EnsureInitialized())
	require.NoError(t, l.EnsureInitialized())

	info, err := os.Stat(l.ProjectsDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListProjectDirs(t *testing.T) {
	l := New(t.TempDir())
	require.NoError(t, l.EnsureInitialized())

	ids, err := l.ListProjectDirs()
	require.NoError(t, err)
	assert.Empty(t, ids)

	a := Identity{Namespace: "expressjs", Name: "express"}
	b := Identity{Namespace: "local", Name: "myproj"}
	require.NoError(t, os.MkdirAll(l.ProjectDir(a), 0o755))
	require.NoError(t, os.MkdirAll(l.ProjectDir(b), 0o755))
	// A stray file at namespace level must not be listed.
	require.NoError(t, os.WriteFile(filepath.Join(l.ProjectsDir(), "stray.txt"), []byte("x"), 0o644))

	ids, err = l.ListProjectDirs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []Identity{a, b}, ids)

	// Re-listing without filesystem changes returns the same set.
	again, err := l.ListProjectDirs()
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, again)
}

func TestWriteJSONAtomic_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	in := map[string]int{"a": 1}
	require.NoError(t, WriteJSONAtomic(path, in))

	var out map[string]int
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, in, out)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
