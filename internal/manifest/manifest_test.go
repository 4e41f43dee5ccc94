package manifest

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phantomsec/gibson/internal/layout"
)

func newTestStore(t *testing.T) (*Store, layout.Identity) {
	t.Helper()
	l := layout.New(t.TempDir())
	id := layout.Identity{Namespace: "expressjs", Name: "express"}
	require.NoError(t, l.EnsureInitialized())
	require.NoError(t, os.MkdirAll(l.AnalysisDir(id), 0o755))
	return NewStore(l, zerolog.Nop()), id
}

func TestInit_ReplacesPriorManifest(t *testing.T) {
	s, id := newTestStore(t)

	_, err := s.Init(id, "abc123", "standard")
	require.NoError(t, err)
	require.NoError(t, s.RecordStart(id, "secrets", "secrets", "1.0.0"))

	m2, err := s.Init(id, "def456", "quick")
	require.NoError(t, err)
	assert.Empty(t, m2.Analyses)
	assert.Equal(t, "def456", m2.AnalyzedCommit)
	assert.Equal(t, "quick", m2.Mode)
	assert.Nil(t, m2.CompletedAt)
	assert.NotEmpty(t, m2.ScanID)

	loaded, err := s.Load(id)
	require.NoError(t, err)
	assert.Empty(t, loaded.Analyses)
}

func TestRecordLifecycle(t *testing.T) {
	s, id := newTestStore(t)
	_, err := s.Init(id, "abc123", "standard")
	require.NoError(t, err)

	require.NoError(t, s.RecordStart(id, "dependencies", "dependencies", "1.2.0"))
	m, err := s.Load(id)
	require.NoError(t, err)
	rec := m.Analyses["dependencies"]
	require.NotNil(t, rec)
	assert.Equal(t, StatusRunning, rec.Status)
	assert.Nil(t, rec.CompletedAt)
	assert.Nil(t, rec.DurationMS)
	assert.Equal(t, "dependencies.json", rec.OutputFile)

	summary := json.RawMessage(`{"total_dependencies": 12, "direct_dependencies": 3}`)
	require.NoError(t, s.RecordComplete(id, "dependencies", StatusComplete, 1500*time.Millisecond, summary))

	m, err = s.Load(id)
	require.NoError(t, err)
	rec = m.Analyses["dependencies"]
	assert.Equal(t, StatusComplete, rec.Status)
	require.NotNil(t, rec.CompletedAt)
	require.NotNil(t, rec.DurationMS)
	assert.Equal(t, int64(1500), *rec.DurationMS)
	assert.JSONEq(t, string(summary), string(rec.Summary))
}

func TestRecordComplete_RejectsRunning(t *testing.T) {
	s, id := newTestStore(t)
	_, err := s.Init(id, "abc", "quick")
	require.NoError(t, err)
	require.NoError(t, s.RecordStart(id, "secrets", "secrets", "1.0.0"))

	err = s.RecordComplete(id, "secrets", StatusRunning, time.Second, nil)
	assert.Error(t, err)
}

func TestRecordComplete_NilSummaryLeavesExisting(t *testing.T) {
	s, id := newTestStore(t)
	_, err := s.Init(id, "abc", "quick")
	require.NoError(t, err)
	require.NoError(t, s.RecordStart(id, "secrets", "secrets", "1.0.0"))
	require.NoError(t, s.RecordComplete(id, "secrets", StatusFailed, time.Second, nil))

	m, err := s.Load(id)
	require.NoError(t, err)
	assert.Nil(t, m.Analyses["secrets"].Summary)
	assert.Equal(t, StatusFailed, m.Analyses["secrets"].Status)
}

func TestRecordStart_ResetsEntry(t *testing.T) {
	s, id := newTestStore(t)
	_, err := s.Init(id, "abc", "quick")
	require.NoError(t, err)

	require.NoError(t, s.RecordStart(id, "secrets", "secrets", "1.0.0"))
	require.NoError(t, s.RecordComplete(id, "secrets", StatusFailed, time.Second, nil))
	require.NoError(t, s.RecordStart(id, "secrets", "secrets", "1.0.0"))

	m, err := s.Load(id)
	require.NoError(t, err)
	rec := m.Analyses["secrets"]
	assert.Equal(t, StatusRunning, rec.Status)
	assert.Nil(t, rec.CompletedAt)
}

func TestFinalize_SetsCompletedAtRegardlessOfOutcomes(t *testing.T) {
	s, id := newTestStore(t)
	_, err := s.Init(id, "abc", "standard")
	require.NoError(t, err)

	require.NoError(t, s.RecordStart(id, "a", "a", "1"))
	require.NoError(t, s.RecordComplete(id, "a", StatusComplete, time.Second, nil))
	require.NoError(t, s.RecordStart(id, "b", "b", "1"))
	require.NoError(t, s.RecordComplete(id, "b", StatusFailed, time.Second, nil))
	require.NoError(t, s.RecordStart(id, "c", "c", "1"))
	require.NoError(t, s.RecordComplete(id, "c", StatusPartial, time.Second, nil))

	require.NoError(t, s.Finalize(id))

	m, err := s.Load(id)
	require.NoError(t, err)
	require.NotNil(t, m.CompletedAt)
	for name, rec := range m.Analyses {
		assert.True(t, rec.Status.Terminal(), name)
	}
}

func TestUpdateSummary(t *testing.T) {
	s, id := newTestStore(t)
	_, err := s.Init(id, "abc", "standard")
	require.NoError(t, err)

	sum := Summary{
		RiskLevel:            RiskHigh,
		TotalDependencies:    42,
		DirectDependencies:   7,
		TotalVulnerabilities: 3,
		LicenseStatus:        "clean",
	}
	require.NoError(t, s.UpdateSummary(id, sum))

	m, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, sum, m.Summary)
}
