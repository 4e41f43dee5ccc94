package hydrate

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phantomsec/gibson/internal/analyzer"
	"github.com/phantomsec/gibson/internal/config"
	gerrors "github.com/phantomsec/gibson/internal/errors"
	"github.com/phantomsec/gibson/internal/index"
	"github.com/phantomsec/gibson/internal/layout"
	"github.com/phantomsec/gibson/internal/manifest"
	"github.com/phantomsec/gibson/internal/metrics"
)

type fakeAnalyzer struct {
	name    string
	summary string
	fail    bool
}

func (f fakeAnalyzer) Name() string    { return f.name }
func (f fakeAnalyzer) Version() string { return "test" }

func (f fakeAnalyzer) Run(ctx context.Context, req analyzer.Request) (analyzer.Report, error) {
	if f.fail {
		return analyzer.Report{}, assert.AnError
	}
	return analyzer.Report{Summary: json.RawMessage(f.summary)}, nil
}

func testConfig() *config.File {
	return &config.File{
		Version: "1",
		Profiles: map[string]config.Profile{
			"quick": {Analyzers: []string{"alpha", "beta"}},
		},
	}
}

func testEnv() *config.Env {
	return &config.Env{ParallelAnalyzers: 2, AnalyzerTimeout: time.Minute}
}

func testOrchestrator(t *testing.T, analyzers ...analyzer.Analyzer) (*Orchestrator, layout.Layout) {
	t.Helper()
	l := layout.New(t.TempDir())
	reg := analyzer.NewRegistry()
	for _, a := range analyzers {
		require.NoError(t, reg.Register(a))
	}
	o := NewOrchestrator(l, testConfig(), testEnv(), reg, Options{Metrics: metrics.New()}, zerolog.Nop())
	return o, l
}

func sourceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"dependencies":{}}`), 0o644))
	return dir
}

func TestHydrateLocalSource(t *testing.T) {
	o, l := testOrchestrator(t,
		fakeAnalyzer{name: "alpha", summary: `{"critical":1,"high":2}`},
		fakeAnalyzer{name: "beta", summary: `{"total_dependencies":12,"direct_dependencies":4}`},
	)
	src := sourceDir(t)

	res, err := o.Hydrate(context.Background(), Request{Source: src, Mode: "quick"})
	require.NoError(t, err)
	assert.Equal(t, "local", res.Identity.Namespace)

	// repo copied, metadata and manifest written
	assert.FileExists(t, filepath.Join(l.RepoDir(res.Identity), "package.json"))
	assert.FileExists(t, l.MetadataPath(res.Identity))
	assert.FileExists(t, l.ManifestPath(res.Identity))

	m := res.Manifest
	require.NotNil(t, m.CompletedAt)
	require.Len(t, m.Analyses, 2)
	assert.Equal(t, manifest.StatusComplete, m.Analyses["alpha"].Status)
	assert.Equal(t, manifest.RiskCritical, m.Summary.RiskLevel)
	assert.Equal(t, 12, m.Summary.TotalDependencies)

	// index marked ready with active pointer
	entry, err := o.Index().Get(res.Identity)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, index.StatusReady, entry.Status)
	assert.NotNil(t, entry.LastAnalyzed)

	active, err := o.Index().Active()
	require.NoError(t, err)
	assert.Equal(t, res.Identity.String(), active)

	// detection picked up the npm marker
	assert.Contains(t, res.Metadata.DetectedType.PackageManagers, "npm")
	assert.Empty(t, res.Metadata.Commit)
}

func TestHydrateExistingProjectRejected(t *testing.T) {
	o, l := testOrchestrator(t, fakeAnalyzer{name: "alpha", summary: `{}`}, fakeAnalyzer{name: "beta", summary: `{}`})
	src := sourceDir(t)

	res, err := o.Hydrate(context.Background(), Request{Source: src, Mode: "quick"})
	require.NoError(t, err)

	before, err := os.ReadFile(l.ManifestPath(res.Identity))
	require.NoError(t, err)

	_, err = o.Hydrate(context.Background(), Request{Source: src, Mode: "quick"})
	require.ErrorIs(t, err, gerrors.ErrProjectExists)

	// the rejected run must not have touched the manifest
	after, err := os.ReadFile(l.ManifestPath(res.Identity))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestHydrateForceReplaces(t *testing.T) {
	o, _ := testOrchestrator(t, fakeAnalyzer{name: "alpha", summary: `{}`}, fakeAnalyzer{name: "beta", summary: `{}`})
	src := sourceDir(t)

	first, err := o.Hydrate(context.Background(), Request{Source: src, Mode: "quick"})
	require.NoError(t, err)

	second, err := o.Hydrate(context.Background(), Request{Source: src, Mode: "quick", Force: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.Manifest.ScanID, second.Manifest.ScanID)
}

func TestHydrateAnalyzerFailureIsNotFatal(t *testing.T) {
	o, _ := testOrchestrator(t,
		fakeAnalyzer{name: "alpha", fail: true},
		fakeAnalyzer{name: "beta", summary: `{"medium":7}`},
	)

	res, err := o.Hydrate(context.Background(), Request{Source: sourceDir(t), Mode: "quick"})
	require.NoError(t, err)

	m := res.Manifest
	assert.Equal(t, manifest.StatusFailed, m.Analyses["alpha"].Status)
	assert.Equal(t, manifest.StatusComplete, m.Analyses["beta"].Status)
	require.NotNil(t, m.CompletedAt)
	assert.Equal(t, manifest.RiskMedium, m.Summary.RiskLevel)

	entry, err := o.Index().Get(res.Identity)
	require.NoError(t, err)
	assert.Equal(t, index.StatusReady, entry.Status)
}

func TestHydrateCloneFailureIsFatal(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	o, _ := testOrchestrator(t, fakeAnalyzer{name: "alpha", summary: `{}`}, fakeAnalyzer{name: "beta", summary: `{}`})

	src := "file://" + filepath.Join(t.TempDir(), "does-not-exist.git")
	_, err := o.Hydrate(context.Background(), Request{Source: src, Mode: "quick"})
	require.ErrorIs(t, err, gerrors.ErrCloneFailed)

	// A failed acquisition leaves no ghost: no index entry, no directory.
	id := layout.DeriveIdentity(src)
	entry, getErr := o.Index().Get(id)
	require.NoError(t, getErr)
	assert.Nil(t, entry)
	assert.NoDirExists(t, o.layout.ProjectDir(id))
}

func TestHydrateUnknownMode(t *testing.T) {
	o, _ := testOrchestrator(t, fakeAnalyzer{name: "alpha", summary: `{}`})

	_, err := o.Hydrate(context.Background(), Request{Source: sourceDir(t), Mode: "nonsense"})
	assert.Error(t, err)
}

func TestRemoveProject(t *testing.T) {
	o, l := testOrchestrator(t, fakeAnalyzer{name: "alpha", summary: `{}`}, fakeAnalyzer{name: "beta", summary: `{}`})

	res, err := o.Hydrate(context.Background(), Request{Source: sourceDir(t), Mode: "quick"})
	require.NoError(t, err)

	require.NoError(t, o.Remove(res.Identity))
	assert.NoDirExists(t, l.ProjectDir(res.Identity))

	entry, err := o.Index().Get(res.Identity)
	require.NoError(t, err)
	assert.Nil(t, entry)

	// active pointer must not dangle
	active, err := o.Index().Active()
	require.NoError(t, err)
	assert.Empty(t, active)

	require.ErrorIs(t, o.Remove(res.Identity), gerrors.ErrProjectNotFound)
}
