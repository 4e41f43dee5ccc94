package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ProfilesCoverKnownModes(t *testing.T) {
	f := Default()
	for _, mode := range []string{"quick", "standard", "advanced", "deep", "security"} {
		analyzers, err := f.ProfileAnalyzers(mode)
		require.NoError(t, err, mode)
		assert.NotEmpty(t, analyzers, mode)
	}
	assert.Equal(t, []string{"technology", "dependencies"}, f.Profiles["quick"].Analyzers)
}

func TestProfileAnalyzers_Unknown(t *testing.T) {
	f := Default()
	_, err := f.ProfileAnalyzers("nope")
	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	orig := Default()
	orig.Settings.DefaultProfile = "quick"
	require.NoError(t, orig.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "quick", loaded.Settings.DefaultProfile)
	assert.Equal(t, orig.Profiles["security"].Analyzers, loaded.Profiles["security"].Analyzers)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	f := &File{Version: "1"}
	require.NoError(t, f.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "standard", loaded.Settings.DefaultProfile)
	assert.Equal(t, 4, loaded.Settings.ParallelAnalyzers)
}

func TestAnalyzerTimeout(t *testing.T) {
	f := Default()
	assert.Equal(t, 300*time.Second, f.AnalyzerTimeout("vulnerabilities", time.Minute))
	assert.Equal(t, time.Minute, f.AnalyzerTimeout("secrets", time.Minute))
	assert.Equal(t, time.Minute, f.AnalyzerTimeout("unknown", time.Minute))
}
