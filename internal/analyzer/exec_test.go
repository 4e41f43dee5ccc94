package analyzer

import (
	"context"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecAnalyzerContract(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	req := newRequest(t)

	// $0 is the repo path, $1 the output dir
	script := `printf '{"analyzer":"tool","summary":{"total_dependencies":3}}' > "$1/tool.json"`
	exec := NewExec("tool", "0.1.0", "sh", "-c", script)

	report, err := exec.Run(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, report.Summary)

	var summary map[string]int
	require.NoError(t, json.Unmarshal(report.Summary, &summary))
	assert.Equal(t, 3, summary["total_dependencies"])
}

func TestExecAnalyzerNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	req := newRequest(t)
	exec := NewExec("tool", "0.1.0", "sh", "-c", `echo boom >&2; exit 3`)

	_, err := exec.Run(context.Background(), req)
	assert.Error(t, err)
}

func TestExecAnalyzerMalformedOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	req := newRequest(t)
	exec := NewExec("tool", "0.1.0", "sh", "-c", `printf 'not json' > "$1/tool.json"`)

	report, err := exec.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, report.Summary)
}

func TestExecAnalyzerPartialStatus(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	req := newRequest(t)
	script := `printf '{"status":"partial","summary":{"total":1}}' > "$1/tool.json"`
	exec := NewExec("tool", "0.1.0", "sh", "-c", script)

	report, err := exec.Run(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, report.Partial)
	assert.NotNil(t, report.Summary)
}
