package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	gerrors "github.com/phantomsec/gibson/internal/errors"
)

// Exec runs an external analyzer binary under the standard invocation
// contract: `<command> <repoPath> <outputDir>`. The process is expected
// to write <outputDir>/<name>.json itself; a non-zero exit marks the
// analyzer failed, and a missing or malformed output document degrades
// to a nil summary.
type Exec struct {
	name    string
	version string
	command string
	args    []string
}

func NewExec(name, version, command string, args ...string) *Exec {
	return &Exec{name: name, version: version, command: command, args: args}
}

func (e *Exec) Name() string    { return e.name }
func (e *Exec) Version() string { return e.version }

func (e *Exec) Run(ctx context.Context, req Request) (Report, error) {
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return Report{}, err
	}

	args := append(append([]string{}, e.args...), req.RepoPath, req.OutputDir)
	cmd := exec.CommandContext(ctx, e.command, args...)
	cmd.Dir = req.RepoPath

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return Report{}, fmt.Errorf("analyzer %s: %w", e.name, gerrors.ErrTimeout)
		}
		return Report{}, fmt.Errorf("analyzer %s: %w: %s", e.name, err, firstLine(out))
	}

	return Report{
		Partial: outputIsPartial(req.OutputDir, e.name),
		Summary: ReadSummary(req.OutputDir, e.name),
	}, nil
}

// outputIsPartial checks whether the output document declared itself
// partially complete via a top-level `status` field.
func outputIsPartial(outputDir, name string) bool {
	data, err := os.ReadFile(filepath.Join(outputDir, name+".json"))
	if err != nil {
		return false
	}
	var doc struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}
	return doc.Status == "partial"
}

func firstLine(out []byte) string {
	for i, b := range out {
		if b == '\n' {
			return string(out[:i])
		}
	}
	return string(out)
}
