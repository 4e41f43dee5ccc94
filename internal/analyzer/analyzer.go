// Package analyzer defines the analyzer contract, a registry of built-in
// analyzers, and the bounded worker pool that executes them. Analyzers are
// independent: they read the cloned repository, write disjoint output
// files, and never see each other.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Request is the invocation contract: a repository to read and a directory
// to write `<name>.json` into.
type Request struct {
	RepoPath  string
	OutputDir string
}

// Report is what an analyzer hands back to the runner. Summary is the raw
// `summary` object from the output document; nil means the analyzer
// produced no usable summary, which is recorded but never fatal.
type Report struct {
	Partial bool
	Summary json.RawMessage
}

// Analyzer is one independent static-analysis routine.
type Analyzer interface {
	// Name is the analyzer identifier and output file stem.
	Name() string

	// Version identifies the analyzer implementation in the manifest.
	Version() string

	// Run executes the analysis. It must write
	// <OutputDir>/<Name>.json containing at least a `summary` object.
	// A returned error marks the analyzer failed; it never aborts the
	// hydration.
	Run(ctx context.Context, req Request) (Report, error)
}

// document is the envelope every built-in analyzer writes. `summary` is
// the only key the orchestrator contractually reads.
type document struct {
	Analyzer    string          `json:"analyzer"`
	Version     string          `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
	Summary     json.RawMessage `json:"summary"`
	Findings    any             `json:"findings,omitempty"`
}

// writeOutput marshals the envelope for name into the output directory and
// returns the raw summary for the manifest.
func writeOutput(req Request, name, version string, summary any, findings any) (json.RawMessage, error) {
	rawSummary, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}
	doc := document{
		Analyzer:    name,
		Version:     version,
		GeneratedAt: time.Now().UTC(),
		Summary:     rawSummary,
		Findings:    findings,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding output: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(req.OutputDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return rawSummary, nil
}

// ReadSummary extracts the `summary` object from an analyzer output file.
// A missing or malformed document yields nil, never an error: the contract
// treats bad output as "no summary", not as a crash.
func ReadSummary(outputDir, name string) json.RawMessage {
	data, err := os.ReadFile(filepath.Join(outputDir, name+".json"))
	if err != nil {
		return nil
	}
	var doc struct {
		Summary json.RawMessage `json:"summary"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	if len(doc.Summary) == 0 || string(doc.Summary) == "null" {
		return nil
	}
	return doc.Summary
}
