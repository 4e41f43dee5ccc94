// Package config holds gibson configuration: environment variables for the
// process-level knobs and a YAML file at the storage root for profiles and
// analyzer definitions.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Env holds configuration loaded from environment variables.
type Env struct {
	// Home is the storage root. Empty means ~/.gibson.
	Home     string `envconfig:"GIBSON_HOME"`
	LogLevel string `envconfig:"GIBSON_LOG_LEVEL" default:"info"`

	// GitHubToken enables private-repository cloning and authenticated
	// remote-head lookups. The core never requires it.
	GitHubToken string `envconfig:"GITHUB_TOKEN"`

	// AnthropicKey is consumed only by optional LLM-enhanced analyzer
	// variants, never by the core.
	AnthropicKey string `envconfig:"ANTHROPIC_API_KEY"`

	ParallelAnalyzers int           `envconfig:"GIBSON_PARALLEL_ANALYZERS" default:"4"`
	AnalyzerTimeout   time.Duration `envconfig:"GIBSON_ANALYZER_TIMEOUT" default:"5m"`
	ServeAddr         string        `envconfig:"GIBSON_SERVE_ADDR" default:":8470"`
}

// LoadEnv reads configuration from environment variables.
func LoadEnv() (*Env, error) {
	var e Env
	if err := envconfig.Process("", &e); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &e, nil
}

// GitHubEnabled returns true if a GitHub token is configured.
func (e *Env) GitHubEnabled() bool { return e.GitHubToken != "" }

// File is the YAML configuration document stored at the root of GIBSON_HOME.
// Profiles map mode names to ordered analyzer lists; the orchestrator treats
// this mapping as pluggable configuration, not hard-coded logic.
type File struct {
	Version   string              `yaml:"version"`
	Profiles  map[string]Profile  `yaml:"profiles"`
	Analyzers map[string]Analyzer `yaml:"analyzers"`
	Settings  Settings            `yaml:"settings"`
}

// Profile names an ordered subset of analyzers.
type Profile struct {
	Description string   `yaml:"description"`
	Analyzers   []string `yaml:"analyzers"`
}

// Analyzer configures one analyzer. A non-empty Command makes it an external
// subprocess analyzer; otherwise the name must match a registered built-in.
type Analyzer struct {
	Description    string   `yaml:"description"`
	Command        string   `yaml:"command,omitempty"`
	Args           []string `yaml:"args,omitempty"`
	Version        string   `yaml:"version,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
}

// Settings contains global tunables.
type Settings struct {
	DefaultProfile    string `yaml:"default_profile"`
	CloneDepth        int    `yaml:"clone_depth"` // 0 means full history
	ParallelAnalyzers int    `yaml:"parallel_analyzers"`

	// Staleness thresholds for `gibson status`.
	FreshMaxHours    int `yaml:"fresh_max_hours"`
	StaleMaxDays     int `yaml:"stale_max_days"`
	VeryStaleMaxDays int `yaml:"very_stale_max_days"`

	// DeniedLicenses overrides the licenses analyzer's denied list.
	// Empty keeps the built-in default.
	DeniedLicenses []string `yaml:"denied_licenses,omitempty"`
}

// Default returns the configuration written on first initialization.
func Default() *File {
	return &File{
		Version: "1",
		Profiles: map[string]Profile{
			"quick": {
				Description: "Fast local-only triage",
				Analyzers:   []string{"technology", "dependencies"},
			},
			"standard": {
				Description: "Quick plus license and secret checks",
				Analyzers:   []string{"technology", "dependencies", "licenses", "secrets"},
			},
			"advanced": {
				Description: "Standard plus vulnerability lookup",
				Analyzers:   []string{"technology", "dependencies", "licenses", "secrets", "vulnerabilities"},
			},
			"deep": {
				Description: "Everything, full history",
				Analyzers:   []string{"technology", "dependencies", "licenses", "secrets", "vulnerabilities"},
			},
			"security": {
				Description: "Security-focused subset",
				Analyzers:   []string{"dependencies", "secrets", "vulnerabilities"},
			},
		},
		Analyzers: map[string]Analyzer{
			"technology":      {Description: "Language and framework detection"},
			"dependencies":    {Description: "Dependency extraction from manifests"},
			"licenses":        {Description: "License detection and policy check"},
			"secrets":         {Description: "Credential and secret heuristics"},
			"vulnerabilities": {Description: "Known-vulnerability lookup via OSV.dev", TimeoutSeconds: 300},
		},
		Settings: Settings{
			DefaultProfile:    "standard",
			CloneDepth:        0,
			ParallelAnalyzers: 4,
			FreshMaxHours:     24,
			StaleMaxDays:      7,
			VeryStaleMaxDays:  30,
		},
	}
}

// Load reads the YAML configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if f.Settings.DefaultProfile == "" {
		f.Settings.DefaultProfile = "standard"
	}
	if f.Settings.ParallelAnalyzers == 0 {
		f.Settings.ParallelAnalyzers = 4
	}
	return &f, nil
}

// Save writes the configuration file.
func (f *File) Save(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ProfileAnalyzers returns the ordered analyzer list for a profile.
func (f *File) ProfileAnalyzers(profile string) ([]string, error) {
	p, ok := f.Profiles[profile]
	if !ok {
		return nil, fmt.Errorf("unknown profile: %s", profile)
	}
	return p.Analyzers, nil
}

// ProfileNames returns the sorted profile names, for help output.
func (f *File) ProfileNames() []string {
	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AnalyzerTimeout returns the configured timeout for an analyzer, or def.
func (f *File) AnalyzerTimeout(name string, def time.Duration) time.Duration {
	if a, ok := f.Analyzers[name]; ok && a.TimeoutSeconds > 0 {
		return time.Duration(a.TimeoutSeconds) * time.Second
	}
	return def
}
