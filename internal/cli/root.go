// Package cli wires the cobra command tree around the hydration pipeline.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/phantomsec/gibson/internal/analyzer"
	"github.com/phantomsec/gibson/internal/config"
	"github.com/phantomsec/gibson/internal/github"
	"github.com/phantomsec/gibson/internal/hydrate"
	"github.com/phantomsec/gibson/internal/layout"
	"github.com/phantomsec/gibson/internal/metrics"
	"github.com/phantomsec/gibson/internal/osv"
	"github.com/phantomsec/gibson/internal/store"
)

// app holds the assembled collaborators shared by all commands.
type app struct {
	env     *config.Env
	cfg     *config.File
	layout  layout.Layout
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// loadApp builds the shared application state from the environment and the
// YAML config at the storage root, writing defaults on first run.
func loadApp() (*app, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(env.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	l := layout.New(env.Home)
	if err := l.EnsureInitialized(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(l.ConfigPath())
	if os.IsNotExist(err) {
		cfg = config.Default()
		if saveErr := cfg.Save(l.ConfigPath()); saveErr != nil {
			return nil, saveErr
		}
	} else if err != nil {
		return nil, err
	}

	return &app{
		env:     env,
		cfg:     cfg,
		layout:  l,
		logger:  logger,
		metrics: metrics.New(),
	}, nil
}

// registry assembles the built-in analyzers plus any external commands
// declared in the config file.
func (a *app) registry() (*analyzer.Registry, error) {
	reg := analyzer.Builtin(osv.NewClient(a.logger), a.cfg.Settings.DeniedLicenses, a.logger)
	for name, def := range a.cfg.Analyzers {
		if def.Command == "" {
			continue
		}
		if _, exists := reg.Get(name); exists {
			continue
		}
		if err := reg.Register(analyzer.NewExec(name, def.Version, def.Command, def.Args...)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// orchestrator builds the hydration orchestrator with the optional
// collaborators the environment enables.
func (a *app) orchestrator() (*hydrate.Orchestrator, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}

	opts := hydrate.Options{Metrics: a.metrics}
	if a.env.GitHubEnabled() {
		opts.GitHub = github.NewClient(a.env.GitHubToken, a.logger)
	}
	if db, err := store.New(a.layout.DBPath(), a.logger); err == nil {
		opts.DB = db
	} else {
		// The SQLite mirror is a convenience view; the JSON state on
		// disk stays authoritative without it.
		a.logger.Warn().Err(err).Msg("query index unavailable")
	}

	return hydrate.NewOrchestrator(a.layout, a.cfg, a.env, reg, opts, a.logger), nil
}

// resolveTarget maps a target argument to an identity; an empty target
// falls back to the active project.
func (a *app) resolveTarget(o *hydrate.Orchestrator, target string) (layout.Identity, error) {
	if target != "" {
		return layout.DeriveIdentity(target), nil
	}
	active, err := o.Index().Active()
	if err != nil {
		return layout.Identity{}, err
	}
	if active == "" {
		return layout.Identity{}, fmt.Errorf("no target given and no active project set")
	}
	return layout.ParseIdentity(active)
}

// RootCmd builds the gibson command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gibson",
		Short:         "Acquire repositories and run analysis pipelines over them",
		Long:          "gibson hydrates a repository into a managed project directory,\nruns a configurable set of analyzers against it, and maintains an\nanalysis manifest recording what ran, what it found, and the folded\nrisk level.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(hydrateCmd())
	root.AddCommand(listCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(refreshCmd())
	root.AddCommand(cleanCmd())
	root.AddCommand(useCmd())
	root.AddCommand(serveCmd())

	return root
}
