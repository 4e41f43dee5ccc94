// Package hydrate orchestrates the project lifecycle: acquire, detect,
// analyze, summarize. One hydration run drives a single project from a
// source string to a finalized analysis manifest.
package hydrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/phantomsec/gibson/internal/analyzer"
	"github.com/phantomsec/gibson/internal/config"
	"github.com/phantomsec/gibson/internal/detect"
	gerrors "github.com/phantomsec/gibson/internal/errors"
	"github.com/phantomsec/gibson/internal/github"
	"github.com/phantomsec/gibson/internal/index"
	"github.com/phantomsec/gibson/internal/layout"
	"github.com/phantomsec/gibson/internal/manifest"
	"github.com/phantomsec/gibson/internal/metrics"
	"github.com/phantomsec/gibson/internal/project"
	"github.com/phantomsec/gibson/internal/store"
	"github.com/phantomsec/gibson/internal/vcs"
)

// Phase is the observable progress state of a hydration run.
type Phase string

const (
	PhaseRequested        Phase = "requested"
	PhaseCloning          Phase = "cloning"
	PhaseMetadataDetected Phase = "metadata_detected"
	PhaseAnalyzersRunning Phase = "analyzers_running"
	PhaseSummarizing      Phase = "summarizing"
	PhaseFinalized        Phase = "finalized"
)

// Request describes one hydration run.
type Request struct {
	Source string
	Mode   string
	Branch string
	Depth  int
	Force  bool
}

// Result is the outcome of a successful hydration.
type Result struct {
	Identity layout.Identity
	Manifest *manifest.Manifest
	Metadata *project.Metadata
}

// Orchestrator wires the storage layout, index, manifest store, and
// analyzer pool into the hydration state machine. The SQLite store,
// GitHub client, and metrics are optional; nil disables them.
type Orchestrator struct {
	layout    layout.Layout
	index     *index.Store
	manifests *manifest.Store
	registry  *analyzer.Registry
	cfg       *config.File
	env       *config.Env
	github    *github.Client
	db        *store.Store
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// Options carries the optional collaborators.
type Options struct {
	GitHub  *github.Client
	DB      *store.Store
	Metrics *metrics.Metrics
}

func NewOrchestrator(l layout.Layout, cfg *config.File, env *config.Env, registry *analyzer.Registry, opts Options, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		layout:    l,
		index:     index.NewStore(l, logger),
		manifests: manifest.NewStore(l, logger),
		registry:  registry,
		cfg:       cfg,
		env:       env,
		github:    opts.GitHub,
		db:        opts.DB,
		metrics:   opts.Metrics,
		logger:    logger.With().Str("component", "hydrate").Logger(),
	}
}

// Index exposes the orchestrator's index store for read-side callers.
func (o *Orchestrator) Index() *index.Store { return o.index }

// Manifests exposes the manifest store for read-side callers.
func (o *Orchestrator) Manifests() *manifest.Store { return o.manifests }

// Hydrate runs the full pipeline for req. Clone failures are fatal for
// the run; analyzer failures are recorded in the manifest and never abort
// the remaining analyzers.
func (o *Orchestrator) Hydrate(ctx context.Context, req Request) (*Result, error) {
	id := layout.DeriveIdentity(req.Source)
	log := o.logger.With().Str("project", id.String()).Str("mode", req.Mode).Logger()
	log.Info().Str("source", req.Source).Str("phase", string(PhaseRequested)).Msg("hydration requested")
	start := time.Now()

	if err := o.layout.EnsureInitialized(); err != nil {
		return nil, err
	}
	if err := o.index.EnsureInitialized(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(o.layout.ProjectDir(id), 0o755); err != nil {
		return nil, err
	}
	release, err := acquireLock(o.layout.LockPath(id))
	if err != nil {
		return nil, err
	}
	defer release()

	if _, statErr := os.Stat(o.layout.RepoDir(id)); statErr == nil {
		if !req.Force {
			return nil, fmt.Errorf("project %s: %w", id, gerrors.ErrProjectExists)
		}
		// Force re-hydration discards everything but the lock.
		if err := o.removeProjectTree(id); err != nil {
			return nil, fmt.Errorf("removing existing project: %w", err)
		}
	}

	if err := o.index.Add(id, req.Source, index.StatusBootstrapping); err != nil {
		return nil, err
	}

	meta, err := o.acquire(ctx, id, req, log)
	if err != nil {
		// A failed acquisition leaves no trace: partial tree and index
		// entry are both removed so listings never show a ghost.
		o.cleanupFailedAcquire(id, release)
		o.recordFailure(req.Mode, start)
		return nil, err
	}

	m, err := o.analyze(ctx, id, req, meta, log)
	if err != nil {
		o.failRun(id, req.Mode, start)
		return nil, err
	}

	if err := o.index.UpdateStatus(id, index.StatusReady); err != nil {
		return nil, err
	}
	if err := o.index.SetActive(id); err != nil {
		return nil, err
	}
	o.syncStore(id, req, meta, m, start)

	if o.metrics != nil {
		o.metrics.RecordHydration(req.Mode, "complete")
		o.metrics.ObserveHydration(req.Mode, time.Since(start).Seconds())
	}
	log.Info().
		Str("phase", string(PhaseFinalized)).
		Str("risk", string(m.Summary.RiskLevel)).
		Dur("duration", time.Since(start)).
		Msg("hydration complete")

	return &Result{Identity: id, Manifest: m, Metadata: meta}, nil
}

// acquire clones or copies the source into the repo directory and writes
// the metadata document.
func (o *Orchestrator) acquire(ctx context.Context, id layout.Identity, req Request, log zerolog.Logger) (*project.Metadata, error) {
	log.Info().Str("phase", string(PhaseCloning)).Msg("acquiring source")
	repoDir := o.layout.RepoDir(id)

	sourceType := project.SourceGitHub
	if info, err := os.Stat(req.Source); err == nil && info.IsDir() {
		sourceType = project.SourceLocal
		if err := vcs.CopyTree(req.Source, repoDir); err != nil {
			o.recordGitOp("copy", "failed")
			return nil, fmt.Errorf("copying %s: %w", req.Source, gerrors.ErrCloneFailed)
		}
		o.recordGitOp("copy", "ok")
	} else {
		url := o.cloneURL(id, req.Source)
		if err := vcs.Clone(ctx, url, repoDir, req.Branch, req.Depth); err != nil {
			o.recordGitOp("clone", "failed")
			return nil, err
		}
		o.recordGitOp("clone", "ok")
	}

	meta := &project.Metadata{
		ID:         id.String(),
		Source:     req.Source,
		SourceType: sourceType,
		ClonedAt:   time.Now().UTC(),
		RepoPath:   repoDir,
	}
	if vcs.IsRepo(repoDir) {
		if head, err := vcs.Head(ctx, repoDir); err == nil {
			meta.Commit = head
		}
		if branch, err := vcs.Branch(ctx, repoDir); err == nil {
			meta.Branch = branch
		}
	}
	meta.DetectedType = detect.Detect(repoDir)

	if err := project.Write(o.layout, id, meta); err != nil {
		return nil, err
	}
	log.Info().
		Str("phase", string(PhaseMetadataDetected)).
		Strs("languages", meta.DetectedType.Languages).
		Str("commit", meta.Commit).
		Msg("metadata written")
	return meta, nil
}

// analyze initializes the manifest, fans the mode's analyzers out over the
// worker pool, folds their summaries, and finalizes the manifest.
func (o *Orchestrator) analyze(ctx context.Context, id layout.Identity, req Request, meta *project.Metadata, log zerolog.Logger) (*manifest.Manifest, error) {
	names, err := o.cfg.ProfileAnalyzers(req.Mode)
	if err != nil {
		return nil, err
	}
	analyzers, err := o.registry.Resolve(names)
	if err != nil {
		return nil, err
	}

	if _, err := o.manifests.Init(id, meta.Commit, req.Mode); err != nil {
		return nil, err
	}

	log.Info().Str("phase", string(PhaseAnalyzersRunning)).Strs("analyzers", names).Msg("running analyzers")
	runner := analyzer.NewRunner(o.env.ParallelAnalyzers, func(name string) time.Duration {
		return o.cfg.AnalyzerTimeout(name, o.env.AnalyzerTimeout)
	}, log)

	analysisReq := analyzer.Request{
		RepoPath:  o.layout.RepoDir(id),
		OutputDir: o.layout.AnalysisDir(id),
	}
	runner.Run(ctx, analyzers, analysisReq, analyzer.Hooks{
		OnStart: func(name, version string) {
			if err := o.manifests.RecordStart(id, name, name, version); err != nil {
				log.Error().Err(err).Str("analyzer", name).Msg("recording analyzer start")
			}
		},
		OnComplete: func(out analyzer.Outcome) {
			if err := o.manifests.RecordComplete(id, out.Name, out.Status, out.Duration, out.Summary); err != nil {
				log.Error().Err(err).Str("analyzer", out.Name).Msg("recording analyzer completion")
			}
			if o.metrics != nil {
				o.metrics.RecordAnalyzer(out.Name, string(out.Status))
				o.metrics.ObserveAnalyzer(out.Name, out.Duration.Seconds())
			}
		},
	})

	log.Info().Str("phase", string(PhaseSummarizing)).Msg("folding summaries")
	m, err := o.manifests.Load(id)
	if err != nil {
		return nil, err
	}
	if err := o.manifests.UpdateSummary(id, manifest.Fold(m.Analyses)); err != nil {
		return nil, err
	}
	if err := o.manifests.Finalize(id); err != nil {
		return nil, err
	}
	return o.manifests.Load(id)
}

// cloneURL expands shorthand and injects the access token for GitHub
// sources.
func (o *Orchestrator) cloneURL(id layout.Identity, source string) string {
	if o.github != nil && id.Namespace != "local" && id.Namespace != "other" {
		return o.github.AuthenticatedCloneURL(id.Namespace, id.Name)
	}
	if !strings.Contains(source, "://") && !strings.HasPrefix(source, "git@") {
		// owner/repo shorthand
		return "https://github.com/" + source + ".git"
	}
	return source
}

// cleanupFailedAcquire removes the partial project tree and the index
// entry after a clone or copy failure. Cleanup is best-effort; the fatal
// acquisition error is what the caller reports.
func (o *Orchestrator) cleanupFailedAcquire(id layout.Identity, release func()) {
	if err := o.removeProjectTree(id); err != nil {
		o.logger.Warn().Err(err).Str("project", id.String()).Msg("removing partial project tree")
	}
	release()
	if err := os.RemoveAll(o.layout.ProjectDir(id)); err != nil {
		o.logger.Warn().Err(err).Str("project", id.String()).Msg("removing project dir")
	}
	_ = os.Remove(filepath.Dir(o.layout.ProjectDir(id)))
	if err := o.index.Remove(id); err != nil {
		o.logger.Warn().Err(err).Str("project", id.String()).Msg("removing index entry")
	}
}

// failRun marks the project failed in the index and emits failure metrics.
// The acquired repository is deliberately left in place for inspection.
func (o *Orchestrator) failRun(id layout.Identity, mode string, start time.Time) {
	if err := o.index.UpdateStatus(id, index.StatusFailed); err != nil {
		o.logger.Error().Err(err).Str("project", id.String()).Msg("marking project failed")
	}
	o.recordFailure(mode, start)
}

func (o *Orchestrator) recordFailure(mode string, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordHydration(mode, "failed")
		o.metrics.ObserveHydration(mode, time.Since(start).Seconds())
	}
}

// syncStore mirrors the run into the SQLite query index when configured.
func (o *Orchestrator) syncStore(id layout.Identity, req Request, meta *project.Metadata, m *manifest.Manifest, start time.Time) {
	if o.db == nil {
		return
	}

	failed := 0
	for _, rec := range m.Analyses {
		if rec.Status == manifest.StatusFailed {
			failed++
		}
	}

	now := time.Now().UnixMilli()
	if err := o.db.SyncProject(&store.Project{
		ID:           id.String(),
		Namespace:    id.Namespace,
		Name:         id.Name,
		Source:       req.Source,
		Status:       string(index.StatusReady),
		RiskLevel:    string(m.Summary.RiskLevel),
		CreatedAt:    start.UnixMilli(),
		LastAnalyzed: now,
	}); err != nil {
		o.logger.Warn().Err(err).Msg("syncing project row")
	}
	if err := o.db.RecordScan(&store.Scan{
		ScanID:          m.ScanID,
		ProjectID:       id.String(),
		Mode:            req.Mode,
		AnalyzedCommit:  m.AnalyzedCommit,
		RiskLevel:       string(m.Summary.RiskLevel),
		AnalyzersTotal:  len(m.Analyses),
		AnalyzersFailed: failed,
		StartedAt:       start.UnixMilli(),
		CompletedAt:     now,
	}); err != nil {
		o.logger.Warn().Err(err).Msg("recording scan row")
	}
	if err := o.db.PruneScans(0); err != nil {
		o.logger.Warn().Err(err).Msg("pruning scan history")
	}
	if ids, err := o.index.List(); err == nil && o.metrics != nil {
		o.metrics.SetProjects(float64(len(ids)))
	}
}

// Remove deletes a project's directory tree and its index entry. The
// project lock is taken so an in-flight hydration cannot be deleted from
// under itself.
func (o *Orchestrator) Remove(id layout.Identity) error {
	if _, err := os.Stat(o.layout.ProjectDir(id)); os.IsNotExist(err) {
		return fmt.Errorf("project %s: %w", id, gerrors.ErrProjectNotFound)
	}
	release, err := acquireLock(o.layout.LockPath(id))
	if err != nil {
		return err
	}

	if err := o.removeProjectTree(id); err != nil {
		release()
		return err
	}
	release()
	if err := os.RemoveAll(o.layout.ProjectDir(id)); err != nil {
		return err
	}
	// Prune the namespace directory if this was its last project.
	_ = os.Remove(filepath.Dir(o.layout.ProjectDir(id)))

	if err := o.index.Remove(id); err != nil {
		return err
	}
	if o.db != nil {
		if err := o.db.DeleteProject(id.String()); err != nil {
			o.logger.Warn().Err(err).Msg("deleting project row")
		}
	}
	o.logger.Info().Str("project", id.String()).Msg("project removed")
	return nil
}

// removeProjectTree deletes everything under the project directory except
// the lock file, which the caller still holds.
func (o *Orchestrator) removeProjectTree(id layout.Identity) error {
	dir := o.layout.ProjectDir(id)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	lock := o.layout.LockPath(id)
	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		if p == lock {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) recordGitOp(op, status string) {
	if o.metrics != nil {
		o.metrics.RecordGitOp(op, status)
	}
}
