package analyzer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/phantomsec/gibson/internal/manifest"
)

// Outcome is the result of one analyzer run, ready to be recorded in the
// analysis manifest.
type Outcome struct {
	Name     string
	Version  string
	Status   manifest.AnalysisStatus
	Duration time.Duration
	Summary  []byte
	Err      error
}

// Hooks let the orchestrator record lifecycle transitions as they happen,
// so a manifest observed mid-run shows running entries.
type Hooks struct {
	OnStart    func(name, version string)
	OnComplete func(Outcome)
}

// Runner executes a set of analyzers against one repository using a
// bounded worker pool. Analyzer failures and timeouts are captured in the
// Outcome, never returned as errors.
type Runner struct {
	parallel int
	timeout  func(name string) time.Duration
	logger   zerolog.Logger
}

func NewRunner(parallel int, timeout func(name string) time.Duration, logger zerolog.Logger) *Runner {
	if parallel < 1 {
		parallel = 1
	}
	return &Runner{
		parallel: parallel,
		timeout:  timeout,
		logger:   logger.With().Str("component", "analyzer-runner").Logger(),
	}
}

// Run fans the analyzers out over the worker pool and blocks until all
// complete. Outcomes come back in the input order.
func (r *Runner) Run(ctx context.Context, analyzers []Analyzer, req Request, hooks Hooks) []Outcome {
	outcomes := make([]Outcome, len(analyzers))
	sem := make(chan struct{}, r.parallel)
	var wg sync.WaitGroup

	for i, a := range analyzers {
		wg.Add(1)
		go func(i int, a Analyzer) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = r.runOne(ctx, a, req, hooks)
		}(i, a)
	}
	wg.Wait()
	return outcomes
}

func (r *Runner) runOne(ctx context.Context, a Analyzer, req Request, hooks Hooks) Outcome {
	log := r.logger.With().Str("analyzer", a.Name()).Logger()

	runCtx := ctx
	var cancel context.CancelFunc
	if r.timeout != nil {
		if d := r.timeout(a.Name()); d > 0 {
			runCtx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
	}

	if hooks.OnStart != nil {
		hooks.OnStart(a.Name(), a.Version())
	}
	log.Info().Msg("analyzer started")

	start := time.Now()
	report, err := a.Run(runCtx, req)
	out := Outcome{
		Name:     a.Name(),
		Version:  a.Version(),
		Duration: time.Since(start),
	}

	switch {
	case err != nil:
		out.Status = manifest.StatusFailed
		out.Err = err
		log.Warn().Err(err).Dur("duration", out.Duration).Msg("analyzer failed")
	case report.Partial:
		out.Status = manifest.StatusPartial
		out.Summary = report.Summary
		log.Info().Dur("duration", out.Duration).Msg("analyzer partially complete")
	default:
		out.Status = manifest.StatusComplete
		out.Summary = report.Summary
		log.Info().Dur("duration", out.Duration).Msg("analyzer complete")
	}

	if hooks.OnComplete != nil {
		hooks.OnComplete(out)
	}
	return out
}
