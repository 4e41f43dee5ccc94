// Package freshness determines whether a cached repository clone matches
// its remote, and reconciles it on request. Classification never mutates
// the repository.
package freshness

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	gerrors "github.com/phantomsec/gibson/internal/errors"
	"github.com/phantomsec/gibson/internal/vcs"
)

// Kind classifies a cached repository against its remote.
type Kind string

const (
	// UpToDate: local HEAD equals the remote tip for the tracked branch.
	UpToDate Kind = "up-to-date"
	// NeedsUpdate: remote has moved forward and local has not diverged.
	NeedsUpdate Kind = "needs-update"
	// Diverged: local has commits the remote lacks, or history was
	// rewritten upstream.
	Diverged Kind = "diverged"
	// NoRemote: no configured remote (a local copy); always treated as
	// fresh.
	NoRemote Kind = "no-remote"
	// Error: not a repository, or the remote lookup failed.
	Error Kind = "error"
)

// State is the transient classification result. It is computed on demand
// and never persisted.
type State struct {
	Kind       Kind
	Branch     string
	LocalHead  string
	RemoteHead string
	// Reason describes the failure for Kind == Error.
	Reason string
}

// Fresh reports whether the cache can be used without reconciliation.
func (s State) Fresh() bool {
	return s.Kind == UpToDate || s.Kind == NoRemote
}

// Checker classifies and reconciles cached repositories.
type Checker struct {
	logger zerolog.Logger
}

// NewChecker returns a freshness checker.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{logger: logger.With().Str("component", "freshness").Logger()}
}

// Check classifies repoDir against its remote. Network failures surface as
// an Error state for the caller to treat conservatively (assume possibly
// stale, do not auto-update), never as a panic or crash.
func (c *Checker) Check(ctx context.Context, repoDir string) State {
	if !vcs.IsRepo(repoDir) {
		return State{Kind: Error, Reason: "not a git repository"}
	}

	if _, err := vcs.RemoteURL(ctx, repoDir); err != nil {
		if errors.Is(err, gerrors.ErrNoRemote) {
			return State{Kind: NoRemote}
		}
		return State{Kind: Error, Reason: err.Error()}
	}

	local, err := vcs.Head(ctx, repoDir)
	if err != nil {
		return State{Kind: Error, Reason: err.Error()}
	}
	branch, err := vcs.Branch(ctx, repoDir)
	if err != nil {
		return State{Kind: Error, Reason: err.Error()}
	}

	remote, err := vcs.RemoteHead(ctx, repoDir, branch)
	if err != nil {
		c.logger.Debug().Err(err).Str("repo", repoDir).Msg("remote ref lookup failed")
		return State{Kind: Error, Branch: branch, LocalHead: local, Reason: err.Error()}
	}

	st := State{Branch: branch, LocalHead: local, RemoteHead: remote}
	if local == remote {
		st.Kind = UpToDate
		return st
	}

	// Ancestry requires the remote commit object locally.
	if err := vcs.Fetch(ctx, repoDir); err != nil {
		st.Kind = Error
		st.Reason = err.Error()
		return st
	}
	ancestor, err := vcs.IsAncestor(ctx, repoDir, local, remote)
	if err != nil {
		st.Kind = Error
		st.Reason = err.Error()
		return st
	}
	if ancestor {
		st.Kind = NeedsUpdate
	} else {
		st.Kind = Diverged
	}
	return st
}

// Reconcile brings the cache in line with its remote. On needs-update it
// fast-forwards only, failing loudly rather than silently losing local
// changes. On diverged it requires force and performs a destructive hard
// reset to the remote tip; the caller layer gates that behind explicit
// operator confirmation. Up-to-date and no-remote are no-op successes.
func (c *Checker) Reconcile(ctx context.Context, repoDir string, force bool) (State, error) {
	st := c.Check(ctx, repoDir)
	switch st.Kind {
	case UpToDate, NoRemote:
		return st, nil

	case NeedsUpdate:
		branch := st.Branch
		if branch == "" {
			return st, fmt.Errorf("cannot fast-forward a detached HEAD")
		}
		if err := vcs.FastForward(ctx, repoDir, branch); err != nil {
			return st, fmt.Errorf("fast-forward failed: %w", err)
		}
		c.logger.Info().Str("repo", repoDir).Str("head", st.RemoteHead).Msg("fast-forwarded cache")
		return c.Check(ctx, repoDir), nil

	case Diverged:
		if !force {
			return st, fmt.Errorf("%w: refusing to discard local commits without force", gerrors.ErrDiverged)
		}
		if err := vcs.HardReset(ctx, repoDir, st.RemoteHead); err != nil {
			return st, fmt.Errorf("hard reset failed: %w", err)
		}
		c.logger.Warn().Str("repo", repoDir).Str("head", st.RemoteHead).Msg("hard reset cache to remote tip")
		return c.Check(ctx, repoDir), nil

	default:
		return st, fmt.Errorf("%w: %s", gerrors.ErrUnavailable, st.Reason)
	}
}
