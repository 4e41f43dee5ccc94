// Package vcs wraps the git CLI for clone, ref inspection, and cache
// reconciliation. Every call is a blocking subprocess bounded by the
// caller's context.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	gerrors "github.com/phantomsec/gibson/internal/errors"
)

// git runs a git subcommand in dir and returns trimmed stdout.
func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", args[0], msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Clone clones url into dir. branch and depth are optional; depth 0 means
// full history, which downstream history-based analyzers prefer.
func Clone(ctx context.Context, url, dir, branch string, depth int) error {
	args := []string{"clone"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	if depth > 0 {
		args = append(args, "--depth", strconv.Itoa(depth))
	}
	args = append(args, url, dir)
	if _, err := git(ctx, "", args...); err != nil {
		return fmt.Errorf("%w: %v", gerrors.ErrCloneFailed, err)
	}
	return nil
}

// IsRepo reports whether dir is a git work tree.
func IsRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// Head returns the commit SHA of HEAD, or "" when dir is not a repository.
func Head(ctx context.Context, dir string) (string, error) {
	if !IsRepo(dir) {
		return "", gerrors.ErrNotARepository
	}
	return git(ctx, dir, "rev-parse", "HEAD")
}

// Branch returns the current branch name, or "" for a detached HEAD.
func Branch(ctx context.Context, dir string) (string, error) {
	if !IsRepo(dir) {
		return "", gerrors.ErrNotARepository
	}
	name, err := git(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if name == "HEAD" {
		return "", nil
	}
	return name, nil
}

// RemoteURL returns the origin URL, or ErrNoRemote when none is configured.
func RemoteURL(ctx context.Context, dir string) (string, error) {
	url, err := git(ctx, dir, "remote", "get-url", "origin")
	if err != nil {
		return "", gerrors.ErrNoRemote
	}
	return url, nil
}

// RemoteHead resolves the remote's tip for branch via lightweight ref
// listing (no objects transferred). An empty branch resolves the remote
// HEAD.
func RemoteHead(ctx context.Context, dir, branch string) (string, error) {
	ref := "HEAD"
	if branch != "" {
		ref = "refs/heads/" + branch
	}
	out, err := git(ctx, dir, "ls-remote", "origin", ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", gerrors.ErrUnavailable, err)
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: remote has no ref %s", gerrors.ErrUnavailable, ref)
	}
	return fields[0], nil
}

// IsAncestor reports whether commit a is an ancestor of commit b.
func IsAncestor(ctx context.Context, dir, a, b string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "merge-base", "--is-ancestor", a, b)
	cmd.Dir = dir
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("git merge-base: %w", err)
}

// Fetch updates remote tracking refs for origin.
func Fetch(ctx context.Context, dir string) error {
	_, err := git(ctx, dir, "fetch", "origin")
	return err
}

// FastForward merges origin/branch into the work tree, refusing anything
// that is not a fast-forward rather than silently losing local changes.
func FastForward(ctx context.Context, dir, branch string) error {
	_, err := git(ctx, dir, "merge", "--ff-only", "origin/"+branch)
	return err
}

// HardReset discards the work tree and local history in favor of ref. The
// caller layer gates this behind explicit operator confirmation.
func HardReset(ctx context.Context, dir, ref string) error {
	_, err := git(ctx, dir, "reset", "--hard", ref)
	return err
}

// CopyTree recursively copies a local source directory into dst, preserving
// file modes. Symlinks are skipped: an analysis copy does not need them and
// following links out of the source tree is worse.
func CopyTree(src, dst string) error {
	src = filepath.Clean(src)
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
