// Package github wraps the GitHub API for repository resolution and
// remote-head lookup. A token is optional; without one the client works
// against public repositories only.
package github

import (
	"context"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	gerrors "github.com/phantomsec/gibson/internal/errors"
	"github.com/phantomsec/gibson/internal/retry"
)

// Repo is the subset of repository metadata hydration needs.
type Repo struct {
	Owner         string
	Name          string
	CloneURL      string
	DefaultBranch string
	Private       bool
}

// Client is a thin wrapper over go-github.
type Client struct {
	api    *gh.Client
	token  string
	retry  retry.Config
	logger zerolog.Logger
}

// NewClient returns a GitHub client. An empty token yields an
// unauthenticated client.
func NewClient(token string, logger zerolog.Logger) *Client {
	var httpClient *http.Client
	if token != "" {
		httpClient = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		))
	}
	return &Client{
		api:    gh.NewClient(httpClient),
		token:  token,
		retry:  retry.DefaultConfig(),
		logger: logger.With().Str("component", "github").Logger(),
	}
}

// ResolveRepo fetches clone URL and default branch for owner/name.
func (c *Client) ResolveRepo(ctx context.Context, owner, name string) (*Repo, error) {
	var repo *gh.Repository
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		r, resp, err := c.api.Repositories.Get(ctx, owner, name)
		if err != nil {
			return wrapAPIError(resp, err)
		}
		repo = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolving %s/%s: %w", owner, name, err)
	}
	return &Repo{
		Owner:         owner,
		Name:          name,
		CloneURL:      repo.GetCloneURL(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
	}, nil
}

// RemoteHead returns the tip commit SHA of branch without cloning.
func (c *Client) RemoteHead(ctx context.Context, owner, name, branch string) (string, error) {
	var sha string
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		ref, resp, err := c.api.Git.GetRef(ctx, owner, name, "refs/heads/"+branch)
		if err != nil {
			return wrapAPIError(resp, err)
		}
		sha = ref.GetObject().GetSHA()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("resolving remote head of %s/%s@%s: %w", owner, name, branch, err)
	}
	return sha, nil
}

// AuthenticatedCloneURL embeds the token into an HTTPS clone URL so git can
// clone private repositories. Returns cloneURL unchanged when no token is
// configured.
func (c *Client) AuthenticatedCloneURL(owner, name string) string {
	if c.token == "" {
		return fmt.Sprintf("https://github.com/%s/%s.git", owner, name)
	}
	return fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", c.token, owner, name)
}

func wrapAPIError(resp *gh.Response, err error) error {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	return &gerrors.APIError{Service: "github", StatusCode: status, Message: "request failed", Err: err}
}
