// Package osv is a minimal client for the OSV.dev vulnerability database.
// Only the query surface the vulnerabilities analyzer needs is wrapped.
package osv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	gerrors "github.com/phantomsec/gibson/internal/errors"
	"github.com/phantomsec/gibson/internal/retry"
)

const defaultBaseURL = "https://api.osv.dev"

// Vuln is one advisory returned for a package version.
type Vuln struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	Severity string `json:"severity"` // critical/high/medium/low/unknown
}

// Client queries OSV.dev. Requests are retried on transient failures.
type Client struct {
	baseURL string
	http    *http.Client
	retry   retry.Config
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient returns an OSV client.
func NewClient(logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   retry.DefaultConfig(),
		logger:  logger.With().Str("component", "osv").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queryRequest struct {
	Package struct {
		Name      string `json:"name"`
		Ecosystem string `json:"ecosystem"`
	} `json:"package"`
	Version string `json:"version"`
}

// rawVuln is the subset of the OSV schema we extract. GHSA-backed records
// carry severity under database_specific.
type rawVuln struct {
	ID               string `json:"id"`
	Summary          string `json:"summary"`
	DatabaseSpecific struct {
		Severity string `json:"severity"`
	} `json:"database_specific"`
}

// Query returns the advisories affecting one package version. An empty
// result is not an error.
func (c *Client) Query(ctx context.Context, ecosystem, name, version string) ([]Vuln, error) {
	var req queryRequest
	req.Package.Name = name
	req.Package.Ecosystem = ecosystem
	req.Version = version

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	var out struct {
		Vulns []rawVuln `json:"vulns"`
	}
	err = retry.Do(ctx, c.retry, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/query", bytes.NewReader(body))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return gerrors.NewAPIError("osv", 0, err.Error())
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return gerrors.NewAPIError("osv", resp.StatusCode, string(msg))
		}
		out.Vulns = nil
		return json.NewDecoder(resp.Body).Decode(&out)
	})
	if err != nil {
		return nil, err
	}

	vulns := make([]Vuln, 0, len(out.Vulns))
	for _, rv := range out.Vulns {
		vulns = append(vulns, Vuln{
			ID:       rv.ID,
			Summary:  rv.Summary,
			Severity: normalizeSeverity(rv.DatabaseSpecific.Severity),
		})
	}
	return vulns, nil
}

func normalizeSeverity(s string) string {
	switch strings.ToLower(s) {
	case "critical":
		return "critical"
	case "high":
		return "high"
	case "moderate", "medium":
		return "medium"
	case "low":
		return "low"
	default:
		return "unknown"
	}
}
