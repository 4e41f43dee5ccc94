package osv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_ParsesVulns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/query", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "1.2.3", req["version"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"vulns": [
			{"id": "GHSA-xxxx", "summary": "bad", "database_specific": {"severity": "HIGH"}},
			{"id": "GHSA-yyyy", "summary": "worse", "database_specific": {"severity": "CRITICAL"}},
			{"id": "OSV-zzzz", "summary": "odd"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), WithBaseURL(srv.URL))
	vulns, err := c.Query(context.Background(), "npm", "leftpad", "1.2.3")
	require.NoError(t, err)
	require.Len(t, vulns, 3)
	assert.Equal(t, "high", vulns[0].Severity)
	assert.Equal(t, "critical", vulns[1].Severity)
	assert.Equal(t, "unknown", vulns[2].Severity)
}

func TestQuery_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), WithBaseURL(srv.URL))
	vulns, err := c.Query(context.Background(), "Go", "example.com/mod", "0.1.0")
	require.NoError(t, err)
	assert.Empty(t, vulns)
}

func TestQuery_RetriesOn503(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"vulns": [{"id": "GHSA-abcd"}]}`))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), WithBaseURL(srv.URL))
	vulns, err := c.Query(context.Background(), "PyPI", "requests", "2.0.0")
	require.NoError(t, err)
	assert.Len(t, vulns, 1)
	assert.Equal(t, 2, calls)
}

func TestQuery_NonRetryableStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), WithBaseURL(srv.URL))
	_, err := c.Query(context.Background(), "npm", "x", "1.0.0")
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNormalizeSeverity(t *testing.T) {
	assert.Equal(t, "medium", normalizeSeverity("MODERATE"))
	assert.Equal(t, "low", normalizeSeverity("Low"))
	assert.Equal(t, "unknown", normalizeSeverity(""))
}
