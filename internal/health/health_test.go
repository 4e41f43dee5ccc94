package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_RunAll(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("up", func(ctx context.Context) Status { return StatusOK })
	c.Register("down", func(ctx context.Context) Status { return StatusDown })

	results := c.RunAll(context.Background())
	assert.Equal(t, StatusOK, results["up"])
	assert.Equal(t, StatusDown, results["down"])
	assert.False(t, c.IsReady(context.Background()))
}

func TestChecker_IsReadyWithDegraded(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("degraded", func(ctx context.Context) Status { return StatusDegraded })

	assert.True(t, c.IsReady(context.Background()))
}

func TestReadinessHandler(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("storage", StorageCheck(t.TempDir()))

	rr := httptest.NewRecorder()
	c.ReadinessHandler()(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ready"`)
}

func TestReadinessHandlerNotReady(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("storage", StorageCheck("/proc/definitely-not-writable"))

	rr := httptest.NewRecorder()
	c.ReadinessHandler()(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "not_ready")
}

func TestDBCheck(t *testing.T) {
	ok := DBCheck(func() error { return nil })
	assert.Equal(t, StatusOK, ok(context.Background()))

	failing := DBCheck(func() error { return errors.New("closed") })
	assert.Equal(t, StatusDegraded, failing(context.Background()))

	assert.Equal(t, StatusDegraded, DBCheck(nil)(context.Background()))
}
