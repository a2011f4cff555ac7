package httpapi

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]string
	env := decode(t, rec, &result)
	assert.Equal(t, ResultSuccess, env.Code)
	assert.Equal(t, "ok", result["status"])
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodGet, "/api/extended-help/12345", nil)
	s.do(t, http.MethodGet, "/api/sentlocation", nil)

	rec := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `carezone_http_requests_total{method="GET",path="/api/extended-help/",status="404"} 1`)
	assert.Contains(t, text, `carezone_http_requests_total{method="GET",path="/api/sentlocation",status="405"} 1`)
	assert.NotContains(t, text, "12345")
}

func TestRouter_WithoutMetrics(t *testing.T) {
	r := NewRouter(nil, zap.NewNop())
	r.RegisterOpsRoutes()

	rec := newRecorder(r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = newRecorder(r, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}
