package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaretakerLocation_RecordAndGetLatest(t *testing.T) {
	s := newTestServer(t)

	for _, lat := range []float64{13.70, 13.71} {
		rec := s.do(t, http.MethodPost, "/api/caretakerLocation", map[string]any{
			"users_id": 1, "takecare_id": 2, "latitude": lat, "longitude": 100.4, "battery": 70,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := s.do(t, http.MethodGet, "/api/caretakerLocation?users_id=1&takecare_id=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var loc struct {
		Latitude float64 `json:"locat_latitude"`
		Battery  int     `json:"locat_battery"`
	}
	decode(t, rec, &loc)
	assert.InDelta(t, 13.71, loc.Latitude, 1e-9)
	assert.Equal(t, 70, loc.Battery)
}

func TestCaretakerLocation_GetLatestNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/caretakerLocation?users_id=1&takecare_id=2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCaretakerLocation_QueryValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/caretakerLocation?users_id=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/caretakerLocation?users_id=x&takecare_id=2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCaretakerLocation_RecordRejectsBadCoordinates(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/caretakerLocation", map[string]any{
		"users_id": 1, "takecare_id": 2, "latitude": 123, "longitude": 100.4,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCaretakerLocation_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodDelete, "/api/caretakerLocation", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
