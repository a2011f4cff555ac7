package httpapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentLocation_BreachLevel2RaisesCase(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/sentlocation", map[string]any{
		"uId": 1, "takecare_id": 2, "distance": 25, "latitude": 13.76, "longitude": 100.51, "battery": 80,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Status   int    `json:"status"`
		Notified bool   `json:"notified"`
		CaseID   *int64 `json:"case_id"`
	}
	env := decode(t, rec, &result)
	assert.Equal(t, ResultSuccess, env.Code)
	assert.Equal(t, 2, result.Status)
	assert.True(t, result.Notified)
	require.NotNil(t, result.CaseID)
	assert.Len(t, s.channel.SentTo(groupLineID), 1)
}

func TestSentLocation_AcceptsNumericStrings(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/sentlocation", map[string]any{
		"uId": "1", "takecare_id": "2", "distance": "5", "latitude": "13.75", "longitude": "100.5", "battery": "90",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Status   int  `json:"status"`
		Notified bool `json:"notified"`
	}
	decode(t, rec, &result)
	assert.Equal(t, 0, result.Status)
	assert.False(t, result.Notified)
	assert.Empty(t, s.channel.Sent())
}

func TestSentLocation_MissingField(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/sentlocation", map[string]any{
		"uId": 1, "takecare_id": 2, "latitude": 13.75, "longitude": 100.5, "battery": 90,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var result map[string]string
	env := decode(t, rec, &result)
	assert.Equal(t, ResultError, env.Code)
	assert.Contains(t, env.Message, "distance")
	assert.Equal(t, "validation", result["kind"])
}

func TestSentLocation_NegativeDistanceRejected(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/sentlocation", map[string]any{
		"uId": 1, "takecare_id": 2, "distance": -1, "latitude": 13.75, "longitude": 100.5, "battery": 90,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSentLocation_NoSafezone(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/sentlocation", map[string]any{
		"uId": 1, "takecare_id": 99, "distance": 1, "latitude": 13.75, "longitude": 100.5, "battery": 90,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var result map[string]string
	decode(t, rec, &result)
	assert.Equal(t, "not_found", result["kind"])
}

func TestSentLocation_NoGroupIsReportedNotFailed(t *testing.T) {
	s := newTestServerWithGroup(t, false)

	rec := s.do(t, http.MethodPost, "/api/sentlocation", map[string]any{
		"uId": 1, "takecare_id": 2, "distance": 25, "latitude": 13.75, "longitude": 100.5, "battery": 90,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Notified        bool   `json:"notified"`
		EscalationError string `json:"escalation_error"`
	}
	decode(t, rec, &result)
	assert.False(t, result.Notified)
	assert.Equal(t, "precondition", result.EscalationError)
	n, err := s.store.CountLocations(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSentLocation_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/sentlocation", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST, PUT", rec.Header().Get("Allow"))
}

func TestSentFall_NotifiesCaregiver(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/sentFall", map[string]any{
		"users_id": 1, "takecare_id": 2, "x_axis": 0.1, "y_axis": 9.8, "z_axis": 0.3,
		"fall_status": 2, "latitude": 13.75, "longitude": 100.5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Record struct {
			NotiCount  int `json:"noti_count"`
			NotiStatus int `json:"noti_status"`
		} `json:"record"`
		Notified  bool `json:"notified"`
		Delivered bool `json:"delivered"`
	}
	decode(t, rec, &result)
	assert.Equal(t, 1, result.Record.NotiCount)
	assert.Equal(t, 1, result.Record.NotiStatus)
	assert.True(t, result.Notified)
	assert.True(t, result.Delivered)
	assert.Len(t, s.channel.SentTo(caregiverLineID), 1)
}

func TestSentFall_UnknownTakecare(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/sentFall", map[string]any{
		"users_id": 1, "takecare_id": 42, "x_axis": 0, "y_axis": 0, "z_axis": 0,
		"fall_status": 2, "latitude": 13.75, "longitude": 100.5,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, s.store.FallRecords(1, 42))
}

func TestSentFall_InvalidJSON(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/sentFall", "not-an-object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
