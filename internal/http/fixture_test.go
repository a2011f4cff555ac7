package httpapi

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carezone/internal/metrics"
	"carezone/internal/models"
	"carezone/internal/notify"
	"carezone/internal/repository"
	"carezone/internal/service"
	"carezone/internal/store"
)

const (
	testChannelSecret = "test-channel-secret"
	caregiverLineID   = "U-caregiver"
	groupLineID       = "C-responders"
	responderA        = "U-responder-a"
	responderB        = "U-responder-b"
)

type testServer struct {
	router  *Router
	store   *repository.MemoryStore
	channel *notify.RecordingChannel
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithGroup(t, true)
}

func newTestServerWithGroup(t *testing.T, withGroup bool) *testServer {
	t.Helper()

	logger := zap.NewNop()
	st := repository.NewMemoryStore()
	st.PutUser(models.User{UsersID: 1, LineID: caregiverLineID, FirstName: "Dan", LastName: "Caregiver"})
	st.PutUser(models.User{UsersID: 10, LineID: responderA, FirstName: "Alice"})
	st.PutUser(models.User{UsersID: 11, LineID: responderB, FirstName: "Bob"})
	st.PutTakecareperson(models.Takecareperson{TakecareID: 2, UsersID: 1, FirstName: "Mae", LastName: "Subject", Status: 1})
	st.PutSafezone(models.Safezone{UsersID: 1, TakecareID: 2, Latitude: 13.75, Longitude: 100.5, RadiusLv1: 10, RadiusLv2: 20})
	if withGroup {
		st.PutGroup(models.GroupLine{GroupLineID: groupLineID, GroupName: "Responders", Status: 1})
	}

	m := metrics.New()
	channel := notify.NewRecordingChannel()
	dispatcher := notify.NewDispatcher(channel, time.Second, m, logger)

	escalation := service.NewEscalationService(st, dispatcher, nil, m, logger)
	location := service.NewLocationService(st, escalation, dispatcher, m, logger)
	fall := service.NewFallService(st, dispatcher, m, logger)
	caretaker := service.NewCaretakerLocationService(st, logger)
	report := service.NewReportService(st, logger)

	router := NewRouter(m, logger)
	router.RegisterDeviceRoutes(NewDeviceHandler(location, fall, logger))
	router.RegisterCaretakerRoutes(NewCaretakerLocationHandler(caretaker, logger))
	router.RegisterExtendedHelpRoutes(NewExtendedHelpHandler(report, logger))
	router.RegisterLINERoutes(NewLINEWebhookHandler(escalation, st, dispatcher, store.NewMemoryKV(), LINEWebhookConfig{
		ChannelSecret:   testChannelSecret,
		DedupeTTL:       time.Minute,
		DedupeKeyPrefix: "test:webhook:",
	}, logger))
	router.RegisterOpsRoutes()

	return &testServer{router: router, store: st, channel: channel, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// postWebhook 以正确签名投递 webhook
func (s *testServer) postWebhook(t *testing.T, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/line/webhook", bytes.NewReader(body))
	req.Header.Set(lineSignatureHeader, sign(testChannelSecret, body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Result, out))
	}
	return env
}

func postbackEvent(eventID, userID, data string) map[string]any {
	return map[string]any{
		"type":           "postback",
		"webhookEventId": eventID,
		"timestamp":      time.Now().UnixMilli(),
		"source":         map[string]any{"type": "group", "groupId": groupLineID, "userId": userID},
		"postback":       map[string]any{"data": data},
	}
}

func newRecorder(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
