package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carezone/common/config"
)

func newTestLINEClient(t *testing.T, handler http.HandlerFunc) *LINEClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewLINEClient(&config.LINEConfig{
		BaseURL:            srv.URL,
		ChannelAccessToken: "test-token",
		Timeout:            2 * time.Second,
	}, zap.NewNop())
}

func TestLINEClient_PushToGroup(t *testing.T) {
	var got linePushRequest
	var auth, retryKey string
	client := newTestLINEClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/bot/message/push", r.URL.Path)
		auth = r.Header.Get("Authorization")
		retryKey = r.Header.Get("X-Line-Retry-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})

	err := client.PushToGroup(context.Background(), "C123",
		Location("Location: A", "Last known position", 13.7, 100.5),
		Text("hello"),
	)

	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", auth)
	assert.NotEmpty(t, retryKey)
	assert.Equal(t, "C123", got.To)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "location", got.Messages[0]["type"])
	assert.Equal(t, 13.7, got.Messages[0]["latitude"])
	assert.Equal(t, "text", got.Messages[1]["type"])
	assert.Equal(t, "hello", got.Messages[1]["text"])
}

func TestLINEClient_PushDoesNotRetry(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	client := newTestLINEClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	})

	err := client.PushToUser(context.Background(), "U1", Text("hello"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 500")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestLINEClient_PushSplitsBatches(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	client := newTestLINEClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req linePushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		sizes = append(sizes, len(req.Messages))
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	})

	msgs := make([]Message, 7)
	for i := range msgs {
		msgs[i] = Text("m")
	}
	require.NoError(t, client.PushToUser(context.Background(), "U1", msgs...))
	assert.Equal(t, []int{5, 2}, sizes)
}

func TestLINEClient_PushError(t *testing.T) {
	client := newTestLINEClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"The request body has 1 error(s)"}`))
	})

	err := client.PushToUser(context.Background(), "U1", Text("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 400")
}

func TestLINEClient_PushRejectsInvalidMessage(t *testing.T) {
	client := newTestLINEClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	err := client.PushToUser(context.Background(), "U1", Message{Kind: KindFlex})
	assert.True(t, errors.Is(err, ErrInvalidMessage))
}

func TestLINEClient_DisplayName(t *testing.T) {
	client := newTestLINEClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/bot/profile/U42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userId":"U42","displayName":"Nurse Joy"}`))
	})

	name, err := client.DisplayName(context.Background(), "U42")
	require.NoError(t, err)
	assert.Equal(t, "Nurse Joy", name)
}

func TestEncodeMessage_Flex(t *testing.T) {
	body, err := encodeMessage(Flex("alt", map[string]any{"type": "bubble"}))
	require.NoError(t, err)
	assert.Equal(t, "flex", body["type"])
	assert.Equal(t, "alt", body["altText"])
}
