package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	header http.Header
	body   []byte
}

func newReceiver(t *testing.T, status int, got chan<- capture) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- capture{header: r.Header.Clone(), body: body}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, c.Timeout())
	assert.Equal(t, "forecaster-webhook/1.0", c.cfg.UserAgent)

	c, err = New(Config{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.Timeout())
}

func TestClient_Post(t *testing.T) {
	got := make(chan capture, 1)
	srv := newReceiver(t, http.StatusOK, got)

	c, err := New(Config{APIKey: "callback-secret"})
	require.NoError(t, err)

	err = c.Post(context.Background(), srv.URL, "req_123", map[string]interface{}{"success": true})
	require.NoError(t, err)

	req := <-got
	assert.Equal(t, "req_123", req.header.Get(HeaderRequestID))
	assert.Equal(t, "callback-secret", req.header.Get(HeaderAPIKey))
	assert.Contains(t, req.header.Get("Content-Type"), "application/json")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(req.body, &body))
	assert.Equal(t, true, body["success"])
}

func TestClient_PostWithoutAPIKey(t *testing.T) {
	got := make(chan capture, 1)
	srv := newReceiver(t, http.StatusNoContent, got)

	c, err := New(Config{})
	require.NoError(t, err)
	require.NoError(t, c.Post(context.Background(), srv.URL, "req_1", struct{}{}))

	assert.Empty(t, (<-got).header.Get(HeaderAPIKey))
}

func TestClient_Non2xx(t *testing.T) {
	got := make(chan capture, 1)
	srv := newReceiver(t, http.StatusInternalServerError, got)

	c, err := New(Config{})
	require.NoError(t, err)

	err = c.Post(context.Background(), srv.URL, "req_1", struct{}{})
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(Config{Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	err = c.Post(context.Background(), srv.URL, "req_1", struct{}{})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_Unreachable(t *testing.T) {
	c, err := New(Config{Timeout: time.Second})
	require.NoError(t, err)
	assert.Error(t, c.Post(context.Background(), "http://127.0.0.1:1/hook", "req_1", struct{}{}))
}

func TestClient_CanceledContext(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Post(ctx, "http://127.0.0.1:1/hook", "req_1", struct{}{}), context.Canceled)
}
