package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/forecaster/internal/config"
	"github.com/soltixdb/forecaster/internal/logging"
	"github.com/soltixdb/forecaster/internal/middleware"
	"github.com/soltixdb/forecaster/internal/pipeline"
	"github.com/soltixdb/forecaster/internal/services"
	"github.com/soltixdb/forecaster/internal/webhook"
	"github.com/stretchr/testify/require"
)

// newTestApp wires the real pipeline behind the handlers
func newTestApp(t *testing.T, mutate func(*config.Config)) *fiber.App {
	t.Helper()
	p, err := pipeline.New(logging.NewNop(), config.DefaultConfig().Pipeline)
	require.NoError(t, err)
	return newTestAppWithRunner(t, p, mutate)
}

// newTestAppWithRunner wires runner behind the handlers
func newTestAppWithRunner(t *testing.T, runner services.Runner, mutate func(*config.Config)) *fiber.App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Callback.Workers = 1
	if mutate != nil {
		mutate(cfg)
	}
	logger := logging.NewNop()

	client, err := webhook.New(webhook.Config{Timeout: 5 * time.Second, APIKey: cfg.Callback.APIKey})
	require.NoError(t, err)

	svc := services.NewPredictService(logger, runner, client, nil, nil, cfg)
	t.Cleanup(svc.Stop)

	h := New(logger, svc)
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logger)})
	app.Get("/health", h.Health)
	app.Post("/api/v1/predict", h.Predict)
	app.Use(h.NotFound)
	return app
}

// weeklyRows returns n weekly rows starting Monday 2024-01-01
func weeklyRows(n int) []map[string]interface{} {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		rows[i] = map[string]interface{}{
			"date":  start.AddDate(0, 0, 7*i).Format("2006-01-02"),
			"sales": 100 + 2*i + (i%4)*5,
		}
	}
	return rows
}

func postJSON(t *testing.T, app *fiber.App, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
	}

	req := httptest.NewRequest("POST", "/api/v1/predict", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Failed to perform request: %v", err)
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return resp, out
}

func decodeMap(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("Failed to unmarshal response %s: %v", string(body), err)
	}
	return m
}

func errorBody(t *testing.T, body []byte) (string, string) {
	t.Helper()
	m := decodeMap(t, body)
	if len(m) != 2 {
		t.Errorf("Expected flat {error, message} body, got %s", string(body))
	}
	code, _ := m["error"].(string)
	msg, _ := m["message"].(string)
	return code, msg
}

func mustContain(t *testing.T, s, sub string) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Errorf("Expected %q to contain %q", s, sub)
	}
}

func rowsJSON(t *testing.T, n int) string {
	t.Helper()
	b, err := json.Marshal(weeklyRows(n))
	if err != nil {
		t.Fatalf("Failed to marshal rows: %v", err)
	}
	return string(b)
}
