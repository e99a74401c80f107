package router

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/soltixdb/forecaster/internal/config"
	"github.com/soltixdb/forecaster/internal/frame"
	"github.com/soltixdb/forecaster/internal/logging"
	"github.com/soltixdb/forecaster/internal/metrics"
	"github.com/soltixdb/forecaster/internal/models"
	"github.com/soltixdb/forecaster/internal/pipeline"
	"github.com/soltixdb/forecaster/internal/services"
	"github.com/soltixdb/forecaster/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRunner struct{}

func (fixedRunner) Run(_ context.Context, _ *frame.Table, p pipeline.Params) (*models.PredictResponse, error) {
	return &models.PredictResponse{
		Success:     true,
		Predictions: make([]models.Prediction, p.Horizon),
		ModelInfo:   models.ModelInfo{Algorithm: pipeline.PrimaryAlgorithm},
	}, nil
}

const predictBody = `{"data":[{"date":"2024-01-01","sales":1}],"prediction_period":2,"prediction_frequency":"weekly"}`

func newTestRouter(t *testing.T, mutate func(*config.Config)) *fiber.App {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	logger := logging.NewNop()
	recorder := metrics.NewWithRegistry(prometheus.NewRegistry())

	client, err := webhook.New(webhook.Config{})
	require.NoError(t, err)
	svc := services.NewPredictService(logger, fixedRunner{}, client, nil, recorder, cfg)
	t.Cleanup(svc.Stop)

	return New(logger, svc, recorder, *cfg)
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestRouter_Routes(t *testing.T) {
	app := newTestRouter(t, nil)

	status, body := do(t, app, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"status":"healthy"`)

	status, body = do(t, app, "POST", "/api/v1/predict", predictBody, nil)
	assert.Equal(t, fiber.StatusOK, status, body)
	assert.Contains(t, body, `"algorithm":"Prophet"`)

	status, body = do(t, app, "GET", "/api/v1/unknown", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Contains(t, body, `"error":"not_found"`)
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	app := newTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "trace-123", resp.Header.Get("X-Request-ID"))
}

func TestRouter_Metrics(t *testing.T) {
	app := newTestRouter(t, nil)

	status, _ := do(t, app, "POST", "/api/v1/predict", predictBody, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body := do(t, app, "GET", "/metrics", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `forecaster_predictions_total{mode="sync",outcome="success"} 1`)
	assert.Contains(t, body, `forecaster_http_requests_total{method="POST",route="/api/v1/predict",status="200"} 1`)
}

func TestRouter_MetricsDisabled(t *testing.T) {
	app := newTestRouter(t, func(c *config.Config) { c.Metrics.Enabled = false })

	status, _ := do(t, app, "GET", "/metrics", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRouter_Auth(t *testing.T) {
	app := newTestRouter(t, func(c *config.Config) {
		c.Auth.Enabled = true
		c.Auth.SecretTokens = []string{"s3cret"}
	})

	status, body := do(t, app, "POST", "/api/v1/predict", predictBody, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, body, `"error":"unauthorized"`)

	status, _ = do(t, app, "POST", "/api/v1/predict", predictBody, map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, fiber.StatusOK, status)

	// health stays open
	status, _ = do(t, app, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRouter_RateLimit(t *testing.T) {
	app := newTestRouter(t, func(c *config.Config) {
		c.Server.RateLimit = 0.001
		c.Server.RateBurst = 1
	})

	status, _ := do(t, app, "POST", "/api/v1/predict", predictBody, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body := do(t, app, "POST", "/api/v1/predict", predictBody, nil)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Contains(t, body, `"error":"rate_limited"`)
}

func TestRouter_BodyLimit(t *testing.T) {
	app := newTestRouter(t, func(c *config.Config) { c.Server.BodyLimitMB = 1 })

	big := `{"data":"` + strings.Repeat("x", 2*1024*1024) + `"}`
	status, _ := do(t, app, "POST", "/api/v1/predict", big, nil)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, status)
}
