package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/forecaster/internal/config"
	"github.com/soltixdb/forecaster/internal/models"
	"github.com/soltixdb/forecaster/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredict_WeeklySync(t *testing.T) {
	app := newTestApp(t, nil)

	resp, body := postJSON(t, app, map[string]interface{}{
		"data":                 weeklyRows(40),
		"prediction_period":    4,
		"prediction_frequency": "weekly",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var out models.PredictResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Success)
	assert.Equal(t, 40, out.DataSummary.InputRows)
	assert.Equal(t, "2024-01-01 to 2024-09-30", out.DataSummary.DateRange)
	assert.Equal(t, "Prophet", out.ModelInfo.Algorithm)

	dates := make([]string, len(out.Predictions))
	for i, p := range out.Predictions {
		dates[i] = p.Date
		assert.GreaterOrEqual(t, p.PredictedValue, 0.0)
		assert.Nil(t, p.ConfidenceLower)
		assert.Nil(t, p.ConfidenceUpper)
	}
	assert.Equal(t, []string{"2024-10-07", "2024-10-14", "2024-10-21", "2024-10-28"}, dates)

	// interval fields are omitted, not null
	raw := decodeMap(t, body)
	first := raw["predictions"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, first, "confidence_lower")
	assert.NotContains(t, first, "confidence_upper")
}

func TestPredict_WeeklyWithConfidence(t *testing.T) {
	app := newTestApp(t, nil)

	resp, body := postJSON(t, app, map[string]interface{}{
		"data":                 weeklyRows(40),
		"prediction_period":    4,
		"prediction_frequency": "weekly",
		"confidence_interval":  true,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var out models.PredictResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Predictions, 4)
	for _, p := range out.Predictions {
		require.NotNil(t, p.ConfidenceLower)
		require.NotNil(t, p.ConfidenceUpper)
		assert.LessOrEqual(t, *p.ConfidenceLower, *p.ConfidenceUpper)
		assert.GreaterOrEqual(t, *p.ConfidenceLower, 0.0)
	}
}

func TestPredict_ConfidenceDefaultFromConfig(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) {
		c.Pipeline.ReturnConfidenceDefault = true
	})

	resp, body := postJSON(t, app, map[string]interface{}{
		"data":                 weeklyRows(40),
		"prediction_period":    2,
		"prediction_frequency": "weekly",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var out models.PredictResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Predictions, 2)
	assert.NotNil(t, out.Predictions[0].ConfidenceLower)
}

func TestPredict_ValidationErrors(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "invalid json",
			body:       `{"data": [`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "bad_request",
			wantMsg:    "invalid JSON body",
		},
		{
			name:       "empty body",
			body:       ``,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "bad_request",
			wantMsg:    "invalid JSON body",
		},
		{
			name:       "missing data",
			body:       `{"prediction_period":4,"prediction_frequency":"weekly"}`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "missing_parameter",
			wantMsg:    "'data'",
		},
		{
			name:       "zero period",
			body:       `{"data":` + rowsJSON(t, 3) + `,"prediction_period":0,"prediction_frequency":"weekly"}`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "missing_parameter",
			wantMsg:    "'prediction_period'",
		},
		{
			name:       "daily frequency",
			body:       `{"data":` + rowsJSON(t, 3) + `,"prediction_period":4,"prediction_frequency":"daily"}`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "missing_parameter",
			wantMsg:    "'prediction_frequency'",
		},
		{
			name:       "invalid callback address",
			body:       `{"data":` + rowsJSON(t, 3) + `,"prediction_period":4,"prediction_frequency":"weekly","callback":"not a url"}`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "bad_request",
			wantMsg:    "callback address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, app, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, string(body))

			code, msg := errorBody(t, body)
			assert.Equal(t, tt.wantCode, code)
			mustContain(t, msg, tt.wantMsg)
		})
	}
}

func TestPredict_InsufficientData(t *testing.T) {
	app := newTestApp(t, nil)

	resp, body := postJSON(t, app, map[string]interface{}{
		"data":                 weeklyRows(10),
		"prediction_period":    4,
		"prediction_frequency": "weekly",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	code, msg := errorBody(t, body)
	assert.Equal(t, "insufficient_data", code)
	mustContain(t, msg, "at least 30 data points")
}

func TestPredict_UnparseableTargetIsInternalError(t *testing.T) {
	app := newTestApp(t, nil)

	rows := weeklyRows(40)
	for _, r := range rows {
		r["sales"] = "n/a"
	}
	resp, body := postJSON(t, app, map[string]interface{}{
		"data":                 rows,
		"prediction_period":    4,
		"prediction_frequency": "weekly",
	})
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	code, _ := errorBody(t, body)
	assert.Equal(t, "internal_error", code)
}

func TestPredict_WebhookDelivery(t *testing.T) {
	type delivery struct {
		header http.Header
		body   []byte
	}
	deliveries := make(chan delivery, 1)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		deliveries <- delivery{header: r.Header.Clone(), body: b}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer receiver.Close()

	app := newTestApp(t, func(c *config.Config) {
		c.Callback.APIKey = "callback-key"
	})

	resp, body := postJSON(t, app, map[string]interface{}{
		"data":                 weeklyRows(40),
		"prediction_period":    4,
		"prediction_frequency": "weekly",
		"webhook":              receiver.URL,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var ack models.AckResponse
	require.NoError(t, json.Unmarshal(body, &ack))
	assert.True(t, ack.Success)
	assert.Equal(t, models.StatusProcessing, ack.Status)
	assert.Equal(t, receiver.URL, ack.CallbackURL)
	assert.Equal(t, services.AckMessage, ack.Message)
	assert.Regexp(t, regexp.MustCompile(`^req_\d+$`), ack.RequestID)

	select {
	case d := <-deliveries:
		assert.Equal(t, ack.RequestID, d.header.Get("X-Request-ID"))
		assert.Equal(t, "callback-key", d.header.Get("X-API-Key"))

		var out models.PredictResponse
		require.NoError(t, json.Unmarshal(d.body, &out))
		assert.True(t, out.Success)
		assert.Len(t, out.Predictions, 4)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for webhook delivery")
	}
}

func TestPredict_WebhookFailurePayload(t *testing.T) {
	deliveries := make(chan []byte, 1)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		deliveries <- b
	}))
	defer receiver.Close()

	app := newTestApp(t, nil)

	resp, body := postJSON(t, app, map[string]interface{}{
		"data":                 weeklyRows(5),
		"prediction_period":    4,
		"prediction_frequency": "weekly",
		"Callback":             receiver.URL,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var ack models.AckResponse
	require.NoError(t, json.Unmarshal(body, &ack))

	select {
	case b := <-deliveries:
		var failure models.CallbackFailure
		require.NoError(t, json.Unmarshal(b, &failure))
		assert.Equal(t, models.ErrorCodeCallbackFailed, failure.Error)
		assert.Equal(t, models.StatusFailed, failure.Status)
		assert.Equal(t, ack.RequestID, failure.RequestID)
		mustContain(t, failure.Message, "at least 30 data points")
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for webhook delivery")
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		services.CodeBadRequest:       fiber.StatusBadRequest,
		services.CodeMissingParameter: fiber.StatusBadRequest,
		services.CodeInsufficientData: fiber.StatusUnprocessableEntity,
		services.CodeServerBusy:       fiber.StatusServiceUnavailable,
		services.CodeInternal:         fiber.StatusInternalServerError,
		"SOMETHING_ELSE":              fiber.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%q) = %d, want %d", code, got, want)
		}
	}
}
