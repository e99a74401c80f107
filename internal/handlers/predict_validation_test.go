package handlers

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/forecaster/internal/frame"
	"github.com/soltixdb/forecaster/internal/models"
	"github.com/soltixdb/forecaster/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRunner counts pipeline runs and returns an empty forecast
type countingRunner struct {
	calls atomic.Int32
}

func (r *countingRunner) Run(ctx context.Context, table *frame.Table, params pipeline.Params) (*models.PredictResponse, error) {
	r.calls.Add(1)
	return &models.PredictResponse{Success: true, Predictions: []models.Prediction{}}, nil
}

func TestPredict_InvalidInputNeverReachesPipeline(t *testing.T) {
	rows := rowsJSON(t, 40)
	ok := `"data":` + rows + `,"prediction_period":4,"prediction_frequency":"weekly"`

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"invalid json", `{"data": [`, "bad_request"},
		{"missing data", `{"prediction_period":4,"prediction_frequency":"weekly"}`, "missing_parameter"},
		{"null data", `{"data":null,"prediction_period":4,"prediction_frequency":"weekly"}`, "missing_parameter"},
		{"empty data", `{"data":[],"prediction_period":4,"prediction_frequency":"weekly"}`, "missing_parameter"},
		{"data not array", `{"data":{"date":"2024-01-01"},"prediction_period":4,"prediction_frequency":"weekly"}`, "missing_parameter"},
		{"missing period", `{"data":` + rows + `,"prediction_frequency":"weekly"}`, "missing_parameter"},
		{"zero period", `{"data":` + rows + `,"prediction_period":0,"prediction_frequency":"weekly"}`, "missing_parameter"},
		{"negative period", `{"data":` + rows + `,"prediction_period":-1,"prediction_frequency":"weekly"}`, "missing_parameter"},
		{"fractional period", `{"data":` + rows + `,"prediction_period":1.5,"prediction_frequency":"weekly"}`, "missing_parameter"},
		{"string period", `{"data":` + rows + `,"prediction_period":"4","prediction_frequency":"weekly"}`, "missing_parameter"},
		{"period above cap", `{"data":` + rows + `,"prediction_period":2000000000,"prediction_frequency":"weekly"}`, "missing_parameter"},
		{"missing frequency", `{"data":` + rows + `,"prediction_period":4}`, "missing_parameter"},
		{"daily frequency", `{"data":` + rows + `,"prediction_period":4,"prediction_frequency":"daily"}`, "missing_parameter"},
		{"feature columns not array", `{` + ok + `,"feature_columns":"promo"}`, "bad_request"},
		{"empty feature column", `{` + ok + `,"feature_columns":[""]}`, "bad_request"},
		{"confidence not bool", `{` + ok + `,"confidence_interval":"yes"}`, "bad_request"},
		{"callback not a url", `{` + ok + `,"callback":"not a url"}`, "bad_request"},
		{"callback not a string", `{` + ok + `,"webhook":42}`, "bad_request"},
	}

	runner := &countingRunner{}
	app := newTestAppWithRunner(t, runner, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, app, tt.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, string(body))

			code, _ := errorBody(t, body)
			assert.Equal(t, tt.wantCode, code)
			assert.Zero(t, runner.calls.Load(), "pipeline ran for an invalid request")
		})
	}

	// the same app does reach the pipeline once the body is valid
	resp, body := postJSON(t, app, `{`+ok+`}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, int32(1), runner.calls.Load())
}
