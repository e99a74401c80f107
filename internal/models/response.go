package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ErrorResponse is the flat error body returned by every endpoint
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error codes rendered in ErrorResponse.Error
const (
	ErrorCodeBadRequest       = "bad_request"
	ErrorCodeMissingParameter = "missing_parameter"
	ErrorCodeInsufficientData = "insufficient_data"
	ErrorCodeInternal         = "internal_error"
	ErrorCodeUnauthorized     = "unauthorized"
	ErrorCodeRateLimited      = "rate_limited"
	ErrorCodeServerBusy       = "server_busy"
	ErrorCodeNotFound         = "not_found"
	ErrorCodeCallbackFailed   = "callback_failed"
)

// DataSummary describes the series the model was trained on
type DataSummary struct {
	InputRows    int      `json:"input_rows"`
	DateRange    string   `json:"date_range"`
	FeaturesUsed []string `json:"features_used"`
}

// Prediction is one forecast row. Confidence fields are omitted unless
// intervals were requested.
type Prediction struct {
	Date            string   `json:"date"` // YYYY-MM-DD
	PredictedValue  float64  `json:"predicted_value"`
	ConfidenceLower *float64 `json:"confidence_lower,omitempty"`
	ConfidenceUpper *float64 `json:"confidence_upper,omitempty"`
}

// ModelInfo reports the algorithm and its backtest accuracy. Metrics are
// null when the backtest could not run.
type ModelInfo struct {
	Algorithm      string   `json:"algorithm"`
	AccuracyMAE    *float64 `json:"accuracy_mae"`
	AccuracyRMSE   *float64 `json:"accuracy_rmse"`
	AccuracyMAPE   *float64 `json:"accuracy_mape"`
	BacktestPoints int      `json:"backtest_points"`
}

// PredictResponse is the pipeline result, returned inline for synchronous
// requests and posted to the callback address for asynchronous ones.
type PredictResponse struct {
	Success     bool         `json:"success"`
	DataSummary DataSummary  `json:"data_summary"`
	Predictions []Prediction `json:"predictions"`
	ModelInfo   ModelInfo    `json:"model_info"`
}

// AckResponse acknowledges an asynchronous request
type AckResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RequestID   string `json:"request_id"`
	Status      string `json:"status"`
	CallbackURL string `json:"callback_url"`
}

// CallbackFailure is posted to the callback address when an asynchronous
// run fails
type CallbackFailure struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// Request status values
const (
	StatusProcessing = "processing"
	StatusFailed     = "failed"
)
