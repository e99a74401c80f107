package models

import "github.com/soltixdb/forecaster/internal/frame"

// CallbackKeys are the top-level keys, matched case-insensitively, whose
// value is taken as the callback address
var CallbackKeys = []string{"callback", "webhook", "notify", "async", "background"}

// PredictRequest is a validated POST /api/v1/predict body
type PredictRequest struct {
	Data                *frame.Table `json:"data" validate:"required"`
	PredictionPeriod    int          `json:"prediction_period" validate:"required,gt=0,lte=520"`
	PredictionFrequency string       `json:"prediction_frequency" validate:"required,oneof=weekly monthly"`
	FeatureColumns      []string     `json:"feature_columns" default:"[]" validate:"dive,required"`
	ConfidenceInterval  bool         `json:"confidence_interval"`

	// CallbackKey is the body key that carried CallbackURL
	CallbackKey string `json:"-"`
	CallbackURL string `json:"callback_url" validate:"omitempty,url"`
}

// Async reports whether the request asked for webhook delivery
func (r *PredictRequest) Async() bool {
	return r.CallbackURL != ""
}
