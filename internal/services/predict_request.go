package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/soltixdb/forecaster/internal/frame"
	"github.com/soltixdb/forecaster/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so messages match the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// messages for fields that fail validation, keyed by json name
var fieldMessages = map[string]string{
	"data":                 "'data' is required and must be a non-empty array of objects",
	"prediction_period":    "'prediction_period' is required and must be a positive integer no greater than 520",
	"prediction_frequency": "'prediction_frequency' is required and must be 'weekly' or 'monthly'",
	"feature_columns":      "'feature_columns' must be an array of non-empty strings",
	"confidence_interval":  "'confidence_interval' must be a boolean",
	"callback_url":         "callback address must be a valid URL",
}

// required fields map to MISSING_PARAMETER, everything else to BAD_REQUEST
var requiredFields = map[string]bool{
	"data":                 true,
	"prediction_period":    true,
	"prediction_frequency": true,
}

// ParseRequest decodes and validates a predict body. Required fields are
// checked in body-contract order (data, prediction_period,
// prediction_frequency) before optional ones. confidenceDefault applies
// when confidence_interval is absent or null.
func ParseRequest(body []byte, confidenceDefault bool) (*models.PredictRequest, error) {
	keys, raw, err := frame.ObjectKeys(body)
	if err != nil {
		return nil, NewServiceError(CodeBadRequest, "invalid JSON body")
	}

	req := &models.PredictRequest{ConfidenceInterval: confidenceDefault}
	if err := defaults.Set(req); err != nil {
		return nil, &ServiceError{Code: CodeInternal, Message: "failed to apply request defaults", Err: err}
	}

	// type mismatches on required fields leave zero values for the
	// validator to report; the first optional-field mismatch is kept
	var optionalErr string

	if v, ok := present(raw, "data"); ok {
		if table, err := frame.Decode(v); err == nil {
			req.Data = table
		}
	}
	if v, ok := present(raw, "prediction_period"); ok {
		req.PredictionPeriod, _ = decodeInt(v)
	}
	if v, ok := present(raw, "prediction_frequency"); ok {
		_ = json.Unmarshal(v, &req.PredictionFrequency)
	}
	if v, ok := present(raw, "feature_columns"); ok {
		if err := json.Unmarshal(v, &req.FeatureColumns); err != nil {
			optionalErr = fieldMessages["feature_columns"]
		}
	}
	if v, ok := present(raw, "confidence_interval"); ok {
		if err := json.Unmarshal(v, &req.ConfidenceInterval); err != nil && optionalErr == "" {
			optionalErr = fieldMessages["confidence_interval"]
		}
	}
	if err := detectCallback(req, keys, raw); err != nil && optionalErr == "" {
		optionalErr = err.Error()
	}

	verr := validate.Struct(req)
	var fieldErrs validator.ValidationErrors
	if errors.As(verr, &fieldErrs) && len(fieldErrs) > 0 {
		// dive errors are reported as feature_columns[i]
		name, _, _ := strings.Cut(fieldErrs[0].Field(), "[")
		if requiredFields[name] {
			return nil, NewServiceError(CodeMissingParameter, fieldMessages[name])
		}
		if optionalErr == "" {
			optionalErr = fieldMessages[name]
		}
	} else if verr != nil {
		return nil, &ServiceError{Code: CodeBadRequest, Message: verr.Error(), Err: verr}
	}
	if optionalErr != "" {
		return nil, NewServiceError(CodeBadRequest, optionalErr)
	}

	return req, nil
}

// detectCallback takes the first top-level key that names a callback.
// A null or empty value means no callback.
func detectCallback(req *models.PredictRequest, keys []string, raw map[string]json.RawMessage) error {
	for _, key := range keys {
		if !isCallbackKey(key) {
			continue
		}
		v, ok := present(raw, key)
		if !ok {
			return nil
		}
		var url string
		if err := json.Unmarshal(v, &url); err != nil {
			return errors.New("callback address must be a string")
		}
		req.CallbackKey = key
		req.CallbackURL = strings.TrimSpace(url)
		return nil
	}
	return nil
}

func isCallbackKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range models.CallbackKeys {
		if lower == k {
			return true
		}
	}
	return false
}

// present returns the raw value of key unless it is absent or null
func present(raw map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, ok := raw[key]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

// decodeInt accepts JSON integers only; 4.0, "4" and true are rejected
func decodeInt(v json.RawMessage) (int, bool) {
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var x interface{}
	if err := dec.Decode(&x); err != nil {
		return 0, false
	}
	n, ok := x.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil || int64(int(i)) != i {
		return 0, false
	}
	return int(i), true
}
