// Package services holds the request-level logic between HTTP handlers and
// the forecasting pipeline: request parsing, sync execution and the
// asynchronous callback worker pool.
package services

import (
	"errors"

	"github.com/soltixdb/forecaster/internal/pipeline"
)

// Service error codes
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeMissingParameter = "MISSING_PARAMETER"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeServerBusy       = "SERVER_BUSY"
	CodeInternal         = "INTERNAL_ERROR"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// FromPipelineError classifies a pipeline failure. Insufficient data is the
// only client-correctable kind; column and level problems surface as
// internal errors because the boundary does not pre-validate them.
func FromPipelineError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	code := CodeInternal
	if errors.Is(err, pipeline.ErrInsufficientData) {
		code = CodeInsufficientData
	}
	return &ServiceError{Code: code, Message: err.Error(), Err: err}
}
