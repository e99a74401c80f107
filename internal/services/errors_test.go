package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/soltixdb/forecaster/internal/pipeline"
)

func TestServiceError_Error(t *testing.T) {
	err := NewServiceError(CodeBadRequest, "invalid JSON body")

	if err.Error() != "invalid JSON body" {
		t.Errorf("Expected 'invalid JSON body', got '%s'", err.Error())
	}
	if err.Code != CodeBadRequest {
		t.Errorf("Expected code %s, got '%s'", CodeBadRequest, err.Code)
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	cause := errors.New("queue full")
	err := &ServiceError{Code: CodeServerBusy, Message: "busy", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to reach the wrapped cause")
	}

	wrapped := fmt.Errorf("submit: %w", err)
	var svcErr *ServiceError
	if !errors.As(wrapped, &svcErr) || svcErr.Code != CodeServerBusy {
		t.Errorf("Expected errors.As to find SERVER_BUSY, got %v", svcErr)
	}
}

func TestServiceError_JSONOmitsCause(t *testing.T) {
	err := &ServiceError{Code: CodeInternal, Message: "boom", Err: errors.New("secret")}

	b, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		t.Fatalf("Failed to marshal ServiceError: %v", marshalErr)
	}
	s := string(b)
	if strings.Contains(s, "secret") {
		t.Errorf("Expected wrapped cause to stay out of JSON, got %s", s)
	}
	if !strings.Contains(s, `"code":"INTERNAL_ERROR"`) {
		t.Errorf("Expected code in JSON, got %s", s)
	}
}

func TestFromPipelineError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"insufficient data", fmt.Errorf("%w: at least 30 data points are required", pipeline.ErrInsufficientData), CodeInsufficientData},
		{"generic failure", errors.New("forecast failed: singular matrix"), CodeInternal},
		{"already classified", NewServiceError(CodeBadRequest, "bad"), CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromPipelineError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, got.Code)
			}
			if got.Message != tt.err.Error() {
				t.Errorf("Expected message %q, got %q", tt.err.Error(), got.Message)
			}
		})
	}

	if FromPipelineError(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}
