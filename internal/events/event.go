package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/soltixdb/forecaster/internal/logging"
)

// Type names a lifecycle transition
type Type string

const (
	ForecastCompleted Type = "forecast.completed"
	ForecastFailed    Type = "forecast.failed"
)

// DefaultPublishTimeout bounds a single publish
const DefaultPublishTimeout = 2 * time.Second

// Event describes the outcome of one forecast request
type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	RequestID   string    `json:"request_id"`
	Mode        string    `json:"mode"` // sync or async
	Frequency   string    `json:"frequency"`
	Horizon     int       `json:"horizon"`
	Predictions int       `json:"predictions,omitempty"`
	ErrorCode   string    `json:"error_code,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

// Emitter serializes events onto a single subject. Publish failures are
// logged and never returned to the caller.
type Emitter struct {
	publisher Publisher
	subject   string
	logger    *logging.Logger
	timeout   time.Duration
}

// NewEmitter creates an emitter publishing to subject
func NewEmitter(publisher Publisher, subject string, logger *logging.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		subject:   subject,
		logger:    logger,
		timeout:   DefaultPublishTimeout,
	}
}

// Emit publishes ev, filling in its id and timestamp when unset
func (e *Emitter) Emit(ctx context.Context, ev Event) {
	if e == nil || e.publisher == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		e.logger.Error("Failed to encode event", "type", string(ev.Type), "error", err)
		return
	}

	// detached from the request so a finished request does not cancel it
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	if err := e.publisher.Publish(pubCtx, e.subject, data); err != nil {
		e.logger.Warn("Failed to publish event",
			"type", string(ev.Type),
			"request_id", ev.RequestID,
			"subject", e.subject,
			"error", err,
		)
	}
}

// Close closes the underlying publisher
func (e *Emitter) Close() error {
	if e == nil || e.publisher == nil {
		return nil
	}
	return e.publisher.Close()
}
