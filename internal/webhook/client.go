// Package webhook delivers JSON payloads to client callback addresses.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/gofiber/fiber/v2"
)

// Headers set on every delivery
const (
	HeaderRequestID = "X-Request-ID"
	HeaderAPIKey    = "X-API-Key"
)

// ErrUnexpectedStatus is returned when the receiver answers outside 2xx
var ErrUnexpectedStatus = errors.New("unexpected callback status")

// Config configures outbound delivery
type Config struct {
	Timeout   time.Duration `default:"30s"`
	APIKey    string        // sent as X-API-Key when set
	UserAgent string        `default:"forecaster-webhook/1.0"`
}

// Client posts JSON payloads. Deliveries are attempted once.
type Client struct {
	cfg Config
}

// New creates a client, filling unset fields from their defaults
func New(cfg Config) (*Client, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("webhook config: %w", err)
	}
	return &Client{cfg: cfg}, nil
}

// Timeout returns the per-delivery timeout
func (c *Client) Timeout() time.Duration {
	return c.cfg.Timeout
}

// Post sends payload as JSON to url. The request carries requestID in
// X-Request-ID and the configured API key in X-API-Key.
func (c *Client) Post(ctx context.Context, url, requestID string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Post(url).
		UserAgent(c.cfg.UserAgent).
		Set(HeaderRequestID, requestID).
		Timeout(timeout).
		JSON(payload)
	if c.cfg.APIKey != "" {
		agent.Set(HeaderAPIKey, c.cfg.APIKey)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("callback to %s failed: %w", url, errors.Join(errs...))
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return fmt.Errorf("%w: %d from %s: %s", ErrUnexpectedStatus, code, url, truncate(body, 256))
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
