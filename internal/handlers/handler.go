// Package handlers implements the HTTP endpoints.
package handlers

import (
	"github.com/soltixdb/forecaster/internal/logging"
	"github.com/soltixdb/forecaster/internal/services"
)

// Version is reported by the health endpoint. Overridden at build time with
// -ldflags "-X github.com/soltixdb/forecaster/internal/handlers.Version=..."
var Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger         *logging.Logger
	predictService *services.PredictService
}

// New creates a new handler instance
func New(logger *logging.Logger, predictService *services.PredictService) *Handler {
	return &Handler{
		logger:         logger,
		predictService: predictService,
	}
}
