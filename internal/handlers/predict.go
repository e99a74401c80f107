package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/forecaster/internal/models"
	"github.com/soltixdb/forecaster/internal/services"
)

// Predict handles forecast requests
// POST /api/v1/predict
//
// Without a callback key the forecast is computed inline and returned. With
// one, the request is acknowledged at once and the result is posted to the
// callback address when ready.
func (h *Handler) Predict(c *fiber.Ctx) error {
	req, err := h.predictService.ParseRequest(c.Body())
	if err != nil {
		return h.writeError(c, err)
	}

	if req.Async() {
		ack, err := h.predictService.Submit(c.UserContext(), req)
		if err != nil {
			return h.writeError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(ack)
	}

	resp, err := h.predictService.Execute(c.UserContext(), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// writeError renders a service error with its HTTP status. Anything that is
// not a ServiceError is an internal error.
func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		svcErr = &services.ServiceError{Code: services.CodeInternal, Message: err.Error(), Err: err}
	}

	status := statusFor(svcErr.Code)
	if status >= fiber.StatusInternalServerError {
		h.logger.WithContext(c.UserContext()).Error("Predict request failed", "code", svcErr.Code, "error", err)
	}

	return c.Status(status).JSON(models.ErrorResponse{
		Error:   strings.ToLower(svcErr.Code),
		Message: svcErr.Message,
	})
}

func statusFor(code string) int {
	switch code {
	case services.CodeBadRequest, services.CodeMissingParameter:
		return fiber.StatusBadRequest
	case services.CodeInsufficientData:
		return fiber.StatusUnprocessableEntity
	case services.CodeServerBusy:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
