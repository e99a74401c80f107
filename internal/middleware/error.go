package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/forecaster/internal/logging"
	"github.com/soltixdb/forecaster/internal/models"
)

// ErrorHandler renders errors that escaped the handlers as the flat
// {error, message} body
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		logger.WithContext(c.UserContext()).Error("Request error",
			"path", c.Path(),
			"method", c.Method(),
			"status", code,
			"error", err,
		)

		return c.Status(code).JSON(models.ErrorResponse{
			Error:   errorCode(code),
			Message: message,
		})
	}
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusMethodNotAllowed:
		return models.ErrorCodeBadRequest
	case fiber.StatusUnauthorized:
		return models.ErrorCodeUnauthorized
	case fiber.StatusNotFound:
		return models.ErrorCodeNotFound
	case fiber.StatusTooManyRequests:
		return models.ErrorCodeRateLimited
	case fiber.StatusServiceUnavailable:
		return models.ErrorCodeServerBusy
	default:
		return models.ErrorCodeInternal
	}
}
