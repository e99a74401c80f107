package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/forecaster/internal/config"
	"github.com/soltixdb/forecaster/internal/logging"
	"github.com/soltixdb/forecaster/internal/models"
)

const bearerPrefix = "bearer "

// TokenAuth rejects requests without a configured token. The token is read
// from "Authorization: Bearer <token>" (scheme matched case-insensitively)
// or, failing that, from X-API-Key.
func TokenAuth(logger *logging.Logger, cfg config.AuthConfig) fiber.Handler {
	if !cfg.Enabled {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	allowed := normalizeTokens(cfg.Tokens())
	if len(allowed) == 0 {
		logger.Error("Authentication enabled but no tokens configured, every request will be rejected")
	}

	return func(c *fiber.Ctx) error {
		token := ExtractToken(c)
		if token == "" {
			logger.WithContext(c.UserContext()).Warn("Token missing",
				"path", c.Path(),
				"method", c.Method(),
				"ip", c.IP(),
			)
			return unauthorized(c)
		}

		if !containsToken(allowed, token) {
			logger.WithContext(c.UserContext()).Warn("Invalid token",
				"path", c.Path(),
				"method", c.Method(),
				"ip", c.IP(),
				"token_prefix", maskToken(token),
			)
			return unauthorized(c)
		}

		return c.Next()
	}
}

// ExtractToken returns the bearer token, or the X-API-Key value when no
// bearer token is present
func ExtractToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); len(h) >= len(bearerPrefix) &&
		strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		if token := strings.TrimSpace(h[len(bearerPrefix):]); token != "" {
			return token
		}
	}
	return strings.TrimSpace(c.Get("X-API-Key"))
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Error:   models.ErrorCodeUnauthorized,
		Message: "a valid token is required in the Authorization (Bearer) or X-API-Key header",
	})
}

// containsToken compares against every entry in constant time
func containsToken(allowed []string, token string) bool {
	found := 0
	for _, t := range allowed {
		found |= subtle.ConstantTimeCompare([]byte(t), []byte(token))
	}
	return found == 1
}

func normalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// maskToken masks a token for logging (show only first 4 chars)
func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
