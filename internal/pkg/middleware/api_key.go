package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/soutienweb/cagnotte/internal/pkg/env"
)

// SyncAPIAuthMiddleware authenticates requests to the account sync API
// carrying the shared bearer credential.
func SyncAPIAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerFromHeader(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing bearer token"})
		}

		expected := env.GetEnv("SYNC_API_TOKEN", "")
		if expected == "" {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Sync API not configured"})
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid bearer token"})
		}

		return c.Next()
	}
}

func extractBearerFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
