package controllers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soutienweb/cagnotte/internal/pkg/usercontext"
)

func TestCurrentAccountRefusesAdminSessions(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		// An operator whose numeric id collides with a customer account.
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			AdminID:    7,
			AccountID:  7,
			Email:      "operateur@example.org",
			IsLoggedIn: true,
			IsAdmin:    true,
		})
		return c.Next()
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		// The repository factory is not initialized here; currentAccount
		// reaching for it would panic, so a clean nil also proves no
		// account lookup happened for the admin session.
		assert.Nil(t, currentAccount(c))
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestCurrentAccountAnonymous(t *testing.T) {
	app := fiber.New()
	app.Get("/whoami", func(c *fiber.Ctx) error {
		assert.Nil(t, currentAccount(c))
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
