package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/thangnstse171771/cakestory-messaging/internal/auth"
)

const localAccountID = "account_id"

func JWTAuthMiddleware(jv *auth.Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get("Authorization")
		if h == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing auth"})
		}
		const pref = "Bearer "
		if !strings.HasPrefix(h, pref) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid auth"})
		}
		accountID, err := jv.Validate(h[len(pref):])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		c.Locals(localAccountID, accountID)
		return c.Next()
	}
}

func callerAccountID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(localAccountID).(int64)
	return id
}
