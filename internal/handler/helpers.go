package handler

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func userIDFromContext(c *fiber.Ctx) string {
	if value, ok := c.Locals("user_id").(string); ok {
		return value
	}
	return ""
}

func userRoleFromContext(c *fiber.Ctx) string {
	if value, ok := c.Locals("user_role").(string); ok {
		return value
	}
	return ""
}

func parseQueryInt(c *fiber.Ctx, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return value, nil
}
