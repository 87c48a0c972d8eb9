package utils

import (
	"errors"

	"dottpay/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetSessionClaims extracts the session claims from the Fiber context.
// It returns an error if the claims are missing or of an invalid type.
func GetSessionClaims(c *fiber.Ctx) (*models.SessionClaims, error) {
	v := c.Locals("claims")
	if v == nil {
		return nil, errors.New("claims not found in context")
	}

	claims, ok := v.(*models.SessionClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
