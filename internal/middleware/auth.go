// Package middleware provides HTTP middleware for the API. Sessions are
// minted by the external identity provider; the engine only validates them
// and reads the subject.
package middleware

import (
	"log"
	"strings"

	"dottpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// SessionAuth validates the Bearer token and stores the session claims in
// the request context under "claims" and "subjectID".
func SessionAuth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims, err := utils.ParseSessionToken(tokenString)
	if err != nil {
		log.Printf("token validation error: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}

	if claims.SubjectID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid claims"})
	}

	c.Locals("claims", claims)
	c.Locals("subjectID", claims.SubjectID)

	return c.Next()
}
