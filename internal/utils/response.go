package utils

import "github.com/gofiber/fiber/v2"

// Respond sends a JSON response with the specified status code.
func Respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// Success sends a successful JSON response.
func Success(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusOK, data)
}

// Accepted sends a 202 for work queued rather than completed.
func Accepted(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusAccepted, data)
}

// BadRequest sends a JSON error response with status 400.
func BadRequest(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusBadRequest, fiber.Map{"error": message})
}

// Unauthorized sends a JSON error response with status 401.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusUnauthorized, fiber.Map{"error": message})
}

// NotFound sends a JSON error response with status 404.
func NotFound(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusNotFound, fiber.Map{"error": message})
}

// Conflict sends a JSON error response with status 409.
func Conflict(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusConflict, fiber.Map{"error": message})
}

// UnprocessableEntity sends a 422 with an arbitrary body, used for settlement
// rejections where the caller needs more than an error string.
func UnprocessableEntity(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusUnprocessableEntity, data)
}

// TooManyRequests sends a JSON error response with status 429.
func TooManyRequests(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusTooManyRequests, fiber.Map{"error": message})
}

// InternalError sends a JSON error response with status 500.
func InternalError(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusInternalServerError, fiber.Map{"error": message})
}

// ServiceUnavailable sends a 503 with an arbitrary body.
func ServiceUnavailable(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusServiceUnavailable, data)
}
