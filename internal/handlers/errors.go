package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/automax/grievance-backend/internal/services"
	"github.com/automax/grievance-backend/pkg/utils"
)

// respondError maps service errors to status codes. Messages stay generic;
// the hint carries what the caller can act on.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		hint := strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": ")
		return utils.ErrorResponseWithHint(c, fiber.StatusBadRequest, "Invalid request", hint)
	case errors.Is(err, services.ErrNotFound):
		return utils.ErrorResponseWithHint(c, fiber.StatusNotFound, "Grievance not found", "Check the token id")
	case errors.Is(err, services.ErrDependencyUnavailable):
		return utils.ErrorResponseWithHint(c, fiber.StatusServiceUnavailable, "Service temporarily unavailable", "Retry shortly")
	default:
		return utils.ErrorResponseWithHint(c, fiber.StatusInternalServerError, "Internal server error", "Retry later or contact the grievance cell")
	}
}

// ErrorHandler renders errors that escape handlers in the standard envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return utils.ErrorResponse(c, code, message)
}
