package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"ai-loanengine-be/internal/repository/memory"
	"ai-loanengine-be/pkg/tools"
)

// ErrorHandlerMiddleware maps service and adapter errors to HTTP codes:
// validation failures to 400, unknown sessions to 404, invalid tool
// input to 422, unavailable tools to 503, anything else to 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			return ctx.Status(fiber.StatusBadRequest).
				JSON(ErrorResponse(fiber.StatusBadRequest, validationErr.Error()))
		}

		if errors.Is(err, memory.ErrSessionNotFound) {
			return ctx.Status(fiber.StatusNotFound).
				JSON(ErrorResponse(fiber.StatusNotFound, "session not found"))
		}

		var toolErr *tools.ToolError
		if errors.As(err, &toolErr) {
			switch toolErr.Kind {
			case tools.KindInvalidInput:
				return ctx.Status(fiber.StatusUnprocessableEntity).
					JSON(ErrorResponse(fiber.StatusUnprocessableEntity, toolErr.Error()))
			default:
				return ctx.Status(fiber.StatusServiceUnavailable).
					JSON(ErrorResponse(fiber.StatusServiceUnavailable, toolErr.Tool+" is temporarily unavailable"))
			}
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).
				JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).
			JSON(ErrorResponse(fiber.StatusInternalServerError, "internal server error"))
	}
}
