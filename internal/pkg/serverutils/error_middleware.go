package serverutils

import (
	"errors"

	"codeframe-be/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps service errors to HTTP statuses so controllers
// can just return them.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var valErr *ValidationError
		if errors.As(err, &valErr) {
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(fiber.StatusBadRequest, valErr.Message))
		}

		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, apperr.ErrInvalidConfig),
			errors.Is(err, apperr.ErrInvalidMerge),
			errors.Is(err, apperr.ErrRunNotCompleted):
			status = fiber.StatusBadRequest
		case errors.Is(err, apperr.ErrRunNotFound),
			errors.Is(err, apperr.ErrNodeNotFound),
			errors.Is(err, apperr.ErrCategoryNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, apperr.ErrDuplicateSiblingName),
			errors.Is(err, apperr.ErrRunCancelled),
			errors.Is(err, apperr.ErrRunFinished):
			status = fiber.StatusConflict
		case errors.Is(err, apperr.ErrEmbeddingUnavailable):
			status = fiber.StatusBadGateway
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}

		return ctx.Status(status).JSON(ErrorResponse(status, err.Error()))
	}
}
