package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"ai-companion-be/internal/apperrors"
)

// ErrorHandlerMiddleware maps the error taxonomy onto HTTP status codes so
// handlers can just return errors.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message, "http_error"))
		}

		switch {
		case errors.Is(err, apperrors.ErrUnsupportedFormat):
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(err.Error(), "unsupported_format"))
		case errors.Is(err, apperrors.ErrNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(err.Error(), "not_found"))
		case errors.Is(err, apperrors.ErrEmbeddingUnavailable):
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse(err.Error(), "embedding_unavailable"))
		case errors.Is(err, apperrors.ErrNoProviderAvailable):
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse(err.Error(), "no_provider_available"))
		case errors.Is(err, apperrors.ErrStreamInterrupted):
			return ctx.Status(fiber.StatusBadGateway).JSON(ErrorResponse(err.Error(), "stream_interrupted"))
		case errors.Is(err, apperrors.ErrIndexCorruption):
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(err.Error(), "index_corruption"))
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("Internal server error", "internal_error"))
		}
	}
}
