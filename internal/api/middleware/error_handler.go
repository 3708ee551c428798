package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/domain"
)

// ErrorResponse is the JSON envelope for every failed request.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Status:  "error",
		Message: message,
	})
}

func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// Check if it's our AppError
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			switch appErr.Kind {
			case domain.KindInvalidImage:
				logger.Warn("invalid image",
					slog.String("path", c.Path()),
					slog.Any("error", appErr.Err),
				)
				return errorJSON(c, appErr.StatusCode, appErr.Message)
			case domain.KindInvalidRequest:
				return errorJSON(c, appErr.StatusCode, appErr.Error())
			default:
				logger.Error("internal error",
					slog.String("code", appErr.Code),
					slog.String("path", c.Path()),
					slog.Any("error", appErr.Err),
				)
				return errorJSON(c, appErr.StatusCode, appErr.Error())
			}
		}

		// Check if it's a Fiber error
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return errorJSON(c, fiberErr.Code, fiberErr.Message)
		}

		// Unknown error
		logger.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Path()),
		)

		return errorJSON(c, fiber.StatusInternalServerError, domain.ErrInternal.WithError(err).Error())
	}
}
