package handler

import (
	"errors"

	"go-pen-inventory/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// respondError maps domain errors to HTTP statuses. Anything unrecognised is
// logged and answered with a generic 500 so internals never leak.
func respondError(c *fiber.Ctx, log logrus.FieldLogger, err error) error {
	var (
		verr         *model.ValidationError
		insufficient *model.InsufficientStockError
		notFound     *model.NotFoundError
		conflict     *model.ConflictError
	)

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error",
			"errors": verr.Fields,
		})

	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"status": "error",
			"detail": insufficient.Error(),
			"item":   insufficient.VariantID,
			"sku":    insufficient.SKU,
			"have":   insufficient.Have,
			"need":   insufficient.Need,
		})

	case errors.As(err, &notFound):
		body := fiber.Map{
			"status": "error",
			"detail": notFound.Error(),
		}
		if notFound.Field != "" {
			body["errors"] = map[string][]string{notFound.Field: {notFound.Error()}}
		}
		return c.Status(fiber.StatusNotFound).JSON(body)

	case errors.As(err, &conflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"status": "error",
			"detail": conflict.Error(),
		})
	}

	log.WithFields(logrus.Fields{
		"method":     c.Method(),
		"path":       c.Path(),
		"request_id": c.Locals("requestid"),
	}).WithError(err).Error("Unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"status": "error",
		"detail": "An unexpected error occurred.",
	})
}

func badRequest(c *fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status": "error",
		"detail": detail,
	})
}
