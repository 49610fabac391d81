package handler

import (
	"fmt"

	"go-pen-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type StockHandler struct {
	service service.StockService
	log     logrus.FieldLogger
}

func NewStockHandler(s service.StockService, log logrus.FieldLogger) *StockHandler {
	return &StockHandler{service: s, log: log}
}

// BulkUpdate applies a batch of quantity changes and records it in the ledger.
// POST /api/v1/stock/bulk-update
func (h *StockHandler) BulkUpdate(c *fiber.Ctx) error {
	var req service.BulkUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	result, err := h.service.BulkUpdate(c.UserContext(), &req, getUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": fmt.Sprintf("Transaction batch created with %d lines.", result.Lines),
		"data":    result,
	})
}
