package handler

import (
	"fmt"
	"time"

	"go-pen-inventory/internal/model"
	"go-pen-inventory/internal/repository"
	"go-pen-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type TransactionHandler struct {
	service service.StockService
	log     logrus.FieldLogger
}

func NewTransactionHandler(s service.StockService, log logrus.FieldLogger) *TransactionHandler {
	return &TransactionHandler{service: s, log: log}
}

func transactionFilter(c *fiber.Ctx) repository.TransactionFilter {
	return repository.TransactionFilter{
		Type:     model.TransactionType(c.Query("type")),
		Ordering: c.Query("ordering"),
	}
}

// GetTransactions lists ledger batches, oldest first unless ordering says otherwise.
// GET /api/v1/transactions?type=sale&ordering=-datetime_created&page=1
func (h *TransactionHandler) GetTransactions(c *fiber.Ctx) error {
	page, err := h.service.ListTransactions(c.UserContext(), transactionFilter(c), pagination(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(page)
}

// GET /api/v1/transactions/:id
func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid transaction ID")
	}

	tx, err := h.service.GetTransaction(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(tx)
}

// ExportTransactions streams the ledger as an xlsx workbook.
// GET /api/v1/transactions/export
func (h *TransactionHandler) ExportTransactions(c *fiber.Ctx) error {
	data, err := h.service.ExportTransactions(c.UserContext(), transactionFilter(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	filename := fmt.Sprintf("ledger_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	return c.Send(data)
}
