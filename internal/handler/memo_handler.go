package handler

import (
	"go-pen-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type MemoHandler struct {
	service service.MemoService
	log     logrus.FieldLogger
}

func NewMemoHandler(s service.MemoService, log logrus.FieldLogger) *MemoHandler {
	return &MemoHandler{service: s, log: log}
}

func (h *MemoHandler) GetMemos(c *fiber.Ctx) error {
	memos, err := h.service.List(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(memos)
}

func (h *MemoHandler) GetMemo(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid memo ID")
	}
	memo, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(memo)
}

func (h *MemoHandler) CreateMemo(c *fiber.Ctx) error {
	var req service.MemoRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	memo, err := h.service.Create(c.UserContext(), &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(memo)
}

func (h *MemoHandler) UpdateMemo(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid memo ID")
	}
	var req service.MemoRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	memo, err := h.service.Update(c.UserContext(), id, &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(memo)
}

func (h *MemoHandler) DeleteMemo(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid memo ID")
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
