package handler

import (
	"go-pen-inventory/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// getUserID returns the authenticated user id set by middleware.RequireAuth.
func getUserID(c *fiber.Ctx) string {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return "system"
	}
	return userID
}

// paramUUID parses the :id route parameter.
func paramUUID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func pagination(c *fiber.Ctx) repository.Pagination {
	return repository.Pagination{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 0),
	}
}
