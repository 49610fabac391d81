package handler

import (
	"go-pen-inventory/internal/repository"
	"go-pen-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CatalogHandler struct {
	service service.CatalogService
	log     logrus.FieldLogger
}

func NewCatalogHandler(s service.CatalogService, log logrus.FieldLogger) *CatalogHandler {
	return &CatalogHandler{service: s, log: log}
}

// ---- Brands ----

func (h *CatalogHandler) GetBrands(c *fiber.Ctx) error {
	brands, err := h.service.ListBrands(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(brands)
}

func (h *CatalogHandler) GetBrand(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid brand ID")
	}
	brand, err := h.service.GetBrand(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(brand)
}

func (h *CatalogHandler) CreateBrand(c *fiber.Ctx) error {
	var req service.BrandRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	brand, err := h.service.CreateBrand(c.UserContext(), &req, getUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(brand)
}

func (h *CatalogHandler) UpdateBrand(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid brand ID")
	}
	var req service.BrandRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	brand, err := h.service.UpdateBrand(c.UserContext(), id, &req, getUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(brand)
}

func (h *CatalogHandler) DeleteBrand(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid brand ID")
	}
	if err := h.service.DeleteBrand(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- Categories ----

func (h *CatalogHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.service.ListCategories(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(categories)
}

func (h *CatalogHandler) GetCategory(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid category ID")
	}
	category, err := h.service.GetCategory(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(category)
}

func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req service.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	category, err := h.service.CreateCategory(c.UserContext(), &req, getUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid category ID")
	}
	var req service.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	category, err := h.service.UpdateCategory(c.UserContext(), id, &req, getUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(category)
}

func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid category ID")
	}
	if err := h.service.DeleteCategory(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- Items ----

// GET /api/v1/items?name=jetstream&page=1
func (h *CatalogHandler) GetItems(c *fiber.Ctx) error {
	items, err := h.service.ListItems(c.UserContext(), c.Query("name"), pagination(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(items)
}

func (h *CatalogHandler) GetItem(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid item ID")
	}
	item, err := h.service.GetItem(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(item)
}

func (h *CatalogHandler) CreateItem(c *fiber.Ctx) error {
	var req service.ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	item, err := h.service.CreateItem(c.UserContext(), &req, getUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *CatalogHandler) UpdateItem(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid item ID")
	}
	var req service.ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	item, err := h.service.UpdateItem(c.UserContext(), id, &req, getUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(item)
}

func (h *CatalogHandler) DeleteItem(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid item ID")
	}
	if err := h.service.DeleteItem(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- Variants ----

func variantFilter(c *fiber.Ctx) (repository.VariantFilter, bool) {
	filter := repository.VariantFilter{
		Name:        c.Query("name"),
		BrandName:   c.Query("brand_name"),
		Category:    c.Query("category"),
		StockStatus: c.Query("stock_status"),
		Ordering:    c.Query("ordering"),
	}
	if raw := c.Query("item"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, false
		}
		filter.ItemID = &id
	}
	return filter, true
}

// GetVariants lists variants with filters.
// GET /api/v1/variants?name=&brand_name=&category=pen&stock_status=below_target&ordering=-price
func (h *CatalogHandler) GetVariants(c *fiber.Ctx) error {
	filter, ok := variantFilter(c)
	if !ok {
		return badRequest(c, "Invalid item ID")
	}
	page, err := h.service.ListVariants(c.UserContext(), filter, pagination(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(page)
}

func (h *CatalogHandler) GetVariant(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid variant ID")
	}
	variant, err := h.service.GetVariant(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(variant)
}

func (h *CatalogHandler) CreateVariant(c *fiber.Ctx) error {
	var req service.VariantCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	variant, err := h.service.CreateVariant(c.UserContext(), &req, getUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(variant)
}

// UpdateVariant serves both PUT and PATCH; absent fields are left as they are.
func (h *CatalogHandler) UpdateVariant(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid variant ID")
	}
	var req service.VariantUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	variant, err := h.service.UpdateVariant(c.UserContext(), id, &req, getUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(variant)
}

func (h *CatalogHandler) DeleteVariant(c *fiber.Ctx) error {
	id, ok := paramUUID(c)
	if !ok {
		return badRequest(c, "Invalid variant ID")
	}
	if err := h.service.DeleteVariant(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Summary groups variants into a nested tree keyed by the comma separated path.
// GET /api/v1/variants/summary?path=category_name,brand_name,color
func (h *CatalogHandler) Summary(c *fiber.Ctx) error {
	filter, ok := variantFilter(c)
	if !ok {
		return badRequest(c, "Invalid item ID")
	}
	tree, err := h.service.Summary(c.UserContext(), c.Query("path"), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(tree)
}
