package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-pen-inventory/internal/repository"
	"go-pen-inventory/internal/service"
	"go-pen-inventory/internal/testutil"
	"go-pen-inventory/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCatalogApp(t *testing.T) (*fiber.App, *gorm.DB, *testutil.Catalog) {
	t.Helper()
	db := testutil.NewDB(t)
	catalog := testutil.SeedCatalog(t, db)
	svc := service.NewCatalogService(
		repository.NewBrandRepo(db),
		repository.NewCategoryRepo(db),
		repository.NewItemRepo(db),
		repository.NewVariantRepo(db),
		nil,
		logger.Discard(),
		service.PageDefaults{Default: 10, Max: 100},
	)
	h := NewCatalogHandler(svc, logger.Discard())

	app := fiber.New()
	app.Get("/brands", h.GetBrands)
	app.Post("/brands", h.CreateBrand)
	app.Delete("/brands/:id", h.DeleteBrand)
	app.Get("/items/:id", h.GetItem)
	app.Get("/variants", h.GetVariants)
	app.Get("/variants/summary", h.Summary)
	app.Get("/variants/:id", h.GetVariant)
	app.Post("/variants", h.CreateVariant)
	app.Patch("/variants/:id", h.UpdateVariant)
	app.Delete("/variants/:id", h.DeleteVariant)
	return app, db, catalog
}

func TestCatalogHandler_VariantLifecycle(t *testing.T) {
	app, _, catalog := newCatalogApp(t)

	body := `{"item":"` + catalog.Item.ID.String() + `","attributes":{"color":"Black","tip_size":"0.5"},"price":"2.50","quantity":10}`
	status, created := doJSON(t, app, http.MethodPost, "/variants", body)
	require.Equal(t, http.StatusCreated, status, created)
	id := created["id"].(string)
	assert.EqualValues(t, 10, created["quantity"])
	assert.NotEmpty(t, created["sku"])
	details := created["item_details"].(map[string]interface{})
	assert.Equal(t, "Pilot", details["brand_name"])

	status, out := doJSON(t, app, http.MethodPatch, "/variants/"+id, `{"quantity":99}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, out["errors"], "quantity")

	status, out = doJSON(t, app, http.MethodPatch, "/variants/"+id, `{"target_quantity":25}`)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 25, out["target_quantity"])
	assert.EqualValues(t, 10, out["quantity"])

	status, out = doJSON(t, app, http.MethodGet, "/variants?stock_status=below_target", "")
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, out["count"])

	req := httptest.NewRequest(http.MethodDelete, "/variants/"+id, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	status, _ = doJSON(t, app, http.MethodGet, "/variants/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCatalogHandler_CreateVariantSchemaError(t *testing.T) {
	app, _, catalog := newCatalogApp(t)

	body := `{"item":"` + catalog.Item.ID.String() + `","attributes":{"color":"Black","ink":"gel"},"price":"1.00"}`
	status, out := doJSON(t, app, http.MethodPost, "/variants", body)

	assert.Equal(t, http.StatusBadRequest, status)
	errs := out["errors"].(map[string]interface{})
	assert.Contains(t, errs, "attributes.tip_size")
	assert.Contains(t, errs, "attributes.ink")
}

func TestCatalogHandler_Summary(t *testing.T) {
	app, db, catalog := newCatalogApp(t)
	testutil.AddVariant(t, db, catalog.Item.ID, "Black", 1, "2.50")

	req := httptest.NewRequest(http.MethodGet, "/variants/summary?path=brand_name,color", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var tree map[string]map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &tree))
	require.Len(t, tree["Pilot"]["Black"], 1)
	assert.EqualValues(t, 1, tree["Pilot"]["Black"][0]["quantity"])
}

func TestCatalogHandler_BadInput(t *testing.T) {
	app, _, _ := newCatalogApp(t)

	status, _ := doJSON(t, app, http.MethodGet, "/variants?item=nope", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, out := doJSON(t, app, http.MethodGet, "/variants?stock_status=plenty", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, out["errors"], "stock_status")

	status, _ = doJSON(t, app, http.MethodGet, "/items/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, status)

	status, out = doJSON(t, app, http.MethodPost, "/brands", `{"name":"Pilot"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, out["errors"], "name")
}
