package service

import (
	"context"
	"errors"
	"testing"

	"go-pen-inventory/internal/model"
	"go-pen-inventory/internal/repository"
	"go-pen-inventory/internal/testutil"
	"go-pen-inventory/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCatalogService(t *testing.T) (CatalogService, *gorm.DB, *testutil.Catalog) {
	t.Helper()
	db := testutil.NewDB(t)
	catalog := testutil.SeedCatalog(t, db)
	svc := NewCatalogService(
		repository.NewBrandRepo(db),
		repository.NewCategoryRepo(db),
		repository.NewItemRepo(db),
		repository.NewVariantRepo(db),
		nil,
		logger.Discard(),
		PageDefaults{Default: 10, Max: 100},
	)
	return svc, db, catalog
}

func TestCatalog_CreateVariant(t *testing.T) {
	svc, _, catalog := newCatalogService(t)
	ctx := context.Background()

	got, err := svc.CreateVariant(ctx, &VariantCreateRequest{
		ItemID:     catalog.Item.ID,
		Attributes: model.Attributes{"color": " Dark Blue ", "tip_size": "0.7"},
		Price:      decimal.RequireFromString("3.455"),
		Quantity:   12,
	}, "admin")
	require.NoError(t, err)

	assert.Equal(t, model.ComputeSKU(catalog.Item.ID, model.Attributes{"color": "Dark Blue", "tip_size": "0.7"}), got.SKU)
	assert.Equal(t, "Dark Blue", got.Attributes["color"])
	assert.Equal(t, 12, got.Quantity)
	assert.True(t, decimal.RequireFromString("3.46").Equal(got.Price))
	assert.Equal(t, "Pilot", got.ItemDetails.BrandName)
	assert.Equal(t, "Pen", got.ItemDetails.CategoryName)
}

func TestCatalog_CreateVariantValidation(t *testing.T) {
	svc, _, catalog := newCatalogService(t)
	ctx := context.Background()

	t.Run("schema mismatch", func(t *testing.T) {
		_, err := svc.CreateVariant(ctx, &VariantCreateRequest{
			ItemID:     catalog.Item.ID,
			Attributes: model.Attributes{"color": "Black"},
		}, "admin")
		requireFieldError(t, err, "attributes.tip_size")
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := svc.CreateVariant(ctx, &VariantCreateRequest{
			ItemID:     uuid.New(),
			Attributes: model.Attributes{"color": "Black", "tip_size": "0.5"},
		}, "admin")
		requireFieldError(t, err, "item")
	})

	t.Run("negative quantity", func(t *testing.T) {
		_, err := svc.CreateVariant(ctx, &VariantCreateRequest{
			ItemID:     catalog.Item.ID,
			Attributes: model.Attributes{"color": "Black", "tip_size": "0.5"},
			Quantity:   -1,
		}, "admin")
		requireFieldError(t, err, "quantity")
	})

	t.Run("duplicate sku", func(t *testing.T) {
		req := &VariantCreateRequest{
			ItemID:     catalog.Item.ID,
			Attributes: model.Attributes{"color": "Green", "tip_size": "0.5"},
		}
		_, err := svc.CreateVariant(ctx, req, "admin")
		require.NoError(t, err)

		_, err = svc.CreateVariant(ctx, &VariantCreateRequest{
			ItemID:     catalog.Item.ID,
			Attributes: model.Attributes{"color": "green", "tip_size": "0.5"},
		}, "admin")
		requireFieldError(t, err, "sku")
	})
}

func TestCatalog_UpdateVariantRejectsQuantity(t *testing.T) {
	svc, db, catalog := newCatalogService(t)
	v := testutil.AddVariant(t, db, catalog.Item.ID, "Black", 4, "2.50")
	qty := 100

	_, err := svc.UpdateVariant(context.Background(), v.ID, &VariantUpdateRequest{Quantity: &qty}, "admin")

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Quantity cannot be updated directly. Use the bulk stock update endpoint."}, verr.Fields["quantity"])
	assert.Equal(t, 4, testutil.Quantity(t, db, v.ID))
}

func TestCatalog_UpdateVariantRecomputesSKU(t *testing.T) {
	svc, db, catalog := newCatalogService(t)
	v := testutil.AddVariant(t, db, catalog.Item.ID, "Black", 4, "2.50")
	attrs := model.Attributes{"color": "Red", "tip_size": "0.5"}
	target := 20

	got, err := svc.UpdateVariant(context.Background(), v.ID, &VariantUpdateRequest{
		Attributes:     &attrs,
		TargetQuantity: &target,
	}, "admin")
	require.NoError(t, err)

	assert.Equal(t, model.ComputeSKU(catalog.Item.ID, attrs), got.SKU)
	assert.NotEqual(t, v.SKU, got.SKU)
	assert.Equal(t, 20, got.TargetQuantity)
	assert.Equal(t, 4, got.Quantity)
}

func TestCatalog_ListVariantsFilters(t *testing.T) {
	svc, db, catalog := newCatalogService(t)
	ctx := context.Background()
	testutil.AddVariant(t, db, catalog.Item.ID, "Black", 0, "2.50")
	testutil.AddVariant(t, db, catalog.Item.ID, "Blue", 8, "3.00")
	testutil.AddVariant(t, db, catalog.Item.ID, "Red", 3, "1.00")

	out, err := svc.ListVariants(ctx, repository.VariantFilter{StockStatus: model.StockOutOfStock}, repository.Pagination{})
	require.NoError(t, err)
	require.EqualValues(t, 1, out.Count)
	assert.Equal(t, "Black", out.Results[0].Attributes["color"])

	inStock, err := svc.ListVariants(ctx, repository.VariantFilter{StockStatus: model.StockInStock, Ordering: "-price"}, repository.Pagination{})
	require.NoError(t, err)
	require.Len(t, inStock.Results, 2)
	assert.Equal(t, "Blue", inStock.Results[0].Attributes["color"])

	byCategory, err := svc.ListVariants(ctx, repository.VariantFilter{Category: "pen", BrandName: "pil"}, repository.Pagination{PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, byCategory.Count)
	assert.Len(t, byCategory.Results, 2)
	assert.Equal(t, 2, byCategory.TotalPages)

	none, err := svc.ListVariants(ctx, repository.VariantFilter{Category: "penrefill"}, repository.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, none.Count)
	assert.NotNil(t, none.Results)

	_, err = svc.ListVariants(ctx, repository.VariantFilter{StockStatus: "plenty"}, repository.Pagination{})
	requireFieldError(t, err, "stock_status")
}

func TestCatalog_Summary(t *testing.T) {
	svc, db, catalog := newCatalogService(t)
	testutil.AddVariant(t, db, catalog.Item.ID, "Black", 1, "2.50")
	testutil.AddVariant(t, db, catalog.Item.ID, "Blue", 1, "2.50")

	tree, err := svc.Summary(context.Background(), "", repository.VariantFilter{})
	require.NoError(t, err)

	pen, ok := tree["Pen"].(map[string]interface{})
	require.True(t, ok)
	pilot, ok := pen["Pilot"].(map[string]interface{})
	require.True(t, ok)
	black, ok := pilot["Black"].([]model.VariantResponse)
	require.True(t, ok)
	assert.Len(t, black, 1)
	assert.Contains(t, pilot, "Blue")

	flat, err := svc.Summary(context.Background(), "tip_size", repository.VariantFilter{})
	require.NoError(t, err)
	assert.Len(t, flat["0.5"], 2)
}

func TestCatalog_CategorySchemaChangeGuard(t *testing.T) {
	svc, db, catalog := newCatalogService(t)
	testutil.AddVariant(t, db, catalog.Item.ID, "Black", 1, "2.50")
	ctx := context.Background()

	_, err := svc.UpdateCategory(ctx, catalog.Category.ID, &CategoryRequest{
		Name:            "Pen",
		AttributeSchema: []string{"color"},
	}, "admin")
	requireFieldError(t, err, "attribute_schema")

	// same keys in another order is not a change
	_, err = svc.UpdateCategory(ctx, catalog.Category.ID, &CategoryRequest{
		Name:            "Pen",
		Description:     "Writing instruments",
		AttributeSchema: []string{"tip_size", "color"},
	}, "admin")
	require.NoError(t, err)
}

func TestCatalog_BrandNamesAreUnique(t *testing.T) {
	svc, _, catalog := newCatalogService(t)
	ctx := context.Background()

	_, err := svc.CreateBrand(ctx, &BrandRequest{Name: catalog.Brand.Name}, "admin")
	requireFieldError(t, err, "name")

	lamy, err := svc.CreateBrand(ctx, &BrandRequest{Name: "Lamy"}, "admin")
	require.NoError(t, err)

	// renaming to its own name is fine
	_, err = svc.UpdateBrand(ctx, lamy.ID, &BrandRequest{Name: "Lamy", Description: "German"}, "admin")
	require.NoError(t, err)
}

func TestCatalog_ItemReferencesMustExist(t *testing.T) {
	svc, _, _ := newCatalogService(t)
	missing := uuid.New()

	_, err := svc.CreateItem(context.Background(), &ItemRequest{Name: "Sarasa", BrandID: &missing}, "admin")

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{`Invalid pk "` + missing.String() + `" - object does not exist.`}, verr.Fields["brand_id"])
}

func TestCatalog_DeleteItemDetachesLedger(t *testing.T) {
	svc, db, catalog := newCatalogService(t)
	v := testutil.AddVariant(t, db, catalog.Item.ID, "Black", 5, "2.50")
	ctx := context.Background()

	stock := NewStockService(repository.NewStockStore(db, 0), repository.NewTransactionRepo(db), nil, logger.Discard(), PageDefaults{Default: 10, Max: 100})
	res, err := stock.BulkUpdate(ctx, &BulkUpdateRequest{
		Type:      model.TxSale,
		LineItems: []LineItemRequest{{Item: v.ID.String(), QuantityChange: -1}},
	}, "cashier")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItem(ctx, catalog.Item.ID))

	_, err = svc.GetVariant(ctx, v.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	batch, err := stock.GetTransaction(ctx, res.TransactionID)
	require.NoError(t, err)
	require.Len(t, batch.TransactionItems, 1)
	assert.Nil(t, batch.TransactionItems[0].Item)
}
