package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go-pen-inventory/internal/model"
	"go-pen-inventory/internal/repository"
	"go-pen-inventory/internal/testutil"
	"go-pen-inventory/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newStockService(t *testing.T) (StockService, *gorm.DB, *testutil.Catalog) {
	t.Helper()
	db := testutil.NewDB(t)
	catalog := testutil.SeedCatalog(t, db)
	svc := NewStockService(
		repository.NewStockStore(db, 0),
		repository.NewTransactionRepo(db),
		nil,
		logger.Discard(),
		PageDefaults{Default: 10, Max: 100},
	)
	return svc, db, catalog
}

func TestStock_SaleRecordsLedger(t *testing.T) {
	svc, db, catalog := newStockService(t)
	black := testutil.AddVariant(t, db, catalog.Item.ID, "Black", 10, "2.50")
	ctx := context.Background()

	res, err := svc.BulkUpdate(ctx, &BulkUpdateRequest{
		Type: model.TxSale,
		LineItems: []LineItemRequest{
			{Item: black.ID.String(), QuantityChange: -3, UnitPriceAtSale: decimalPtr("2.50")},
		},
	}, "cashier")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Lines)
	assert.Equal(t, 7, testutil.Quantity(t, db, black.ID))

	got, err := svc.GetTransaction(ctx, res.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.TxSale, got.Type)
	require.Len(t, got.TransactionItems, 1)
	line := got.TransactionItems[0]
	assert.Equal(t, -3, line.QuantityChange)
	assert.True(t, decimal.RequireFromString("2.50").Equal(line.UnitPriceAtSale))
	require.NotNil(t, line.Item)
	assert.Equal(t, black.ID, line.Item.ID)
	assert.Equal(t, "G2 Gel Pen", line.Item.Name)
}

func TestStock_FailedBatchLeavesStateUnchanged(t *testing.T) {
	svc, db, catalog := newStockService(t)
	black := testutil.AddVariant(t, db, catalog.Item.ID, "Black", 10, "2.50")
	blue := testutil.AddVariant(t, db, catalog.Item.ID, "Blue", 1, "2.50")
	ctx := context.Background()

	_, err := svc.BulkUpdate(ctx, &BulkUpdateRequest{
		Type: model.TxSale,
		LineItems: []LineItemRequest{
			{Item: black.ID.String(), QuantityChange: -4},
			{Item: blue.ID.String(), QuantityChange: -2},
		},
	}, "cashier")

	var insufficient *model.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, blue.ID, insufficient.VariantID)
	assert.Equal(t, 10, testutil.Quantity(t, db, black.ID))
	assert.Equal(t, 1, testutil.Quantity(t, db, blue.ID))

	var batches, lines int64
	require.NoError(t, db.Model(&model.Transaction{}).Count(&batches).Error)
	require.NoError(t, db.Model(&model.TransactionItem{}).Count(&lines).Error)
	assert.Zero(t, batches)
	assert.Zero(t, lines)
}

func TestStock_MultiLineRestockKeepsLineOrder(t *testing.T) {
	svc, db, catalog := newStockService(t)
	black := testutil.AddVariant(t, db, catalog.Item.ID, "Black", 0, "2.50")
	blue := testutil.AddVariant(t, db, catalog.Item.ID, "Blue", 5, "2.50")
	red := testutil.AddVariant(t, db, catalog.Item.ID, "Red", 2, "2.50")
	ctx := context.Background()

	res, err := svc.BulkUpdate(ctx, &BulkUpdateRequest{
		Type: model.TxRestock,
		LineItems: []LineItemRequest{
			{Item: red.ID.String(), QuantityChange: 8},
			{Item: black.ID.String(), QuantityChange: 12},
			{Item: blue.ID.String(), QuantityChange: 1},
		},
	}, "warehouse")
	require.NoError(t, err)

	assert.Equal(t, 12, testutil.Quantity(t, db, black.ID))
	assert.Equal(t, 6, testutil.Quantity(t, db, blue.ID))
	assert.Equal(t, 10, testutil.Quantity(t, db, red.ID))

	got, err := svc.GetTransaction(ctx, res.TransactionID)
	require.NoError(t, err)
	require.Len(t, got.TransactionItems, 3)
	assert.Equal(t, red.ID, got.TransactionItems[0].Item.ID)
	assert.Equal(t, black.ID, got.TransactionItems[1].Item.ID)
	assert.Equal(t, blue.ID, got.TransactionItems[2].Item.ID)
}

func TestStock_ConcurrentSalesNeverOversell(t *testing.T) {
	svc, db, catalog := newStockService(t)
	black := testutil.AddVariant(t, db, catalog.Item.ID, "Black", 5, "2.50")
	ctx := context.Background()

	const workers = 2
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.BulkUpdate(ctx, &BulkUpdateRequest{
				Type:      model.TxSale,
				LineItems: []LineItemRequest{{Item: black.ID.String(), QuantityChange: -4}},
			}, "cashier")
		}(i)
	}
	wg.Wait()

	committed := 0
	for _, err := range errs {
		if err == nil {
			committed++
			continue
		}
		var insufficient *model.InsufficientStockError
		assert.True(t, errors.As(err, &insufficient), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, testutil.Quantity(t, db, black.ID))
}

func TestStock_DeletedVariantKeepsHistory(t *testing.T) {
	svc, db, catalog := newStockService(t)
	black := testutil.AddVariant(t, db, catalog.Item.ID, "Black", 3, "2.50")
	ctx := context.Background()

	res, err := svc.BulkUpdate(ctx, &BulkUpdateRequest{
		Type:      model.TxSale,
		LineItems: []LineItemRequest{{Item: black.ID.String(), QuantityChange: -1}},
	}, "cashier")
	require.NoError(t, err)

	require.NoError(t, repository.NewVariantRepo(db).Delete(ctx, black.ID))

	got, err := svc.GetTransaction(ctx, res.TransactionID)
	require.NoError(t, err)
	require.Len(t, got.TransactionItems, 1)
	assert.Nil(t, got.TransactionItems[0].Item)
	assert.Equal(t, -1, got.TransactionItems[0].QuantityChange)
}

func TestStock_ListAndExport(t *testing.T) {
	svc, db, catalog := newStockService(t)
	black := testutil.AddVariant(t, db, catalog.Item.ID, "Black", 10, "2.50")
	ctx := context.Background()

	for _, tc := range []struct {
		typ    model.TransactionType
		change int
	}{{model.TxRestock, 5}, {model.TxSale, -2}, {model.TxSale, -1}} {
		_, err := svc.BulkUpdate(ctx, &BulkUpdateRequest{
			Type:      tc.typ,
			LineItems: []LineItemRequest{{Item: black.ID.String(), QuantityChange: tc.change}},
		}, "cashier")
		require.NoError(t, err)
	}

	sales, err := svc.ListTransactions(ctx, repository.TransactionFilter{Type: model.TxSale}, repository.Pagination{Page: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, sales.Count)
	for _, tx := range sales.Results {
		assert.Equal(t, model.TxSale, tx.Type)
	}

	_, err = svc.ListTransactions(ctx, repository.TransactionFilter{Type: "refund"}, repository.Pagination{})
	requireFieldError(t, err, "type")

	data, err := svc.ExportTransactions(ctx, repository.TransactionFilter{})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// xlsx files are zip archives
	assert.Equal(t, "PK", string(data[:2]))
}
