package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"go-pen-inventory/internal/model"
	"go-pen-inventory/internal/repository"
	"go-pen-inventory/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStockTx struct {
	mock.Mock
}

func (m *mockStockTx) LockVariants(ids []uuid.UUID) ([]model.ItemVariant, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ItemVariant), args.Error(1)
}

func (m *mockStockTx) SaveQuantities(variants []*model.ItemVariant, updatedBy string) error {
	args := m.Called(variants, updatedBy)
	return args.Error(0)
}

func (m *mockStockTx) CreateBatch(batch *model.Transaction) error {
	args := m.Called(batch)
	return args.Error(0)
}

type mockStockStore struct {
	mock.Mock
	tx *mockStockTx
}

// WithTx runs fn against the mock transaction, like a real store would.
func (m *mockStockStore) WithTx(ctx context.Context, fn func(tx repository.StockTx) error) error {
	m.Called(ctx)
	return fn(m.tx)
}

func (m *mockStockStore) FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ItemVariant, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ItemVariant), args.Error(1)
}

func newMockStockService() (*stockService, *mockStockStore) {
	store := &mockStockStore{tx: &mockStockTx{}}
	svc := NewStockService(store, nil, nil, logger.Discard(), PageDefaults{Default: 10, Max: 100})
	return svc.(*stockService), store
}

func stockedVariant(qty int) model.ItemVariant {
	v := model.ItemVariant{ItemID: uuid.New(), Quantity: qty, Attributes: model.Attributes{"color": "Black"}}
	v.ID = uuid.New()
	v.RefreshSKU()
	return v
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	assert.Contains(t, verr.Fields, field)
}

func TestBulkUpdate_ShapeValidation(t *testing.T) {
	id := uuid.NewString()
	cases := []struct {
		name  string
		req   BulkUpdateRequest
		field string
	}{
		{"missing type", BulkUpdateRequest{LineItems: []LineItemRequest{{Item: id, QuantityChange: 1}}}, "type"},
		{"unknown type", BulkUpdateRequest{Type: "refund", LineItems: []LineItemRequest{{Item: id, QuantityChange: 1}}}, "type"},
		{"no lines", BulkUpdateRequest{Type: model.TxSale}, "line_items"},
		{"empty lines", BulkUpdateRequest{Type: model.TxSale, LineItems: []LineItemRequest{}}, "line_items"},
		{"zero change", BulkUpdateRequest{Type: model.TxSale, LineItems: []LineItemRequest{{Item: id}}}, "line_items[0].quantity_change"},
		{"change below range", BulkUpdateRequest{Type: model.TxSale, LineItems: []LineItemRequest{{Item: id, QuantityChange: math.MinInt}}}, "line_items[0].quantity_change"},
		{"change above range", BulkUpdateRequest{Type: model.TxRestock, LineItems: []LineItemRequest{{Item: id, QuantityChange: math.MaxInt}}}, "line_items[0].quantity_change"},
		{"bad uuid", BulkUpdateRequest{Type: model.TxSale, LineItems: []LineItemRequest{{Item: "nope", QuantityChange: -1}}}, "line_items[0].item"},
		{"negative price", BulkUpdateRequest{Type: model.TxSale, LineItems: []LineItemRequest{{Item: id, QuantityChange: -1, UnitPriceAtSale: decimalPtr("-1")}}}, "line_items[0].unit_price_at_sale"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newMockStockService()

			_, err := svc.BulkUpdate(context.Background(), &tc.req, "user-1")

			requireFieldError(t, err, tc.field)
			store.AssertNotCalled(t, "FindVariantsByIDs", mock.Anything, mock.Anything)
			store.AssertNotCalled(t, "WithTx", mock.Anything)
		})
	}
}

func TestBulkUpdate_RejectsDuplicates(t *testing.T) {
	svc, store := newMockStockService()
	id := uuid.NewString()

	_, err := svc.BulkUpdate(context.Background(), &BulkUpdateRequest{
		Type: model.TxRestock,
		LineItems: []LineItemRequest{
			{Item: id, QuantityChange: 1},
			{Item: id, QuantityChange: 2},
		},
	}, "user-1")

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Duplicate items found in the request."}, verr.Fields["line_items"])
	store.AssertNotCalled(t, "FindVariantsByIDs", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "WithTx", mock.Anything)
}

func TestBulkUpdate_UnknownVariant(t *testing.T) {
	svc, store := newMockStockService()
	known := stockedVariant(5)
	missing := uuid.New()
	store.On("FindVariantsByIDs", mock.Anything, []uuid.UUID{known.ID, missing}).
		Return([]model.ItemVariant{known}, nil)

	_, err := svc.BulkUpdate(context.Background(), &BulkUpdateRequest{
		Type: model.TxRestock,
		LineItems: []LineItemRequest{
			{Item: known.ID.String(), QuantityChange: 1},
			{Item: missing.String(), QuantityChange: 1},
		},
	}, "user-1")

	var nf *model.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "line_items[1].item", nf.Field)
	assert.Equal(t, missing.String(), nf.ID)
	store.AssertNotCalled(t, "WithTx", mock.Anything)
}

func TestBulkUpdate_InsufficientStockWritesNothing(t *testing.T) {
	svc, store := newMockStockService()
	a, b := stockedVariant(10), stockedVariant(2)
	ids := []uuid.UUID{a.ID, b.ID}
	store.On("FindVariantsByIDs", mock.Anything, ids).Return([]model.ItemVariant{a, b}, nil)
	store.On("WithTx", mock.Anything).Return(nil)
	store.tx.On("LockVariants", ids).Return([]model.ItemVariant{a, b}, nil)

	_, err := svc.BulkUpdate(context.Background(), &BulkUpdateRequest{
		Type: model.TxSale,
		LineItems: []LineItemRequest{
			{Item: a.ID.String(), QuantityChange: -3},
			{Item: b.ID.String(), QuantityChange: -5},
		},
	}, "user-1")

	var insufficient *model.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, b.ID, insufficient.VariantID)
	assert.Equal(t, 2, insufficient.Have)
	assert.Equal(t, 5, insufficient.Need)
	store.tx.AssertNotCalled(t, "SaveQuantities", mock.Anything, mock.Anything)
	store.tx.AssertNotCalled(t, "CreateBatch", mock.Anything)
}

func TestBulkUpdate_QuantityOverflowIsFieldError(t *testing.T) {
	svc, store := newMockStockService()
	a := stockedVariant(model.MaxQuantity - 1)
	ids := []uuid.UUID{a.ID}
	store.On("FindVariantsByIDs", mock.Anything, ids).Return([]model.ItemVariant{a}, nil)
	store.On("WithTx", mock.Anything).Return(nil)
	store.tx.On("LockVariants", ids).Return([]model.ItemVariant{a}, nil)

	_, err := svc.BulkUpdate(context.Background(), &BulkUpdateRequest{
		Type:      model.TxRestock,
		LineItems: []LineItemRequest{{Item: a.ID.String(), QuantityChange: 2}},
	}, "user-1")

	requireFieldError(t, err, "line_items[0].quantity_change")
	store.tx.AssertNotCalled(t, "SaveQuantities", mock.Anything, mock.Anything)
	store.tx.AssertNotCalled(t, "CreateBatch", mock.Anything)
}

func TestBulkUpdate_Commits(t *testing.T) {
	svc, store := newMockStockService()
	a, b := stockedVariant(10), stockedVariant(0)
	ids := []uuid.UUID{a.ID, b.ID}
	store.On("FindVariantsByIDs", mock.Anything, ids).Return([]model.ItemVariant{a, b}, nil)
	store.On("WithTx", mock.Anything).Return(nil)
	// locked rows arrive in id order, not submission order
	store.tx.On("LockVariants", ids).Return([]model.ItemVariant{b, a}, nil)

	var saved []*model.ItemVariant
	store.tx.On("SaveQuantities", mock.Anything, "user-1").
		Run(func(args mock.Arguments) { saved = args.Get(0).([]*model.ItemVariant) }).
		Return(nil)
	var created *model.Transaction
	store.tx.On("CreateBatch", mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(0).(*model.Transaction)
			created.ID = uuid.New()
		}).
		Return(nil)

	res, err := svc.BulkUpdate(context.Background(), &BulkUpdateRequest{
		Type: model.TxAdjustment,
		LineItems: []LineItemRequest{
			{Item: a.ID.String(), QuantityChange: -3, UnitPriceAtSale: decimalPtr("2.499")},
			{Item: b.ID.String(), QuantityChange: 4},
		},
	}, "user-1")
	require.NoError(t, err)

	require.Len(t, saved, 2)
	assert.Equal(t, a.ID, saved[0].ID)
	assert.Equal(t, 7, saved[0].Quantity)
	assert.Equal(t, b.ID, saved[1].ID)
	assert.Equal(t, 4, saved[1].Quantity)

	require.NotNil(t, created)
	assert.Equal(t, model.TxAdjustment, created.Type)
	assert.Equal(t, "user-1", created.CreatedBy)
	require.Len(t, created.Lines, 2)
	assert.Equal(t, 1, created.Lines[0].LineNo)
	assert.Equal(t, -3, created.Lines[0].QuantityChange)
	assert.True(t, decimal.RequireFromString("2.50").Equal(created.Lines[0].UnitPriceAtSale))
	assert.Equal(t, 2, created.Lines[1].LineNo)
	assert.True(t, created.Lines[1].UnitPriceAtSale.IsZero())

	assert.Equal(t, created.ID, res.TransactionID)
	assert.Equal(t, 2, res.Lines)
}

func TestBulkUpdate_StorageErrorIsWrapped(t *testing.T) {
	svc, store := newMockStockService()
	a := stockedVariant(10)
	ids := []uuid.UUID{a.ID}
	boom := errors.New("connection reset")
	store.On("FindVariantsByIDs", mock.Anything, ids).Return([]model.ItemVariant{a}, nil)
	store.On("WithTx", mock.Anything).Return(nil)
	store.tx.On("LockVariants", ids).Return(nil, boom)

	_, err := svc.BulkUpdate(context.Background(), &BulkUpdateRequest{
		Type:      model.TxRestock,
		LineItems: []LineItemRequest{{Item: a.ID.String(), QuantityChange: 1}},
	}, "user-1")

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bulk stock update")
}
