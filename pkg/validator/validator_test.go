package validator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	Item   string `json:"item" validate:"required,uuid"`
	Change int    `json:"quantity_change" validate:"nonzero"`
}

type batch struct {
	Type  string          `json:"type" validate:"required,oneof=restock sale adjustment"`
	Lines []line          `json:"line_items" validate:"required,min=1,dive"`
	Owner uuid.UUID       `json:"owner" validate:"uuid_required"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

func byField(errs []*ErrorResponse) map[string]*ErrorResponse {
	out := make(map[string]*ErrorResponse, len(errs))
	for _, e := range errs {
		out[e.Field] = e
	}
	return out
}

func TestValidateStruct_Valid(t *testing.T) {
	errs := ValidateStruct(&batch{
		Type:  "sale",
		Lines: []line{{Item: uuid.NewString(), Change: -2}},
		Owner: uuid.New(),
		Price: decimal.RequireFromString("2.50"),
	})
	assert.Empty(t, errs)
}

func TestValidateStruct_FieldPathsAndMessages(t *testing.T) {
	errs := byField(ValidateStruct(&batch{
		Type:  "refund",
		Lines: []line{{Item: uuid.NewString(), Change: 1}, {Item: "x", Change: 0}},
		Price: decimal.RequireFromString("-0.01"),
	}))

	require.Contains(t, errs, "type")
	assert.Equal(t, `"refund" is not a valid choice.`, errs["type"].Message)

	require.Contains(t, errs, "line_items[1].item")
	assert.Equal(t, "Must be a valid UUID.", errs["line_items[1].item"].Message)

	require.Contains(t, errs, "line_items[1].quantity_change")
	assert.Equal(t, "This value may not be zero.", errs["line_items[1].quantity_change"].Message)

	require.Contains(t, errs, "owner")
	assert.Equal(t, "This field is required.", errs["owner"].Message)

	require.Contains(t, errs, "price")
	assert.Equal(t, "Ensure this value is greater than or equal to 0.", errs["price"].Message)
}

func TestValidateStruct_EmptyLines(t *testing.T) {
	errs := byField(ValidateStruct(&batch{Type: "sale", Lines: []line{}, Owner: uuid.New()}))
	require.Contains(t, errs, "line_items")
	assert.Equal(t, "Ensure this field has at least 1 elements.", errs["line_items"].Message)
}
