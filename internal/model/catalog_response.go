package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemDetails flattens the owning item, brand and category of a variant.
type ItemDetails struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	BrandID      *uuid.UUID `json:"brand_id"`
	BrandName    string     `json:"brand_name"`
	CategoryID   *uuid.UUID `json:"category_id"`
	CategoryName string     `json:"category_name"`
}

type VariantResponse struct {
	ID             uuid.UUID       `json:"id"`
	ItemID         uuid.UUID       `json:"item"`
	ItemDetails    ItemDetails     `json:"item_details"`
	Attributes     Attributes      `json:"attributes"`
	SKU            string          `json:"sku"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
	TargetQuantity int             `json:"target_quantity"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ToResponse expects Item.Brand and Item.Category to be preloaded when present.
func (v *ItemVariant) ToResponse() VariantResponse {
	resp := VariantResponse{
		ID:             v.ID,
		ItemID:         v.ItemID,
		Attributes:     v.Attributes,
		SKU:            v.SKU,
		Price:          v.Price,
		Quantity:       v.Quantity,
		TargetQuantity: v.TargetQuantity,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
	if resp.Attributes == nil {
		resp.Attributes = Attributes{}
	}
	if it := v.Item; it != nil {
		resp.ItemDetails = ItemDetails{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			BrandID:     it.BrandID,
			CategoryID:  it.CategoryID,
		}
		if it.Brand != nil {
			resp.ItemDetails.BrandName = it.Brand.Name
		}
		if it.Category != nil {
			resp.ItemDetails.CategoryName = it.Category.Name
		}
	}
	return resp
}

// GroupValue resolves a summary grouping key against the item details first,
// then the dynamic attributes. Unknown keys resolve to "N/A".
func (r VariantResponse) GroupValue(key string) string {
	var val string
	switch key {
	case "name", "item_name":
		val = r.ItemDetails.Name
	case "brand_name":
		val = r.ItemDetails.BrandName
	case "category_name":
		val = r.ItemDetails.CategoryName
	default:
		v, ok := r.Attributes[key]
		if !ok {
			return "N/A"
		}
		val = v
	}
	if val == "" {
		return "N/A"
	}
	return val
}
