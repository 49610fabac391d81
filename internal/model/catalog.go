package model

import (
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Brand struct {
	BaseModel
	Name        string `gorm:"type:varchar(50);uniqueIndex;not null" json:"name" validate:"required,max=50"`
	Description string `gorm:"type:text" json:"description" validate:"max=200"`
}

// Category carries the attribute-schema contract: the ordered set of keys
// every variant of an item in this category must supply.
type Category struct {
	BaseModel
	Name            string                     `gorm:"type:varchar(50);uniqueIndex;not null" json:"name" validate:"required,max=50"`
	Description     string                     `gorm:"type:text" json:"description" validate:"max=200"`
	AttributeSchema datatypes.JSONSlice[string] `json:"attribute_schema"`
}

// RequiredKeys returns the schema as a plain slice (nil category means no keys).
func (c *Category) RequiredKeys() []string {
	if c == nil {
		return nil
	}
	return []string(c.AttributeSchema)
}

// DefaultCategories are ensured at start-up.
var DefaultCategories = []Category{
	{
		Name:            "Pen",
		Description:     "Writing instruments that use ink to create marks on paper or other surfaces.",
		AttributeSchema: datatypes.JSONSlice[string]{"color", "tip_size"},
	},
	{
		Name:            "Pen Refill",
		Description:     "Replaceable ink cartridges or inserts designed to fit specific pens.",
		AttributeSchema: datatypes.JSONSlice[string]{"color", "tip_size"},
	},
}

// Item is a product line. It is not stockable; its variants are.
type Item struct {
	BaseModel
	Name        string     `gorm:"type:varchar(100);not null;index" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	BrandID     *uuid.UUID `gorm:"type:uuid;index" json:"brand_id"`
	Brand       *Brand     `gorm:"foreignKey:BrandID;constraint:OnDelete:SET NULL" json:"brand,omitempty"`
	CategoryID  *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	Category    *Category  `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`

	Variants []ItemVariant `gorm:"constraint:OnDelete:CASCADE" json:"variants,omitempty"`
}

// ItemVariant is the stockable unit.
type ItemVariant struct {
	BaseModel
	ItemID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"item_id"`
	Item           *Item           `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"item,omitempty"`
	Attributes     Attributes      `json:"attributes"`
	SKU            string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"sku"`
	Price          decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	Quantity       int             `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	TargetQuantity int             `gorm:"not null;default:0;check:target_quantity >= 0" json:"target_quantity"`
}

// RefreshSKU recomputes the SKU from the owning item and the current attributes.
// Called on every persist that creates the variant or changes its attributes or item.
func (v *ItemVariant) RefreshSKU() {
	v.Attributes = v.Attributes.Normalized()
	v.SKU = ComputeSKU(v.ItemID, v.Attributes)
}

// DisplayName is used in stock errors and exports.
func (v *ItemVariant) DisplayName() string {
	if v.Item != nil && v.Item.Name != "" {
		return v.Item.Name
	}
	return v.SKU
}

// MaxQuantity bounds both the on-hand quantity and a single quantity change.
const MaxQuantity = math.MaxInt32

// Increase adds amount units to the on-hand quantity.
func (v *ItemVariant) Increase(amount int) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if amount > MaxQuantity || v.Quantity > MaxQuantity-amount {
		return ErrQuantityOverflow
	}
	v.Quantity += amount
	return nil
}

// Decrease removes amount units, refusing to go below zero.
func (v *ItemVariant) Decrease(amount int) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if v.Quantity < amount {
		return &InsufficientStockError{
			VariantID: v.ID,
			SKU:       v.SKU,
			Name:      v.DisplayName(),
			Have:      v.Quantity,
			Need:      amount,
		}
	}
	v.Quantity -= amount
	return nil
}

// Apply routes a signed delta to Increase or Decrease.
func (v *ItemVariant) Apply(delta int) error {
	if delta < 0 {
		if delta < -MaxQuantity {
			return ErrQuantityOverflow
		}
		return v.Decrease(-delta)
	}
	return v.Increase(delta)
}

// StockStatus buckets used by the listing filter.
const (
	StockInStock     = "in_stock"
	StockOutOfStock  = "out_of_stock"
	StockBelowTarget = "below_target"
)
