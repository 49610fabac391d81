package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TxRestock    TransactionType = "restock"
	TxSale       TransactionType = "sale"
	TxAdjustment TransactionType = "adjustment"
)

// TransactionTypes lists the accepted batch tags.
var TransactionTypes = []TransactionType{TxRestock, TxSale, TxAdjustment}

func (t TransactionType) Valid() bool {
	for _, known := range TransactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Transaction is one committed bulk stock update. Rows are append-only:
// the repository exposes no update or delete path for them.
type Transaction struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Type      TransactionType `gorm:"type:varchar(15);not null;index" json:"type"`
	CreatedAt time.Time       `gorm:"index" json:"datetime_created"`
	CreatedBy string          `gorm:"type:varchar(255)" json:"created_by,omitempty"`

	Lines []TransactionItem `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE" json:"transaction_items"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TransactionItem is one ledger line. VariantID is nulled when the variant is
// deleted so the history survives.
type TransactionItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_transaction_variant;index" json:"transaction_id"`
	VariantID       *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_transaction_variant;index" json:"item_id"`
	Variant         *ItemVariant    `gorm:"foreignKey:VariantID;constraint:OnDelete:SET NULL" json:"-"`
	LineNo          int             `gorm:"not null;default:0" json:"line_no"`
	QuantityChange  int             `gorm:"not null;check:quantity_change <> 0" json:"quantity_change"`
	UnitPriceAtSale decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"unit_price_at_sale"`
}

func (l *TransactionItem) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// LineTotal is the signed value of the line at the recorded price.
func (l *TransactionItem) LineTotal() decimal.Decimal {
	return l.UnitPriceAtSale.Mul(decimal.NewFromInt(int64(l.QuantityChange)))
}

// ItemSummary is the short form of a variant embedded in ledger responses.
type ItemSummary struct {
	ID          uuid.UUID  `json:"id"`
	SKU         string     `json:"sku"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Brand       *uuid.UUID `json:"brand"`
	Category    *uuid.UUID `json:"category"`
}

type TransactionItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	QuantityChange  int             `json:"quantity_change"`
	UnitPriceAtSale decimal.Decimal `json:"unit_price_at_sale"`
	Item            *ItemSummary    `json:"item"`
}

type TransactionResponse struct {
	ID               uuid.UUID                 `json:"id"`
	Type             TransactionType           `json:"type"`
	DatetimeCreated  time.Time                 `json:"datetime_created"`
	CreatedBy        string                    `json:"created_by,omitempty"`
	TransactionItems []TransactionItemResponse `json:"transaction_items"`
}

// ToResponse converts a batch with preloaded Lines.Variant.Item to its API shape.
func (t *Transaction) ToResponse() TransactionResponse {
	resp := TransactionResponse{
		ID:               t.ID,
		Type:             t.Type,
		DatetimeCreated:  t.CreatedAt,
		CreatedBy:        t.CreatedBy,
		TransactionItems: make([]TransactionItemResponse, 0, len(t.Lines)),
	}
	for _, line := range t.Lines {
		lr := TransactionItemResponse{
			ID:              line.ID,
			QuantityChange:  line.QuantityChange,
			UnitPriceAtSale: line.UnitPriceAtSale,
		}
		if v := line.Variant; v != nil {
			summary := &ItemSummary{ID: v.ID, SKU: v.SKU}
			if v.Item != nil {
				summary.Name = v.Item.Name
				summary.Description = v.Item.Description
				summary.Brand = v.Item.BrandID
				summary.Category = v.Item.CategoryID
			}
			lr.Item = summary
		}
		resp.TransactionItems = append(resp.TransactionItems, lr)
	}
	return resp
}
