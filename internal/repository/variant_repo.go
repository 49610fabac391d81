package repository

import (
	"context"
	"strings"

	"go-pen-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VariantFilter holds the listing filters of the variant endpoint.
type VariantFilter struct {
	Name        string
	BrandName   string
	Category    string
	StockStatus string
	ItemID      *uuid.UUID
	Ordering    string
}

// variantOrdering whitelists the ordering keys accepted from the query string.
var variantOrdering = map[string]string{
	"item__name": "items.name",
	"price":      "item_variants.price",
	"quantity":   "item_variants.quantity",
	"brand":      "brands.name",
	"category":   "categories.name",
}

type VariantRepository interface {
	Create(ctx context.Context, variant *model.ItemVariant) error
	Update(ctx context.Context, variant *model.ItemVariant) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ItemVariant, error)
	FindBySKU(ctx context.Context, sku string) (*model.ItemVariant, error)
	FindByItem(ctx context.Context, itemID uuid.UUID) ([]model.ItemVariant, error)
	FindByCategory(ctx context.Context, categoryID uuid.UUID) ([]model.ItemVariant, error)
	List(ctx context.Context, filter VariantFilter, page Pagination) (*PageResult[model.ItemVariant], error)
	FindAll(ctx context.Context, filter VariantFilter) ([]model.ItemVariant, error)
}

type variantRepo struct {
	db *gorm.DB
}

func NewVariantRepo(db *gorm.DB) VariantRepository {
	return &variantRepo{db}
}

func (r *variantRepo) Create(ctx context.Context, variant *model.ItemVariant) error {
	return translateError(r.db.WithContext(ctx).Omit("Item").Create(variant).Error)
}

// Update writes the catalog fields of a variant. Quantity is never touched here:
// only the stock engine moves it.
func (r *variantRepo) Update(ctx context.Context, variant *model.ItemVariant) error {
	err := r.db.WithContext(ctx).Model(variant).
		Select("item_id", "attributes", "sku", "price", "target_quantity", "updated_by", "updated_at").
		Updates(variant).Error
	return translateError(err)
}

// Delete removes the variant and detaches its ledger lines first so history survives.
func (r *variantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := detachLedgerLines(tx, []uuid.UUID{id}); err != nil {
			return err
		}
		res := tx.Delete(&model.ItemVariant{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return notFound(err, "item variant", id)
}

func (r *variantRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ItemVariant, error) {
	var variant model.ItemVariant
	err := r.db.WithContext(ctx).
		Preload("Item.Brand").
		Preload("Item.Category").
		First(&variant, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "item variant", id)
	}
	return &variant, nil
}

func (r *variantRepo) FindBySKU(ctx context.Context, sku string) (*model.ItemVariant, error) {
	var variant model.ItemVariant
	if err := r.db.WithContext(ctx).First(&variant, "sku = ?", sku).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &model.NotFoundError{Resource: "item variant", ID: sku}
		}
		return nil, err
	}
	return &variant, nil
}

func (r *variantRepo) FindByItem(ctx context.Context, itemID uuid.UUID) ([]model.ItemVariant, error) {
	var variants []model.ItemVariant
	err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Order("sku").Find(&variants).Error
	return variants, err
}

func (r *variantRepo) FindByCategory(ctx context.Context, categoryID uuid.UUID) ([]model.ItemVariant, error) {
	var variants []model.ItemVariant
	err := r.db.WithContext(ctx).
		Joins("JOIN items ON items.id = item_variants.item_id").
		Where("items.category_id = ?", categoryID).
		Select("item_variants.*").
		Order("item_variants.sku").
		Find(&variants).Error
	return variants, err
}

func (r *variantRepo) List(ctx context.Context, filter VariantFilter, page Pagination) (*PageResult[model.ItemVariant], error) {
	var count int64
	if err := r.filtered(ctx, filter).Count(&count).Error; err != nil {
		return nil, err
	}

	var variants []model.ItemVariant
	err := r.filtered(ctx, filter).
		Select("item_variants.*").
		Preload("Item.Brand").
		Preload("Item.Category").
		Order(variantOrder(filter.Ordering)).
		Limit(page.PageSize).
		Offset(page.Offset()).
		Find(&variants).Error
	if err != nil {
		return nil, err
	}
	return NewPageResult(variants, count, page), nil
}

// FindAll returns every variant matching filter, unpaginated. Used by the summary tree.
func (r *variantRepo) FindAll(ctx context.Context, filter VariantFilter) ([]model.ItemVariant, error) {
	var variants []model.ItemVariant
	err := r.filtered(ctx, filter).
		Select("item_variants.*").
		Preload("Item.Brand").
		Preload("Item.Category").
		Order(variantOrder(filter.Ordering)).
		Find(&variants).Error
	return variants, err
}

// filtered builds a fresh query each call so Count and Find do not share state.
func (r *variantRepo) filtered(ctx context.Context, f VariantFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.ItemVariant{}).
		Joins("JOIN items ON items.id = item_variants.item_id").
		Joins("LEFT JOIN brands ON brands.id = items.brand_id").
		Joins("LEFT JOIN categories ON categories.id = items.category_id")

	if f.Name != "" {
		q = q.Where("LOWER(items.name) LIKE LOWER(?)", "%"+f.Name+"%")
	}
	if f.BrandName != "" {
		q = q.Where("LOWER(brands.name) LIKE LOWER(?)", "%"+f.BrandName+"%")
	}
	if f.Category != "" {
		// "penrefill" and "Pen Refill" both select the Pen Refill category
		q = q.Where("LOWER(REPLACE(categories.name, ' ', '')) = LOWER(REPLACE(?, ' ', ''))", f.Category)
	}
	if f.ItemID != nil {
		q = q.Where("item_variants.item_id = ?", *f.ItemID)
	}

	switch f.StockStatus {
	case model.StockInStock:
		q = q.Where("item_variants.quantity > 0")
	case model.StockOutOfStock:
		q = q.Where("item_variants.quantity = 0")
	case model.StockBelowTarget:
		q = q.Where("item_variants.quantity < item_variants.target_quantity")
	}
	return q
}

// variantOrder maps an ordering key such as "-price" to SQL. Unknown keys fall
// back to item name. The id tie-break keeps pages stable.
func variantOrder(ordering string) string {
	key := strings.TrimSpace(ordering)
	dir := "ASC"
	if strings.HasPrefix(key, "-") {
		key = key[1:]
		dir = "DESC"
	}
	col, ok := variantOrdering[key]
	if !ok {
		return "items.name ASC, item_variants.sku ASC, item_variants.id ASC"
	}
	return col + " " + dir + ", item_variants.id ASC"
}

// detachLedgerLines nulls the variant reference on ledger lines before a variant delete.
func detachLedgerLines(tx *gorm.DB, variantIDs []uuid.UUID) error {
	if len(variantIDs) == 0 {
		return nil
	}
	return tx.Model(&model.TransactionItem{}).
		Where("variant_id IN ?", variantIDs).
		Update("variant_id", nil).Error
}
