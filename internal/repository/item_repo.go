package repository

import (
	"context"

	"go-pen-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	Update(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error)
	List(ctx context.Context, name string, page Pagination) (*PageResult[model.Item], error)
}

type itemRepo struct {
	db *gorm.DB
}

func NewItemRepo(db *gorm.DB) ItemRepository {
	return &itemRepo{db}
}

func (r *itemRepo) Create(ctx context.Context, item *model.Item) error {
	return translateError(r.db.WithContext(ctx).Omit("Brand", "Category", "Variants").Create(item).Error)
}

func (r *itemRepo) Update(ctx context.Context, item *model.Item) error {
	err := r.db.WithContext(ctx).Model(item).
		Select("name", "description", "brand_id", "category_id", "updated_by", "updated_at").
		Updates(item).Error
	return translateError(err)
}

// Delete removes an item and its variants in one transaction. Ledger lines
// pointing at those variants are detached, not removed.
func (r *itemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var variantIDs []uuid.UUID
		if err := tx.Model(&model.ItemVariant{}).Where("item_id = ?", id).Pluck("id", &variantIDs).Error; err != nil {
			return err
		}
		if err := detachLedgerLines(tx, variantIDs); err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", id).Delete(&model.ItemVariant{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Item{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return notFound(err, "item", id)
}

func (r *itemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).
		Preload("Brand").
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("sku") }).
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "item", id)
	}
	return &item, nil
}

func (r *itemRepo) List(ctx context.Context, name string, page Pagination) (*PageResult[model.Item], error) {
	q := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&model.Item{})
		if name != "" {
			db = db.Where("LOWER(name) LIKE LOWER(?)", "%"+name+"%")
		}
		return db
	}

	var count int64
	if err := q().Count(&count).Error; err != nil {
		return nil, err
	}

	var items []model.Item
	err := q().
		Preload("Brand").
		Preload("Category").
		Order("name ASC, id ASC").
		Limit(page.PageSize).
		Offset(page.Offset()).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return NewPageResult(items, count, page), nil
}
