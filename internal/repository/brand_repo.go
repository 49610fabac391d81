package repository

import (
	"context"

	"go-pen-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BrandRepository interface {
	Create(ctx context.Context, brand *model.Brand) error
	Update(ctx context.Context, brand *model.Brand) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Brand, error)
	FindByName(ctx context.Context, name string) (*model.Brand, error)
	FindAll(ctx context.Context) ([]model.Brand, error)
	EnsureByName(ctx context.Context, brand *model.Brand) error
}

type brandRepo struct {
	db *gorm.DB
}

func NewBrandRepo(db *gorm.DB) BrandRepository {
	return &brandRepo{db}
}

func (r *brandRepo) Create(ctx context.Context, brand *model.Brand) error {
	return translateError(r.db.WithContext(ctx).Create(brand).Error)
}

func (r *brandRepo) Update(ctx context.Context, brand *model.Brand) error {
	err := r.db.WithContext(ctx).Model(brand).
		Select("name", "description", "updated_by", "updated_at").
		Updates(brand).Error
	return translateError(err)
}

// Delete nulls brand_id on referencing items, then removes the brand.
func (r *brandRepo) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Item{}).Where("brand_id = ?", id).Update("brand_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Brand{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return notFound(err, "brand", id)
}

func (r *brandRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Brand, error) {
	var brand model.Brand
	if err := r.db.WithContext(ctx).First(&brand, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "brand", id)
	}
	return &brand, nil
}

func (r *brandRepo) FindByName(ctx context.Context, name string) (*model.Brand, error) {
	var brand model.Brand
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&brand).Error; err != nil {
		return nil, err
	}
	return &brand, nil
}

func (r *brandRepo) FindAll(ctx context.Context) ([]model.Brand, error) {
	var brands []model.Brand
	err := r.db.WithContext(ctx).Order("name").Find(&brands).Error
	return brands, err
}

// EnsureByName loads the brand with the same name into brand, creating it when missing.
func (r *brandRepo) EnsureByName(ctx context.Context, brand *model.Brand) error {
	return r.db.WithContext(ctx).
		Where(model.Brand{Name: brand.Name}).
		Attrs(model.Brand{Description: brand.Description}).
		FirstOrCreate(brand).Error
}
