package repository

import (
	"context"

	"go-pen-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemoRepository interface {
	Create(ctx context.Context, memo *model.Memo) error
	Update(ctx context.Context, memo *model.Memo) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Memo, error)
	FindByTitle(ctx context.Context, title string) (*model.Memo, error)
	FindAll(ctx context.Context) ([]model.Memo, error)
}

type memoRepo struct {
	db *gorm.DB
}

func NewMemoRepo(db *gorm.DB) MemoRepository {
	return &memoRepo{db}
}

func (r *memoRepo) Create(ctx context.Context, memo *model.Memo) error {
	return translateError(r.db.WithContext(ctx).Create(memo).Error)
}

func (r *memoRepo) Update(ctx context.Context, memo *model.Memo) error {
	err := r.db.WithContext(ctx).Model(memo).
		Select("title", "text", "datetime_last_updated").
		Updates(memo).Error
	return translateError(err)
}

func (r *memoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Memo{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &model.NotFoundError{Resource: "memo", ID: id.String()}
	}
	return nil
}

func (r *memoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Memo, error) {
	var memo model.Memo
	if err := r.db.WithContext(ctx).First(&memo, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "memo", id)
	}
	return &memo, nil
}

func (r *memoRepo) FindByTitle(ctx context.Context, title string) (*model.Memo, error) {
	var memo model.Memo
	if err := r.db.WithContext(ctx).Where("title = ?", title).First(&memo).Error; err != nil {
		return nil, err
	}
	return &memo, nil
}

// FindAll lists memos, most recently updated first.
func (r *memoRepo) FindAll(ctx context.Context) ([]model.Memo, error) {
	var memos []model.Memo
	err := r.db.WithContext(ctx).
		Order("datetime_last_updated DESC").
		Order("datetime_created DESC").
		Find(&memos).Error
	return memos, err
}
