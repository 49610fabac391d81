package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-pen-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockStore is the storage seam of the bulk stock-update engine.
type StockStore interface {
	// WithTx runs fn inside one storage transaction. Returning an error from fn
	// rolls everything back.
	WithTx(ctx context.Context, fn func(tx StockTx) error) error
	// FindVariantsByIDs is a plain, non-locking read used for request validation.
	FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ItemVariant, error)
}

// StockTx is the set of writes allowed inside a stock transaction.
type StockTx interface {
	// LockVariants selects the rows FOR UPDATE in id order so that two batches
	// touching the same variants always queue in the same order.
	LockVariants(ids []uuid.UUID) ([]model.ItemVariant, error)
	SaveQuantities(variants []*model.ItemVariant, updatedBy string) error
	CreateBatch(batch *model.Transaction) error
}

type stockStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewStockStore(db *gorm.DB, lockTimeout time.Duration) StockStore {
	return &stockStore{db: db, lockTimeout: lockTimeout}
}

func (s *stockStore) WithTx(ctx context.Context, fn func(tx StockTx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.setLockTimeout(tx); err != nil {
			return err
		}
		return fn(&stockTx{tx: tx})
	})
	return translateError(err)
}

// setLockTimeout bounds row-lock waits for the current transaction only.
func (s *stockStore) setLockTimeout(tx *gorm.DB) error {
	if s.lockTimeout <= 0 || tx.Dialector.Name() != "postgres" {
		return nil
	}
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
	return tx.Exec(stmt).Error
}

func (s *stockStore) FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ItemVariant, error) {
	var variants []model.ItemVariant
	if len(ids) == 0 {
		return variants, nil
	}
	err := s.db.WithContext(ctx).
		Preload("Item").
		Where("id IN ?", ids).
		Find(&variants).Error
	return variants, translateError(err)
}

type stockTx struct {
	tx *gorm.DB
}

func (t *stockTx) LockVariants(ids []uuid.UUID) ([]model.ItemVariant, error) {
	var variants []model.ItemVariant
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Item").
		Where("id IN ?", ids).
		Order("id").
		Find(&variants).Error
	if err != nil {
		return nil, err
	}
	if len(variants) != len(ids) {
		// a variant was deleted between validation and locking
		found := make(map[uuid.UUID]struct{}, len(variants))
		for _, v := range variants {
			found[v.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return nil, &model.NotFoundError{Resource: "item variant", ID: id.String()}
			}
		}
	}
	return variants, nil
}

// SaveQuantities writes every new quantity with a single UPDATE ... CASE statement.
func (t *stockTx) SaveQuantities(variants []*model.ItemVariant, updatedBy string) error {
	if len(variants) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]interface{}, 0, len(variants)*2)
	ids := make([]uuid.UUID, 0, len(variants))
	sb.WriteString("CASE id")
	for _, v := range variants {
		sb.WriteString(" WHEN ? THEN CAST(? AS BIGINT)")
		args = append(args, v.ID, v.Quantity)
		ids = append(ids, v.ID)
	}
	sb.WriteString(" END")

	res := t.tx.Model(&model.ItemVariant{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr(sb.String(), args...),
			"updated_by": updatedBy,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(variants)) {
		return fmt.Errorf("saving quantities: updated %d of %d variants", res.RowsAffected, len(variants))
	}
	return nil
}

func (t *stockTx) CreateBatch(batch *model.Transaction) error {
	return t.tx.Create(batch).Error
}
