package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pen-inventory/internal/cache"
	"go-pen-inventory/internal/metrics"
	"go-pen-inventory/internal/model"
	"go-pen-inventory/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LineItemRequest is one requested quantity change.
type LineItemRequest struct {
	Item            string           `json:"item" validate:"required,uuid"`
	QuantityChange  int              `json:"quantity_change" validate:"nonzero,min=-2147483647,max=2147483647"`
	UnitPriceAtSale *decimal.Decimal `json:"unit_price_at_sale" validate:"omitempty,gte=0"`
}

type BulkUpdateRequest struct {
	Type      model.TransactionType `json:"type" validate:"required,oneof=restock sale adjustment"`
	LineItems []LineItemRequest     `json:"line_items" validate:"required,min=1,dive"`
}

type BulkUpdateResult struct {
	TransactionID uuid.UUID          `json:"transaction_id"`
	Lines         int                `json:"lines"`
	Transaction   *model.Transaction `json:"-"`
}

type StockService interface {
	BulkUpdate(ctx context.Context, req *BulkUpdateRequest, userID string) (*BulkUpdateResult, error)
	ListTransactions(ctx context.Context, filter repository.TransactionFilter, page repository.Pagination) (*repository.PageResult[model.TransactionResponse], error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*model.TransactionResponse, error)
	ExportTransactions(ctx context.Context, filter repository.TransactionFilter) ([]byte, error)
}

type stockService struct {
	store   repository.StockStore
	txRepo  repository.TransactionRepository
	cache   *cache.Cache
	log     *logrus.Logger
	paging  PageDefaults
	nowFunc func() time.Time
}

// PageDefaults bounds page sizes of list endpoints.
type PageDefaults struct {
	Default int
	Max     int
}

func NewStockService(store repository.StockStore, txRepo repository.TransactionRepository, c *cache.Cache, log *logrus.Logger, paging PageDefaults) StockService {
	return &stockService{
		store:   store,
		txRepo:  txRepo,
		cache:   c,
		log:     log,
		paging:  paging,
		nowFunc: time.Now,
	}
}

// BulkUpdate applies every line of req atomically and records one ledger batch.
// Validation happens before any row is locked; once inside the transaction the
// first line that would drive a quantity negative aborts the whole batch.
func (s *stockService) BulkUpdate(ctx context.Context, req *BulkUpdateRequest, userID string) (*BulkUpdateResult, error) {
	ids, err := s.validateBulkUpdate(ctx, req)
	if err != nil {
		s.countOutcome(req.Type, err)
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{
		"type":  req.Type,
		"lines": len(req.LineItems),
		"user":  userID,
	})

	started := s.nowFunc()
	var batch *model.Transaction
	err = s.store.WithTx(ctx, func(tx repository.StockTx) error {
		locked, err := tx.LockVariants(ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*model.ItemVariant, len(locked))
		for i := range locked {
			byID[locked[i].ID] = &locked[i]
		}

		changed := make([]*model.ItemVariant, 0, len(ids))
		lines := make([]model.TransactionItem, 0, len(ids))
		for i, line := range req.LineItems {
			variant, ok := byID[ids[i]]
			if !ok {
				return &model.NotFoundError{
					Resource: "item variant",
					ID:       ids[i].String(),
					Field:    fmt.Sprintf("line_items[%d].item", i),
				}
			}
			if err := variant.Apply(line.QuantityChange); err != nil {
				if errors.Is(err, model.ErrQuantityOverflow) {
					verr := model.NewValidationError()
					verr.Add(fmt.Sprintf("line_items[%d].quantity_change", i),
						fmt.Sprintf("Resulting quantity for %s would exceed %d.", variant.DisplayName(), model.MaxQuantity))
					return verr
				}
				return err
			}
			changed = append(changed, variant)

			variantID := variant.ID
			lines = append(lines, model.TransactionItem{
				VariantID:       &variantID,
				LineNo:          i + 1,
				QuantityChange:  line.QuantityChange,
				UnitPriceAtSale: unitPrice(line.UnitPriceAtSale),
			})
		}

		if err := tx.SaveQuantities(changed, userID); err != nil {
			return err
		}

		batch = &model.Transaction{
			Type:      req.Type,
			CreatedBy: userID,
			Lines:     lines,
		}
		return tx.CreateBatch(batch)
	})
	metrics.StockBatchDuration.WithLabelValues(string(req.Type)).Observe(s.nowFunc().Sub(started).Seconds())
	s.countOutcome(req.Type, err)

	if err != nil {
		var insufficient *model.InsufficientStockError
		if errors.As(err, &insufficient) {
			entry.WithFields(logrus.Fields{
				"variant": insufficient.VariantID,
				"have":    insufficient.Have,
				"need":    insufficient.Need,
			}).Info("Bulk stock update rejected: insufficient stock")
			return nil, err
		}
		var conflict *model.ConflictError
		if errors.As(err, &conflict) {
			entry.WithError(err).Warn("Bulk stock update conflicted")
			return nil, err
		}
		var nf *model.NotFoundError
		var verr *model.ValidationError
		if errors.As(err, &nf) || errors.As(err, &verr) {
			return nil, err
		}
		entry.WithError(err).Error("Bulk stock update failed")
		return nil, fmt.Errorf("bulk stock update: %w", err)
	}

	metrics.StockLines.WithLabelValues(string(req.Type)).Add(float64(len(batch.Lines)))
	entry.WithField("transaction_id", batch.ID).Info("Bulk stock update committed")

	// Cache is refreshed only after commit; a failure here never undoes the batch.
	if err := s.cache.InvalidateVariants(ctx, ids...); err != nil {
		entry.WithError(err).Warn("Failed to invalidate variant cache")
	}

	return &BulkUpdateResult{
		TransactionID: batch.ID,
		Lines:         len(batch.Lines),
		Transaction:   batch,
	}, nil
}

// validateBulkUpdate checks shape, duplicates and existence, in that order.
// It returns the parsed variant ids in submission order.
func (s *stockService) validateBulkUpdate(ctx context.Context, req *BulkUpdateRequest) ([]uuid.UUID, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(req.LineItems))
	seen := make(map[uuid.UUID]struct{}, len(req.LineItems))
	duplicate := false
	for _, line := range req.LineItems {
		id := uuid.MustParse(line.Item)
		if _, ok := seen[id]; ok {
			duplicate = true
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if duplicate {
		verr := model.NewValidationError()
		verr.Add("line_items", "Duplicate items found in the request.")
		return nil, verr
	}

	found, err := s.store.FindVariantsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		exists := make(map[uuid.UUID]struct{}, len(found))
		for _, v := range found {
			exists[v.ID] = struct{}{}
		}
		for i, id := range ids {
			if _, ok := exists[id]; !ok {
				return nil, &model.NotFoundError{
					Resource: "item variant",
					ID:       id.String(),
					Field:    fmt.Sprintf("line_items[%d].item", i),
				}
			}
		}
	}
	return ids, nil
}

func (s *stockService) countOutcome(t model.TransactionType, err error) {
	outcome := metrics.OutcomeCommitted
	var (
		verr         *model.ValidationError
		insufficient *model.InsufficientStockError
		conflict     *model.ConflictError
	)
	switch {
	case err == nil:
	case errors.As(err, &verr), errors.Is(err, model.ErrNotFound):
		outcome = metrics.OutcomeInvalid
	case errors.As(err, &insufficient):
		outcome = metrics.OutcomeInsufficient
	case errors.As(err, &conflict):
		outcome = metrics.OutcomeConflict
	default:
		outcome = metrics.OutcomeError
	}
	if !t.Valid() {
		t = "unknown"
	}
	metrics.StockBatches.WithLabelValues(string(t), outcome).Inc()
}

// unitPrice rounds the recorded price to cents; a missing price records as zero.
func unitPrice(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return p.Round(2)
}

func (s *stockService) ListTransactions(ctx context.Context, filter repository.TransactionFilter, page repository.Pagination) (*repository.PageResult[model.TransactionResponse], error) {
	if filter.Type != "" && !filter.Type.Valid() {
		verr := model.NewValidationError()
		verr.Add("type", fmt.Sprintf("\"%s\" is not a valid choice.", filter.Type))
		return nil, verr
	}
	result, err := s.txRepo.List(ctx, filter, page.Normalize(s.paging.Default, s.paging.Max))
	if err != nil {
		return nil, err
	}
	return repository.MapPage(result, (*model.Transaction).ToResponse), nil
}

func (s *stockService) GetTransaction(ctx context.Context, id uuid.UUID) (*model.TransactionResponse, error) {
	batch, err := s.txRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := batch.ToResponse()
	return &resp, nil
}

func (s *stockService) ExportTransactions(ctx context.Context, filter repository.TransactionFilter) ([]byte, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		verr := model.NewValidationError()
		verr.Add("type", fmt.Sprintf("\"%s\" is not a valid choice.", filter.Type))
		return nil, verr
	}
	batches, err := s.txRepo.FindForExport(ctx, filter)
	if err != nil {
		return nil, err
	}
	return buildLedgerWorkbook(batches)
}
