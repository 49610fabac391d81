package repository

import (
	"context"
	"time"

	"go-pen-inventory/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionFilter narrows ledger listings.
type TransactionFilter struct {
	Type     model.TransactionType
	Ordering string
}

// Ledger rows are append-only: there is no Update or Delete here.
type TransactionRepository interface {
	List(ctx context.Context, filter TransactionFilter, page Pagination) (*PageResult[model.Transaction], error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	FindForExport(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error)
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
}

// StockMovementData is one day of the stock-movement chart.
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// DashboardStats is the overview card on the dashboard.
type DashboardStats struct {
	TotalVariants    int64           `json:"total_variants"`
	OutOfStockCount  int64           `json:"out_of_stock_count"`
	BelowTargetCount int64           `json:"below_target_count"`
	TotalUnits       int64           `json:"total_units"`
	TotalValuation   decimal.Decimal `json:"total_valuation"`
	TransactionCount int64           `json:"transaction_count"`
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) filtered(ctx context.Context, f TransactionFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Transaction{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	return q
}

func transactionOrder(ordering string) string {
	if ordering == "-datetime_created" {
		return "created_at DESC, id ASC"
	}
	return "created_at ASC, id ASC"
}

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		Preload("Lines.Variant.Item")
}

func (r *transactionRepo) List(ctx context.Context, filter TransactionFilter, page Pagination) (*PageResult[model.Transaction], error) {
	var count int64
	if err := r.filtered(ctx, filter).Count(&count).Error; err != nil {
		return nil, err
	}

	var batches []model.Transaction
	err := preloadLines(r.filtered(ctx, filter)).
		Order(transactionOrder(filter.Ordering)).
		Limit(page.PageSize).
		Offset(page.Offset()).
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return NewPageResult(batches, count, page), nil
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var batch model.Transaction
	if err := preloadLines(r.db.WithContext(ctx)).First(&batch, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &batch, nil
}

func (r *transactionRepo) FindForExport(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error) {
	var batches []model.Transaction
	err := preloadLines(r.filtered(ctx, filter)).
		Order(transactionOrder(filter.Ordering)).
		Find(&batches).Error
	return batches, err
}

// GetStockMovement aggregates ledger lines per day: positive deltas count as
// inbound, negative deltas as outbound.
func (r *transactionRepo) GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error) {
	day := "DATE(transactions.created_at)"
	if r.db.Dialector.Name() == "postgres" {
		day = "TO_CHAR(transactions.created_at, 'YYYY-MM-DD')"
	}

	rows, err := r.db.WithContext(ctx).
		Table("transaction_items").
		Select(day+` AS date,
			COALESCE(SUM(CASE WHEN transaction_items.quantity_change > 0 THEN transaction_items.quantity_change ELSE 0 END), 0) AS inbound,
			COALESCE(SUM(CASE WHEN transaction_items.quantity_change < 0 THEN -transaction_items.quantity_change ELSE 0 END), 0) AS outbound`).
		Joins("JOIN transactions ON transactions.id = transaction_items.transaction_id").
		Where("transactions.created_at BETWEEN ? AND ?", startDate, endDate).
		Group(day).
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]StockMovementData, 0)
	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		results = append(results, data)
	}
	return results, rows.Err()
}

func (r *transactionRepo) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	db := r.db.WithContext(ctx)
	variants := func() *gorm.DB { return db.Model(&model.ItemVariant{}) }

	if err := variants().Count(&stats.TotalVariants).Error; err != nil {
		return nil, err
	}
	if err := variants().Where("quantity = 0").Count(&stats.OutOfStockCount).Error; err != nil {
		return nil, err
	}
	if err := variants().Where("quantity < target_quantity").Count(&stats.BelowTargetCount).Error; err != nil {
		return nil, err
	}
	if err := variants().Select("COALESCE(SUM(quantity), 0)").Scan(&stats.TotalUnits).Error; err != nil {
		return nil, err
	}
	var valuation decimal.NullDecimal
	if err := variants().Select("SUM(quantity * price)").Row().Scan(&valuation); err != nil {
		return nil, err
	}
	stats.TotalValuation = valuation.Decimal
	if err := db.Model(&model.Transaction{}).Count(&stats.TransactionCount).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
