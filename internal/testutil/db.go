// Package testutil provides an in-memory database with the production schema
// and small catalog fixtures for integration tests.
package testutil

import (
	"context"
	"testing"

	"go-pen-inventory/internal/model"
	"go-pen-inventory/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database and migrates every model.
// A single connection keeps the memory database alive and serialises
// transactions the way row locks would.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Catalog is a seeded brand, pen category and item.
type Catalog struct {
	Brand    model.Brand
	Category model.Category
	Item     model.Item
}

// SeedCatalog creates a brand, a "Pen" category with schema [color, tip_size]
// and one item of that brand and category.
func SeedCatalog(t testing.TB, db *gorm.DB) *Catalog {
	t.Helper()

	c := &Catalog{
		Brand: model.Brand{Name: "Pilot"},
		Category: model.Category{
			Name:            "Pen",
			AttributeSchema: []string{"color", "tip_size"},
		},
	}
	require.NoError(t, db.Create(&c.Brand).Error)
	require.NoError(t, db.Create(&c.Category).Error)

	c.Item = model.Item{Name: "G2 Gel Pen", BrandID: &c.Brand.ID, CategoryID: &c.Category.ID}
	require.NoError(t, db.Omit("Brand", "Category", "Variants").Create(&c.Item).Error)
	return c
}

// AddVariant stores a variant of item with the given color, tip size 0.5,
// quantity and price.
func AddVariant(t testing.TB, db *gorm.DB, itemID uuid.UUID, color string, qty int, price string) model.ItemVariant {
	t.Helper()

	v := model.ItemVariant{
		ItemID:     itemID,
		Attributes: model.Attributes{"color": color, "tip_size": "0.5"},
		Price:      decimal.RequireFromString(price),
		Quantity:   qty,
	}
	v.RefreshSKU()
	require.NoError(t, db.Omit("Item").Create(&v).Error)
	return v
}

// Quantity reads the stored quantity of a variant.
func Quantity(t testing.TB, db *gorm.DB, id uuid.UUID) int {
	t.Helper()

	var v model.ItemVariant
	require.NoError(t, db.WithContext(context.Background()).First(&v, "id = ?", id).Error)
	return v.Quantity
}
