package database

import (
	"go-pen-inventory/internal/model"

	"gorm.io/gorm"
)

// Models lists every persisted type in dependency order.
var Models = []interface{}{
	&model.Privilege{},
	&model.Role{},
	&model.User{},
	&model.Brand{},
	&model.Category{},
	&model.Item{},
	&model.ItemVariant{},
	&model.Transaction{},
	&model.TransactionItem{},
	&model.Memo{},
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}
