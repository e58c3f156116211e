package database

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/suteetoe/backoffice/internal/model"
	"gorm.io/gorm"
)

// migrations is the ordered schema history. Each entry follows the one before it and
// can be rolled back on its own.
var migrations = []*gormigrate.Migration{
	{
		ID: "202504070930_accounts_roles",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.Account{}, &model.Role{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&model.Role{}, &model.Account{})
		},
	},
	{
		ID: "202504161634_shops_logos",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.Shop{}, &model.Logo{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&model.Logo{}, &model.Shop{})
		},
	},
	{
		ID: "202504220952_products_uploaded_files",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.Product{}, &model.UploadedFile{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&model.UploadedFile{}, &model.Product{})
		},
	},
	{
		ID: "202505051200_customers_cart_items",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.Customer{}, &model.CartItem{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&model.CartItem{}, &model.Customer{})
		},
	},
	{
		ID: "202505121000_invoices_purchases",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.Invoice{}, &model.InvoiceLine{}, &model.Purchase{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&model.Purchase{}, &model.InvoiceLine{}, &model.Invoice{})
		},
	},
	{
		ID: "202505201500_device_tokens",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.DeviceToken{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&model.DeviceToken{})
		},
	},
}

func newMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	return gormigrate.New(db, gormigrate.DefaultOptions, migrations)
}

// Migrate applies every pending migration in order
func Migrate(db *gorm.DB) error {
	return newMigrator(db).Migrate()
}

// RollbackLast reverts the most recently applied migration
func RollbackLast(db *gorm.DB) error {
	return newMigrator(db).RollbackLast()
}
