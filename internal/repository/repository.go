// Package repository holds the explicit cross-entity queries. Every function takes the
// handle to run on, which inside a request is the request's transaction.
package repository

import (
	"errors"

	"github.com/suteetoe/backoffice/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Exists reports whether any row of m matches the condition
func Exists(db *gorm.DB, m interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := db.Model(m).Where(query, args...).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// first wraps First so callers can tell "no row" from a failure
func first[T any](q *gorm.DB) (*T, error) {
	var out T
	if err := q.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// AccountByEmail returns nil when no account uses email
func AccountByEmail(db *gorm.DB, email string) (*model.Account, error) {
	return first[model.Account](db.Where("email = ?", email))
}

// CustomerByEmail returns nil when no customer uses email
func CustomerByEmail(db *gorm.DB, email string) (*model.Customer, error) {
	return first[model.Customer](db.Where("email = ?", email))
}

// ShopByAccount returns nil when the account has not created a store yet
func ShopByAccount(db *gorm.DB, accountID uint) (*model.Shop, error) {
	return first[model.Shop](db.Where("account_id = ?", accountID))
}

// ShopBySlug returns nil when no shop has that slug
func ShopBySlug(db *gorm.DB, slug string) (*model.Shop, error) {
	return first[model.Shop](db.Where("shopurl = ?", slug))
}

// ShopSlugTaken returns a check for slugs already used by a shop
func ShopSlugTaken(db *gorm.DB) func(string) (bool, error) {
	return func(candidate string) (bool, error) {
		return Exists(db, &model.Shop{}, "shopurl = ?", candidate)
	}
}

// LogoByAccount returns nil when the account has no logo row
func LogoByAccount(db *gorm.DB, accountID uint) (*model.Logo, error) {
	return first[model.Logo](db.Where("account_id = ?", accountID))
}

// ProductsByAccount lists an account's products in insertion order
func ProductsByAccount(db *gorm.DB, accountID uint) ([]model.Product, error) {
	var products []model.Product
	err := db.Where("account_id = ?", accountID).Order("id").Find(&products).Error
	return products, err
}

// ProductsByNameForAccount indexes an account's products by exact name. When names
// repeat, the oldest product wins.
func ProductsByNameForAccount(db *gorm.DB, accountID uint) (map[string]*model.Product, error) {
	products, err := ProductsByAccount(db, accountID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*model.Product, len(products))
	for i := range products {
		if _, ok := byName[products[i].ProductName]; !ok {
			byName[products[i].ProductName] = &products[i]
		}
	}
	return byName, nil
}

// ProductReferencedByInvoice reports whether any invoice line points at the product
func ProductReferencedByInvoice(db *gorm.DB, productID uint) (bool, error) {
	return Exists(db, &model.InvoiceLine{}, "product_id = ?", productID)
}

// DecrementStock takes quantity units off the product only if that many are on hand.
// It reports false when stock was insufficient and nothing changed.
func DecrementStock(db *gorm.DB, productID uint, quantity int) (bool, error) {
	res := db.Model(&model.Product{}).
		Where("id = ? AND quantity >= ?", productID, quantity).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementStock puts quantity units back on the product
func IncrementStock(db *gorm.DB, productID uint, quantity int) error {
	return db.Model(&model.Product{}).
		Where("id = ?", productID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity)).Error
}

// CartLinesByCustomer lists the customer's active cart with live product rows
func CartLinesByCustomer(db *gorm.DB, customerID uint) ([]model.CartItem, error) {
	var lines []model.CartItem
	err := db.Preload("Product").
		Where("customer_id = ? AND purchased = ?", customerID, false).
		Order("id").
		Find(&lines).Error
	return lines, err
}

// OpenCartLine returns the unpurchased line for (customer, product), or nil
func OpenCartLine(db *gorm.DB, customerID, productID uint) (*model.CartItem, error) {
	return first[model.CartItem](db.Where("customer_id = ? AND product_id = ? AND purchased = ?",
		customerID, productID, false))
}

// OwnedCartLine returns an unpurchased line only if it belongs to the customer
func OwnedCartLine(db *gorm.DB, customerID, lineID uint) (*model.CartItem, error) {
	return first[model.CartItem](db.Preload("Product").
		Where("id = ? AND customer_id = ? AND purchased = ?", lineID, customerID, false))
}

// DeviceTokensByAccount returns the push tokens registered by the account
func DeviceTokensByAccount(db *gorm.DB, accountID uint) ([]string, error) {
	var tokens []string
	err := db.Model(&model.DeviceToken{}).
		Where("account_id = ?", accountID).
		Order("id").
		Pluck("token", &tokens).Error
	return tokens, err
}

// SaveDeviceToken stores token for the account. Registering a known token moves it to
// the caller.
func SaveDeviceToken(db *gorm.DB, accountID uint, token string) error {
	row := model.DeviceToken{AccountID: accountID, Token: token}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"account_id", "updated_at"}),
	}).Create(&row).Error
}

// LatestUpload returns the account's most recent spreadsheet upload, or nil
func LatestUpload(db *gorm.DB, accountID uint) (*model.UploadedFile, error) {
	return first[model.UploadedFile](db.Where("account_id = ?", accountID).Order("created_at DESC, id DESC"))
}

// InvoicesByCustomer lists invoices newest first, with their lines
func InvoicesByCustomer(db *gorm.DB, customerID uint) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := db.Preload("Lines", func(q *gorm.DB) *gorm.DB { return q.Order("id") }).
		Where("customer_id = ?", customerID).
		Order("id DESC").
		Find(&invoices).Error
	return invoices, err
}

// OwnedInvoice returns an invoice with its lines only if it belongs to the customer
func OwnedInvoice(db *gorm.DB, customerID, invoiceID uint) (*model.Invoice, error) {
	return first[model.Invoice](db.Preload("Lines", func(q *gorm.DB) *gorm.DB { return q.Order("id") }).
		Where("id = ? AND customer_id = ?", invoiceID, customerID))
}

// PurchasesByAccount lists supplier purchases newest first
func PurchasesByAccount(db *gorm.DB, accountID uint) ([]model.Purchase, error) {
	var purchases []model.Purchase
	err := db.Where("account_id = ?", accountID).Order("date DESC, id DESC").Find(&purchases).Error
	return purchases, err
}

// RolesByAccount lists the role tags of an account
func RolesByAccount(db *gorm.DB, accountID uint) ([]model.Role, error) {
	var roles []model.Role
	err := db.Where("account_id = ?", accountID).Order("id").Find(&roles).Error
	return roles, err
}

// ErrProductInUse is returned when a delete would orphan invoice history
var ErrProductInUse = errors.New("product is referenced by an invoice")

// DeleteProduct removes a product and the unpurchased cart lines pointing at it
func DeleteProduct(db *gorm.DB, productID uint) error {
	inUse, err := ProductReferencedByInvoice(db, productID)
	if err != nil {
		return err
	}
	if inUse {
		return ErrProductInUse
	}
	if err := db.Where("product_id = ?", productID).Delete(&model.CartItem{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Product{}, productID).Error
}

// DeleteAccount removes the account and every row it owns. It fails with
// ErrProductInUse when any of the account's products appears on an invoice.
func DeleteAccount(db *gorm.DB, accountID uint) error {
	productIDs := db.Model(&model.Product{}).Select("id").Where("account_id = ?", accountID)
	inUse, err := Exists(db, &model.InvoiceLine{}, "product_id IN (?)", productIDs)
	if err != nil {
		return err
	}
	if inUse {
		return ErrProductInUse
	}

	owned := []interface{}{
		&model.Role{}, &model.DeviceToken{}, &model.Logo{}, &model.Shop{},
		&model.UploadedFile{}, &model.Purchase{},
	}
	for _, m := range owned {
		if err := db.Where("account_id = ?", accountID).Delete(m).Error; err != nil {
			return err
		}
	}

	productIDs = db.Model(&model.Product{}).Select("id").Where("account_id = ?", accountID)
	if err := db.Where("product_id IN (?)", productIDs).Delete(&model.CartItem{}).Error; err != nil {
		return err
	}
	if err := db.Where("account_id = ?", accountID).Delete(&model.Product{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Account{}, accountID).Error
}
