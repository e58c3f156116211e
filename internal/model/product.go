package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices go out as JSON numbers, the storefront does arithmetic on them
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is an inventory item owned by exactly one account
type Product struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	ProductName  string          `json:"product_name" gorm:"size:120;index;not null"`
	PricePerUnit decimal.Decimal `json:"price_per_unit" gorm:"type:decimal(12,2);not null"`
	Description  string          `json:"description" gorm:"size:500"`
	Quantity     int             `json:"quantity" gorm:"not null;default:0"`
	ImageURL     string          `json:"image_url" gorm:"size:500;not null"`
	AccountID    uint            `json:"user_id" gorm:"index;not null"`
	Account      *Account        `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LineTotal returns the price of quantity units at the current unit price
func (p *Product) LineTotal(quantity int) decimal.Decimal {
	return p.PricePerUnit.Mul(decimal.NewFromInt(int64(quantity)))
}

// UploadKind distinguishes plain inventory uploads from merge uploads
type UploadKind string

const (
	UploadKindInventory UploadKind = "upload"
	UploadKindUpdate    UploadKind = "update"
)

// UploadedFile records a spreadsheet backed up to object storage
type UploadedFile struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	URL       string     `json:"tigris_url" gorm:"size:2048;not null"`
	ObjectKey string     `json:"object_key" gorm:"size:500"`
	Filename  string     `json:"filename" gorm:"size:255"`
	Kind      UploadKind `json:"kind" gorm:"size:20"`
	AccountID uint       `json:"user_id" gorm:"index;not null"`
	Account   *Account   `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"created_at"`
}
