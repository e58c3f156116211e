package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state shared by invoices and supplier purchases
type Status string

const (
	StatusPending   Status = "Pending"
	StatusReceived  Status = "Received"
	StatusCancelled Status = "Cancelled"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReceived, StatusCancelled:
		return true
	}
	return false
}

// Invoice is produced when a customer checks out their cart
type Invoice struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	CustomerID    uint            `json:"customer_id" gorm:"index;not null"`
	Customer      *Customer       `json:"-"`
	ClientName    string          `json:"client_name" gorm:"size:240"`
	ClientEmail   string          `json:"client_email" gorm:"size:120"`
	ClientAddress string          `json:"client_address" gorm:"size:500"`
	ClientTaxID   string          `json:"client_tax_id" gorm:"size:50"`
	Subtotal      decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	Tax           decimal.Decimal `json:"tax" gorm:"type:decimal(12,2);not null"`
	Total         decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	Status        Status          `json:"status" gorm:"size:20;index;not null"`
	Lines         []InvoiceLine   `json:"lines,omitempty" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InvoiceLine freezes the product name and price at checkout time
type InvoiceLine struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	InvoiceID   uint            `json:"invoice_id" gorm:"index;not null"`
	ProductID   uint            `json:"prod_id" gorm:"index;not null"`
	Product     *Product        `json:"-"`
	ProductName string          `json:"product_name" gorm:"size:120"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	LineTotal   decimal.Decimal `json:"line_total" gorm:"type:decimal(12,2);not null"`
}

// Purchase is a supplier-side stock purchase recorded by an account
type Purchase struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	AccountID     uint            `json:"user_id" gorm:"index;not null"`
	Account       *Account        `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Date          time.Time       `json:"date" gorm:"not null"`
	SupplierName  string          `json:"supplier_name" gorm:"size:120;not null"`
	InvoiceNumber string          `json:"invoice_number" gorm:"size:60;not null"`
	Total         decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	Status        Status          `json:"status" gorm:"size:20;not null"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
