package model

import "time"

// Customer is a buyer. Customers authenticate against their own table and never share
// ids with accounts.
type Customer struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	FirstName string  `json:"firstname" gorm:"column:firstname;size:120;not null"`
	LastName  string  `json:"lastname" gorm:"column:lastname;size:120;not null"`
	Email     string  `json:"email" gorm:"size:120;uniqueIndex;not null"`
	Phone     *string `json:"phone" gorm:"size:20"`
	Address   *string `json:"address" gorm:"size:500"`
	Credentials
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartItem is one line of a customer's cart. Unpurchased lines are unique per
// (customer, product); purchased lines are kept as history and point at their invoice.
type CartItem struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CustomerID uint      `json:"customer_id" gorm:"index;not null"`
	Customer   *Customer `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	ProductID  uint      `json:"productid" gorm:"index;not null"`
	Product    *Product  `json:"-"`
	Quantity   int       `json:"quantity" gorm:"not null;default:1"`
	Purchased  bool      `json:"buyed" gorm:"index;not null;default:false"`
	InvoiceID  *uint     `json:"invoice_id,omitempty" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
