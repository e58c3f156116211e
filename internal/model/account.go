package model

import "time"

// Account is a shop owner. It owns at most one Shop and one Logo, and any number of
// Products, Roles, UploadedFiles and DeviceTokens, all referenced by account_id.
type Account struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	FirstName string  `json:"firstname" gorm:"column:firstname;size:120"`
	LastName  string  `json:"lastname" gorm:"column:lastname;size:120"`
	ShopName  *string `json:"shopname" gorm:"column:shopname;size:120;uniqueIndex"`
	Email     string  `json:"email" gorm:"size:120;uniqueIndex;not null"`
	Credentials
	IsActive  bool      `json:"is_active" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role is a free-form tag attached to an account
type Role struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:120;uniqueIndex;not null"`
	AccountID uint      `json:"user_id" gorm:"index;not null"`
	Account   *Account  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
}

// DeviceToken is a push notification target registered by an account's browser
type DeviceToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AccountID uint      `json:"user_id" gorm:"index;not null"`
	Account   *Account  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Token     string    `json:"token" gorm:"size:512;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
