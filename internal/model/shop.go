package model

import "time"

// Shop is the public storefront of an account
type Shop struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	StoreName   string    `json:"storename" gorm:"column:storename;size:120;uniqueIndex;not null"`
	StoreEmail  string    `json:"storeemail" gorm:"column:storeemail;size:120;uniqueIndex;not null"`
	Description string    `json:"description" gorm:"size:100;not null"`
	Phone       string    `json:"phone" gorm:"size:15;not null"`
	BankAccount string    `json:"bankaccount" gorm:"column:bankaccount;size:24;not null"`
	Theme       string    `json:"theme" gorm:"size:25;not null"`
	ShopURL     string    `json:"shopurl" gorm:"column:shopurl;size:300;uniqueIndex;not null"`
	LogoURL     string    `json:"logourl" gorm:"column:logourl;size:500"`
	AccountID   uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	Account     *Account  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Logo is an account's store logo. The row survives logo removal; only the URL is reset.
type Logo struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	LogoURL   string    `json:"logo_url" gorm:"size:500"`
	ObjectKey string    `json:"-" gorm:"size:500"`
	ImageData []byte    `json:"-"`
	AccountID uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	Account   *Account  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCustomImage reports whether the logo points at an uploaded file
func (l *Logo) HasCustomImage() bool {
	return l.LogoURL != "" && l.LogoURL != PlaceholderImageURL
}
