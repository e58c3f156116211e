package handler

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/backoffice/internal/apperror"
	"github.com/suteetoe/backoffice/internal/middleware"
	"github.com/suteetoe/backoffice/internal/model"
	"github.com/suteetoe/backoffice/internal/repository"
	"github.com/suteetoe/backoffice/internal/slug"
	"github.com/suteetoe/backoffice/pkg/logger"
	"github.com/suteetoe/backoffice/pkg/storage"
	"github.com/suteetoe/backoffice/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type createStoreRequest struct {
	StoreName   string `json:"storename" validate:"required,max=120"`
	StoreEmail  string `json:"storeemail" validate:"required,email,max=120"`
	Description string `json:"description" validate:"required,max=100"`
	Phone       string `json:"phone" validate:"required,max=15"`
	BankAccount string `json:"bankaccount" validate:"required,max=24"`
	Theme       string `json:"theme" validate:"required,max=25"`
	ShopURL     string `json:"shopurl" validate:"required,max=255"`
	LogoURL     string `json:"logourl" validate:"omitempty,max=500"`
}

// storeInfo is the owner's denormalized view of Account, Shop and Logo
type storeInfo struct {
	UserID           uint   `json:"user_id"`
	FirstName        string `json:"firstname"`
	LastName         string `json:"lastname"`
	Email            string `json:"email"`
	StoreName        string `json:"store_name"`
	StoreDescription string `json:"store_description"`
	BankAccount      string `json:"bank_account"`
	ContactPhone     string `json:"contact_phone"`
	ContactEmail     string `json:"contact_email"`
	Theme            string `json:"theme"`
	ShopURL          string `json:"shop_url"`
	LogoURL          string `json:"logo_url"`
}

func newStoreInfo(account *model.Account, shop *model.Shop, logo *model.Logo) storeInfo {
	info := storeInfo{
		UserID:           account.ID,
		FirstName:        account.FirstName,
		LastName:         account.LastName,
		Email:            account.Email,
		StoreName:        shop.StoreName,
		StoreDescription: shop.Description,
		BankAccount:      shop.BankAccount,
		ContactPhone:     shop.Phone,
		ContactEmail:     shop.StoreEmail,
		Theme:            shop.Theme,
		ShopURL:          shop.ShopURL,
		LogoURL:          shop.LogoURL,
	}
	if logo != nil && logo.HasCustomImage() {
		info.LogoURL = logo.LogoURL
	}
	if info.LogoURL == "" {
		info.LogoURL = model.PlaceholderImageURL
	}
	return info
}

// publicShop leaves out the owner's bank account and contact email
type publicShop struct {
	StoreName   string `json:"storename"`
	Description string `json:"description"`
	Phone       string `json:"phone"`
	Theme       string `json:"theme"`
	ShopURL     string `json:"shopurl"`
	LogoURL     string `json:"logourl"`
}

func newPublicShop(shop *model.Shop) publicShop {
	return publicShop{
		StoreName:   shop.StoreName,
		Description: shop.Description,
		Phone:       shop.Phone,
		Theme:       shop.Theme,
		ShopURL:     shop.ShopURL,
		LogoURL:     shop.LogoURL,
	}
}

// uniqueSlug maps an empty slug to a validation error
func uniqueSlug(name string, exists func(string) (bool, error)) (string, error) {
	s, err := slug.Unique(name, exists)
	if errors.Is(err, slug.ErrEmpty) {
		return "", apperror.Validation("store name must contain letters or digits")
	}
	return s, err
}

// CreateStore creates the caller's storefront
func (h *Handler) CreateStore(c echo.Context) error {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)

	var req createStoreRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	shop := model.Shop{
		StoreName:   strings.TrimSpace(req.StoreName),
		StoreEmail:  strings.ToLower(strings.TrimSpace(req.StoreEmail)),
		Description: strings.TrimSpace(req.Description),
		Phone:       strings.TrimSpace(req.Phone),
		BankAccount: strings.TrimSpace(req.BankAccount),
		Theme:       strings.TrimSpace(req.Theme),
		LogoURL:     strings.TrimSpace(req.LogoURL),
		AccountID:   accountID,
	}

	err := h.tx(c, func(tx *gorm.DB) error {
		existing, err := repository.ShopByAccount(tx, accountID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Conflict("This account already has a store")
		}

		taken, err := repository.Exists(tx, &model.Shop{}, "storename = ?", shop.StoreName)
		if err != nil {
			return err
		}
		if taken {
			return apperror.Conflict("Store name already exists").WithStatus(http.StatusForbidden)
		}
		taken, err = repository.Exists(tx, &model.Shop{}, "storeemail = ?", shop.StoreEmail)
		if err != nil {
			return err
		}
		if taken {
			return apperror.Conflict("Store email already exists").WithStatus(http.StatusForbidden)
		}

		if shop.ShopURL, err = uniqueSlug(req.ShopURL, repository.ShopSlugTaken(tx)); err != nil {
			return err
		}

		if shop.LogoURL == "" {
			shop.LogoURL = model.PlaceholderImageURL
			logo, err := repository.LogoByAccount(tx, accountID)
			if err != nil {
				return err
			}
			if logo != nil && logo.HasCustomImage() {
				shop.LogoURL = logo.LogoURL
			}
		}

		return tx.Create(&shop).Error
	})
	if err != nil {
		return err
	}

	log.Info("Store created",
		zap.Uint("shop_id", shop.ID),
		zap.String("storename", shop.StoreName),
		zap.String("shopurl", shop.ShopURL))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Store created successfully",
		"store":   shop,
	})
}

// GetStoreInfo returns the owner's view of the store
func (h *Handler) GetStoreInfo(c echo.Context) error {
	accountID := middleware.CallerID(c)
	db := h.read(c)

	var account model.Account
	if err := db.First(&account, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("User not found")
		}
		return err
	}
	shop, err := repository.ShopByAccount(db, accountID)
	if err != nil {
		return err
	}
	if shop == nil {
		return apperror.NotFound("Store not found")
	}
	logo, err := repository.LogoByAccount(db, accountID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newStoreInfo(&account, shop, logo))
}

type updateStoreRequest struct {
	StoreName        *string `json:"store_name" validate:"omitempty,max=120"`
	StoreDescription *string `json:"store_description" validate:"omitempty,max=100"`
	BankAccount      *string `json:"bank_account" validate:"omitempty,max=24"`
	ContactPhone     *string `json:"contact_phone" validate:"omitempty,max=15"`
	ContactEmail     *string `json:"contact_email" validate:"omitempty,email,max=120"`
	Theme            *string `json:"theme" validate:"omitempty,max=25"`
}

// UpdateStoreInfo applies a partial store update. The slug is only regenerated when the
// store name actually changes.
func (h *Handler) UpdateStoreInfo(c echo.Context) error {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)

	var req updateStoreRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var (
		account model.Account
		shop    *model.Shop
		logo    *model.Logo
	)
	err := h.tx(c, func(tx *gorm.DB) error {
		var err error
		if err = tx.First(&account, accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("User not found")
			}
			return err
		}
		if shop, err = repository.ShopByAccount(tx, accountID); err != nil {
			return err
		}
		if shop == nil {
			return apperror.NotFound("Store not found")
		}

		if v, ok := trimmed(req.StoreName); ok && v != "" && v != shop.StoreName {
			taken, err := repository.Exists(tx, &model.Shop{}, "storename = ? AND id <> ?", v, shop.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperror.Conflict("Store name already exists")
			}
			current := shop.ShopURL
			newSlug, err := uniqueSlug(v, func(candidate string) (bool, error) {
				if candidate == current {
					return false, nil
				}
				return repository.ShopSlugTaken(tx)(candidate)
			})
			if err != nil {
				return err
			}
			shop.StoreName = v
			shop.ShopURL = newSlug
		}
		if v, ok := trimmed(req.ContactEmail); ok && v != "" {
			v = strings.ToLower(v)
			if v != shop.StoreEmail {
				taken, err := repository.Exists(tx, &model.Shop{}, "storeemail = ? AND id <> ?", v, shop.ID)
				if err != nil {
					return err
				}
				if taken {
					return apperror.Conflict("Store email already exists")
				}
				shop.StoreEmail = v
			}
		}
		if v, ok := trimmed(req.StoreDescription); ok {
			shop.Description = v
		}
		if v, ok := trimmed(req.BankAccount); ok {
			shop.BankAccount = v
		}
		if v, ok := trimmed(req.ContactPhone); ok {
			shop.Phone = v
		}
		if v, ok := trimmed(req.Theme); ok {
			shop.Theme = v
		}

		if err := tx.Save(shop).Error; err != nil {
			return err
		}
		logo, err = repository.LogoByAccount(tx, accountID)
		return err
	})
	if err != nil {
		return err
	}

	log.Info("Store updated", zap.Uint("shop_id", shop.ID), zap.String("shopurl", shop.ShopURL))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Store updated successfully",
		"store":   newStoreInfo(&account, shop, logo),
	})
}

// UploadLogo stores a new logo image and points the account's logo and shop at it
func (h *Handler) UploadLogo(c echo.Context) error {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)
	ctx := c.Request().Context()

	file, err := c.FormFile("logo")
	if err != nil {
		return apperror.Validation("No logo file provided")
	}
	ext, ok := model.ImageExtension(file.Filename)
	if !ok {
		return apperror.Validation("File type not allowed")
	}
	if file.Size > model.MaxLogoSize {
		return apperror.Validation("Logo must be 1 MB or smaller")
	}

	src, err := file.Open()
	if err != nil {
		return apperror.Validation("Could not read the uploaded file")
	}
	defer src.Close()

	key := storage.ObjectKey(storage.PrefixLogos, objectName("logo", accountID, "."+ext), h.now())
	url, err := h.store.Put(ctx, key, src, file.Size, mime.TypeByExtension("."+ext))
	prometheus.RecordStorageUpload("logo", err)
	if err != nil {
		return apperror.Storage("Failed to upload logo", err)
	}

	var oldKey string
	err = h.tx(c, func(tx *gorm.DB) error {
		logo, err := repository.LogoByAccount(tx, accountID)
		if err != nil {
			return err
		}
		if logo == nil {
			logo = &model.Logo{AccountID: accountID}
		}
		oldKey = logo.ObjectKey
		logo.LogoURL = url
		logo.ObjectKey = key
		logo.ImageData = nil
		if err := tx.Save(logo).Error; err != nil {
			return err
		}
		return tx.Model(&model.Shop{}).Where("account_id = ?", accountID).Update("logourl", url).Error
	})
	if err != nil {
		h.deleteObject(ctx, log, key)
		return err
	}

	h.deleteObject(ctx, log, oldKey)
	log.Info("Logo uploaded", zap.Uint("account_id", accountID), zap.String("key", key))

	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Logo uploaded successfully",
		"logo_url": url,
	})
}

// RemoveLogo resets the logo to the placeholder. The logo row is kept, and an
// account without one is answered with the placeholder as well.
func (h *Handler) RemoveLogo(c echo.Context) error {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)

	var oldKey string
	missing := false
	err := h.tx(c, func(tx *gorm.DB) error {
		logo, err := repository.LogoByAccount(tx, accountID)
		if err != nil {
			return err
		}
		if logo == nil {
			missing = true
			return nil
		}
		oldKey = logo.ObjectKey
		logo.LogoURL = model.PlaceholderImageURL
		logo.ObjectKey = ""
		logo.ImageData = nil
		if err := tx.Save(logo).Error; err != nil {
			return err
		}
		return tx.Model(&model.Shop{}).Where("account_id = ?", accountID).
			Update("logourl", model.PlaceholderImageURL).Error
	})
	if err != nil {
		return err
	}

	if missing {
		return c.JSON(http.StatusOK, echo.Map{
			"message":  "No logo to remove",
			"logo_url": model.PlaceholderImageURL,
		})
	}

	h.deleteObject(c.Request().Context(), log, oldKey)
	log.Info("Logo removed", zap.Uint("account_id", accountID))

	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Logo removed successfully",
		"logo_url": model.PlaceholderImageURL,
	})
}

// GetPublicShop returns the storefront for a slug
func (h *Handler) GetPublicShop(c echo.Context) error {
	shop, err := repository.ShopBySlug(h.read(c), c.Param("slug"))
	if err != nil {
		return err
	}
	if shop == nil {
		return apperror.NotFound("Store not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"store": newPublicShop(shop)})
}

// GetPublicShopProducts returns the storefront with its catalog
func (h *Handler) GetPublicShopProducts(c echo.Context) error {
	db := h.read(c)
	shop, err := repository.ShopBySlug(db, c.Param("slug"))
	if err != nil {
		return err
	}
	if shop == nil {
		return apperror.NotFound("Store not found")
	}
	products, err := repository.ProductsByAccount(db, shop.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"store":    newPublicShop(shop),
		"products": products,
	})
}
