package handler

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/backoffice/internal/apperror"
	"github.com/suteetoe/backoffice/internal/middleware"
	"github.com/suteetoe/backoffice/internal/model"
	"github.com/suteetoe/backoffice/internal/repository"
	"github.com/suteetoe/backoffice/pkg/logger"
	"github.com/suteetoe/backoffice/pkg/storage"
	"github.com/suteetoe/backoffice/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetUserProducts lists the caller's products
func (h *Handler) GetUserProducts(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")()
	products, err := repository.ProductsByAccount(h.read(c), middleware.CallerID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"products": products})
}

type createProductRequest struct {
	ProductName  string           `json:"product_name" validate:"required,max=120"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit" validate:"required"`
	Description  string           `json:"description" validate:"max=500"`
	Quantity     int              `json:"quantity" validate:"gte=0"`
	ImageURL     string           `json:"image_url" validate:"omitempty,max=500"`
}

// ownedProduct loads a product and checks it belongs to the caller
func ownedProduct(tx *gorm.DB, accountID, productID uint) (*model.Product, error) {
	var product model.Product
	if err := tx.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, err
	}
	if product.AccountID != accountID {
		return nil, apperror.Authorization("You do not have permission to modify this product")
	}
	return &product, nil
}

// CreateProduct adds a single product to the caller's inventory
func (h *Handler) CreateProduct(c echo.Context) error {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)

	var req createProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.PricePerUnit.IsNegative() {
		return apperror.Validation("price_per_unit must not be negative")
	}

	product := model.Product{
		ProductName:  strings.TrimSpace(req.ProductName),
		PricePerUnit: req.PricePerUnit.Round(2),
		Description:  strings.TrimSpace(req.Description),
		Quantity:     req.Quantity,
		ImageURL:     strings.TrimSpace(req.ImageURL),
		AccountID:    accountID,
	}
	if product.ImageURL == "" {
		product.ImageURL = model.PlaceholderImageURL
	}

	defer prometheus.TrackDBOperation("insert")()
	if err := h.tx(c, func(tx *gorm.DB) error { return tx.Create(&product).Error }); err != nil {
		return err
	}

	log.Info("Product created", zap.Uint("product_id", product.ID), zap.String("name", product.ProductName))
	if model.IsLowStock(product.Quantity) {
		h.sendLowStockAlerts(c.Request().Context(), log, []lowStockAlert{{accountID, product.ProductName, product.Quantity}})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Product created successfully",
		"product": product,
	})
}

type updateProductRequest struct {
	ProductName  *string          `json:"product_name" validate:"omitempty,max=120"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit"`
	Description  *string          `json:"description" validate:"omitempty,max=500"`
	Quantity     *int             `json:"quantity" validate:"omitempty,gte=0"`
	ImageURL     *string          `json:"image_url" validate:"omitempty,max=500"`
}

// UpdateProduct applies a partial update to a product the caller owns
func (h *Handler) UpdateProduct(c echo.Context) error {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)

	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.PricePerUnit != nil && req.PricePerUnit.IsNegative() {
		return apperror.Validation("price_per_unit must not be negative")
	}

	var product *model.Product
	err = h.tx(c, func(tx *gorm.DB) error {
		var err error
		if product, err = ownedProduct(tx, accountID, productID); err != nil {
			return err
		}
		if v, ok := trimmed(req.ProductName); ok && v != "" {
			product.ProductName = v
		}
		if req.PricePerUnit != nil {
			product.PricePerUnit = req.PricePerUnit.Round(2)
		}
		if v, ok := trimmed(req.Description); ok {
			product.Description = v
		}
		if req.Quantity != nil {
			product.Quantity = *req.Quantity
		}
		if v, ok := trimmed(req.ImageURL); ok && v != "" {
			product.ImageURL = v
		}
		return tx.Save(product).Error
	})
	if err != nil {
		return err
	}

	log.Info("Product updated", zap.Uint("product_id", product.ID))
	if req.Quantity != nil && model.IsLowStock(product.Quantity) {
		h.sendLowStockAlerts(c.Request().Context(), log, []lowStockAlert{{accountID, product.ProductName, product.Quantity}})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct deletes a product the caller owns together with the open cart lines
// pointing at it. Products that appear on an invoice are kept.
func (h *Handler) DeleteProduct(c echo.Context) error {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)

	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	err = h.tx(c, func(tx *gorm.DB) error {
		if _, err := ownedProduct(tx, accountID, productID); err != nil {
			return err
		}
		if err := repository.DeleteProduct(tx, productID); err != nil {
			if errors.Is(err, repository.ErrProductInUse) {
				return apperror.Conflict("Product appears on an invoice and cannot be deleted")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Product deleted", zap.Uint("product_id", productID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted successfully"})
}

// UploadProductImage stores a product image and returns its URL. When product_id is
// sent, the product's image_url is updated as well.
func (h *Handler) UploadProductImage(c echo.Context) error {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)
	ctx := c.Request().Context()

	file, err := c.FormFile("image")
	if err != nil {
		return apperror.Validation("No image found in the request")
	}
	if file.Filename == "" {
		return apperror.Validation("No file selected")
	}
	ext, ok := model.ImageExtension(file.Filename)
	if !ok {
		return apperror.Validation("File type not allowed")
	}

	var productID uint
	if raw := c.FormValue("product_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return apperror.Validation("invalid product_id")
		}
		productID = uint(id)
	}

	src, err := file.Open()
	if err != nil {
		return apperror.Validation("Could not read the uploaded file")
	}
	defer src.Close()

	key := storage.ObjectKey(storage.PrefixProductImages, objectName("product", accountID, "."+ext), h.now())
	url, err := h.store.Put(ctx, key, src, file.Size, mime.TypeByExtension("."+ext))
	prometheus.RecordStorageUpload("product_image", err)
	if err != nil {
		return apperror.Storage("Failed to upload image", err)
	}

	if productID != 0 {
		err = h.tx(c, func(tx *gorm.DB) error {
			if _, err := ownedProduct(tx, accountID, productID); err != nil {
				return err
			}
			return tx.Model(&model.Product{}).Where("id = ?", productID).Update("image_url", url).Error
		})
		if err != nil {
			h.deleteObject(ctx, log, key)
			return err
		}
	}

	log.Info("Product image uploaded", zap.Uint("account_id", accountID), zap.String("key", key))
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}
