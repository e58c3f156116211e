package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/backoffice/internal/apperror"
	"github.com/suteetoe/backoffice/internal/middleware"
	"github.com/suteetoe/backoffice/internal/model"
	"github.com/suteetoe/backoffice/internal/repository"
	"github.com/suteetoe/backoffice/pkg/logger"
	"github.com/suteetoe/backoffice/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type addToCartRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  *int `json:"quantity"`
}

// AddToCart puts a product in the cart. An open line for the same product is
// incremented instead of duplicated, and the resulting quantity must fit the stock.
func (h *Handler) AddToCart(c echo.Context) error {
	log := logger.FromEcho(c)
	customerID := middleware.CallerID(c)

	var req addToCartRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity <= 0 {
		return apperror.Validation("quantity must be greater than 0")
	}

	var line *model.CartItem
	status := http.StatusCreated
	err := h.tx(c, func(tx *gorm.DB) error {
		var product model.Product
		if err := tx.First(&product, req.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Product not found")
			}
			return err
		}
		if product.Quantity <= 0 {
			return apperror.Validation("Product is out of stock")
		}

		var err error
		if line, err = repository.OpenCartLine(tx, customerID, product.ID); err != nil {
			return err
		}
		wanted := quantity
		if line != nil {
			wanted += line.Quantity
		}
		if wanted > product.Quantity {
			return apperror.Validation("Requested quantity exceeds available stock")
		}

		if line != nil {
			status = http.StatusOK
			line.Quantity = wanted
			return tx.Model(&model.CartItem{}).Where("id = ?", line.ID).Update("quantity", wanted).Error
		}
		line = &model.CartItem{CustomerID: customerID, ProductID: product.ID, Quantity: quantity}
		return tx.Create(line).Error
	})
	if err != nil {
		return err
	}

	prometheus.RecordCartOperation("add")
	log.Info("Product added to cart",
		zap.Uint("customer_id", customerID),
		zap.Uint("product_id", req.ProductID),
		zap.Int("quantity", line.Quantity))

	return c.JSON(status, echo.Map{
		"message":   "Product added to cart",
		"cart_item": line,
	})
}

// RemoveFromCart deletes one open line owned by the caller
func (h *Handler) RemoveFromCart(c echo.Context) error {
	log := logger.FromEcho(c)
	customerID := middleware.CallerID(c)

	lineID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	err = h.tx(c, func(tx *gorm.DB) error {
		line, err := repository.OwnedCartLine(tx, customerID, lineID)
		if err != nil {
			return err
		}
		if line == nil {
			return apperror.NotFound("Cart item not found")
		}
		return tx.Delete(&model.CartItem{}, line.ID).Error
	})
	if err != nil {
		return err
	}

	prometheus.RecordCartOperation("remove")
	log.Info("Cart item removed", zap.Uint("customer_id", customerID), zap.Uint("cart_item_id", lineID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Product removed from cart"})
}

type cartLineView struct {
	CartItemID uint            `json:"cart_item_id"`
	Product    *model.Product  `json:"product"`
	Quantity   int             `json:"quantity"`
	ItemTotal  decimal.Decimal `json:"item_total"`
}

// GetCart lists the open cart priced at current product prices
func (h *Handler) GetCart(c echo.Context) error {
	lines, err := repository.CartLinesByCustomer(h.read(c), middleware.CallerID(c))
	if err != nil {
		return err
	}

	views := make([]cartLineView, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		if line.Product == nil {
			continue
		}
		itemTotal := line.Product.LineTotal(line.Quantity)
		total = total.Add(itemTotal)
		views = append(views, cartLineView{
			CartItemID: line.ID,
			Product:    line.Product,
			Quantity:   line.Quantity,
			ItemTotal:  itemTotal,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"cart_items":  views,
		"total_items": len(views),
		"total_price": total,
	})
}

type updateCartRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// UpdateCartItem overwrites the quantity of an open line
func (h *Handler) UpdateCartItem(c echo.Context) error {
	log := logger.FromEcho(c)
	customerID := middleware.CallerID(c)

	lineID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateCartRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if *req.Quantity <= 0 {
		return apperror.Validation("quantity must be greater than 0")
	}

	var line *model.CartItem
	err = h.tx(c, func(tx *gorm.DB) error {
		var err error
		if line, err = repository.OwnedCartLine(tx, customerID, lineID); err != nil {
			return err
		}
		if line == nil {
			return apperror.NotFound("Cart item not found")
		}
		if line.Product == nil {
			return apperror.NotFound("Product not found")
		}
		if *req.Quantity > line.Product.Quantity {
			return apperror.Validation("Requested quantity exceeds available stock")
		}
		line.Quantity = *req.Quantity
		return tx.Model(&model.CartItem{}).Where("id = ?", line.ID).Update("quantity", line.Quantity).Error
	})
	if err != nil {
		return err
	}

	prometheus.RecordCartOperation("update")
	log.Info("Cart item updated", zap.Uint("cart_item_id", line.ID), zap.Int("quantity", line.Quantity))
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "Cart item updated",
		"cart_item": line,
	})
}

type checkoutRequest struct {
	ClientName    *string `json:"client_name" validate:"omitempty,max=240"`
	ClientEmail   *string `json:"client_email" validate:"omitempty,email,max=120"`
	ClientAddress *string `json:"client_address" validate:"omitempty,max=500"`
	ClientTaxID   *string `json:"client_tax_id" validate:"omitempty,max=50"`
}

// Checkout turns the open cart into a pending invoice. Prices are frozen on the
// invoice lines and stock is taken with a guarded update, so a line that no longer
// fits the stock aborts the whole checkout.
func (h *Handler) Checkout(c echo.Context) error {
	log := logger.FromEcho(c)
	customerID := middleware.CallerID(c)

	var req checkoutRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var (
		invoice model.Invoice
		alerts  []lowStockAlert
	)
	err := h.tx(c, func(tx *gorm.DB) error {
		var customer model.Customer
		if err := tx.First(&customer, customerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Customer not found")
			}
			return err
		}

		lines, err := repository.CartLinesByCustomer(tx, customerID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperror.Validation("Cart is empty")
		}

		invoice = model.Invoice{
			CustomerID:    customerID,
			ClientName:    strings.TrimSpace(customer.FirstName + " " + customer.LastName),
			ClientEmail:   customer.Email,
			ClientAddress: derefOr(customer.Address, ""),
			Status:        model.StatusPending,
		}
		if v, ok := trimmed(req.ClientName); ok && v != "" {
			invoice.ClientName = v
		}
		if v, ok := trimmed(req.ClientEmail); ok && v != "" {
			invoice.ClientEmail = v
		}
		if v, ok := trimmed(req.ClientAddress); ok && v != "" {
			invoice.ClientAddress = v
		}
		if v, ok := trimmed(req.ClientTaxID); ok {
			invoice.ClientTaxID = v
		}

		subtotal := decimal.Zero
		lineIDs := make([]uint, 0, len(lines))
		for _, line := range lines {
			if line.Product == nil {
				return apperror.NotFound("Product not found")
			}
			ok, err := repository.DecrementStock(tx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.Validation("Not enough stock for %s", line.Product.ProductName)
			}

			lineTotal := line.Product.LineTotal(line.Quantity)
			subtotal = subtotal.Add(lineTotal)
			invoice.Lines = append(invoice.Lines, model.InvoiceLine{
				ProductID:   line.ProductID,
				ProductName: line.Product.ProductName,
				UnitPrice:   line.Product.PricePerUnit,
				Quantity:    line.Quantity,
				LineTotal:   lineTotal,
			})
			lineIDs = append(lineIDs, line.ID)

			if remaining := line.Product.Quantity - line.Quantity; model.IsLowStock(remaining) {
				alerts = append(alerts, lowStockAlert{
					AccountID:   line.Product.AccountID,
					ProductName: line.Product.ProductName,
					Quantity:    remaining,
				})
			}
		}

		invoice.Subtotal = subtotal
		invoice.Tax = subtotal.Mul(h.opts.TaxRate).Round(2)
		invoice.Total = invoice.Subtotal.Add(invoice.Tax)
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}

		return tx.Model(&model.CartItem{}).
			Where("id IN ?", lineIDs).
			Updates(map[string]interface{}{"purchased": true, "invoice_id": invoice.ID}).Error
	})
	if err != nil {
		return err
	}

	prometheus.RecordCartOperation("checkout")
	log.Info("Checkout completed",
		zap.Uint("customer_id", customerID),
		zap.Uint("invoice_id", invoice.ID),
		zap.String("total", invoice.Total.String()))

	h.sendLowStockAlerts(c.Request().Context(), log, alerts)

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Order placed successfully",
		"invoice": invoice,
	})
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
