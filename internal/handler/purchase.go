package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

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

// ListPurchases lists the caller's supplier purchases, newest first
func (h *Handler) ListPurchases(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")()
	purchases, err := repository.PurchasesByAccount(h.read(c), middleware.CallerID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"purchases": purchases})
}

type createPurchaseRequest struct {
	Date          string           `json:"date" validate:"required"`
	SupplierName  string           `json:"supplier_name" validate:"required,max=120"`
	InvoiceNumber string           `json:"invoice_number" validate:"required,max=60"`
	Total         *decimal.Decimal `json:"total" validate:"required"`
	Status        model.Status     `json:"status"`
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, apperror.Validation("date must be YYYY-MM-DD")
}

// CreatePurchase records a supplier purchase
func (h *Handler) CreatePurchase(c echo.Context) error {
	log := logger.FromEcho(c)

	var req createPurchaseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return err
	}
	if req.Total.IsNegative() {
		return apperror.Validation("total must not be negative")
	}
	if req.Status == "" {
		req.Status = model.StatusPending
	}
	if !req.Status.Valid() {
		return apperror.Validation("status must be one of Pending Received Cancelled")
	}

	purchase := model.Purchase{
		AccountID:     middleware.CallerID(c),
		Date:          date,
		SupplierName:  strings.TrimSpace(req.SupplierName),
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		Total:         req.Total.Round(2),
		Status:        req.Status,
	}

	defer prometheus.TrackDBOperation("insert")()
	if err := h.tx(c, func(tx *gorm.DB) error { return tx.Create(&purchase).Error }); err != nil {
		return err
	}

	log.Info("Purchase recorded", zap.Uint("purchase_id", purchase.ID), zap.String("supplier", purchase.SupplierName))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "Purchase recorded successfully",
		"purchase": purchase,
	})
}

type updatePurchaseStatusRequest struct {
	Status model.Status `json:"status" validate:"required,oneof=Pending Received Cancelled"`
}

// UpdatePurchaseStatus moves a purchase the caller owns to a new status
func (h *Handler) UpdatePurchaseStatus(c echo.Context) error {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)

	purchaseID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updatePurchaseStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var purchase model.Purchase
	err = h.tx(c, func(tx *gorm.DB) error {
		if err := tx.First(&purchase, purchaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Purchase not found")
			}
			return err
		}
		if purchase.AccountID != accountID {
			return apperror.Authorization("You do not have permission to modify this purchase")
		}
		purchase.Status = req.Status
		return tx.Model(&model.Purchase{}).Where("id = ?", purchase.ID).Update("status", req.Status).Error
	})
	if err != nil {
		return err
	}

	log.Info("Purchase status updated", zap.Uint("purchase_id", purchase.ID), zap.String("status", string(req.Status)))
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Purchase updated successfully",
		"purchase": purchase,
	})
}
