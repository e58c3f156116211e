package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/backoffice/internal/apperror"
	"github.com/suteetoe/backoffice/internal/middleware"
	"github.com/suteetoe/backoffice/internal/model"
	"github.com/suteetoe/backoffice/internal/repository"
	"github.com/suteetoe/backoffice/pkg/logger"
	"github.com/suteetoe/backoffice/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListInvoices returns the caller's invoices, newest first
func (h *Handler) ListInvoices(c echo.Context) error {
	invoices, err := repository.InvoicesByCustomer(h.read(c), middleware.CallerID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"invoices": invoices})
}

// GetInvoice returns one of the caller's invoices
func (h *Handler) GetInvoice(c echo.Context) error {
	invoiceID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	invoice, err := repository.OwnedInvoice(h.read(c), middleware.CallerID(c), invoiceID)
	if err != nil {
		return err
	}
	if invoice == nil {
		return apperror.NotFound("Invoice not found")
	}
	return c.JSON(http.StatusOK, invoice)
}

// CancelInvoice cancels a pending invoice and puts its units back in stock
func (h *Handler) CancelInvoice(c echo.Context) error {
	log := logger.FromEcho(c)
	customerID := middleware.CallerID(c)

	invoiceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var invoice *model.Invoice
	err = h.tx(c, func(tx *gorm.DB) error {
		var err error
		if invoice, err = repository.OwnedInvoice(tx, customerID, invoiceID); err != nil {
			return err
		}
		if invoice == nil {
			return apperror.NotFound("Invoice not found")
		}
		if invoice.Status != model.StatusPending {
			return apperror.Validation("Only pending invoices can be cancelled")
		}
		for _, line := range invoice.Lines {
			if err := repository.IncrementStock(tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		invoice.Status = model.StatusCancelled
		return tx.Model(&model.Invoice{}).Where("id = ?", invoice.ID).Update("status", model.StatusCancelled).Error
	})
	if err != nil {
		return err
	}

	prometheus.RecordCartOperation("cancel")
	log.Info("Invoice cancelled", zap.Uint("invoice_id", invoice.ID), zap.Uint("customer_id", customerID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Invoice cancelled",
		"invoice": invoice,
	})
}
