package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/backoffice/internal/apperror"
	"github.com/suteetoe/backoffice/internal/middleware"
	"github.com/suteetoe/backoffice/internal/model"
	"github.com/suteetoe/backoffice/internal/repository"
	"github.com/suteetoe/backoffice/pkg/logger"
	"github.com/suteetoe/backoffice/pkg/spreadsheet"
	"github.com/suteetoe/backoffice/pkg/storage"
	"github.com/suteetoe/backoffice/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// inventoryColumns are the required spreadsheet headers after normalization
var inventoryColumns = []string{"product_name", "price_per_unit", "description", "units"}

// Spanish headers accepted on upload
var inventoryAliases = map[string]string{
	"nombre_del_producto": "product_name",
	"precio_por_unidad":   "price_per_unit",
	"descripción":         "description",
	"descripcion":         "description",
	"unidades":            "units",
}

type inventoryRow struct {
	Name        string
	Price       decimal.Decimal
	Description string
	Units       int
}

func parseInventoryRows(sheet *spreadsheet.Sheet) ([]inventoryRow, error) {
	sheet.Rename(inventoryAliases)
	if missing := sheet.Missing(inventoryColumns...); len(missing) > 0 {
		return nil, apperror.Validation("The spreadsheet is missing the expected columns: %s", strings.Join(missing, ", "))
	}

	rows := make([]inventoryRow, 0, len(sheet.Rows))
	for i, r := range sheet.Rows {
		n := i + 1
		name := r["product_name"]
		if name == "" {
			return nil, apperror.Validation("row %d: product_name is required", n)
		}
		price, err := decimal.NewFromString(r["price_per_unit"])
		if err != nil || price.IsNegative() {
			return nil, apperror.Validation("row %d: price_per_unit must be a non-negative number", n)
		}
		units, err := decimal.NewFromString(r["units"])
		if err != nil || units.IsNegative() || !units.IsInteger() {
			return nil, apperror.Validation("row %d: units must be a non-negative whole number", n)
		}
		rows = append(rows, inventoryRow{
			Name:        name,
			Price:       price.Round(2),
			Description: r["description"],
			Units:       int(units.IntPart()),
		})
	}
	return rows, nil
}

// saveTemp copies an upload into the local upload directory
func (h *Handler) saveTemp(file *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(h.opts.UploadDir, 0o755); err != nil {
		return "", err
	}
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp(h.opts.UploadDir, "inventory-*.xlsx")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

type importResult struct {
	FileURL  string
	Added    int
	Updated  int
	LowStock int
}

// importSpreadsheet is shared by the plain and merge uploads. The local temp file is
// removed on every path.
func (h *Handler) importSpreadsheet(c echo.Context, kind model.UploadKind) (*importResult, error) {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)
	ctx := c.Request().Context()

	file, err := c.FormFile("file")
	if err != nil {
		return nil, apperror.Validation("No file found in the request")
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".xlsx") {
		return nil, apperror.Validation("Only Excel files (.xlsx) are allowed")
	}

	tmpPath, err := h.saveTemp(file)
	if err != nil {
		return nil, apperror.Storage("Failed to store the uploaded file", err)
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to remove temp file", zap.String("path", tmpPath), zap.Error(err))
		}
	}()

	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, apperror.Storage("Failed to read the uploaded file", err)
	}
	sheet, err := spreadsheet.Parse(f)
	f.Close()
	if err != nil {
		log.Warn("Unreadable spreadsheet", zap.String("filename", file.Filename), zap.Error(err))
		return nil, apperror.Validation("Could not read the spreadsheet")
	}
	rows, err := parseInventoryRows(sheet)
	if err != nil {
		return nil, err
	}

	key := storage.ObjectKey(storage.PrefixInventory, objectName("inventory", accountID, "_"+filepath.Base(file.Filename)), h.now())
	url, err := h.store.PutFile(ctx, key, tmpPath, storage.ContentTypeXLSX)
	prometheus.RecordStorageUpload("inventory", err)
	if err != nil {
		return nil, apperror.Storage("Failed to back up the spreadsheet", err)
	}

	result := &importResult{FileURL: url}
	var alerts []lowStockAlert
	err = h.tx(c, func(tx *gorm.DB) error {
		var byName map[string]*model.Product
		if kind == model.UploadKindUpdate {
			var err error
			if byName, err = repository.ProductsByNameForAccount(tx, accountID); err != nil {
				return err
			}
		}

		for _, row := range rows {
			if existing, ok := byName[row.Name]; ok {
				existing.PricePerUnit = row.Price
				existing.Description = row.Description
				existing.Quantity = row.Units
				if err := tx.Save(existing).Error; err != nil {
					return err
				}
				result.Updated++
			} else {
				product := &model.Product{
					ProductName:  row.Name,
					PricePerUnit: row.Price,
					Description:  row.Description,
					Quantity:     row.Units,
					ImageURL:     model.PlaceholderImageURL,
					AccountID:    accountID,
				}
				if err := tx.Create(product).Error; err != nil {
					return err
				}
				if byName != nil {
					byName[row.Name] = product
				}
				result.Added++
			}

			if model.IsLowStock(row.Units) {
				result.LowStock++
				alerts = append(alerts, lowStockAlert{AccountID: accountID, ProductName: row.Name, Quantity: row.Units})
			}
		}

		return tx.Create(&model.UploadedFile{
			URL:       url,
			ObjectKey: key,
			Filename:  file.Filename,
			Kind:      kind,
			AccountID: accountID,
		}).Error
	})
	if err != nil {
		h.deleteObject(ctx, log, key)
		return nil, err
	}

	prometheus.RecordInventoryRows("added", result.Added)
	prometheus.RecordInventoryRows("updated", result.Updated)
	log.Info("Inventory imported",
		zap.Uint("account_id", accountID),
		zap.String("kind", string(kind)),
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("low_stock", result.LowStock))

	h.sendLowStockAlerts(ctx, log, alerts)
	return result, nil
}

// UploadInventory inserts every spreadsheet row as a new product
func (h *Handler) UploadInventory(c echo.Context) error {
	result, err := h.importSpreadsheet(c, model.UploadKindInventory)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   fmt.Sprintf("%d products loaded. %d with low stock.", result.Added, result.LowStock),
		"file_url":  result.FileURL,
		"added":     result.Added,
		"low_stock": result.LowStock,
	})
}

// UpdateInventory merges spreadsheet rows into existing products by exact name
func (h *Handler) UpdateInventory(c echo.Context) error {
	result, err := h.importSpreadsheet(c, model.UploadKindUpdate)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   fmt.Sprintf("Inventory updated: %d updated, %d added, %d with low stock.", result.Updated, result.Added, result.LowStock),
		"file_url":  result.FileURL,
		"updated":   result.Updated,
		"added":     result.Added,
		"low_stock": result.LowStock,
	})
}

func sendSpreadsheet(c echo.Context, filename string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, storage.ContentTypeXLSX, body)
}

// DownloadInventory exports the caller's products
func (h *Handler) DownloadInventory(c echo.Context) error {
	products, err := repository.ProductsByAccount(h.read(c), middleware.CallerID(c))
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return apperror.NotFound("No products found")
	}

	rows := make([][]interface{}, 0, len(products))
	for _, p := range products {
		rows = append(rows, []interface{}{p.ProductName, p.PricePerUnit.InexactFloat64(), p.Description, p.Quantity})
	}
	body, err := spreadsheet.Write("Inventory", inventoryColumns, rows)
	if err != nil {
		return apperror.Storage("Failed to build the spreadsheet", err)
	}
	return sendSpreadsheet(c, "inventory.xlsx", body)
}

// DownloadTemplate returns a header-only spreadsheet
func (h *Handler) DownloadTemplate(c echo.Context) error {
	body, err := spreadsheet.Write("Inventory", inventoryColumns, nil)
	if err != nil {
		return apperror.Storage("Failed to build the spreadsheet", err)
	}
	return sendSpreadsheet(c, "inventory_template.xlsx", body)
}

// CurrentInventoryInfo describes the caller's most recent upload
func (h *Handler) CurrentInventoryInfo(c echo.Context) error {
	upload, err := repository.LatestUpload(h.read(c), middleware.CallerID(c))
	if err != nil {
		return err
	}
	if upload == nil {
		return apperror.NotFound("No inventory found")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"inventory_info": echo.Map{
			"id":           upload.ID,
			"name":         upload.Filename,
			"url":          upload.URL,
			"kind":         upload.Kind,
			"last_updated": upload.CreatedAt,
		},
	})
}

// DeleteInventory removes one upload history entry and its backup
func (h *Handler) DeleteInventory(c echo.Context) error {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)

	uploadID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var upload model.UploadedFile
	err = h.tx(c, func(tx *gorm.DB) error {
		if err := tx.First(&upload, uploadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Inventory not found")
			}
			return err
		}
		if upload.AccountID != accountID {
			return apperror.Authorization("You do not have permission to delete this inventory")
		}
		return tx.Delete(&upload).Error
	})
	if err != nil {
		return err
	}

	h.deleteObject(c.Request().Context(), log, upload.ObjectKey)
	log.Info("Inventory upload deleted", zap.Uint("upload_id", upload.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Inventory deleted successfully"})
}
