package handler_test

import (
	"bytes"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/backoffice/internal/model"
	"github.com/suteetoe/backoffice/pkg/spreadsheet"
)

var sheetHeaders = []string{" Product Name", "Price Per Unit", "Description", "UNITS "}

func workbook(t *testing.T, headers []string, rows ...[]interface{}) []byte {
	t.Helper()
	body, err := spreadsheet.Write("Sheet1", headers, rows)
	require.NoError(t, err)
	return body
}

func TestUploadInventoryInsertsEveryRow(t *testing.T) {
	app := newTestApp(t)
	token, id := app.signup(t, "owner@example.com", "Acme")

	body := workbook(t, sheetHeaders,
		[]interface{}{"Widget", 2.5, "Blue", 10},
		[]interface{}{"Widget", 3, "Red", 2},
		[]interface{}{"Gadget", 7.25, "", 40},
	)
	rec := app.upload("/api/inventory", token, "file", "stock.xlsx", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode(t, rec)
	assert.Equal(t, "3 products loaded. 1 with low stock.", resp["message"])
	assert.EqualValues(t, 3, resp["added"])

	assert.EqualValues(t, 3, app.count(t, &model.Product{}))
	assert.Equal(t, []alert{{id, "Widget", 2}}, app.notifier.alerts)
	assert.Len(t, app.store.objects, 1)

	rec = app.do(http.MethodGet, "/api/current-inventory-info", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode(t, rec)["inventory_info"].(map[string]interface{})
	assert.Equal(t, "stock.xlsx", info["name"])
	assert.Equal(t, "upload", info["kind"])
}

func TestUpdateInventoryMergesByName(t *testing.T) {
	app := newTestApp(t)
	token, id := app.signup(t, "owner@example.com", "Acme")
	widget := app.seedProduct(t, id, "Widget", 10, "2.50")

	body := workbook(t, sheetHeaders,
		[]interface{}{"Widget", 2.75, "Updated", 3},
		[]interface{}{"Sprocket", 1, "New", 20},
	)
	rec := app.upload("/api/update_inventory", token, "file", "merge.xlsx", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode(t, rec)
	assert.EqualValues(t, 1, resp["updated"])
	assert.EqualValues(t, 1, resp["added"])
	assert.EqualValues(t, 1, resp["low_stock"])

	updated := app.product(t, widget.ID)
	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, "2.75", updated.PricePerUnit.StringFixed(2))
	assert.Equal(t, []alert{{id, "Widget", 3}}, app.notifier.alerts)
	assert.EqualValues(t, 2, app.count(t, &model.Product{}))
}

func TestUploadInventoryRejectsBadFiles(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup(t, "owner@example.com", "Acme")

	rec := app.upload("/api/inventory", token, "file", "stock.csv", []byte("a,b"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := workbook(t, []string{"product_name", "price"}, []interface{}{"Widget", 1})
	rec = app.upload("/api/inventory", token, "file", "stock.xlsx", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "price_per_unit")

	body = workbook(t, sheetHeaders, []interface{}{"Widget", "cheap", "", 1})
	rec = app.upload("/api/inventory", token, "file", "stock.xlsx", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.EqualValues(t, 0, app.count(t, &model.Product{}))
	assert.EqualValues(t, 0, app.count(t, &model.UploadedFile{}))
	assert.Empty(t, app.store.objects)
}

func TestUploadInventoryRemovesTempFile(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup(t, "owner@example.com", "Acme")

	rec := app.upload("/api/inventory", token, "file", "stock.xlsx", workbook(t, sheetHeaders, []interface{}{"Widget", 1, "", 9}), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entries, err := os.ReadDir(app.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadInventoryAndTemplate(t *testing.T) {
	app := newTestApp(t)
	token, id := app.signup(t, "owner@example.com", "Acme")

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/download_inventory", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/current-inventory-info", token, nil).Code)

	app.seedProduct(t, id, "Widget", 10, "2.50")
	rec := app.do(http.MethodGet, "/api/download_inventory", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inventory.xlsx")

	sheet, err := spreadsheet.Parse(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "Widget", sheet.Rows[0]["product_name"])
	assert.Equal(t, "10", sheet.Rows[0]["units"])

	rec = app.do(http.MethodGet, "/api/download_template", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sheet, err = spreadsheet.Parse(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"product_name", "price_per_unit", "description", "units"}, sheet.Headers)
	assert.Empty(t, sheet.Rows)
}

func TestDeleteInventoryChecksOwner(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup(t, "owner@example.com", "Acme")
	other, _ := app.signup(t, "other@example.com", "Other")

	require.Equal(t, http.StatusOK, app.upload("/api/inventory", token, "file", "stock.xlsx", workbook(t, sheetHeaders, []interface{}{"Widget", 1, "", 9}), nil).Code)
	var upload model.UploadedFile
	require.NoError(t, app.db.First(&upload).Error)

	assert.Equal(t, http.StatusForbidden, app.do(http.MethodDelete, path("/api/delete-inventory/%d", upload.ID), other, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodDelete, path("/api/delete-inventory/%d", upload.ID+1), token, nil).Code)

	require.Equal(t, http.StatusOK, app.do(http.MethodDelete, path("/api/delete-inventory/%d", upload.ID), token, nil).Code)
	assert.EqualValues(t, 0, app.count(t, &model.UploadedFile{}))
	assert.Equal(t, []string{upload.ObjectKey}, app.store.deleted)
}

func TestInventoryBackupsDoNotCollide(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup(t, "owner@example.com", "Acme")
	other, _ := app.signup(t, "other@example.com", "Other")
	body := workbook(t, sheetHeaders, []interface{}{"Widget", 1, "", 9})

	require.Equal(t, http.StatusOK, app.upload("/api/inventory", token, "file", "stock.xlsx", body, nil).Code)
	require.Equal(t, http.StatusOK, app.upload("/api/inventory", other, "file", "stock.xlsx", body, nil).Code)
	require.Equal(t, http.StatusOK, app.upload("/api/update_inventory", token, "file", "stock.xlsx", body, nil).Code)

	var uploads []model.UploadedFile
	require.NoError(t, app.db.Order("id").Find(&uploads).Error)
	require.Len(t, uploads, 3)
	keys := map[string]bool{}
	for _, upload := range uploads {
		assert.Equal(t, "stock.xlsx", upload.Filename)
		assert.Contains(t, app.store.objects, upload.ObjectKey)
		keys[upload.ObjectKey] = true
	}
	assert.Len(t, keys, 3)
}

func TestUploadInventoryAcceptsSpanishHeaders(t *testing.T) {
	app := newTestApp(t)
	token, id := app.signup(t, "owner@example.com", "Acme")

	headers := []string{"Nombre del Producto", "Precio por Unidad", "Descripción", "Unidades"}
	rec := app.upload("/api/inventory", token, "file", "inventario.xlsx", workbook(t, headers, []interface{}{"Silla", "12.50", "Madera", 4}), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var product model.Product
	require.NoError(t, app.db.Where("account_id = ?", id).First(&product).Error)
	assert.Equal(t, "Silla", product.ProductName)
	assert.Equal(t, "Madera", product.Description)
	assert.Equal(t, 4, product.Quantity)
	assert.Equal(t, "12.50", product.PricePerUnit.StringFixed(2))
}
