package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchases(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup(t, "owner@example.com", "Acme")
	other, _ := app.signup(t, "other@example.com", "Other")

	rec := app.do(http.MethodPost, "/api/purchases", token, map[string]interface{}{
		"date":           "2025-03-01",
		"supplier_name":  "Parts Co",
		"invoice_number": "INV-42",
		"total":          120.4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	purchase := decode(t, rec)["purchase"].(map[string]interface{})
	assert.Equal(t, "Pending", purchase["status"])
	id := uint(purchase["id"].(float64))

	rec = app.do(http.MethodPost, "/api/purchases", token, map[string]interface{}{
		"date": "yesterday", "supplier_name": "X", "invoice_number": "1", "total": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = app.do(http.MethodPost, "/api/purchases", token, map[string]interface{}{
		"date": "2025-03-01", "supplier_name": "X", "invoice_number": "1", "total": 1, "status": "Lost",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusForbidden, app.do(http.MethodPut, path("/api/purchases/%d/status", id), other, map[string]string{"status": "Received"}).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPut, path("/api/purchases/%d/status", id), token, map[string]string{"status": "Lost"}).Code)

	rec = app.do(http.MethodPut, path("/api/purchases/%d/status", id), token, map[string]string{"status": "Received"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Received", decode(t, rec)["purchase"].(map[string]interface{})["status"])

	rec = app.do(http.MethodGet, "/api/purchases", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["purchases"], 1)

	rec = app.do(http.MethodGet, "/api/purchases", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["purchases"])
}
