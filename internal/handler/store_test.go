package handler_test

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/backoffice/internal/model"
)

func storeRequest(name, email, shopURL string) map[string]string {
	return map[string]string{
		"storename":   name,
		"storeemail":  email,
		"description": "Hand made goods",
		"phone":       "555-0100",
		"bankaccount": "0001-0002",
		"theme":       "light",
		"shopurl":     shopURL,
	}
}

func TestStoreLogoEndToEnd(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup(t, "owner@example.com", "Acme")

	rec := app.do(http.MethodPost, "/api/store", token, storeRequest("Acme", "shop@acme.test", "Acme"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	store := decode(t, rec)["store"].(map[string]interface{})
	assert.Equal(t, "acme", store["shopurl"])
	assert.Equal(t, model.PlaceholderImageURL, store["logourl"])

	logo := bytes.Repeat([]byte{0x89}, 200*1024)
	rec = app.upload("/api/upload-logo", token, "logo", "brand.png", logo, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	logoURL := decode(t, rec)["logo_url"].(string)
	assert.True(t, strings.HasPrefix(logoURL, "https://files.test/logos/"))

	rec = app.do(http.MethodGet, "/api/store-info", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	info := decode(t, rec)
	assert.Equal(t, "Acme", info["store_name"])
	assert.Equal(t, logoURL, info["logo_url"])

	var shop model.Shop
	require.NoError(t, app.db.First(&shop).Error)
	assert.Equal(t, logoURL, shop.LogoURL)
}

func TestUploadLogoRejectsLargeAndWrongType(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup(t, "owner@example.com", "Acme")

	rec := app.upload("/api/upload-logo", token, "logo", "big.png", make([]byte, model.MaxLogoSize+1), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.upload("/api/upload-logo", token, "logo", "script.exe", []byte("MZ"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, app.store.objects)
}

func TestReplacingLogoDeletesPreviousObject(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup(t, "owner@example.com", "Acme")

	require.Equal(t, http.StatusOK, app.upload("/api/upload-logo", token, "logo", "one.png", []byte("one"), nil).Code)
	var first model.Logo
	require.NoError(t, app.db.First(&first).Error)
	require.Equal(t, http.StatusOK, app.upload("/api/upload-logo", token, "logo", "two.jpg", []byte("two"), nil).Code)
	assert.Equal(t, []string{first.ObjectKey}, app.store.deleted)

	rec := app.do(http.MethodDelete, "/api/remove-logo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.PlaceholderImageURL, decode(t, rec)["logo_url"])
	assert.Empty(t, app.store.objects)
	assert.EqualValues(t, 1, app.count(t, &model.Logo{}))
}

func TestUploadingSameLogoNameKeepsCurrentObject(t *testing.T) {
	app := newTestApp(t)
	token, id := app.signup(t, "owner@example.com", "Acme")
	otherToken, otherID := app.signup(t, "other@example.com", "Other")

	require.Equal(t, http.StatusOK, app.upload("/api/upload-logo", token, "logo", "logo.png", []byte("one"), nil).Code)
	require.Equal(t, http.StatusOK, app.upload("/api/upload-logo", token, "logo", "logo.png", []byte("two"), nil).Code)
	require.Equal(t, http.StatusOK, app.upload("/api/upload-logo", otherToken, "logo", "logo.png", []byte("three"), nil).Code)

	var logo, otherLogo model.Logo
	require.NoError(t, app.db.Where("account_id = ?", id).First(&logo).Error)
	require.NoError(t, app.db.Where("account_id = ?", otherID).First(&otherLogo).Error)
	assert.NotEqual(t, logo.ObjectKey, otherLogo.ObjectKey)
	assert.Equal(t, []byte("two"), app.store.objects[logo.ObjectKey])
	assert.Equal(t, []byte("three"), app.store.objects[otherLogo.ObjectKey])
	assert.Len(t, app.store.objects, 2)
	assert.NotContains(t, app.store.deleted, logo.ObjectKey)
}

func TestRemoveLogoWithoutLogoRow(t *testing.T) {
	app := newTestApp(t)
	token, id := app.signup(t, "owner@example.com", "Acme")
	require.NoError(t, app.db.Where("account_id = ?", id).Delete(&model.Logo{}).Error)

	rec := app.do(http.MethodDelete, "/api/remove-logo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "No logo to remove", body["message"])
	assert.Equal(t, model.PlaceholderImageURL, body["logo_url"])
	assert.Empty(t, app.store.deleted)
}

func TestCreateStoreConflicts(t *testing.T) {
	app := newTestApp(t)
	first, _ := app.signup(t, "first@example.com", "First")
	second, _ := app.signup(t, "second@example.com", "Second")

	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/api/store", first, storeRequest("My Shop!", "a@shop.test", "My Shop!")).Code)

	rec := app.do(http.MethodPost, "/api/store", first, storeRequest("Again", "b@shop.test", "again"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(http.MethodPost, "/api/store", second, storeRequest("My Shop!", "c@shop.test", "x"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodPost, "/api/store", second, storeRequest("Other", "d@shop.test", "my   shop"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "my-shop-1", decode(t, rec)["store"].(map[string]interface{})["shopurl"])
}

func TestUpdateStoreInfoRegeneratesSlugOnRename(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup(t, "owner@example.com", "Acme")
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/api/store", token, storeRequest("Acme", "shop@acme.test", "acme")).Code)

	rec := app.do(http.MethodPut, "/api/store-info", token, map[string]string{"theme": "dark"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "acme", decode(t, rec)["store"].(map[string]interface{})["shop_url"])

	rec = app.do(http.MethodPut, "/api/store-info", token, map[string]string{"store_name": "Acme Outlet"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "acme-outlet", decode(t, rec)["store"].(map[string]interface{})["shop_url"])
}

func TestStoreInfoWithoutShop(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup(t, "owner@example.com", "Acme")

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/store-info", token, nil).Code)
}

func TestPublicShopHidesPrivateFields(t *testing.T) {
	app := newTestApp(t)
	token, id := app.signup(t, "owner@example.com", "Acme")
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/api/store", token, storeRequest("Acme", "shop@acme.test", "acme")).Code)
	app.seedProduct(t, id, "Widget", 10, "2.50")

	rec := app.do(http.MethodGet, "/api/shops/acme/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "0001-0002")
	assert.NotContains(t, rec.Body.String(), "shop@acme.test")
	assert.Len(t, decode(t, rec)["products"], 1)

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/shops/missing", "", nil).Code)
}
