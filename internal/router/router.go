package router

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/suteetoe/backoffice/internal/apperror"
	"github.com/suteetoe/backoffice/internal/handler"
	"github.com/suteetoe/backoffice/internal/middleware"
	"github.com/suteetoe/backoffice/pkg/config"
	"github.com/suteetoe/backoffice/pkg/jwtutil"
	"github.com/suteetoe/backoffice/pkg/logger"
	"github.com/suteetoe/backoffice/prometheus"
)

// Options holds the HTTP settings that are not handler concerns
type Options struct {
	AllowOrigins []string
	BodyLimit    string
	Production   bool
}

// NewSessionStore returns the signed cookie store backing anonymous sessions
func NewSessionStore(cfg config.SessionConfig, production bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteStrictMode,
	}
	return store
}

// New builds the echo instance with every route registered
func New(h *handler.Handler, jwtUtil *jwtutil.JWTUtil, opts Options) *echo.Echo {
	if opts.BodyLimit == "" {
		opts.BodyLimit = "10M"
	}
	if len(opts.AllowOrigins) == 0 {
		opts.AllowOrigins = []string{"*"}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = middleware.NewValidator()
	e.HTTPErrorHandler = apperror.HTTPErrorHandler

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestIDMiddleware())
	e.Use(prometheus.MetricsMiddleware())
	e.Use(logger.Middleware())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     opts.AllowOrigins,
		AllowCredentials: true,
	}))
	e.Use(echomiddleware.BodyLimit(opts.BodyLimit))
	e.Use(middleware.SecureHeaders(opts.Production))

	// Public routes - no authentication required
	e.GET("/", h.Hello)
	e.GET("/health", h.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	api := e.Group("/api")
	account := middleware.RequireAccount(jwtUtil)
	customer := middleware.RequireCustomer(jwtUtil)

	// Accounts
	api.POST("/signup", h.Signup)
	api.POST("/login", h.Login)
	api.POST("/anonymous/create", h.CreateAnonymous)
	api.GET("/settings", h.GetSettings, account)
	api.PUT("/settings", h.UpdateSettings, account)
	api.DELETE("/settings", h.DeleteAccount, account)
	api.POST("/register-device-token", h.RegisterDeviceToken, account)
	api.GET("/roles", h.ListRoles, account)
	api.POST("/roles", h.AddRole, account)

	// Storefront
	api.POST("/store", h.CreateStore, account)
	api.GET("/store-info", h.GetStoreInfo, account)
	api.PUT("/store-info", h.UpdateStoreInfo, account)
	api.POST("/upload-logo", h.UploadLogo, account)
	api.DELETE("/remove-logo", h.RemoveLogo, account)
	api.GET("/shops/:slug", h.GetPublicShop)
	api.GET("/shops/:slug/products", h.GetPublicShopProducts)

	// Inventory and products
	api.POST("/inventory", h.UploadInventory, account)
	api.POST("/update_inventory", h.UpdateInventory, account)
	api.GET("/download_inventory", h.DownloadInventory, account)
	api.GET("/download_template", h.DownloadTemplate, account)
	api.GET("/current-inventory-info", h.CurrentInventoryInfo, account)
	api.DELETE("/delete-inventory/:id", h.DeleteInventory, account)
	api.GET("/get-user-products", h.GetUserProducts, account)
	api.POST("/products", h.CreateProduct, account)
	api.PUT("/update-product/:id", h.UpdateProduct, account)
	api.DELETE("/delete-product/:id", h.DeleteProduct, account)
	api.POST("/upload-product-image", h.UploadProductImage, account)

	// Supplier purchases
	api.GET("/purchases", h.ListPurchases, account)
	api.POST("/purchases", h.CreatePurchase, account)
	api.PUT("/purchases/:id/status", h.UpdatePurchaseStatus, account)

	// Customers
	cust := api.Group("/customer")
	cust.POST("/register", h.RegisterCustomer)
	cust.POST("/login", h.LoginCustomer)
	cust.GET("/profile", h.GetCustomerProfile, customer)
	cust.PUT("/profile", h.UpdateCustomerProfile, customer)
	cust.POST("/cart/add", h.AddToCart, customer)
	cust.DELETE("/cart/remove/:id", h.RemoveFromCart, customer)
	cust.GET("/cart", h.GetCart, customer)
	cust.PUT("/cart/update/:id", h.UpdateCartItem, customer)
	cust.POST("/cart/checkout", h.Checkout, customer)
	cust.GET("/invoices", h.ListInvoices, customer)
	cust.GET("/invoices/:id", h.GetInvoice, customer)
	cust.POST("/invoices/:id/cancel", h.CancelInvoice, customer)

	return e
}
