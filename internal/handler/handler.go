package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/backoffice/internal/apperror"
	"github.com/suteetoe/backoffice/pkg/database"
	"github.com/suteetoe/backoffice/pkg/jwtutil"
	"github.com/suteetoe/backoffice/pkg/notify"
	"github.com/suteetoe/backoffice/pkg/storage"
	"github.com/suteetoe/backoffice/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options holds the handler settings that come from configuration
type Options struct {
	ServiceName     string
	TaxRate         decimal.Decimal
	UploadDir       string
	AnonymousCookie string
	AnonymousDomain string
}

// Handler carries the collaborators every route needs
type Handler struct {
	db       *gorm.DB
	jwt      *jwtutil.JWTUtil
	store    storage.ObjectStore
	notifier notify.Notifier
	sessions sessions.Store
	opts     Options
	now      func() time.Time
}

// New creates a Handler
func New(db *gorm.DB, jwtUtil *jwtutil.JWTUtil, store storage.ObjectStore, notifier notify.Notifier, sessionStore sessions.Store, opts Options) *Handler {
	if opts.AnonymousDomain == "" {
		opts.AnonymousDomain = "anonymous.local"
	}
	if opts.UploadDir == "" {
		opts.UploadDir = "upload"
	}
	if opts.AnonymousCookie == "" {
		opts.AnonymousCookie = "anonymousToken"
	}
	return &Handler{
		db:       db,
		jwt:      jwtUtil,
		store:    store,
		notifier: notifier,
		sessions: sessionStore,
		opts:     opts,
		now:      time.Now,
	}
}

// tx runs fn in the request's transaction
func (h *Handler) tx(c echo.Context, fn func(tx *gorm.DB) error) error {
	return database.WithTx(c.Request().Context(), h.db, fn)
}

// read returns a handle for single statement reads
func (h *Handler) read(c echo.Context) *gorm.DB {
	return h.db.WithContext(c.Request().Context())
}

// bind decodes the body into req and validates it
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperror.Validation("invalid request body")
	}
	return c.Validate(req)
}

// paramID parses a positive numeric path parameter
func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid %s", name)
	}
	return uint(id), nil
}

// lowStockAlert is collected inside a transaction and sent after commit
type lowStockAlert struct {
	AccountID   uint
	ProductName string
	Quantity    int
}

// sendLowStockAlerts never fails the request; errors are logged and counted
func (h *Handler) sendLowStockAlerts(ctx context.Context, log *zap.Logger, alerts []lowStockAlert) {
	for _, a := range alerts {
		err := h.notifier.LowStock(ctx, a.AccountID, a.ProductName, a.Quantity)
		prometheus.RecordLowStockAlert(err)
		if err != nil {
			log.Warn("Failed to send low stock alert",
				zap.Uint("account_id", a.AccountID),
				zap.String("product_name", a.ProductName),
				zap.Int("quantity", a.Quantity),
				zap.Error(err))
		}
	}
}

// deleteObject removes a stored file, logging instead of failing
func (h *Handler) deleteObject(ctx context.Context, log *zap.Logger, key string) {
	if key == "" {
		return
	}
	if err := h.store.Delete(ctx, key); err != nil {
		log.Warn("Failed to delete stored object", zap.String("key", key), zap.Error(err))
	}
}

// objectName builds a per-account stored file name that never repeats
func objectName(prefix string, accountID uint, suffix string) string {
	return fmt.Sprintf("%s_%d_%s%s", prefix, accountID, strings.ReplaceAll(uuid.NewString(), "-", ""), suffix)
}

// trimmed returns the trimmed value of an optional field
func trimmed(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return strings.TrimSpace(*s), true
}
