package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/backoffice/internal/handler"
	"github.com/suteetoe/backoffice/internal/repository"
	"github.com/suteetoe/backoffice/internal/router"
	"github.com/suteetoe/backoffice/pkg/config"
	"github.com/suteetoe/backoffice/pkg/database"
	"github.com/suteetoe/backoffice/pkg/jwtutil"
	"github.com/suteetoe/backoffice/pkg/logger"
	"github.com/suteetoe/backoffice/pkg/notify"
	"github.com/suteetoe/backoffice/pkg/storage"
	"github.com/suteetoe/backoffice/prometheus"
	"go.uber.org/zap"
)

const serviceName = "backoffice"

func main() {
	rollback := flag.Bool("rollback", false, "roll back the last migration and exit")
	flag.Parse()

	// Load configuration from .env file and environment variables
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()
	log.Info("Starting backoffice service...", cfg.LogConfig()...)

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg.Metrics.Prefix)
	log.Info("Prometheus metrics initialized", zap.String("metrics_prefix", cfg.Metrics.Prefix))

	db, err := database.InitDB(&cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if *rollback {
		if err := database.RollbackLast(db); err != nil {
			log.Fatal("Failed to roll back migration", zap.Error(err))
		}
		log.Info("Last migration rolled back")
		return
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed")

	taxRate, err := decimal.NewFromString(cfg.Checkout.TaxRate)
	if err != nil {
		log.Fatal("Invalid CHECKOUT_TAX_RATE", zap.String("value", cfg.Checkout.TaxRate), zap.Error(err))
	}

	ctx := context.Background()

	var store storage.ObjectStore = storage.Disabled{}
	if cfg.Storage.Enabled() {
		s3Store, err := storage.NewS3Store(ctx, cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		store = s3Store
	} else {
		log.Warn("Object storage credentials missing, uploads are disabled")
	}

	tokens := func(ctx context.Context, accountID uint) ([]string, error) {
		return repository.DeviceTokensByAccount(db.WithContext(ctx), accountID)
	}
	notifier := notify.Setup(ctx, cfg.Firebase, tokens, log)

	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})
	sessionStore := router.NewSessionStore(cfg.Session, cfg.Server.IsProduction())

	if err := os.MkdirAll(cfg.Storage.TempDir, 0o755); err != nil {
		log.Fatal("Failed to create upload directory", zap.String("dir", cfg.Storage.TempDir), zap.Error(err))
	}

	h := handler.New(db, jwtUtil, store, notifier, sessionStore, handler.Options{
		ServiceName:     cfg.ServiceName,
		TaxRate:         taxRate,
		UploadDir:       cfg.Storage.TempDir,
		AnonymousCookie: cfg.Session.CookieName,
	})

	e := router.New(h, jwtUtil, router.Options{
		AllowOrigins: cfg.Server.AllowOrigins,
		Production:   cfg.Server.IsProduction(),
	})

	// Start server
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
