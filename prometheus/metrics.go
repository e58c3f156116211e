package prometheus

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPrefix namespaces every metric until InitMetrics is called
const DefaultPrefix = "backoffice"

// Counter metrics
var (
	// Registrations by identity kind ("account", "customer", "anonymous")
	RegisterCounter *prometheus.CounterVec

	// Successful logins by identity kind
	LoginCounter *prometheus.CounterVec

	// Error counters
	AuthErrorCounter *prometheus.CounterVec // "login_failure", "invalid_token", "wrong_kind", "password_mismatch"

	// Cart operations
	CartOperationCounter *prometheus.CounterVec // "add", "update", "remove", "checkout", "cancel"

	// Inventory rows touched by spreadsheet imports
	InventoryRowCounter *prometheus.CounterVec // "added", "updated"

	// Low stock notifications
	LowStockAlertCounter *prometheus.CounterVec // "sent", "failed"

	// Object storage uploads
	StorageUploadCounter *prometheus.CounterVec // kind: "logo", "product_image", "inventory"

	// HTTP request counter by endpoint and status
	HTTPRequestCounter *prometheus.CounterVec

	// Status code category counter
	StatusCategoryCounter *prometheus.CounterVec
)

// Histogram metrics
var (
	RequestDuration     *prometheus.HistogramVec
	DBOperationDuration *prometheus.HistogramVec
)

// Gauge metrics
var (
	InfoGauge *prometheus.GaugeVec
)

var registered []prometheus.Collector

func init() {
	InitMetrics(DefaultPrefix)
}

// sanitizePrefix turns a service name into a valid metric namespace
func sanitizePrefix(prefix string) string {
	if prefix == "" {
		return DefaultPrefix
	}
	return strings.Map(func(r rune) rune {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, prefix)
}

// InitMetrics (re)creates every metric under the given prefix and registers it with the
// default registry. Call it once at start-up, before serving requests.
func InitMetrics(prefix string) {
	ns := sanitizePrefix(prefix)

	for _, c := range registered {
		prometheus.Unregister(c)
	}

	RegisterCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "register_total", Help: "Total number of registrations",
	}, []string{"kind"})
	LoginCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "login_total", Help: "Total number of successful logins",
	}, []string{"kind"})
	AuthErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "auth_errors_total", Help: "Total number of authentication errors",
	}, []string{"type"})
	CartOperationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "cart_operations_total", Help: "Total number of cart operations",
	}, []string{"operation"})
	InventoryRowCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "inventory_rows_total", Help: "Total number of inventory rows imported from spreadsheets",
	}, []string{"result"})
	LowStockAlertCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "low_stock_alerts_total", Help: "Total number of low stock alerts dispatched",
	}, []string{"result"})
	StorageUploadCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "storage_uploads_total", Help: "Total number of object storage uploads",
	}, []string{"kind", "result"})
	HTTPRequestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "http_requests_total", Help: "Total number of HTTP requests by endpoint and status",
	}, []string{"endpoint", "method", "status"})
	StatusCategoryCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "http_status_category_total", Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
	}, []string{"category"})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Name: "request_duration_seconds", Help: "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status"})
	DBOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Name: "db_operation_duration_seconds", Help: "Duration of database operations in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	InfoGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns, Name: "info", Help: "Information about the back office service",
	}, []string{"version"})

	registered = []prometheus.Collector{
		RegisterCounter, LoginCounter, AuthErrorCounter, CartOperationCounter,
		InventoryRowCounter, LowStockAlertCounter, StorageUploadCounter,
		HTTPRequestCounter, StatusCategoryCounter,
		RequestDuration, DBOperationDuration,
		InfoGauge,
	}
	for _, c := range registered {
		prometheus.MustRegister(c)
	}

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation starts timing a database operation. The returned func records the
// elapsed time when called, so it is meant to be deferred:
//
//	defer prometheus.TrackDBOperation("query")()
func TrackDBOperation(operation string) func() {
	startTime := time.Now()
	return func() {
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(time.Since(startTime).Seconds())
	}
}

// statusCategory maps a status code to its class label
func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}

// MetricsMiddleware creates a middleware function that captures metrics for each request.
// It must run outside the request logger, which renders errors so the status is final here.
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := c.Response().Status
			labels := prometheus.Labels{
				"endpoint": c.Path(),
				"method":   c.Request().Method,
				"status":   strconv.Itoa(status),
			}

			RequestDuration.With(labels).Observe(duration)
			HTTPRequestCounter.With(labels).Inc()
			if category := statusCategory(status); category != "" {
				StatusCategoryCounter.With(prometheus.Labels{"category": category}).Inc()
			}

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordRegister records a registration for the given identity kind
func RecordRegister(kind string) {
	RegisterCounter.With(prometheus.Labels{"kind": kind}).Inc()
}

// RecordLogin records a successful login for the given identity kind
func RecordLogin(kind string) {
	LoginCounter.With(prometheus.Labels{"kind": kind}).Inc()
}

// RecordCartOperation records a cart operation
func RecordCartOperation(operation string) {
	CartOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordInventoryRows adds n rows to the given import result
func RecordInventoryRows(result string, n int) {
	if n <= 0 {
		return
	}
	InventoryRowCounter.With(prometheus.Labels{"result": result}).Add(float64(n))
}

// RecordLowStockAlert records the outcome of one low stock notification
func RecordLowStockAlert(err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	LowStockAlertCounter.With(prometheus.Labels{"result": result}).Inc()
}

// RecordStorageUpload records the outcome of one object storage upload
func RecordStorageUpload(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StorageUploadCounter.With(prometheus.Labels{"kind": kind, "result": result}).Inc()
}
